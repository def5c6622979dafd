package billing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignAndVerify(t *testing.T) {
	sig := Sign("secret", "a=1&b=2")
	assert.True(t, VerifySignature("secret", sig, "a=1&b=2"))
	assert.True(t, VerifySignature("secret", strings.ToUpper(sig), "a=1&b=2"), "hex case must not matter")

	assert.False(t, VerifySignature("secret", sig, "a=1&b=3"))
	assert.False(t, VerifySignature("other", sig, "a=1&b=2"))
	assert.False(t, VerifySignature("secret", "", "a=1&b=2"))
}

func TestCanonicalQuerySortsKeys(t *testing.T) {
	got := CanonicalQuery(map[string]string{
		"vnp_TxnRef":   "VNP-1",
		"vnp_Amount":   "100",
		"vnp_CurrCode": "VND",
	})
	assert.Equal(t, "vnp_Amount=100&vnp_CurrCode=VND&vnp_TxnRef=VNP-1", got)
}

func TestCanonicalQueryIsStable(t *testing.T) {
	params := map[string]string{"b": "2", "a": "1", "c": "3"}
	first := CanonicalQuery(params)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CanonicalQuery(params))
	}
}
