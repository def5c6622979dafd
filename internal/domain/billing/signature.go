package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign produces the hex HMAC-SHA256 over the concatenated parts.
func Sign(secret string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	for _, p := range parts {
		mac.Write([]byte(p))
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time.
func VerifySignature(secret, signature string, parts ...string) bool {
	expected := Sign(secret, parts...)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// CanonicalQuery renders key=value pairs sorted by key and joined with '&',
// the signing base both MoMo and VNPay use. Signature fields themselves are
// excluded by the caller.
func CanonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}
