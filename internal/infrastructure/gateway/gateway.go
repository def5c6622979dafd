package gateway

import (
	"github.com/google/uuid"

	dombilling "github.com/shopvn-labs/commerce-core/internal/domain/billing"
)

// refundReference derives a fresh gateway-side reference for a refund. Each
// refund needs its own reference so the audit trail's uniqueness holds across
// repeated partial refunds of one capture.
func refundReference(captureReference string) string {
	return captureReference + "-RF-" + uuid.NewString()[:8]
}

// All returns the adapter set for every supported payment method.
func All(vnpaySecret, momoSecret, stripeSecret string) []dombilling.GatewayAdapter {
	return []dombilling.GatewayAdapter{
		NewCOD(),
		NewVNPay(vnpaySecret, ""),
		NewMoMo(momoSecret, ""),
		NewStripe(stripeSecret),
	}
}
