package payment

import "time"

const ProviderPayfront = "payfront"

// Normalized event types after provider parsing.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventPaymentCanceled = "payment.canceled"
)

// PaymentEvent is the provider-agnostic shape of one payment notification
// used by the purchase orchestrator.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	EventType       string
	ProviderOrderID string
	AmountCents     int64
	Currency        string
	OccurredAt      *time.Time
	RawPayloadJSON  string
}
