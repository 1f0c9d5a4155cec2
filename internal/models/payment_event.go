package models

// Payment webhook event names
const (
	PaymentEventSucceeded       = "payment_succeeded"
	PaymentEventFailed          = "payment_failed"
	PaymentEventRefundCompleted = "refund_completed"
)

// PaymentWebhookRequest is the callback body posted by the payment gateway
type PaymentWebhookRequest struct {
	Event            string  `json:"event" binding:"required,oneof=payment_succeeded payment_failed refund_completed"`
	BookingID        string  `json:"booking_id" binding:"required,uuid"`
	PaymentReference string  `json:"payment_reference"`
	Reason           string  `json:"reason"`
	Amount           float64 `json:"amount" binding:"min=0"`
}
