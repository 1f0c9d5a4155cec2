package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
)

// Header is carried by every event on the bus
type Header struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

// NewHeader creates a header with a fresh id
func NewHeader() Header {
	return Header{
		ID:          watermill.NewUUID(),
		PublishedAt: time.Now().UTC(),
	}
}

// NewHeaderWithIdempotencyKey creates a header keyed for deduplication downstream
func NewHeaderWithIdempotencyKey(key string) Header {
	h := NewHeader()
	h.IdempotencyKey = key
	return h
}

// PaymentSucceeded reports a captured payment for a booking
type PaymentSucceeded struct {
	Header           Header    `json:"header"`
	BookingID        uuid.UUID `json:"booking_id"`
	PaymentReference string    `json:"payment_reference"`
}

// PaymentFailed reports a declined or abandoned payment
type PaymentFailed struct {
	Header    Header    `json:"header"`
	BookingID uuid.UUID `json:"booking_id"`
	Reason    string    `json:"reason"`
}

// RefundCompleted reports that the payment side returned the money
type RefundCompleted struct {
	Header    Header    `json:"header"`
	BookingID uuid.UUID `json:"booking_id"`
	Amount    float64   `json:"amount"`
}

// RefundRequested asks the payment side to refund a captured payment
type RefundRequested struct {
	Header           Header    `json:"header"`
	BookingID        uuid.UUID `json:"booking_id"`
	BookingReference string    `json:"booking_reference"`
	PaymentReference string    `json:"payment_reference"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	Reason           string    `json:"reason"`
}
