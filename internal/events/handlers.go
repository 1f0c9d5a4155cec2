package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/models"
	"github.com/smarttransit/seat-booking-engine/internal/services"
)

// PaymentOutcomes is the booking side of the payment boundary
type PaymentOutcomes interface {
	OnPaymentSucceeded(ctx context.Context, bookingID uuid.UUID, paymentRef string) (*models.Booking, error)
	OnPaymentFailed(ctx context.Context, bookingID uuid.UUID, reason string) (*models.Booking, error)
	OnRefundCompleted(ctx context.Context, bookingID uuid.UUID, amount float64) (*models.Booking, error)
}

// Handler turns payment events into booking transitions
type Handler struct {
	bookings PaymentOutcomes
	logger   *logrus.Logger
}

// NewHandler creates a new Handler
func NewHandler(bookings PaymentOutcomes, logger *logrus.Logger) Handler {
	return Handler{bookings: bookings, logger: logger}
}

func (h Handler) PaymentSucceeded(ctx context.Context, e *PaymentSucceeded) error {
	_, err := h.bookings.OnPaymentSucceeded(ctx, e.BookingID, e.PaymentReference)
	return h.settle(ctx, err, e.BookingID, "payment succeeded")
}

func (h Handler) PaymentFailed(ctx context.Context, e *PaymentFailed) error {
	_, err := h.bookings.OnPaymentFailed(ctx, e.BookingID, e.Reason)
	return h.settle(ctx, err, e.BookingID, "payment failed")
}

func (h Handler) RefundCompleted(ctx context.Context, e *RefundCompleted) error {
	_, err := h.bookings.OnRefundCompleted(ctx, e.BookingID, e.Amount)
	return h.settle(ctx, err, e.BookingID, "refund completed")
}

// settle acks outcomes the booking can never accept, so they are not retried
func (h Handler) settle(ctx context.Context, err error, bookingID uuid.UUID, outcome string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, services.ErrInvalidTransition) || errors.Is(err, services.ErrBookingNotFound) {
		loggerFromContext(ctx, h.logger).WithFields(logrus.Fields{
			"booking_id": bookingID,
			"outcome":    outcome,
		}).WithError(err).Warn("Payment outcome rejected")
		return nil
	}
	return err
}
