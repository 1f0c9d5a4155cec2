package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-booking-engine/internal/events"
	"github.com/smarttransit/seat-booking-engine/internal/models"
)

// EventPublisher puts events on the bus
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// PaymentHandler receives payment gateway callbacks and forwards them as
// payment outcome events. Processing is asynchronous.
type PaymentHandler struct {
	publisher EventPublisher
	logger    *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(publisher EventPublisher, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{publisher: publisher, logger: logger}
}

// Webhook accepts a gateway callback
// @Summary Payment gateway webhook
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.PaymentWebhookRequest true "Gateway callback"
// @Success 202 {object} map[string]interface{} "Accepted for processing"
// @Failure 400 {object} map[string]interface{} "Invalid callback"
// @Router /api/v1/payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req models.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		respondBindError(c, err)
		return
	}

	correlationID := c.GetHeader("Correlation-ID")
	if correlationID == "" {
		correlationID = "gen_" + shortuuid.New()
	}
	ctx := events.ContextWithCorrelationID(c.Request.Context(), correlationID)

	var event any
	switch req.Event {
	case models.PaymentEventSucceeded:
		event = events.PaymentSucceeded{
			Header:           events.NewHeaderWithIdempotencyKey(req.PaymentReference),
			BookingID:        bookingID,
			PaymentReference: req.PaymentReference,
		}
	case models.PaymentEventFailed:
		event = events.PaymentFailed{
			Header:    events.NewHeaderWithIdempotencyKey(req.PaymentReference),
			BookingID: bookingID,
			Reason:    req.Reason,
		}
	case models.PaymentEventRefundCompleted:
		event = events.RefundCompleted{
			Header:    events.NewHeaderWithIdempotencyKey(req.PaymentReference),
			BookingID: bookingID,
			Amount:    req.Amount,
		}
	}

	if err := h.publisher.Publish(ctx, event); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"event":          req.Event,
		"booking_id":     bookingID,
		"correlation_id": correlationID,
	}).Info("Payment callback accepted")

	c.JSON(http.StatusAccepted, gin.H{
		"status":         "accepted",
		"correlation_id": correlationID,
	})
}
