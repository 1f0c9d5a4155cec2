package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/lithammer/shortuuid/v3"
	"github.com/smarttransit/seat-booking-engine/internal/services"
)

// Bus publishes events; topics are the event struct names
type Bus struct {
	eventBus *cqrs.EventBus
}

// NewBus creates an event bus on publisher. The correlation id found in the
// publishing context is copied onto every message.
func NewBus(publisher message.Publisher, logger watermill.LoggerAdapter) (*Bus, error) {
	eventBus, err := cqrs.NewEventBusWithConfig(correlationPublisher{Publisher: publisher}, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			return params.EventName, nil
		},
		Marshaler: cqrs.JSONMarshaler{
			GenerateName: cqrs.StructName,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event bus: %w", err)
	}
	return &Bus{eventBus: eventBus}, nil
}

// correlationPublisher stamps the correlation id of the publishing context
// onto outgoing messages
type correlationPublisher struct {
	message.Publisher
}

func (p correlationPublisher) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		correlationID := CorrelationIDFromContext(msg.Context())
		if correlationID == "" {
			correlationID = middleware.MessageCorrelationID(msg)
		}
		if correlationID == "" {
			correlationID = "gen_" + shortuuid.New()
		}
		middleware.SetCorrelationID(correlationID, msg)
	}
	return p.Publisher.Publish(topic, messages...)
}

// Publish sends one event
func (b *Bus) Publish(ctx context.Context, event any) error {
	return b.eventBus.Publish(ctx, event)
}

// RequestRefund publishes a RefundRequested event. The booking id keys
// deduplication on the payment side.
func (b *Bus) RequestRefund(ctx context.Context, req services.RefundRequest) error {
	event := RefundRequested{
		Header:           NewHeaderWithIdempotencyKey("refund-" + req.BookingID.String()),
		BookingID:        req.BookingID,
		BookingReference: req.BookingReference,
		PaymentReference: req.PaymentReference,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Reason:           req.Reason,
	}
	if err := b.Publish(ctx, event); err != nil {
		return fmt.Errorf("publishing refund request: %w", err)
	}
	return nil
}
