package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

// RouterDeps wires the payment outcome router
type RouterDeps struct {
	Logger        *logrus.Logger
	Adapter       watermill.LoggerAdapter
	NewSubscriber SubscriberConstructor
	Bookings      PaymentOutcomes
}

// NewRouter creates the message router that feeds payment outcomes into the
// booking service
func NewRouter(deps RouterDeps) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, deps.Adapter)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(correlationIDMiddleware)
	router.AddMiddleware(loggerMiddleware(deps.Logger))
	router.AddMiddleware(handlerLogMiddleware(deps.Logger))
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
		Logger:          deps.Adapter,
	}.Middleware)

	ep, err := cqrs.NewEventProcessorWithConfig(router, cqrs.EventProcessorConfig{
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return deps.NewSubscriber(params.HandlerName)
		},
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return params.EventName, nil
		},
		Marshaler: cqrs.JSONMarshaler{
			GenerateName: cqrs.StructName,
		},
		Logger: deps.Adapter,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event processor: %w", err)
	}

	h := NewHandler(deps.Bookings, deps.Logger)
	if err := ep.AddHandlers(
		cqrs.NewEventHandler("confirm-on-payment-succeeded", h.PaymentSucceeded),
		cqrs.NewEventHandler("cancel-on-payment-failed", h.PaymentFailed),
		cqrs.NewEventHandler("record-refund-completed", h.RefundCompleted),
	); err != nil {
		return nil, fmt.Errorf("adding handlers: %w", err)
	}

	return router, nil
}

func correlationIDMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		correlationID := middleware.MessageCorrelationID(msg)
		if correlationID == "" {
			correlationID = "gen_" + shortuuid.New()
		}

		msg.SetContext(ContextWithCorrelationID(msg.Context(), correlationID))
		return next(msg)
	}
}

func loggerMiddleware(logger *logrus.Logger) message.HandlerMiddleware {
	return func(next message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			entry := logger.WithFields(logrus.Fields{
				"message_uuid":   msg.UUID,
				"correlation_id": CorrelationIDFromContext(msg.Context()),
				"handler":        message.HandlerNameFromCtx(msg.Context()),
			})
			msg.SetContext(contextWithLogger(msg.Context(), entry))
			return next(msg)
		}
	}
}

func handlerLogMiddleware(logger *logrus.Logger) message.HandlerMiddleware {
	return func(next message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			entry := loggerFromContext(msg.Context(), logger)
			entry.Debug("Handling a message")

			msgs, err := next(msg)
			if err != nil {
				entry.WithError(err).Error("Message handling error")
			}
			return msgs, err
		}
	}
}
