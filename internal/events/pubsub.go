package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"github.com/smarttransit/seat-booking-engine/internal/config"
)

// SubscriberConstructor creates the subscriber for one named handler
type SubscriberConstructor func(handlerName string) (message.Subscriber, error)

// PubSub is the transport pair used by the event bus and the router
type PubSub struct {
	Publisher     message.Publisher
	NewSubscriber SubscriberConstructor
	closers       []func() error
}

// Close releases the transport
func (p *PubSub) Close() error {
	for _, closeFn := range p.closers {
		if err := closeFn(); err != nil {
			return err
		}
	}
	return nil
}

// NewPubSub selects the in-process channel or Redis Streams transport.
// With Redis every handler reads through its own consumer group.
func NewPubSub(cfg config.PaymentConfig, redisClient *redis.Client, logger watermill.LoggerAdapter) (*PubSub, error) {
	switch cfg.EventTransport {
	case config.EventTransportRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis event transport requires a redis client")
		}
		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: redisClient,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating redis publisher: %w", err)
		}
		return &PubSub{
			Publisher: publisher,
			NewSubscriber: func(handlerName string) (message.Subscriber, error) {
				return redisstream.NewSubscriber(redisstream.SubscriberConfig{
					Client:        redisClient,
					ConsumerGroup: cfg.ConsumerGroup + "." + handlerName,
				}, logger)
			},
			closers: []func() error{publisher.Close},
		}, nil

	case config.EventTransportMemory, "":
		channel := gochannel.NewGoChannel(gochannel.Config{}, logger)
		return &PubSub{
			Publisher: channel,
			NewSubscriber: func(string) (message.Subscriber, error) {
				return channel, nil
			},
			closers: []func() error{channel.Close},
		}, nil

	default:
		return nil, fmt.Errorf("unknown event transport %q", cfg.EventTransport)
	}
}
