/*
Package natsbus - JetStream-backed event bus

NATS JetStream gives the domain-event pipeline durable, at-least-once
delivery. The producer publishes envelopes to a stream subject; the consumer
side pulls from a durable consumer with explicit acks.
*/
package natsbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"blog/domain/shared"
	"blog/infrastructure/messaging"
	"blog/infrastructure/messaging/dispatch"
	"blog/pkg/logger"
)

// Config for the JetStream transport. Subject carries the domain events;
// Durable names the pull consumer shared by the worker pool.
type Config struct {
	URL           string
	Name          string
	Stream        string
	Subject       string
	Durable       string
	ConnTimeout   time.Duration
	MaxReconnects int
}

func connect(cfg Config) (*nats.Conn, nats.JetStreamContext, error) {
	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}
	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream context: %w", err)
	}

	// Idempotent: AddStream on an existing stream with the same config is a no-op
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
	}); err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream add stream: %w", err)
	}

	return nc, js, nil
}

func drain(nc *nats.Conn) {
	if nc != nil && !nc.IsClosed() {
		_ = nc.Drain()
		nc.Close()
	}
}

// EventBus publishes envelopes to the JetStream subject.
type EventBus struct {
	cfg Config
	nc  *nats.Conn
	js  nats.JetStreamContext
}

// NewEventBus connects, ensures the stream exists, and returns bus + cleanup.
func NewEventBus(cfg Config) (*EventBus, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: nats url required", shared.ErrDeliveryUnavailable)
	}
	nc, js, err := connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrDeliveryUnavailable, err)
	}
	bus := &EventBus{cfg: cfg, nc: nc, js: js}
	return bus, func() { drain(nc) }, nil
}

func (b *EventBus) Publish(ctx context.Context, event shared.DomainEvent) error {
	if err := shared.ValidateEvent(event); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDeliveryUnavailable, err)
	}
	env, err := messaging.Encode(event)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDeliveryUnavailable, err)
	}
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDeliveryUnavailable, err)
	}
	if _, err := b.js.Publish(b.cfg.Subject, body, nats.Context(ctx)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDeliveryUnavailable, err)
	}
	return nil
}

func (b *EventBus) PublishMany(ctx context.Context, events []shared.DomainEvent) error {
	for _, event := range events {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

var _ shared.EventBus = (*EventBus)(nil)

// Consumer pulls envelopes from the durable JetStream consumer.
// Satisfies dispatch.Source.
type Consumer struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

func NewConsumer(cfg Config) (*Consumer, error) {
	nc, js, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	sub, err := js.PullSubscribe(cfg.Subject, cfg.Durable, nats.AckExplicit())
	if err != nil {
		drain(nc)
		return nil, fmt.Errorf("jetstream pull subscribe: %w", err)
	}
	return &Consumer{nc: nc, sub: sub}, nil
}

func (c *Consumer) Receive(ctx context.Context) (*dispatch.Delivery, error) {
	for {
		msgs, err := c.sub.Fetch(1, nats.Context(ctx))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("jetstream fetch: %w", err)
		}
		if len(msgs) == 0 {
			continue
		}

		msg := msgs[0]
		env, err := messaging.UnmarshalEnvelope(msg.Data)
		if err != nil {
			logger.Warn("discarding malformed envelope", zap.Error(err))
			_ = msg.Term()
			continue
		}
		return &dispatch.Delivery{
			Envelope: env,
			Ack:      func() error { return msg.Ack() },
		}, nil
	}
}

func (c *Consumer) Close() error {
	_ = c.sub.Unsubscribe()
	drain(c.nc)
	return nil
}

var _ dispatch.Source = (*Consumer)(nil)
