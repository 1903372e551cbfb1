/*
Package kafkabus - Kafka-backed event bus

Envelopes go to a single topic keyed by aggregate ID, so events of one
aggregate land on one partition and keep their relative order. The consumer
side runs in a consumer group with commits deferred until dispatch completes.
*/
package kafkabus

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"blog/domain/shared"
	"blog/infrastructure/messaging"
	"blog/infrastructure/messaging/dispatch"
	"blog/pkg/logger"
)

// Config for the Kafka transport. Brokers is a comma-separated seed list.
type Config struct {
	Brokers string
	Topic   string
	Group   string
}

func seeds(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// EventBus produces envelopes to the domain-event topic.
type EventBus struct {
	cfg    Config
	client *kgo.Client
}

func NewEventBus(cfg Config) (*EventBus, func(), error) {
	if cfg.Brokers == "" {
		return nil, nil, fmt.Errorf("%w: kafka brokers required", shared.ErrDeliveryUnavailable)
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds(cfg.Brokers)...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: kafka client: %v", shared.ErrDeliveryUnavailable, err)
	}
	bus := &EventBus{cfg: cfg, client: client}
	return bus, client.Close, nil
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

	record := &kgo.Record{
		Topic: b.cfg.Topic,
		Key:   []byte(event.AggregateID().String()),
		Value: body,
	}
	if err := b.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("%w: kafka produce: %v", shared.ErrDeliveryUnavailable, err)
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

// Consumer reads envelopes from the topic within a consumer group.
// Offsets are committed per record after dispatch, keeping at-least-once
// semantics across worker restarts.
type Consumer struct {
	client *kgo.Client

	mu      sync.Mutex
	backlog []*kgo.Record
}

func NewConsumer(cfg Config) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds(cfg.Brokers)...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumerGroup(cfg.Group),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer client: %w", err)
	}
	return &Consumer{client: client}, nil
}

func (c *Consumer) Receive(ctx context.Context) (*dispatch.Delivery, error) {
	for {
		record, err := c.next(ctx)
		if err != nil {
			return nil, err
		}

		env, err := messaging.UnmarshalEnvelope(record.Value)
		if err != nil {
			// Commit past the malformed record so it cannot poison the topic
			logger.Warn("discarding malformed envelope", zap.Error(err))
			_ = c.client.CommitRecords(ctx, record)
			continue
		}
		return &dispatch.Delivery{
			Envelope: env,
			Ack: func() error {
				return c.client.CommitRecords(context.Background(), record)
			},
		}, nil
	}
}

func (c *Consumer) next(ctx context.Context) (*kgo.Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c.mu.Lock()
		if len(c.backlog) > 0 {
			record := c.backlog[0]
			c.backlog = c.backlog[1:]
			c.mu.Unlock()
			return record, nil
		}
		c.mu.Unlock()

		fetches := c.client.PollFetches(ctx)
		if err := fetches.Err0(); err != nil {
			return nil, err
		}

		c.mu.Lock()
		fetches.EachRecord(func(r *kgo.Record) {
			c.backlog = append(c.backlog, r)
		})
		c.mu.Unlock()
	}
}

func (c *Consumer) Close() error {
	c.client.Close()
	return nil
}

var _ dispatch.Source = (*Consumer)(nil)
