package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"blog/infrastructure/messaging"
	"blog/infrastructure/messaging/dispatch"
	"blog/pkg/logger"
)

// Consumer pulls envelopes from the durable domain-event queue with manual
// acknowledgment. It satisfies dispatch.Source for the worker pool.
type Consumer struct {
	cfg        Config
	conn       *amqp.Connection
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
}

// NewConsumer dials the broker, declares the queues, and starts consuming.
// prefetch bounds the unacked deliveries per worker pool.
func NewConsumer(cfg Config, prefetch int) (*Consumer, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "blog-worker"},
		Dial:       amqp.DefaultDial(cfg.ConnTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := declareQueues(ch, cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq declare: %w", err)
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("rabbitmq qos: %w", err)
		}
	}

	deliveries, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}

	return &Consumer{cfg: cfg, conn: conn, ch: ch, deliveries: deliveries}, nil
}

// Receive blocks for the next delivery. Malformed payloads are rejected
// without requeue so they cannot poison the queue.
func (c *Consumer) Receive(ctx context.Context) (*dispatch.Delivery, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-c.deliveries:
			if !ok {
				return nil, fmt.Errorf("rabbitmq consume channel closed")
			}
			env, err := messaging.UnmarshalEnvelope(d.Body)
			if err != nil {
				logger.Warn("discarding malformed envelope", zap.Error(err))
				_ = d.Reject(false)
				continue
			}
			return &dispatch.Delivery{
				Envelope: env,
				Ack:      func() error { return d.Ack(false) },
			}, nil
		}
	}
}

// Close tears down the consuming channel and connection.
func (c *Consumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

var _ dispatch.Source = (*Consumer)(nil)

// DeadLetterSink publishes terminally failed envelopes to the dead-letter
// queue, annotated with the failure cause.
type DeadLetterSink struct {
	cfg Config
	rc  *reconnectingChannel
}

// NewDeadLetterSink reuses the producer's connection machinery for the
// operator-visible failure queue.
func NewDeadLetterSink(cfg Config) (*DeadLetterSink, func()) {
	rc := newReconnectingChannel(cfg)
	return &DeadLetterSink{cfg: cfg, rc: rc}, rc.close
}

func (s *DeadLetterSink) Publish(ctx context.Context, env *messaging.Envelope, cause error) error {
	// Annotate without mutating the original payload
	dead := &messaging.Envelope{
		EventType:  env.EventType,
		EventID:    env.EventID,
		OccurredAt: env.OccurredAt,
		Data:       make(map[string]interface{}, len(env.Data)+2),
	}
	for k, v := range env.Data {
		dead.Data[k] = v
	}
	dead.Data["dead_letter_reason"] = cause.Error()
	dead.Data["dead_lettered_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	body, err := dead.Marshal()
	if err != nil {
		return fmt.Errorf("dead-letter marshal: %w", err)
	}
	return s.rc.publish(ctx, s.cfg.DeadLetterQueue(), body)
}

var _ dispatch.DeadLetterSink = (*DeadLetterSink)(nil)
