/*
Package rabbitmq - AMQP-backed event bus

Durable-queue producer and consumer for the domain-event pipeline. The
producer keeps a background connection loop with jittered exponential backoff;
publishes are persistent so envelopes survive a broker restart. The consumer
side uses manual acknowledgment deferred until dispatch completes.
*/
package rabbitmq

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"blog/domain/shared"
	"blog/infrastructure/messaging"
)

// Config for the AMQP transport. Queue is the domain-event queue; the
// dead-letter queue derives from it as "<queue>.dead". HealthQueue is a
// separate queue for liveness probes so checks never mix with events.
type Config struct {
	URL         string
	Queue       string
	HealthQueue string
	ConnTimeout time.Duration
}

// DeadLetterQueue returns the queue name for terminally failed envelopes.
func (c Config) DeadLetterQueue() string { return c.Queue + ".dead" }

type reconnectingChannel struct {
	cfg    Config
	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed chan struct{}
	ready  chan struct{} // closed when a channel is ready
}

func newReconnectingChannel(cfg Config) *reconnectingChannel {
	rc := &reconnectingChannel{
		cfg:    cfg,
		closed: make(chan struct{}),
		ready:  make(chan struct{}),
	}
	go rc.run()
	return rc
}

func (rc *reconnectingChannel) publish(ctx context.Context, routingKey string, body []byte) error {
	return rc.publishWith(ctx, routingKey, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
}

func (rc *reconnectingChannel) publishWith(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	rc.mu.RLock()
	ch := rc.ch
	rc.mu.RUnlock()
	if ch == nil {
		select {
		case <-rc.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
		rc.mu.RLock()
		ch = rc.ch
		rc.mu.RUnlock()
		if ch == nil {
			return fmt.Errorf("%w: rabbitmq not connected", shared.ErrDeliveryUnavailable)
		}
	}

	return ch.PublishWithContext(
		ctx,
		"", // default exchange routes directly to the named queue
		routingKey,
		false,
		false,
		msg,
	)
}

func (rc *reconnectingChannel) run() {
	backoff := time.Second
	const maxBackoff = 30 * time.Second
	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // backoff jitter only

	for {
		select {
		case <-rc.closed:
			return
		default:
		}

		conn, ch, err := rc.connect()
		if err != nil {
			jitter := time.Duration(rng.Int63n(int64(backoff / 2)))
			sleep := backoff + jitter/2
			if sleep > maxBackoff {
				sleep = maxBackoff
			}
			t := time.NewTimer(sleep)
			select {
			case <-rc.closed:
				t.Stop()
				return
			case <-t.C:
			}
			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}

		backoff = time.Second

		rc.mu.Lock()
		rc.conn = conn
		rc.ch = ch
		oldReady := rc.ready
		rc.ready = make(chan struct{})
		close(oldReady)
		close(rc.ready)
		rc.mu.Unlock()

		// Block until the connection drops, then loop to reconnect
		notify := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-rc.closed:
			_ = ch.Close()
			_ = conn.Close()
			return
		case <-notify:
			_ = ch.Close()
			_ = conn.Close()
		}
	}
}

func (rc *reconnectingChannel) connect() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(rc.cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "blog"},
		Dial:       amqp.DefaultDial(rc.cfg.ConnTimeout),
	})
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	if err := declareQueues(ch, rc.cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

func declareQueues(ch *amqp.Channel, cfg Config) error {
	names := []string{cfg.Queue, cfg.DeadLetterQueue()}
	if cfg.HealthQueue != "" {
		names = append(names, cfg.HealthQueue)
	}
	for _, name := range names {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return err
		}
	}
	return nil
}

func (rc *reconnectingChannel) close() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	select {
	case <-rc.closed:
		return
	default:
		close(rc.closed)
	}
	if rc.ch != nil {
		_ = rc.ch.Close()
		rc.ch = nil
	}
	if rc.conn != nil {
		_ = rc.conn.Close()
		rc.conn = nil
	}
}

// EventBus is the AMQP-backed shared.EventBus. Publish serializes the event
// into an envelope and enqueues it for asynchronous processing; it fails with
// ErrDeliveryUnavailable when the broker cannot accept the delivery.
type EventBus struct {
	cfg Config
	rc  *reconnectingChannel
}

// NewEventBus starts the connection loop and returns the bus plus a cleanup.
func NewEventBus(cfg Config) (*EventBus, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: rabbitmq url required", shared.ErrDeliveryUnavailable)
	}
	if cfg.Queue == "" {
		return nil, nil, fmt.Errorf("%w: rabbitmq queue required", shared.ErrDeliveryUnavailable)
	}
	rc := newReconnectingChannel(cfg)
	bus := &EventBus{cfg: cfg, rc: rc}
	return bus, rc.close, nil
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
	if err := b.rc.publish(ctx, b.cfg.Queue, body); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDeliveryUnavailable, err)
	}
	return nil
}

// PublishRaw enqueues an already serialized envelope. The outbox relay uses
// this to forward stored payloads without re-encoding.
func (b *EventBus) PublishRaw(ctx context.Context, body []byte) error {
	if err := b.rc.publish(ctx, b.cfg.Queue, body); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDeliveryUnavailable, err)
	}
	return nil
}

// HealthCheck publishes a ping to the health queue, proving the broker
// accepts deliveries end to end. Probe traffic stays off the event queue.
func (b *EventBus) HealthCheck(ctx context.Context) error {
	if b.cfg.HealthQueue == "" {
		return fmt.Errorf("%w: health queue not configured", shared.ErrDeliveryUnavailable)
	}
	msg := amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Expiration:   "10000", // expire unconsumed pings after 10s
		Body:         []byte(fmt.Sprintf(`{"ping":%q}`, time.Now().UTC().Format(time.RFC3339))),
	}
	if err := b.rc.publishWith(ctx, b.cfg.HealthQueue, msg); err != nil {
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
