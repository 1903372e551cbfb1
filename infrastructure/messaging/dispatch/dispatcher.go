package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blog/infrastructure/messaging"
	"blog/pkg/logger"
)

// Status of a processed envelope as reported to the transport.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
)

// Result describes the outcome of processing one envelope.
type Result struct {
	Status    Status
	EventType string
	Handler   string
}

// DeadLetterSink is the operator-visible failure surface for envelopes whose
// retry budget is exhausted. The pipeline does not auto-recover past it.
type DeadLetterSink interface {
	Publish(ctx context.Context, env *messaging.Envelope, cause error) error
}

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 30 * time.Second
)

// Dispatcher executes the per-envelope protocol: resolve handler, reconstruct
// event, invoke, retry on handler failure, dead-letter on exhaustion.
type Dispatcher struct {
	registry    *Registry
	deadLetter  DeadLetterSink
	maxAttempts int
	retryDelay  time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxAttempts overrides the total attempt budget (default 3).
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithRetryDelay overrides the fixed delay between attempts (default 30s).
func WithRetryDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		if delay >= 0 {
			d.retryDelay = delay
		}
	}
}

// NewDispatcher wires a dispatcher. The registry must already be validated;
// deadLetter may be nil, in which case terminal failures are only logged.
func NewDispatcher(registry *Registry, deadLetter DeadLetterSink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:    registry,
		deadLetter:  deadLetter,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process handles one envelope end to end. The returned error is terminal:
// the retry budget is already spent and the envelope has been dead-lettered.
// Callers acknowledge the delivery after Process returns, success or not.
func (d *Dispatcher) Process(ctx context.Context, env *messaging.Envelope) (Result, error) {
	log := logger.With(
		zap.String("event_type", env.EventType),
		zap.String("event_id", env.EventID),
	)

	factory, ok := d.registry.Resolve(env.EventType)
	if !ok {
		log.Info("no handler registered, skipping envelope")
		return Result{Status: StatusSkipped, EventType: env.EventType}, nil
	}

	event, err := env.Decode()
	if err != nil {
		if !errors.Is(err, messaging.ErrNotReconstructable) {
			log.Warn("event reconstruction failed, degrading to raw envelope", zap.Error(err))
		} else {
			log.Warn("event not reconstructable, degrading to raw envelope")
		}
		event = nil
	}

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		// Collaborators are resolved fresh per attempt
		handler := factory()

		if err := handler.Handle(ctx, event, env); err != nil {
			lastErr = err
			log.Warn("handler failed",
				zap.String("handler", handler.Name()),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", d.maxAttempts),
				zap.Error(err),
			)
			if attempt < d.maxAttempts {
				if err := d.wait(ctx); err != nil {
					return Result{EventType: env.EventType, Handler: handler.Name()}, err
				}
			}
			continue
		}

		log.Info("envelope processed", zap.String("handler", handler.Name()), zap.Int("attempt", attempt))
		return Result{Status: StatusOK, EventType: env.EventType, Handler: handler.Name()}, nil
	}

	terminal := fmt.Errorf("dispatch of %s exhausted %d attempts: %w", env.EventType, d.maxAttempts, lastErr)
	log.Error("retry budget exhausted, dead-lettering envelope", zap.Error(lastErr))

	if d.deadLetter != nil {
		if dlErr := d.deadLetter.Publish(ctx, env, terminal); dlErr != nil {
			log.Error("dead-letter publish failed", zap.Error(dlErr))
		}
	}

	return Result{EventType: env.EventType}, terminal
}

func (d *Dispatcher) wait(ctx context.Context) error {
	if d.retryDelay == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
