package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"blog/infrastructure/messaging"
	"blog/pkg/logger"
)

// Delivery is one envelope handed over by the transport. Ack confirms the
// delivery after processing; a worker crash before Ack causes redelivery.
type Delivery struct {
	Envelope *messaging.Envelope
	Ack      func() error
}

// Source abstracts the consuming side of a broker queue.
// Receive blocks until a delivery arrives or the context is cancelled.
type Source interface {
	Receive(ctx context.Context) (*Delivery, error)
}

// defaultReceiveBackoff is the pause after a failed Receive, so a broker
// outage does not turn the worker loop into a busy spin.
const defaultReceiveBackoff = 1 * time.Second

// Pool runs N independent workers pulling from a shared source.
// Envelopes are processed concurrently with no ordering guarantee.
type Pool struct {
	source         Source
	dispatcher     *Dispatcher
	concurrency    int
	receiveBackoff time.Duration
}

func NewPool(source Source, dispatcher *Dispatcher, concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		source:         source,
		dispatcher:     dispatcher,
		concurrency:    concurrency,
		receiveBackoff: defaultReceiveBackoff,
	}
}

// Run blocks until the context is cancelled, then waits for in-flight
// envelopes to finish. An envelope already being processed is not interrupted.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.work(ctx, workerID)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (p *Pool) work(ctx context.Context, workerID int) {
	log := logger.With(zap.Int("worker", workerID))
	for {
		delivery, err := p.source.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Error("receive failed", zap.Error(err))
			if !p.pause(ctx) {
				return
			}
			continue
		}
		if delivery == nil {
			return
		}

		// Terminal failures are already dead-lettered by the dispatcher, so
		// the delivery is acknowledged either way.
		if _, err := p.dispatcher.Process(ctx, delivery.Envelope); err != nil &&
			(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			// Cancelled mid-processing: leave unacked for redelivery
			return
		}

		if delivery.Ack != nil {
			if err := delivery.Ack(); err != nil {
				log.Error("ack failed", zap.Error(err))
			}
		}
	}
}

// pause sleeps for the receive backoff, returning false when the context is
// cancelled first.
func (p *Pool) pause(ctx context.Context) bool {
	timer := time.NewTimer(p.receiveBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
