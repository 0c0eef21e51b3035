package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"event-rsvp-backend/internal/metrics"
	"event-rsvp-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// ChangeNotifier is what the Dispatcher drives
type ChangeNotifier interface {
	NotifyEventChange(ctx context.Context, eventID string, category models.Category, event *models.Event) (*FanoutResult, error)
	NotifyEventCreatorOfRsvp(ctx context.Context, eventID, rsvpingUserID string) (bool, error)
}

// Dispatcher runs workers that take changes off the queue and notify
// subscribers, off the request path
type Dispatcher struct {
	queue    Queue
	notifier ChangeNotifier
	workers  int
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher
func NewDispatcher(queue Queue, notifier ChangeNotifier, workers int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{queue: queue, notifier: notifier, workers: workers, timeout: timeout}
}

// Run blocks until ctx is cancelled and every worker has returned
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.work(ctx, worker)
		}(i)
	}
	wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, worker int) {
	for {
		change, err := d.queue.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Int("worker", worker).Msg("Failed to consume change")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		d.Handle(ctx, change)
	}
}

// Handle notifies for one change. Errors are logged.
func (d *Dispatcher) Handle(ctx context.Context, change models.Change) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	var err error
	switch change.Kind {
	case models.ChangeEvent:
		_, err = d.notifier.NotifyEventChange(ctx, change.EventID, change.Category, change.Event)
	case models.ChangeRsvpCreated:
		_, err = d.notifier.NotifyEventCreatorOfRsvp(ctx, change.EventID, change.UserID)
	default:
		err = errors.New("unknown change kind")
	}
	if err != nil {
		log.Error().Err(err).
			Str("kind", string(change.Kind)).
			Str("event_id", change.EventID).
			Msg("Failed to dispatch change")
	}
}

// publishTimeout bounds how long a request waits on the queue backend
const publishTimeout = 2 * time.Second

// publish hands a change to the dispatcher. A failure is logged and
// counted; the mutation that produced the change has already been committed.
func publish(ctx context.Context, p Publisher, change models.Change) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.Publish(ctx, change); err != nil {
		metrics.ChangesDropped.WithLabelValues(string(change.Kind)).Inc()
		log.Error().Err(err).
			Str("kind", string(change.Kind)).
			Str("event_id", change.EventID).
			Msg("Failed to publish change")
	}
}
