package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/league-engine/metrics"
)

const (
	DefaultBufferSize = 256
	publishTimeout    = 5 * time.Second
)

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Dispatcher queues events and publishes them from a single background goroutine.
// Dispatch never blocks: when the buffer is full the event is dropped and logged.
type Dispatcher struct {
	queue     chan Event
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	done      chan struct{}
	closeOnce sync.Once
}

func NewDispatcher(publisher Publisher, bufferSize int, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Dispatcher{
		queue:     make(chan Event, bufferSize),
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		done:      make(chan struct{}),
	}
}

func (d *Dispatcher) Dispatch(event Event) {
	select {
	case <-d.done:
		d.drop(event, "dispatcher closed")
		return
	default:
	}

	select {
	case d.queue <- event:
	default:
		d.drop(event, "buffer full")
	}
}

func (d *Dispatcher) drop(event Event, reason string) {
	d.metrics.NotificationDropped()
	d.logger.Warn("Notification dropped",
		slog.String("reason", reason),
		slog.String("type", string(event.Type)),
		slog.String("league_id", event.LeagueID.String()),
	)
}

// Run publishes queued events until ctx is cancelled or Close is called, then flushes
// whatever is still buffered.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			d.publish(ctx, event)
		case <-ctx.Done():
			d.flush(context.WithoutCancel(ctx))
			return
		case <-d.done:
			d.flush(ctx)
			return
		}
	}
}

func (d *Dispatcher) flush(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			d.publish(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event Event) {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(pubCtx, event); err != nil {
		d.metrics.NotificationFailed()
		d.logger.Error("Failed to publish notification",
			slog.String("subject", event.Subject()),
			slog.Any("error", err),
		)
		return
	}
	d.metrics.NotificationPublished()
}

func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}
