package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

// ErrQueueFull is returned to the publisher when notifications back up.
var ErrQueueFull = errors.New("notification queue full")

// Notifier is the work a NotificationWorker performs per event.
type Notifier interface {
	Handles() []events.EventType
	Handle(ctx context.Context, event events.Event) error
}

// NotificationWorker moves notification delivery off the request path. Published events
// are queued and handled by a single background goroutine.
type NotificationWorker struct {
	notifier Notifier
	logger   *zap.Logger
	queue    chan events.Event
	wg       sync.WaitGroup
}

// NewNotificationWorker builds a worker with room for buffer pending events.
func NewNotificationWorker(notifier Notifier, logger *zap.Logger, buffer int) *NotificationWorker {
	if buffer <= 0 {
		buffer = 64
	}
	return &NotificationWorker{
		notifier: notifier,
		logger:   logger,
		queue:    make(chan events.Event, buffer),
	}
}

// Register subscribes the worker to every event type the notifier handles.
func (w *NotificationWorker) Register(dispatcher events.Dispatcher) {
	for _, eventType := range w.notifier.Handles() {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the worker until ctx is cancelled, then drains what is already queued.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case event := <-w.queue:
				w.handle(event)
			case <-ctx.Done():
				w.drain()
				return
			}
		}
	}()
}

// Wait blocks until the worker goroutine has exited.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) drain() {
	for {
		select {
		case event := <-w.queue:
			w.handle(event)
		default:
			return
		}
	}
}

func (w *NotificationWorker) handle(event events.Event) {
	if err := w.notifier.Handle(context.Background(), event); err != nil {
		w.logger.Warn("notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}
