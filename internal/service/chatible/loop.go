package chatible

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/chatible/internal/logger"
	"github.com/oggyb/chatible/internal/messenger"
)

var (
	// ErrQueueClosed is returned by Submit after the loop was closed.
	ErrQueueClosed = errors.New("chatible: queue closed")
	// ErrQueueFull indicates the queue is saturated and the event was not accepted.
	ErrQueueFull = errors.New("chatible: queue full")
)

// Deduper reports whether a message id is seen for the first time.
// cache.RedisCache implements it.
type Deduper interface {
	FirstDelivery(ctx context.Context, mid string, ttl time.Duration) (bool, error)
}

type queued struct {
	rid string
	ev  messenger.Event
}

// Loop feeds inbound events to the service one at a time, in arrival order.
type Loop struct {
	svc   *Service
	dedup Deduper
	ttl   time.Duration
	log   *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

// NewLoop creates a loop with a queue of size events. dedup may be nil.
func NewLoop(svc *Service, size int, dedup Deduper, ttl time.Duration) *Loop {
	if size <= 0 {
		size = 1024
	}
	return &Loop{
		svc:   svc,
		dedup: dedup,
		ttl:   ttl,
		log:   svc.log.With("component", "chatible.loop"),
		queue: make(chan queued, size),
		done:  make(chan struct{}),
	}
}

// Submit enqueues ev without blocking.
func (l *Loop) Submit(ev messenger.Event) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrQueueClosed
	}

	select {
	case l.queue <- queued{rid: uuid.NewString(), ev: ev}:
		return nil
	default:
		l.log.Warn("event.dropped", "sender", ev.Sender.ID, "reason", "queue full")
		return ErrQueueFull
	}
}

// Close stops accepting events. Run drains what is already queued.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Run processes events until the loop is closed and drained. Cancelling ctx
// closes the loop.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	stop := context.AfterFunc(ctx, l.Close)
	defer stop()

	// events must run to completion once dequeued
	handleCtx := context.WithoutCancel(ctx)
	for item := range l.queue {
		l.handle(handleCtx, item)
	}
}

func (l *Loop) handle(ctx context.Context, item queued) {
	if mid := messageID(item.ev); mid != "" && l.dedup != nil {
		first, err := l.dedup.FirstDelivery(ctx, mid, l.ttl)
		if err != nil {
			l.log.Warn("dedup check failed", "rid", item.rid, "mid", mid, "err", err)
		} else if !first {
			l.log.Debug("duplicate delivery", "rid", item.rid, "mid", mid)
			return
		}
	}

	start := time.Now()
	l.svc.ProcessEvent(ctx, item.ev)
	l.log.Debug("event handled", "rid", item.rid, "sender", item.ev.Sender.ID, "took", logger.Since(start))
}

func messageID(ev messenger.Event) string {
	if ev.Message != nil {
		return ev.Message.MID
	}
	return ""
}
