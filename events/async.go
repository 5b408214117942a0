package events

import (
	"context"
	"errors"
	"sync"

	"github.com/kbukum/codecompass/logger"
)

var (
	// ErrQueueFull is returned when the async queue cannot take another event.
	ErrQueueFull = errors.New("events: queue full, event dropped")
	// ErrPublisherClosed is returned after Close.
	ErrPublisherClosed = errors.New("events: publisher is closed")
)

// AsyncPublisher queues events and hands them to next from a single
// goroutine, so Publish never waits on the broker.
type AsyncPublisher struct {
	next   Publisher
	log    *logger.Logger
	queue  chan Event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewAsyncPublisher starts the drain goroutine. size is the queue capacity.
func NewAsyncPublisher(next Publisher, size int, log *logger.Logger) *AsyncPublisher {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &AsyncPublisher{
		next:   next,
		log:    log.WithComponent("events.async"),
		queue:  make(chan Event, size),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go p.run()
	return p
}

// Publish enqueues e without blocking. A full queue drops the event.
func (p *AsyncPublisher) Publish(_ context.Context, e Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for e := range p.queue {
		if err := p.next.Publish(p.ctx, e); err != nil {
			p.log.Warn("Failed to publish auth event", logger.Fields(
				"event_type", string(e.Type),
				logger.FieldError, err.Error(),
			))
		}
	}
}

// Close stops accepting events and waits for queued ones to be written.
// When ctx ends first the in-flight write is canceled and the rest dropped.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-p.done
		return ctx.Err()
	}
}
