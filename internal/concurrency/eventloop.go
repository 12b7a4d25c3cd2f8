// File: internal/concurrency/eventloop.go
// Package concurrency implements the event loop that owns the connection slot.
// Events are queued FIFO and dispatched in batches to registered handlers on
// the goroutine that called Run.

package concurrency

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/wsecho/api"
)

// EventHandler consumes socket events on the loop goroutine.
type EventHandler interface {
	HandleEvent(ev api.SocketEvent)
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ev api.SocketEvent)

// HandleEvent calls f(ev).
func (f HandlerFunc) HandleEvent(ev api.SocketEvent) { f(ev) }

// EventLoop is a bounded multi-producer, single-consumer event queue.
type EventLoop struct {
	mu       sync.Mutex
	queue    *queue.Queue
	capacity int
	notify   chan struct{}

	handlers  atomic.Pointer[[]EventHandler]
	batchSize int

	stopCh   chan struct{}
	stopOnce sync.Once
	running  int32

	posted    uint64
	dropped   uint64
	processed uint64
}

// NewEventLoop creates a new EventLoop. queueSize is rounded up to a power
// of two; Post fails once that many events are waiting.
func NewEventLoop(batchSize, queueSize int) *EventLoop {
	if batchSize <= 0 {
		batchSize = 16
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	loop := &EventLoop{
		queue:     queue.New(),
		capacity:  int(nextPowerOfTwo(uint32(queueSize))),
		notify:    make(chan struct{}, 1),
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
	}
	loop.handlers.Store(&[]EventHandler{})
	return loop
}

// Capacity returns the maximum number of queued events.
func (el *EventLoop) Capacity() int {
	return el.capacity
}

// Pending returns the number of queued events.
func (el *EventLoop) Pending() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.queue.Length()
}

func (el *EventLoop) RegisterHandler(h EventHandler) {
	for {
		old := el.handlers.Load()
		newSlice := make([]EventHandler, len(*old), len(*old)+1)
		copy(newSlice, *old)
		newSlice = append(newSlice, h)
		if el.handlers.CompareAndSwap(old, &newSlice) {
			return
		}
	}
}

func (el *EventLoop) UnregisterHandler(h EventHandler) {
	for {
		old := el.handlers.Load()
		newSlice := make([]EventHandler, 0, len(*old))
		for _, hh := range *old {
			if hh != h {
				newSlice = append(newSlice, hh)
			}
		}
		if el.handlers.CompareAndSwap(old, &newSlice) {
			return
		}
	}
}

// Post enqueues ev. It is safe from any goroutine and reports false when
// the queue is full or the loop has been stopped. Terminal events are
// admitted past capacity so a bound slot is always released; the socket
// layer posts at most one per connection.
func (el *EventLoop) Post(ev api.SocketEvent) bool {
	select {
	case <-el.stopCh:
		atomic.AddUint64(&el.dropped, 1)
		return false
	default:
	}
	el.mu.Lock()
	if el.queue.Length() >= el.capacity && !ev.Kind.Terminal() {
		el.mu.Unlock()
		atomic.AddUint64(&el.dropped, 1)
		return false
	}
	el.queue.Add(ev)
	el.mu.Unlock()
	atomic.AddUint64(&el.posted, 1)

	select {
	case el.notify <- struct{}{}:
	default:
	}
	return true
}

// Run dispatches events until ctx is done or Stop is called. Only one Run
// may be active; a second call returns immediately.
func (el *EventLoop) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&el.running, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&el.running, 0)

	batch := make([]api.SocketEvent, el.batchSize)
	for {
		if el.processBatch(batch) > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-el.stopCh:
			return nil
		case <-el.notify:
		}
	}
}

// Stop makes Run return after the batch in progress. Queued events are
// left in place and can still be consumed with Drain.
func (el *EventLoop) Stop() {
	el.stopOnce.Do(func() { close(el.stopCh) })
}

// Drain dispatches everything currently queued on the calling goroutine
// and returns the number of events handled. It must not race with Run.
func (el *EventLoop) Drain() int {
	batch := make([]api.SocketEvent, el.batchSize)
	total := 0
	for {
		n := el.processBatch(batch)
		if n == 0 {
			return total
		}
		total += n
	}
}

// Stats returns counters for metrics reporting.
func (el *EventLoop) Stats() map[string]uint64 {
	return map[string]uint64{
		"posted":    atomic.LoadUint64(&el.posted),
		"dropped":   atomic.LoadUint64(&el.dropped),
		"processed": atomic.LoadUint64(&el.processed),
	}
}

func (el *EventLoop) processBatch(batch []api.SocketEvent) int {
	count := 0
	el.mu.Lock()
	for count < len(batch) && el.queue.Length() > 0 {
		batch[count] = el.queue.Remove().(api.SocketEvent)
		count++
	}
	el.mu.Unlock()

	handlers := *el.handlers.Load()
	for i := 0; i < count; i++ {
		for _, h := range handlers {
			h.HandleEvent(batch[i])
		}
		batch[i] = api.SocketEvent{}
	}
	atomic.AddUint64(&el.processed, uint64(count))
	return count
}

func nextPowerOfTwo(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
