package bus

import (
	"sync"
	"sync/atomic"

	"github.com/muurk/retools/internal/can"
	"github.com/muurk/retools/internal/logging"
)

// Sink receives frames from a source
type Sink interface {
	Publish(f can.Frame)
}

// Hub fans published frames out to every registered listener queue
type Hub struct {
	mu        sync.RWMutex
	listeners map[*Queue]struct{}
	published atomic.Uint64
	blocking  bool
}

// NewHub creates an empty hub that drops frames for full listeners
func NewHub() *Hub {
	return &Hub{
		listeners: make(map[*Queue]struct{}),
	}
}

// NewBlockingHub creates a hub whose Publish waits for room in each listener
// queue instead of dropping. Replaying a capture file uses it so every frame
// is counted. A blocking hub must only feed listeners whose consumer runs
// until after it is deregistered.
func NewBlockingHub() *Hub {
	h := NewHub()
	h.blocking = true
	return h
}

// RegisterListener adds a queue to the fan-out set. Registering the same
// queue twice is a no-op.
func (h *Hub) RegisterListener(q *Queue) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners[q] = struct{}{}
}

// DeregisterListener removes a queue from the fan-out set. When it returns,
// no Publish call is still pushing into q.
func (h *Hub) DeregisterListener(q *Queue) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners, q)
}

// Publish delivers a frame to all listeners without blocking
func (h *Hub) Publish(f can.Frame) {
	h.published.Add(1)
	logging.LogFrame("published", f)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for q := range h.listeners {
		if h.blocking {
			q.ch <- f
			continue
		}
		if !q.Push(f) {
			logging.LogFrame("dropped", f)
		}
	}
}

// Listeners returns the number of registered listeners
func (h *Hub) Listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Published returns the number of frames published since creation
func (h *Hub) Published() uint64 {
	return h.published.Load()
}
