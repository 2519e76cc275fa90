package bus

import (
	"context"
	"sync/atomic"

	"github.com/muurk/retools/internal/can"
)

// DefaultQueueSize is the listener queue depth used when none is configured
const DefaultQueueSize = 20

// Queue is a bounded frame queue owned by one listener
type Queue struct {
	ch      chan can.Frame
	dropped atomic.Uint64
	onDrop  func(can.Frame)
}

// NewQueue creates a queue holding up to size frames. onDrop, if non-nil, is
// called from the publisher's goroutine for every frame dropped because the
// queue was full.
func NewQueue(size int, onDrop func(can.Frame)) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		ch:     make(chan can.Frame, size),
		onDrop: onDrop,
	}
}

// Push enqueues a frame without blocking. It returns false if the frame was
// dropped.
func (q *Queue) Push(f can.Frame) bool {
	select {
	case q.ch <- f:
		return true
	default:
		q.dropped.Add(1)
		if q.onDrop != nil {
			q.onDrop(f)
		}
		return false
	}
}

// Receive blocks until a frame is available or ctx is done
func (q *Queue) Receive(ctx context.Context) (can.Frame, error) {
	select {
	case f := <-q.ch:
		return f, nil
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	}
}

// Drain discards all buffered frames and returns how many were discarded
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

// Len returns the number of buffered frames
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Dropped returns the number of frames dropped because the queue was full
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
