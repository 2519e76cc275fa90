package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/muurk/retools/internal/can"
	"github.com/muurk/retools/internal/logging"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	a := NewQueue(4, nil)
	b := NewQueue(4, nil)
	hub.RegisterListener(a)
	hub.RegisterListener(b)
	hub.RegisterListener(a)

	if hub.Listeners() != 2 {
		t.Fatalf("Listeners() = %d, want 2", hub.Listeners())
	}

	hub.Publish(can.Frame{ID: 0x100})

	if a.Len() != 1 || b.Len() != 1 {
		t.Errorf("queue lengths = %d, %d, want 1, 1", a.Len(), b.Len())
	}
	if hub.Published() != 1 {
		t.Errorf("Published() = %d, want 1", hub.Published())
	}
}

func TestHubDeregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	q := NewQueue(4, nil)
	hub.RegisterListener(q)
	hub.DeregisterListener(q)

	hub.Publish(can.Frame{ID: 0x100})

	if q.Len() != 0 {
		t.Errorf("deregistered queue received %d frames", q.Len())
	}
	// deregistering twice is harmless
	hub.DeregisterListener(q)
}

func TestHubFullListenerDoesNotBlock(t *testing.T) {
	hub := NewHub()
	slow := NewQueue(1, nil)
	fast := NewQueue(10, nil)
	hub.RegisterListener(slow)
	hub.RegisterListener(fast)

	for i := 0; i < 5; i++ {
		hub.Publish(can.Frame{ID: uint32(i)})
	}

	if slow.Dropped() != 4 {
		t.Errorf("slow.Dropped() = %d, want 4", slow.Dropped())
	}
	if fast.Len() != 5 {
		t.Errorf("fast.Len() = %d, want 5", fast.Len())
	}
}

func TestBlockingHubWaitsForConsumer(t *testing.T) {
	hub := NewBlockingHub()
	q := NewQueue(1, nil)
	hub.RegisterListener(q)

	const total = 50
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			hub.Publish(can.Frame{ID: uint32(i)})
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < total; i++ {
		f, err := q.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive() error = %v after %d frames", err, i)
		}
		if f.ID != uint32(i) {
			t.Fatalf("frame %d has id %d", i, f.ID)
		}
	}
	wg.Wait()

	if q.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", q.Dropped())
	}
}

func TestHubConcurrentPublishBeforeLoggerSetup(t *testing.T) {
	logging.SetLogger(nil)

	hub := NewHub()
	q := NewQueue(1000, nil)
	hub.RegisterListener(q)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(can.Frame{Origin: "can1", ID: uint32(i), DLC: 1, Data: [8]byte{byte(j)}})
			}
		}(i)
	}
	wg.Wait()

	if hub.Published() != 400 {
		t.Errorf("Published() = %d, want 400", hub.Published())
	}
	if q.Len() != 400 {
		t.Errorf("Len() = %d, want 400", q.Len())
	}
}
