package retools

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/muurk/retools/internal/bus"
	"github.com/muurk/retools/internal/can"
)

func newTestEngine(t *testing.T, opts Options) (*Engine, *bus.Hub, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	opts.Clock = mock
	hub := bus.NewBlockingHub()
	e := NewEngine(hub, opts)
	t.Cleanup(func() {
		if e.Running() {
			_ = e.Stop()
		}
	})
	return e, hub, mock
}

// feed publishes frames and waits until the engine has ingested them
func feed(t *testing.T, e *Engine, hub *bus.Hub, frames ...can.Frame) {
	t.Helper()
	want := e.Processed() + uint64(len(frames))
	for _, f := range frames {
		hub.Publish(f)
	}
	deadline := time.Now().Add(2 * time.Second)
	for e.Processed() < want {
		if time.Now().After(deadline) {
			t.Fatalf("processed %d frames, want %d", e.Processed(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func entryByKey(r Report, key string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

func TestEngineLifecycle(t *testing.T) {
	e, hub, _ := newTestEngine(t, Options{})

	if err := e.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() while idle error = %v, want %v", err, ErrNotRunning)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if hub.Listeners() != 1 {
		t.Errorf("Listeners() = %d after start, want 1", hub.Listeners())
	}
	if err := e.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Start() while running error = %v, want %v", err, ErrAlreadyRunning)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if hub.Listeners() != 0 {
		t.Errorf("Listeners() = %d after stop, want 0", hub.Listeners())
	}
	if e.Running() {
		t.Error("Running() = true after stop")
	}
}

func TestEngineIdleCommandsFail(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})

	tests := []struct {
		name string
		run  func() error
	}{
		{"clear", e.Clear},
		{"list", func() error { _, err := e.List(""); return err }},
		{"key set", func() error { _, err := e.SetKey(0x100, []int{1}); return err }},
		{"key clear", func() error { return e.ClearKey(0x100) }},
		{"key list", func() error { _, err := e.Keys(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, ErrNotRunning) {
				t.Errorf("error = %v, want %v", err, ErrNotRunning)
			}
			if typ, ok := ErrorTypeOf(err); !ok || typ != ErrTypeLifecycle {
				t.Errorf("ErrorTypeOf() = %v, %v, want %v, true", typ, ok, ErrTypeLifecycle)
			}
		})
	}
}

func TestEngineStopThenList(t *testing.T) {
	e, hub, _ := newTestEngine(t, Options{})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	feed(t, e, hub, frame("can1", 0x100, false, 1))
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	r, err := e.List("")
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("List() error = %v, want %v", err, ErrNotRunning)
	}
	if len(r.Entries) != 0 {
		t.Errorf("List() returned %d rows, want 0", len(r.Entries))
	}
}

func TestEngineStopUnblocksIdleConsumer(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return with no traffic on the bus")
	}
}

func TestEngineMaskedScenario(t *testing.T) {
	e, hub, _ := newTestEngine(t, Options{})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	mask, err := e.SetKey(0x100, []int{1})
	if err != nil {
		t.Fatalf("SetKey() error = %v", err)
	}
	if mask != 0x01 {
		t.Errorf("SetKey() mask = 0x%02x, want 0x01", mask)
	}

	feed(t, e, hub,
		frame("can1", 0x100, false, 0x01),
		frame("can1", 0x100, false, 0x02),
		frame("can1", 0x100, false, 0x01),
	)

	r, err := e.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(r.Entries) != 2 {
		t.Fatalf("List() returned %d rows, want 2: %+v", len(r.Entries), r.Entries)
	}
	want := map[string]uint64{"can1/100:01": 2, "can1/100:02": 1}
	for key, count := range want {
		got, ok := entryByKey(r, key)
		if !ok {
			t.Errorf("key %q missing", key)
			continue
		}
		if got.Count != count {
			t.Errorf("key %q count = %d, want %d", key, got.Count, count)
		}
	}
}

func TestEngineUnmaskedScenario(t *testing.T) {
	e, hub, _ := newTestEngine(t, Options{})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	feed(t, e, hub, frame("can0", 0x7FF, false, 0xDE, 0xAD))

	r, err := e.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(r.Entries) != 1 {
		t.Fatalf("List() returned %d rows, want 1", len(r.Entries))
	}
	got := r.Entries[0]
	if got.Key != "can0/7ff" {
		t.Errorf("key = %q, want %q", got.Key, "can0/7ff")
	}
	if got.Count != 1 {
		t.Errorf("count = %d, want 1", got.Count)
	}
	if got.LastPayload() != "de ad" {
		t.Errorf("LastPayload() = %q, want %q", got.LastPayload(), "de ad")
	}
}

func TestEngineCountingInvariant(t *testing.T) {
	e, hub, _ := newTestEngine(t, Options{})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const n = 50
	frames := make([]can.Frame, n)
	for i := range frames {
		frames[i] = frame("can1", 0x123, false, byte(i))
	}
	feed(t, e, hub, frames...)

	r, err := e.List("can1/123")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got, ok := entryByKey(r, "can1/123")
	if !ok {
		t.Fatal("key can1/123 missing")
	}
	if got.Count != n {
		t.Errorf("count = %d, want %d", got.Count, n)
	}
	if got.Last != frames[n-1] {
		t.Errorf("last = %v, want %v", got.Last, frames[n-1])
	}
}

func TestEngineListFilterAndOrder(t *testing.T) {
	e, hub, _ := newTestEngine(t, Options{})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	feed(t, e, hub,
		frame("can1", 0x300, false),
		frame("can0", 0x200, false),
		frame("can1", 0x100, false),
		frame("can1", 0x12, true),
	)

	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"can0/200", "can1/00000012", "can1/100", "can1/300"}},
		{"can1/", []string{"can1/00000012", "can1/100", "can1/300"}},
		{"00", []string{"can0/200", "can1/00000012", "can1/100", "can1/300"}},
		{"/3", []string{"can1/300"}},
		{"nomatch", nil},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			r, err := e.List(tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var got []string
			for _, entry := range r.Entries {
				got = append(got, entry.Key)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("keys = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("keys[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEngineRate(t *testing.T) {
	e, hub, mock := newTestEngine(t, Options{})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	feed(t, e, hub, frame("can1", 0x100, false), frame("can1", 0x100, false))

	r, err := e.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got := r.Entries[0].PerOccurrenceMS; got != 0 {
		t.Errorf("PerOccurrenceMS at zero elapsed = %d, want 0 (1ms floor / 2)", got)
	}

	mock.Add(time.Second)
	r, err = e.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got := r.Entries[0].PerOccurrenceMS; got != 500 {
		t.Errorf("PerOccurrenceMS = %d, want 500", got)
	}
	if r.Elapsed != time.Second {
		t.Errorf("Elapsed = %v, want 1s", r.Elapsed)
	}
	if r.Frames != 2 {
		t.Errorf("Frames = %d, want 2", r.Frames)
	}
}

func TestEngineClear(t *testing.T) {
	e, hub, mock := newTestEngine(t, Options{})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Clearing an empty table leaves it empty
	if err := e.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if r, _ := e.List(""); len(r.Entries) != 0 {
		t.Errorf("List() after clearing empty table = %d rows, want 0", len(r.Entries))
	}

	if _, err := e.SetKey(0x100, []int{2}); err != nil {
		t.Fatalf("SetKey() error = %v", err)
	}
	feed(t, e, hub, frame("can1", 0x100, false, 0, 7), frame("can1", 0x200, false))
	mock.Add(5 * time.Second)

	if err := e.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	r, err := e.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(r.Entries) != 0 {
		t.Errorf("List() after clear = %d rows, want 0", len(r.Entries))
	}
	if r.Elapsed != 0 {
		t.Errorf("Elapsed after clear = %v, want 0", r.Elapsed)
	}

	keys, err := e.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 1 || keys[0].ID != 0x100 || keys[0].Mask != 0x02 {
		t.Errorf("Keys() after clear = %v, want [100 bytes 2 (0x02)]", keys)
	}

	if err := e.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestEngineMaskIndependence(t *testing.T) {
	e, hub, _ := newTestEngine(t, Options{})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	feed(t, e, hub, frame("can1", 0x100, false, 0x01))

	if _, err := e.SetKey(0x100, []int{1}); err != nil {
		t.Fatalf("SetKey() error = %v", err)
	}
	feed(t, e, hub, frame("can1", 0x100, false, 0x01))

	r, _ := e.List("")
	for key, count := range map[string]uint64{"can1/100": 1, "can1/100:01": 1} {
		got, ok := entryByKey(r, key)
		if !ok || got.Count != count {
			t.Errorf("key %q = %+v, %v, want count %d", key, got, ok, count)
		}
	}

	if err := e.ClearKey(0x100); err != nil {
		t.Fatalf("ClearKey() error = %v", err)
	}
	after, _ := e.List("")
	if len(after.Entries) != len(r.Entries) {
		t.Fatalf("rows after ClearKey = %d, want %d", len(after.Entries), len(r.Entries))
	}
	for i := range r.Entries {
		if after.Entries[i] != r.Entries[i] {
			t.Errorf("entry %d changed: %+v, want %+v", i, after.Entries[i], r.Entries[i])
		}
	}
}

func TestEngineClearKeyNotFound(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := e.ClearKey(0x456)
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("ClearKey() error = %v, want %v", err, ErrKeyNotFound)
	}
	if typ, _ := ErrorTypeOf(err); typ != ErrTypeNotFound {
		t.Errorf("ErrorTypeOf() = %v, want %v", typ, ErrTypeNotFound)
	}
	if want := "ID 456: no key set for ID"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestEngineMasksSurviveRestart(t *testing.T) {
	e, _, _ := newTestEngine(t, Options{PresetKeys: map[uint32][]int{0x7E8: {1, 2}}})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := e.SetKey(0x100, []int{3}); err != nil {
		t.Fatalf("SetKey() error = %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	keys, err := e.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	want := []MaskEntry{{ID: 0x100, Mask: 0x04}, {ID: 0x7E8, Mask: 0x03}}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %v, want %v", i, keys[i], want[i])
		}
	}
}

func TestEngineConcurrentListConsistency(t *testing.T) {
	e, hub, _ := newTestEngine(t, Options{QueueSize: 4})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const n = 2000
	var stop atomic.Bool
	var wg sync.WaitGroup
	var inconsistent atomic.Int64

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				report, err := e.List("")
				if err != nil {
					return
				}
				for _, entry := range report.Entries {
					seq := binary.BigEndian.Uint32(entry.Last.Data[:4])
					if uint64(seq) != entry.Count {
						inconsistent.Add(1)
					}
				}
			}
		}()
	}

	frames := make([]can.Frame, n)
	for i := range frames {
		f := frame("can1", 0x321, false, 0, 0, 0, 0)
		binary.BigEndian.PutUint32(f.Data[:4], uint32(i+1))
		frames[i] = f
	}
	feed(t, e, hub, frames...)

	stop.Store(true)
	wg.Wait()

	if got := inconsistent.Load(); got != 0 {
		t.Errorf("%d listings paired a count with a payload from another iteration", got)
	}
	r, _ := e.List("")
	if len(r.Entries) != 1 || r.Entries[0].Count != n {
		t.Errorf("final entries = %+v, want one entry with count %d", r.Entries, n)
	}
}

func TestEngineCountsDroppedFrames(t *testing.T) {
	mock := clock.NewMock()
	hub := bus.NewHub()
	rec := &countingRecorder{}
	e := NewEngine(hub, Options{QueueSize: 1, Clock: mock, Recorder: rec})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer e.Stop()

	for i := 0; i < 500; i++ {
		hub.Publish(frame("can1", 0x100, false))
	}

	deadline := time.Now().Add(2 * time.Second)
	for rec.received.Load()+rec.dropped.Load() < 500 {
		if time.Now().After(deadline) {
			t.Fatalf("received %d + dropped %d, want 500", rec.received.Load(), rec.dropped.Load())
		}
		time.Sleep(time.Millisecond)
	}
	r, err := e.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if r.Dropped != rec.dropped.Load() {
		t.Errorf("Report.Dropped = %d, recorder saw %d", r.Dropped, rec.dropped.Load())
	}
}

type countingRecorder struct {
	received atomic.Uint64
	dropped  atomic.Uint64
	records  atomic.Int64
	running  atomic.Bool
}

func (r *countingRecorder) FrameReceived(string) { r.received.Add(1) }
func (r *countingRecorder) FrameDropped()        { r.dropped.Add(1) }
func (r *countingRecorder) SetRecords(n int)     { r.records.Store(int64(n)) }
func (r *countingRecorder) SetMasks(int)         {}
func (r *countingRecorder) SetRunning(v bool)    { r.running.Store(v) }

func TestEngineRecordsGaugeAfterConcurrentClear(t *testing.T) {
	rec := &countingRecorder{}
	e, hub, _ := newTestEngine(t, Options{Recorder: rec})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const n = 500
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			hub.Publish(frame("can1", uint32(i), false))
		}
	}()
	for i := 0; i < 50; i++ {
		if err := e.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		time.Sleep(100 * time.Microsecond)
	}
	<-done

	deadline := time.Now().Add(2 * time.Second)
	for rec.received.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("received %d frames, want %d", rec.received.Load(), n)
		}
		time.Sleep(time.Millisecond)
	}

	r, err := e.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got := rec.records.Load(); got != int64(len(r.Entries)) {
		t.Errorf("records gauge = %d, want %d", got, len(r.Entries))
	}

	if err := e.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := rec.records.Load(); got != 0 {
		t.Errorf("records gauge after Clear = %d, want 0", got)
	}
}

func TestEngineReportsQueue(t *testing.T) {
	e, hub, _ := newTestEngine(t, Options{QueueSize: 7})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	feed(t, e, hub, frame("can1", 0x100, false))

	r, err := e.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if r.QueueSize != 7 {
		t.Errorf("QueueSize = %d, want 7", r.QueueSize)
	}
	if r.Backlog != 0 {
		t.Errorf("Backlog = %d, want 0 once frames are ingested", r.Backlog)
	}
}
