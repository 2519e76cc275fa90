package bus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/muurk/retools/internal/can"
)

// collector is a Sink that records frames
type collector struct {
	mu     sync.Mutex
	frames []can.Frame
}

func (c *collector) Publish(f can.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
}

func (c *collector) all() []can.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]can.Frame(nil), c.frames...)
}

type stubSource struct {
	name   string
	frames []can.Frame
	err    error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Run(ctx context.Context, sink Sink) error {
	for _, f := range s.frames {
		sink.Publish(f)
	}
	return s.err
}

func TestRunSources(t *testing.T) {
	sink := &collector{}
	err := RunSources(context.Background(), sink,
		&stubSource{name: "a", frames: []can.Frame{{ID: 1}, {ID: 2}}},
		&stubSource{name: "b", frames: []can.Frame{{ID: 3}}},
	)
	if err != nil {
		t.Fatalf("RunSources() error = %v", err)
	}
	if got := len(sink.all()); got != 3 {
		t.Errorf("published %d frames, want 3", got)
	}
}

func TestRunSourcesReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := RunSources(context.Background(), &collector{},
		&stubSource{name: "ok"},
		&stubSource{name: "bad", err: boom},
	)
	if !errors.Is(err, boom) {
		t.Errorf("RunSources() error = %v, want wrapped boom", err)
	}
}

func TestNATSHandleMessage(t *testing.T) {
	a, _ := can.Frame{ID: 0x100, DLC: 1, Data: [8]byte{1}}.MarshalBinary()
	b, _ := can.Frame{ID: 0x200, DLC: 1, Data: [8]byte{2}}.MarshalBinary()

	tests := []struct {
		name       string
		origin     string
		subject    string
		data       []byte
		wantCount  int
		wantOrigin string
	}{
		{"origin from subject", "", "can.can1", a, 1, "can1"},
		{"origin override", "bus0", "can.can1", a, 1, "bus0"},
		{"batched frames", "", "can2", append(append([]byte{}, a...), b...), 2, "can2"},
		{"partial frame dropped", "", "can.can1", a[:10], 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &collector{}
			src := &NATSSource{Subject: "can.>", Origin: tt.origin}
			src.handleMessage(tt.subject, tt.data, sink)

			frames := sink.all()
			if len(frames) != tt.wantCount {
				t.Fatalf("published %d frames, want %d", len(frames), tt.wantCount)
			}
			for _, f := range frames {
				if f.Origin != tt.wantOrigin {
					t.Errorf("origin = %q, want %q", f.Origin, tt.wantOrigin)
				}
			}
		})
	}
}

func TestOriginFromSubject(t *testing.T) {
	tests := map[string]string{
		"can.can1":         "can1",
		"vehicle.bus.can3": "can3",
		"can0":             "can0",
	}
	for in, want := range tests {
		if got := originFromSubject(in); got != want {
			t.Errorf("originFromSubject(%q) = %q, want %q", in, got, want)
		}
	}
}
