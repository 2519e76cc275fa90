package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/muurk/retools/internal/bus"
	"github.com/muurk/retools/internal/can"
	"github.com/muurk/retools/internal/retools"
)

type memoryKeyStore struct {
	saved []retools.MaskEntry
	err   error
}

func (m *memoryKeyStore) SaveKeys(entries []retools.MaskEntry) error {
	if m.err != nil {
		return m.err
	}
	m.saved = entries
	return nil
}

func newTestConsole(t *testing.T, opts ...Option) (*Console, *retools.Engine, *bus.Hub, *bytes.Buffer) {
	t.Helper()
	hub := bus.NewBlockingHub()
	engine := retools.NewEngine(hub, retools.Options{})
	t.Cleanup(func() {
		if engine.Running() {
			_ = engine.Stop()
		}
	})
	out := &bytes.Buffer{}
	return New(engine, out, opts...), engine, hub, out
}

func TestConsoleCommands(t *testing.T) {
	tests := []struct {
		name    string
		setup   []string
		line    string
		want    string
		wantErr error
	}{
		{"start", nil, "start", "RE tools started\n", nil},
		{"start with re prefix", nil, "re start", "RE tools started\n", nil},
		{"start twice", []string{"start"}, "start", "Error: RE tools already running\n", retools.ErrAlreadyRunning},
		{"stop idle", nil, "stop", "Error: RE tools not running\n", retools.ErrNotRunning},
		{"stop", []string{"start"}, "stop", "RE tools stopped\n", nil},
		{"clear idle", nil, "clear", "Error: RE tools not running\n", retools.ErrNotRunning},
		{"clear", []string{"start"}, "clear", "Cleared RE records\n", nil},
		{"list idle", nil, "list", "Error: RE tools not running\n", retools.ErrNotRunning},
		{"key set idle", nil, "key set 100 1", "Error: RE tools not running\n", retools.ErrNotRunning},
		{"key set", []string{"start"}, "key set 100 1 3", "Set ID 100 to bytes 0x05\n", nil},
		{"key set ignores bad positions", []string{"start"}, "re key set 0x7e8 0 9 x 2", "Set ID 7e8 to bytes 0x02\n", nil},
		{"key set garbage id", []string{"start"}, "key set zz 1", "Set ID 0 to bytes 0x01\n", nil},
		{"key clear", []string{"start", "key set 100 1"}, "key clear 100", "Cleared ID key\n", nil},
		{"key clear missing", []string{"start"}, "key clear 456", "Error: ID 456: no key set for ID\n", retools.ErrKeyNotFound},
		{"key list empty", []string{"start"}, "key list", "No ID keys set\n", nil},
		{"key list", []string{"start", "key set 200 2", "key set 100 1 3"}, "key list", "100 bytes 1,3 (0x05)\n200 bytes 2 (0x02)\n", nil},
		{"key save without store", []string{"start"}, "key save", "Error: no config file to save keys to\n", ErrNoKeyStore},
		{"blank line", nil, "   ", "", nil},
		{"bare re", nil, "re", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _, out := newTestConsole(t)
			for _, line := range tt.setup {
				if err := c.Execute(line); err != nil {
					t.Fatalf("setup %q error = %v", line, err)
				}
			}
			out.Reset()

			err := c.Execute(tt.line)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Execute(%q) error = %v", tt.line, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Execute(%q) error = %v, want %v", tt.line, err, tt.wantErr)
			}
			if got := out.String(); got != tt.want {
				t.Errorf("Execute(%q) output = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestConsoleUsageErrors(t *testing.T) {
	lines := []string{
		"start now",
		"stop now",
		"clear all",
		"list a b",
		"key",
		"key set 100",
		"key set 100 1 2 3 4 5 6 7 8 9",
		"key clear",
		"key clear 1 2",
		"key list all",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			c, _, _, out := newTestConsole(t)
			err := c.Execute(line)
			var usage *UsageError
			if !errors.As(err, &usage) {
				t.Fatalf("Execute(%q) error = %v, want *UsageError", line, err)
			}
			if !strings.HasPrefix(out.String(), "Error: usage: ") {
				t.Errorf("output = %q, want usage report", out.String())
			}
		})
	}
}

func TestConsoleUnknownCommand(t *testing.T) {
	for _, line := range []string{"bogus", "key bogus"} {
		c, _, _, _ := newTestConsole(t)
		if err := c.Execute(line); !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("Execute(%q) error = %v, want %v", line, err, ErrUnknownCommand)
		}
	}
}

func TestConsoleList(t *testing.T) {
	c, engine, hub, out := newTestConsole(t)
	if err := c.Execute("start"); err != nil {
		t.Fatalf("start error = %v", err)
	}
	if err := c.Execute("key set 100 1"); err != nil {
		t.Fatalf("key set error = %v", err)
	}
	for _, b := range []byte{1, 2, 1} {
		f, _ := can.NewFrame("can1", 0x100, []byte{b, 0xAA})
		hub.Publish(f)
	}
	f, _ := can.NewFrame("can2", 0x7FF, nil)
	hub.Publish(f)
	waitProcessed(t, engine, 4)

	out.Reset()
	if err := c.Execute("list can1"); err != nil {
		t.Fatalf("list error = %v", err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("list output has %d lines, want 3:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "key ") {
		t.Errorf("header = %q", lines[0])
	}
	fields := strings.Fields(lines[1])
	if fields[0] != "can1/100:01" || fields[1] != "2" || strings.Join(fields[3:], " ") != "01 aa" {
		t.Errorf("row = %q, want can1/100:01 with count 2 and payload 01 aa", lines[1])
	}
	if !strings.HasPrefix(lines[2], "can1/100:02") {
		t.Errorf("row = %q, want can1/100:02", lines[2])
	}
}

func TestConsoleKeySave(t *testing.T) {
	store := &memoryKeyStore{}
	c, _, _, out := newTestConsole(t, WithKeyStore(store))
	for _, line := range []string{"start", "key set 100 1", "key set 7e8 2 3"} {
		if err := c.Execute(line); err != nil {
			t.Fatalf("%q error = %v", line, err)
		}
	}
	out.Reset()

	if err := c.Execute("key save"); err != nil {
		t.Fatalf("key save error = %v", err)
	}
	if out.String() != "Saved 2 ID keys\n" {
		t.Errorf("output = %q", out.String())
	}
	want := []retools.MaskEntry{{ID: 0x100, Mask: 0x01}, {ID: 0x7E8, Mask: 0x06}}
	if len(store.saved) != len(want) {
		t.Fatalf("saved = %v, want %v", store.saved, want)
	}
	for i := range want {
		if store.saved[i] != want[i] {
			t.Errorf("saved[%d] = %v, want %v", i, store.saved[i], want[i])
		}
	}

	store.err = errors.New("disk full")
	if err := c.Execute("key save"); err == nil {
		t.Error("key save with failing store succeeded")
	}
}

func TestConsoleReportWriter(t *testing.T) {
	called := false
	rw := func(w io.Writer, r retools.Report) error {
		called = true
		_, err := io.WriteString(w, "custom\n")
		return err
	}
	c, _, _, out := newTestConsole(t, WithReportWriter(rw))
	_ = c.Execute("start")
	out.Reset()

	if err := c.Execute("list"); err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !called || out.String() != "custom\n" {
		t.Errorf("called = %v, output = %q", called, out.String())
	}
}

func TestConsoleRun(t *testing.T) {
	c, engine, _, out := newTestConsole(t)
	in := strings.NewReader("start\nbogus\nkey set 100 1\nquit\nstop\n")

	if err := c.Run(context.Background(), in, "re> "); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !engine.Running() {
		t.Error("engine stopped, want commands after quit ignored")
	}
	got := out.String()
	for _, want := range []string{"re> RE tools started\n", "Error: unknown command", "Set ID 100 to bytes 0x01\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestConsoleRunContextCancel(t *testing.T) {
	c, _, _, _ := newTestConsole(t)
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, r, "") }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want %v", err, context.Canceled)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func waitProcessed(t *testing.T, e *retools.Engine, n uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for e.Processed() < n {
		if time.Now().After(deadline) {
			t.Fatalf("processed %d frames, want %d", e.Processed(), n)
		}
		time.Sleep(time.Millisecond)
	}
}
