package retools

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/muurk/retools/internal/can"
)

// Entry is one listed statistics record
type Entry struct {
	Key   string
	Count uint64
	// PerOccurrenceMS is the average interval between frames for this key
	PerOccurrenceMS uint64
	Last            can.Frame
}

// LastPayload renders the last frame's declared bytes as hex
func (e Entry) LastPayload() string {
	return e.Last.HexPayload()
}

// Report is a consistent snapshot of the statistics table
type Report struct {
	Filter  string
	Entries []Entry
	// Elapsed is the session clock reading when the report was taken
	Elapsed time.Duration
	// Frames is the number of frames ingested in this session
	Frames uint64
	// Dropped is the number of frames the listener queue has dropped
	Dropped uint64
	// Backlog is the number of frames waiting in the listener queue
	Backlog int
	// QueueSize is the listener queue capacity
	QueueSize int
}

// List returns the records whose key contains filter, sorted by key. An empty
// filter lists everything. The snapshot is taken under the engine lock.
func (e *Engine) List(filter string) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return Report{}, ErrNotRunning
	}

	elapsed := e.clock.Now().Sub(s.started)
	elapsedMS := uint64(1)
	if ms := elapsed.Milliseconds(); ms > 1 {
		elapsedMS = uint64(ms)
	}

	report := Report{
		Filter:    filter,
		Entries:   make([]Entry, 0, len(s.table)),
		Elapsed:   elapsed,
		Frames:    s.processed,
		Dropped:   s.queue.Dropped(),
		Backlog:   s.queue.Len(),
		QueueSize: s.queue.Cap(),
	}
	for key, r := range s.table {
		if filter != "" && !strings.Contains(key, filter) {
			continue
		}
		report.Entries = append(report.Entries, Entry{
			Key:             key,
			Count:           r.Count,
			PerOccurrenceMS: elapsedMS / r.Count,
			Last:            r.Last,
		})
	}
	sort.Slice(report.Entries, func(i, j int) bool {
		return report.Entries[i].Key < report.Entries[j].Key
	})
	return report, nil
}

// Format writes the report as a plain text table
func (r Report) Format(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%-20.20s %10s %6s %s\n", "key", "records", "ms", "last"); err != nil {
		return err
	}
	for _, e := range r.Entries {
		if _, err := fmt.Fprintf(w, "%-20s %10d %6d %s\n", e.Key, e.Count, e.PerOccurrenceMS, e.LastPayload()); err != nil {
			return err
		}
	}
	return nil
}

// Summary returns a one-line description of the session
func (r Report) Summary() string {
	return fmt.Sprintf("%d keys, %d frames in %s, %d dropped",
		len(r.Entries), r.Frames, r.Elapsed.Truncate(time.Millisecond), r.Dropped)
}
