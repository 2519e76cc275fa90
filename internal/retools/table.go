package retools

import "github.com/muurk/retools/internal/can"

// Record is the running state for one key
type Record struct {
	Last  can.Frame // Most recently observed frame
	Count uint64    // Frames observed under this key
}

// Table maps composite keys to their records
type Table map[string]Record

// Observe replaces the last frame for key and increments its count
func (t Table) Observe(key string, f can.Frame) Record {
	r := t[key]
	r.Last = f
	r.Count++
	t[key] = r
	return r
}
