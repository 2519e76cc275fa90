package api

import (
	"fmt"

	"github.com/muurk/retools/internal/retools"
)

// StatusResponse acknowledges a command
type StatusResponse struct {
	Status  string `json:"status"`
	Command string `json:"command"`
}

// ErrorResponse carries a command error
type ErrorResponse struct {
	Error string `json:"error"`
}

// SetKeyRequest is the body of PUT /api/v1/keys/{id}. Bytes are 1-based
// payload positions; positions outside 1-8 are ignored.
type SetKeyRequest struct {
	Bytes []int `json:"bytes"`
}

// KeyJSON describes one key extension
type KeyJSON struct {
	ID    string `json:"id"`
	Mask  string `json:"mask"`
	Bytes []int  `json:"bytes"`
}

// NewKeyJSON converts a mask table entry
func NewKeyJSON(e retools.MaskEntry) KeyJSON {
	return KeyJSON{
		ID:    fmt.Sprintf("%x", e.ID),
		Mask:  fmt.Sprintf("0x%02x", e.Mask),
		Bytes: e.Positions(),
	}
}

// KeysResponse lists key extensions
type KeysResponse struct {
	Keys []KeyJSON `json:"keys"`
}

// RecordJSON is one statistics record
type RecordJSON struct {
	Key             string `json:"key"`
	Count           uint64 `json:"count"`
	MSPerOccurrence uint64 `json:"ms_per_occurrence"`
	Origin          string `json:"origin"`
	ID              string `json:"id"`
	Extended        bool   `json:"extended"`
	DLC             uint8  `json:"dlc"`
	Last            string `json:"last"`
}

// RecordsResponse is a statistics listing
type RecordsResponse struct {
	Filter    string       `json:"filter,omitempty"`
	ElapsedMS int64        `json:"elapsed_ms"`
	Frames    uint64       `json:"frames"`
	Dropped   uint64       `json:"dropped"`
	Backlog   int          `json:"backlog"`
	QueueSize int          `json:"queue_size"`
	Records   []RecordJSON `json:"records"`
}

// NewRecordsResponse converts an engine report
func NewRecordsResponse(r retools.Report) RecordsResponse {
	resp := RecordsResponse{
		Filter:    r.Filter,
		ElapsedMS: r.Elapsed.Milliseconds(),
		Frames:    r.Frames,
		Dropped:   r.Dropped,
		Backlog:   r.Backlog,
		QueueSize: r.QueueSize,
		Records:   make([]RecordJSON, 0, len(r.Entries)),
	}
	for _, e := range r.Entries {
		resp.Records = append(resp.Records, RecordJSON{
			Key:             e.Key,
			Count:           e.Count,
			MSPerOccurrence: e.PerOccurrenceMS,
			Origin:          e.Last.Origin,
			ID:              e.Last.IDString(),
			Extended:        e.Last.Extended,
			DLC:             e.Last.DLC,
			Last:            e.LastPayload(),
		})
	}
	return resp
}
