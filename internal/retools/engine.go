package retools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/muurk/retools/internal/bus"
	"github.com/muurk/retools/internal/can"
	"github.com/muurk/retools/internal/logging"
	"github.com/muurk/retools/internal/metrics"
)

// Transport is the bus side of the engine: it pushes frames into registered
// listener queues.
type Transport interface {
	RegisterListener(q *bus.Queue)
	DeregisterListener(q *bus.Queue)
}

// Options configures an Engine
type Options struct {
	// QueueSize is the listener queue depth (default bus.DefaultQueueSize)
	QueueSize int
	// Clock drives the session clock (default: wall clock)
	Clock clock.Clock
	// Recorder receives metrics events (default: no-op)
	Recorder metrics.Recorder
	// PresetKeys are installed as masks every time the engine starts.
	// Keys are identifiers, values are 1-based byte positions.
	PresetKeys map[uint32][]int
}

// Engine classifies frames into keys and keeps per-key statistics
type Engine struct {
	transport Transport
	clock     clock.Clock
	recorder  metrics.Recorder
	queueSize int
	presets   map[uint32][]int

	// lifecycle serializes Start and Stop
	lifecycle sync.Mutex

	// mu guards masks and session, including the session's table
	mu      sync.Mutex
	masks   MaskTable
	session *session
}

// session is the state that exists only while the engine is running
type session struct {
	queue     *bus.Queue
	table     Table
	started   time.Time
	processed uint64
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewEngine creates an idle engine bound to a transport
func NewEngine(transport Transport, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoOpRecorder{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = bus.DefaultQueueSize
	}
	return &Engine{
		transport: transport,
		clock:     opts.Clock,
		recorder:  opts.Recorder,
		queueSize: opts.QueueSize,
		presets:   opts.PresetKeys,
		masks:     make(MaskTable),
	}
}

// Start moves the engine from Idle to Running
func (e *Engine) Start() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.Running() {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		queue:   bus.NewQueue(e.queueSize, e.frameDropped),
		table:   make(Table),
		started: e.clock.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	e.mu.Lock()
	for id, positions := range e.presets {
		e.masks.Set(id, positions)
	}
	masks := len(e.masks)
	e.session = s
	e.recorder.SetRecords(0)
	e.mu.Unlock()

	e.transport.RegisterListener(s.queue)
	go e.ingest(ctx, s)

	e.recorder.SetRunning(true)
	e.recorder.SetMasks(masks)
	logging.LogLifecycle("started",
		zap.Int("queue_size", e.queueSize),
		zap.Int("masks", masks),
	)
	return nil
}

// Stop moves the engine from Running to Idle. The transport listener is
// removed before the ingestion goroutine is cancelled, and Stop returns only
// after that goroutine has exited.
func (e *Engine) Stop() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	s := e.session
	e.mu.Unlock()
	if s == nil {
		return ErrNotRunning
	}

	e.transport.DeregisterListener(s.queue)
	s.cancel()
	<-s.done
	discarded := s.queue.Drain()

	e.mu.Lock()
	records := len(s.table)
	s.table = nil
	e.session = nil
	e.mu.Unlock()

	e.recorder.SetRunning(false)
	e.recorder.SetRecords(0)
	logging.LogLifecycle("stopped",
		zap.Int("records", records),
		zap.Int("discarded", discarded),
		zap.Uint64("dropped", s.queue.Dropped()),
	)
	return nil
}

// Running reports whether the engine is running
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// ingest is the single consumer of the session queue
func (e *Engine) ingest(ctx context.Context, s *session) {
	defer close(s.done)
	for {
		f, err := s.queue.Receive(ctx)
		if err != nil {
			return
		}
		e.observe(s, f)
	}
}

// observe is the only write path into the statistics table
func (e *Engine) observe(s *session, f can.Frame) {
	e.mu.Lock()
	key := DeriveKey(f, e.masks)
	s.table.Observe(key, f)
	s.processed++
	// the records gauge is only written under mu
	e.recorder.SetRecords(len(s.table))
	e.mu.Unlock()

	e.recorder.FrameReceived(f.Origin)
	logging.LogFrame("observed", f)
}

func (e *Engine) frameDropped(f can.Frame) {
	e.recorder.FrameDropped()
}

// Clear empties the statistics table and restarts the session clock.
// Masks are kept.
func (e *Engine) Clear() error {
	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return ErrNotRunning
	}
	records := len(s.table)
	s.table = make(Table)
	s.started = e.clock.Now()
	s.processed = 0
	e.recorder.SetRecords(0)
	e.mu.Unlock()

	logging.LogLifecycle("cleared", zap.Int("records", records))
	return nil
}

// SetKey installs or overwrites the mask for id. Positions are 1-based;
// positions outside [1,8] are ignored. The resulting mask is returned.
// Existing table entries are not touched.
func (e *Engine) SetKey(id uint32, positions []int) (uint8, error) {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return 0, ErrNotRunning
	}
	mask := e.masks.Set(id, positions)
	masks := len(e.masks)
	e.mu.Unlock()

	e.recorder.SetMasks(masks)
	logging.Info("ID key set",
		zap.String("id", fmt.Sprintf("%x", id)),
		zap.String("mask", fmt.Sprintf("0x%02x", mask)),
	)
	return mask, nil
}

// ClearKey removes the mask for id. ErrKeyNotFound (wrapped) is returned if
// the identifier had no mask.
func (e *Engine) ClearKey(id uint32) error {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return ErrNotRunning
	}
	removed := e.masks.Clear(id)
	masks := len(e.masks)
	e.mu.Unlock()

	if !removed {
		return fmt.Errorf("ID %x: %w", id, ErrKeyNotFound)
	}
	e.recorder.SetMasks(masks)
	logging.Info("ID key cleared", zap.String("id", fmt.Sprintf("%x", id)))
	return nil
}

// Keys returns the configured masks sorted by identifier
func (e *Engine) Keys() ([]MaskEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, ErrNotRunning
	}
	return e.masks.entries(), nil
}

// Processed returns the number of frames ingested since the session clock
// was last reset. It is zero while idle.
func (e *Engine) Processed() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return 0
	}
	return e.session.processed
}
