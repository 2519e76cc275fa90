// Package metrics exports retools engine activity as Prometheus metrics.
//
// # Metrics Exported
//
//   - retools_frames_received_total: Counter of frames ingested, by origin
//   - retools_frames_dropped_total: Counter of frames dropped by a full queue
//   - retools_records: Gauge of keys in the statistics table
//   - retools_masks: Gauge of configured ID masks
//   - retools_engine_running: Gauge, 1 while the engine is running
//   - retools_hub_listeners: Gauge of listener queues attached to the bus
//   - retools_hub_published_total: Counter of frames published by sources
//
// The engine talks to a Recorder. NoOpRecorder is used when metrics are not
// wanted; PrometheusRecorder registers collectors on a caller-supplied
// registry so tests and multiple engines never collide on the global one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "retools"

// Recorder receives engine events. SetRecords is called with the engine
// lock held and must not block.
type Recorder interface {
	FrameReceived(origin string)
	FrameDropped()
	SetRecords(n int)
	SetMasks(n int)
	SetRunning(running bool)
}

// NoOpRecorder discards all events
type NoOpRecorder struct{}

func (NoOpRecorder) FrameReceived(string) {}
func (NoOpRecorder) FrameDropped()        {}
func (NoOpRecorder) SetRecords(int)       {}
func (NoOpRecorder) SetMasks(int)         {}
func (NoOpRecorder) SetRunning(bool)      {}

// PrometheusRecorder records engine events as Prometheus metrics
type PrometheusRecorder struct {
	framesReceived *prometheus.CounterVec
	framesDropped  prometheus.Counter
	records        prometheus.Gauge
	masks          prometheus.Gauge
	running        prometheus.Gauge
}

// NewPrometheusRecorder creates the collectors and registers them on reg
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		framesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "frames_received_total",
				Help:      "Frames ingested by the statistics engine, by bus origin",
			},
			[]string{"origin"},
		),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_dropped_total",
			Help:      "Frames dropped because the ingestion queue was full",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "records",
			Help:      "Keys currently held in the statistics table",
		}),
		masks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "masks",
			Help:      "Configured ID byte masks",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "engine_running",
			Help:      "1 while the statistics engine is running",
		}),
	}

	for _, c := range []prometheus.Collector{r.framesReceived, r.framesDropped, r.records, r.masks, r.running} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) FrameReceived(origin string) {
	r.framesReceived.WithLabelValues(origin).Inc()
}

func (r *PrometheusRecorder) FrameDropped() {
	r.framesDropped.Inc()
}

func (r *PrometheusRecorder) SetRecords(n int) {
	r.records.Set(float64(n))
}

func (r *PrometheusRecorder) SetMasks(n int) {
	r.masks.Set(float64(n))
}

func (r *PrometheusRecorder) SetRunning(running bool) {
	if running {
		r.running.Set(1)
	} else {
		r.running.Set(0)
	}
}

// HubStats is the read side of the frame fan-out
type HubStats interface {
	Listeners() int
	Published() uint64
}

// RegisterHub exports listener and publish counts of hub on reg. The values
// are read from hub at scrape time.
func RegisterHub(reg prometheus.Registerer, hub HubStats) error {
	listeners := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "hub_listeners",
		Help:      "Listener queues attached to the frame bus",
	}, func() float64 {
		return float64(hub.Listeners())
	})
	published := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "hub_published_total",
		Help:      "Frames published onto the bus by all sources",
	}, func() float64 {
		return float64(hub.Published())
	})

	for _, c := range []prometheus.Collector{listeners, published} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
