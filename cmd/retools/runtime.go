package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/retools/internal/api"
	"github.com/muurk/retools/internal/bus"
	"github.com/muurk/retools/internal/config"
	"github.com/muurk/retools/internal/logging"
	"github.com/muurk/retools/internal/metrics"
	"github.com/muurk/retools/internal/retools"
)

// runtime is the engine together with its transport, metrics registry
// and key store
type runtime struct {
	hub      *bus.Hub
	engine   *retools.Engine
	registry *prometheus.Registry
	keys     config.KeyStore
}

func newRuntime(hub *bus.Hub, queueSize int, presets map[uint32][]int) (*runtime, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewPrometheusRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := metrics.RegisterHub(registry, hub); err != nil {
		return nil, fmt.Errorf("failed to register hub metrics: %w", err)
	}

	engine := retools.NewEngine(hub, retools.Options{
		QueueSize:  queueSize,
		Recorder:   recorder,
		PresetKeys: presets,
	})
	return &runtime{
		hub:      hub,
		engine:   engine,
		registry: registry,
		keys:     config.KeyStore{Path: configPath},
	}, nil
}

// apiServer creates the HTTP control surface, or returns nil when addr
// is empty
func (rt *runtime) apiServer(addr, certPath, keyPath string) (*api.Server, error) {
	if addr == "" {
		return nil, nil
	}
	handler := api.NewHandler(rt.engine, rt.keys, rt.registry)
	srv, err := api.NewServer(api.Config{Addr: addr, CertPath: certPath, KeyPath: keyPath}, handler.Router())
	if err != nil {
		return nil, fmt.Errorf("failed to create API server: %w", err)
	}
	if err := srv.Listen(); err != nil {
		return nil, err
	}
	return srv, nil
}

// run drives sources and the optional API server until foreground returns
// or ctx is cancelled. The engine is stopped on the way out.
func (rt *runtime) run(ctx context.Context, sources []bus.Source, srv *api.Server, foreground func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if len(sources) > 0 {
		g.Go(func() error {
			return bus.RunSources(ctx, rt.hub, sources...)
		})
	}
	if srv != nil {
		g.Go(func() error {
			return srv.Run(ctx)
		})
	}
	g.Go(func() error {
		defer cancel()
		return foreground(ctx)
	})

	err := g.Wait()
	if stopErr := rt.engine.Stop(); stopErr != nil && !errors.Is(stopErr, retools.ErrNotRunning) {
		logging.Warn("Failed to stop engine", zap.Error(stopErr))
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// apiFlags configure the HTTP control surface
type apiFlags struct {
	listen   string
	certPath string
	keyPath  string
}

// resolve applies the config file values for flags left unset
func (f apiFlags) resolve(cfg *config.Config) apiFlags {
	if cfg.API == nil {
		return f
	}
	if f.listen == "" {
		f.listen = cfg.API.Listen
	}
	if f.certPath == "" {
		f.certPath = cfg.API.CertPath
	}
	if f.keyPath == "" {
		f.keyPath = cfg.API.KeyPath
	}
	return f
}

func queueSize(flag int, cfg *config.Config) int {
	if flag > 0 {
		return flag
	}
	if cfg.Engine != nil {
		return cfg.Engine.QueueSize
	}
	return 0
}
