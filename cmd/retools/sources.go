package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/retools/internal/bus"
	"github.com/muurk/retools/internal/config"
	"github.com/muurk/retools/internal/console"
	"github.com/muurk/retools/internal/discovery"
	"github.com/muurk/retools/internal/logging"
)

// sourceFlags are the command line source definitions. When any are set
// they replace the sources section of the config file.
type sourceFlags struct {
	natsURL  string
	subject  string
	wsURL    string
	replay   string
	rate     float64
	origin   string
	gateway  string
	keys     []string
	scanWait time.Duration
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.natsURL, "nats", "", "NATS server URL to subscribe to")
	cmd.Flags().StringVar(&f.subject, "subject", discovery.DefaultSubject, "NATS subject carrying frames")
	cmd.Flags().StringVar(&f.wsURL, "ws", "", "WebSocket gateway URL (e.g., ws://192.168.4.1/can)")
	cmd.Flags().StringVar(&f.replay, "replay", "", "candump log file to replay")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "Replay rate in frames per second (0 = as fast as possible)")
	cmd.Flags().StringVar(&f.origin, "origin", "", "Override the origin name of every frame")
	cmd.Flags().StringVar(&f.gateway, "gateway", "", "mDNS instance name of a gateway to connect to")
	cmd.Flags().DurationVar(&f.scanWait, "scan-timeout", discovery.DefaultScanTimeout, "How long to wait for --gateway")
	cmd.Flags().StringArrayVar(&f.keys, "key", nil, "Preset ID key as ID:POS[,POS...] (hex ID, 1-based positions); repeatable")
}

// definitions returns the source definitions given on the command line
func (f *sourceFlags) definitions(ctx context.Context) ([]config.SourceConfig, error) {
	var defs []config.SourceConfig
	if f.natsURL != "" {
		defs = append(defs, config.SourceConfig{Type: config.SourceNATS, URL: f.natsURL, Subject: f.subject, Origin: f.origin})
	}
	if f.wsURL != "" {
		defs = append(defs, config.SourceConfig{Type: config.SourceWebSocket, URL: f.wsURL, Origin: f.origin})
	}
	if f.replay != "" {
		defs = append(defs, config.SourceConfig{Type: config.SourceReplay, Path: f.replay, Rate: f.rate, Origin: f.origin})
	}
	if f.gateway != "" {
		def, err := gatewaySource(ctx, f.gateway, f.scanWait)
		if err != nil {
			return nil, err
		}
		if f.origin != "" {
			def.Origin = f.origin
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// resolve picks the command line sources, falling back to the config file
func (f *sourceFlags) resolve(ctx context.Context, cfg *config.Config) ([]bus.Source, error) {
	defs, err := f.definitions(ctx)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		defs = cfg.Sources
	}
	return buildSources(defs)
}

// presets merges the config file keys with --key flags
func (f *sourceFlags) presets(cfg *config.Config) (map[uint32][]int, error) {
	presets, err := cfg.PresetKeys()
	if err != nil {
		return nil, err
	}
	for _, value := range f.keys {
		id, positions, err := parseKeyFlag(value)
		if err != nil {
			return nil, err
		}
		presets[id] = positions
	}
	return presets, nil
}

// parseKeyFlag parses "ID:POS[,POS...]". Identifiers and positions are
// parsed the same way the console parses them.
func parseKeyFlag(value string) (uint32, []int, error) {
	idText, posText, ok := strings.Cut(value, ":")
	if !ok || idText == "" || posText == "" {
		return 0, nil, fmt.Errorf("invalid --key %q: want ID:POS[,POS...]", value)
	}
	fields := strings.Split(posText, ",")
	if len(fields) > console.MaxPositions {
		return 0, nil, fmt.Errorf("invalid --key %q: at most %d positions", value, console.MaxPositions)
	}
	positions := make([]int, 0, len(fields))
	for _, field := range fields {
		positions = append(positions, console.ParseInt(strings.TrimSpace(field)))
	}
	return console.ParseHex(idText), positions, nil
}

// buildSources converts source definitions into runnable sources
func buildSources(defs []config.SourceConfig) ([]bus.Source, error) {
	sources := make([]bus.Source, 0, len(defs))
	for i, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("source %d: %w", i+1, err)
		}
		switch def.Type {
		case config.SourceNATS:
			sources = append(sources, &bus.NATSSource{URL: def.URL, Subject: def.Subject, Origin: def.Origin})
		case config.SourceWebSocket:
			sources = append(sources, &bus.WebSocketSource{URL: def.URL, Origin: def.Origin})
		case config.SourceReplay:
			sources = append(sources, &bus.ReplaySource{Path: def.Path, Origin: def.Origin, Rate: def.Rate})
		}
	}
	return sources, nil
}

// gatewaySource waits for a gateway by mDNS instance name
func gatewaySource(ctx context.Context, instance string, timeout time.Duration) (config.SourceConfig, error) {
	scanner := discovery.NewScanner()
	scanner.Timeout = timeout

	gw, err := scanner.WaitForGateway(ctx, instance)
	if err != nil {
		return config.SourceConfig{}, fmt.Errorf("gateway %q: %w", instance, err)
	}
	logging.Info("Resolved gateway",
		zap.String("instance", gw.Instance),
		zap.String("url", gw.URL()),
	)
	return gw.SourceConfig(), nil
}
