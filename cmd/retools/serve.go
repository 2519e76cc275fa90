package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/retools/internal/bus"
	"github.com/muurk/retools/internal/ui"
)

// DefaultAPIAddr is used by serve when neither --listen nor the config
// file names an address
const DefaultAPIAddr = "127.0.0.1:8088"

// Serve command flags
var (
	serveSources   sourceFlags
	serveAPI       apiFlags
	serveAutostart bool
	serveQueueSize int
)

func init() {
	serveSources.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAPI.listen, "listen", "", "HTTP API address (default "+DefaultAPIAddr+")")
	serveCmd.Flags().StringVar(&serveAPI.certPath, "cert", "", "TLS certificate file (optional)")
	serveCmd.Flags().StringVar(&serveAPI.keyPath, "key-file", "", "TLS private key file (required with --cert)")
	serveCmd.Flags().BoolVar(&serveAutostart, "autostart", true, "Start collecting statistics immediately")
	serveCmd.Flags().IntVar(&serveQueueSize, "queue-size", 0, "Listener queue depth (default 20)")

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Collect statistics headless and serve the HTTP API",
	Long: `Attach to the configured frame sources and control the statistics engine
over HTTP. Prometheus metrics are served on /metrics.

Endpoints:
  POST   /api/v1/start | /api/v1/stop | /api/v1/clear
  GET    /api/v1/records?filter=<text>
  GET    /api/v1/keys
  PUT    /api/v1/keys/{id}   {"bytes": [1, 3]}
  DELETE /api/v1/keys/{id}
  POST   /api/v1/keys/save`,
	Example: `  # Serve on the default address
  retools serve --nats nats://localhost:4222

  # Serve over TLS on all interfaces
  retools serve --ws ws://192.168.4.1/can --listen :8443 --cert cert.pem --key-file key.pem`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, err := serveSources.resolve(ctx, cfg)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("no frame sources: use --nats, --ws, --replay, --gateway or the config file")
	}
	presets, err := serveSources.presets(cfg)
	if err != nil {
		return err
	}

	rt, err := newRuntime(bus.NewHub(), queueSize(serveQueueSize, cfg), presets)
	if err != nil {
		return err
	}
	apiCfg := serveAPI.resolve(cfg)
	if apiCfg.listen == "" {
		apiCfg.listen = DefaultAPIAddr
	}
	srv, err := rt.apiServer(apiCfg.listen, apiCfg.certPath, apiCfg.keyPath)
	if err != nil {
		return err
	}
	if serveAutostart {
		if err := rt.engine.Start(); err != nil {
			return err
		}
	}

	scheme := "http"
	if apiCfg.certPath != "" {
		scheme = "https"
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader("RE tools", "retools serve", map[string]string{
		"API":     fmt.Sprintf("%s://%s/api/v1", scheme, srv.Addr()),
		"Sources": fmt.Sprint(len(sources)),
		"Running": fmt.Sprint(rt.engine.Running()),
	})

	return rt.run(ctx, sources, srv, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
}
