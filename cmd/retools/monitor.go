package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/retools/internal/bus"
	"github.com/muurk/retools/internal/console"
	"github.com/muurk/retools/internal/ui"
)

// Monitor command flags
var (
	monitorSources   sourceFlags
	monitorAPI       apiFlags
	monitorWatch     bool
	monitorAutostart bool
	monitorQueueSize int
)

func init() {
	monitorSources.register(monitorCmd)
	monitorCmd.Flags().StringVar(&monitorAPI.listen, "api", "", "Also serve the HTTP API on this address (e.g., 127.0.0.1:8088)")
	monitorCmd.Flags().StringVar(&monitorAPI.certPath, "cert", "", "TLS certificate for the HTTP API")
	monitorCmd.Flags().StringVar(&monitorAPI.keyPath, "key-file", "", "TLS private key for the HTTP API")
	monitorCmd.Flags().BoolVar(&monitorWatch, "watch", false, "Show a live statistics table instead of a plain console")
	monitorCmd.Flags().BoolVar(&monitorAutostart, "autostart", false, "Start collecting statistics immediately")
	monitorCmd.Flags().IntVar(&monitorQueueSize, "queue-size", 0, "Listener queue depth (default 20)")

	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Attach to the bus and collect statistics interactively",
	Long: `Attach to the configured frame sources and control the statistics engine
from an interactive console.

Console commands:
  start | stop | clear          engine lifecycle
  list [filter]                 print keys containing filter
  key set <id> <pos>...         group an ID by payload bytes (1-based)
  key clear <id> | key list     manage ID keys
  key save                      write ID keys to the config file
  help | quit

Sources given on the command line replace those in the config file.`,
	Example: `  # Watch a WebSocket gateway with a live table
  retools monitor --ws ws://192.168.4.1/can --watch --autostart

  # Subscribe to NATS and expose the HTTP API as well
  retools monitor --nats nats://localhost:4222 --subject 'can.>' --api 127.0.0.1:8088

  # Find a gateway by mDNS name and key ID 0x100 on its first byte
  retools monitor --gateway garage --key 100:1`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, err := monitorSources.resolve(ctx, cfg)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("no frame sources: use --nats, --ws, --replay, --gateway or the config file")
	}
	presets, err := monitorSources.presets(cfg)
	if err != nil {
		return err
	}

	rt, err := newRuntime(bus.NewHub(), queueSize(monitorQueueSize, cfg), presets)
	if err != nil {
		return err
	}
	apiCfg := monitorAPI.resolve(cfg)
	srv, err := rt.apiServer(apiCfg.listen, apiCfg.certPath, apiCfg.keyPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if monitorAutostart {
		if err := rt.engine.Start(); err != nil {
			return err
		}
	}

	if monitorWatch {
		return rt.run(ctx, sources, srv, func(ctx context.Context) error {
			return runWatch(ctx, rt)
		})
	}

	if srv != nil {
		fmt.Fprintf(out, "HTTP API on %s\n", srv.Addr())
	}
	opts := []console.Option{console.WithKeyStore(rt.keys)}
	if ui.IsTerminal() {
		opts = append(opts, console.WithReportWriter(ui.WriteReport))
	}
	c := console.New(rt.engine, out, opts...)
	fmt.Fprintln(out, `Type "help" for commands, "quit" to exit.`)
	return rt.run(ctx, sources, srv, func(ctx context.Context) error {
		return c.Run(ctx, cmd.InOrStdin(), "re> ")
	})
}

// runWatch runs the live table until the user quits
func runWatch(ctx context.Context, rt *runtime) error {
	var out bytes.Buffer
	c := console.New(rt.engine, &out, console.WithKeyStore(rt.keys), console.WithSurface("watch"))

	model := ui.NewWatchModel(ui.WatchConfig{
		List: rt.engine.List,
		Execute: func(line string) (string, error) {
			out.Reset()
			err := c.Execute(line)
			return out.String(), err
		},
	})

	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
