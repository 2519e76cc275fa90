package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/retools/internal/bus"
	"github.com/muurk/retools/internal/retools"
	"github.com/muurk/retools/internal/ui"
)

// Replay command flags
var (
	replayKeys   []string
	replayOrigin string
	replayRate   float64
	replayFilter string
	replayPlain  bool
)

func init() {
	replayCmd.Flags().StringArrayVar(&replayKeys, "key", nil, "Preset ID key as ID:POS[,POS...] (hex ID, 1-based positions); repeatable")
	replayCmd.Flags().StringVar(&replayOrigin, "origin", "", "Override the interface name recorded in the log")
	replayCmd.Flags().Float64Var(&replayRate, "rate", 0, "Replay rate in frames per second (0 = as fast as possible)")
	replayCmd.Flags().StringVar(&replayFilter, "filter", "", "Only list keys containing this text")
	replayCmd.Flags().BoolVar(&replayPlain, "plain", false, "Print the plain console table")

	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay <candump.log>",
	Short: "Collect statistics from a candump log and print them",
	Long: `Replay a candump log file (candump -l format) through the statistics
engine and print the resulting table. No frame is dropped during replay.

ID keys from the config file apply; --key adds or replaces them.`,
	Example: `  # Summarize a capture
  retools replay drive.log

  # Split ID 0x3E9 by its first two bytes and show only can0 keys
  retools replay drive.log --key 3e9:1,2 --filter can0/`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := sourceFlags{keys: replayKeys}
	presets, err := flags.presets(cfg)
	if err != nil {
		return err
	}

	source := &bus.ReplaySource{Path: args[0], Origin: replayOrigin, Rate: replayRate}
	report, err := replayFile(ctx, source, presets, replayFilter)
	if err != nil {
		return err
	}

	if replayPlain {
		return report.Format(cmd.OutOrStdout())
	}
	return printReplay(cmd.OutOrStdout(), args[0], report)
}

// replayFile runs one engine session over a replay source and returns the
// final statistics for keys containing filter. When ctx is cancelled the
// statistics gathered so far are returned.
func replayFile(ctx context.Context, source bus.Source, presets map[uint32][]int, filter string) (retools.Report, error) {
	hub := bus.NewBlockingHub()
	engine := retools.NewEngine(hub, retools.Options{PresetKeys: presets})
	if err := engine.Start(); err != nil {
		return retools.Report{}, err
	}
	defer func() { _ = engine.Stop() }()

	if err := bus.RunSources(ctx, hub, source); err != nil {
		return retools.Report{}, err
	}
	if err := waitProcessed(ctx, engine, hub.Published()); err != nil && !errors.Is(err, context.Canceled) {
		return retools.Report{}, err
	}
	return engine.List(filter)
}

// waitProcessed waits until the engine has consumed n frames
func waitProcessed(ctx context.Context, engine *retools.Engine, n uint64) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for engine.Processed() < n {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func printReplay(w io.Writer, path string, report retools.Report) error {
	printer := ui.NewPrinter(w)
	printer.PrintHeader("RE tools", "retools replay", map[string]string{
		"File": path,
	})
	printer.PrintReport(report)
	if len(report.Entries) == 0 {
		printer.PrintError("No matching frames", fmt.Errorf("%d frames replayed", report.Frames), []string{
			"Check the file is in candump -l format: (time) iface ID#DATA",
			"Check --filter matches part of the key (e.g., can0/100)",
		})
	}
	return nil
}
