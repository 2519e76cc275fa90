package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/retools/internal/discovery"
	"github.com/muurk/retools/internal/ui"
)

// Discover command flags
var (
	discoverTimeout   time.Duration
	discoverSave      bool
	discoverAddSource bool
)

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for gateways")
	discoverCmd.Flags().BoolVar(&discoverSave, "save", false, "Record found gateways in the config file")
	discoverCmd.Flags().BoolVar(&discoverAddSource, "add-sources", false, "Add found gateways to the config file sources (implies --save)")

	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find CAN gateways on the local network",
	Long: `Browse mDNS for gateways advertising ` + discovery.ServiceType + `.

Gateways publish TXT records describing their transport:
  bus=<name>             interface name used as the frame origin
  proto=ws|nats          transport (default ws)
  path=/can              WebSocket path
  subject=can.>          NATS subject`,
	Example: `  # Listen for 10 seconds
  retools discover --timeout 10s

  # Remember the gateways and use them as sources
  retools discover --add-sources`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.Println(fmt.Sprintf("Browsing %s for %s...", discovery.ServiceType, discoverTimeout))

	gateways, err := discovery.ScanForGateways(cmd.Context(), discoverTimeout)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	printer.PrintGateways(gateways)

	if len(gateways) == 0 || !(discoverSave || discoverAddSource) {
		return nil
	}
	added := recordGateways(gateways, discoverAddSource)
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	printer.PrintSuccess("Gateways saved", map[string]string{
		"Gateways":      fmt.Sprint(len(gateways)),
		"Sources added": fmt.Sprint(added),
	})
	return nil
}

// recordGateways updates the loaded config with found gateways and, when
// addSources is set, appends a source for each gateway whose URL is not
// already configured. It returns the number of sources added.
func recordGateways(gateways []*discovery.Gateway, addSources bool) int {
	known := make(map[string]bool, len(cfg.Sources))
	for _, src := range cfg.Sources {
		known[src.URL] = true
	}

	added := 0
	for _, gw := range gateways {
		cfg.UpdateGatewayLastSeen(gw.Instance, gw.Addr(), gw.DiscoveredAt)
		if !addSources || known[gw.URL()] {
			continue
		}
		cfg.Sources = append(cfg.Sources, gw.SourceConfig())
		known[gw.URL()] = true
		added++
	}
	return added
}
