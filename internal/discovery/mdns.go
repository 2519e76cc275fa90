package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/retools/internal/logging"
)

const (
	// ServiceType is the mDNS service type advertised by CAN gateways
	ServiceType = "_canbus._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default discovery window
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is assumed when an entry carries no port
	DefaultPort = 80
)

// Browser starts an mDNS browse that delivers entries until ctx is done and
// then closes entries. zeroconf.Resolver.Browse satisfies it.
type Browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// Scanner handles mDNS gateway discovery
type Scanner struct {
	// Timeout is the maximum time to wait for gateways
	Timeout time.Duration

	// Browser overrides the mDNS resolver (used by tests)
	Browser Browser
}

// NewScanner creates a scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

func (s *Scanner) browser() (Browser, error) {
	if s.Browser != nil {
		return s.Browser, nil
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}
	return resolver, nil
}

// Scan collects every gateway that answers within the timeout. Gateways are
// returned in the order they were seen, without duplicates.
func (s *Scanner) Scan(ctx context.Context) ([]*Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	browser, err := s.browser()
	if err != nil {
		return nil, err
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []*Gateway, 1)

	go func() {
		gateways := make([]*Gateway, 0)
		seen := make(map[string]bool)
		for entry := range entries {
			gw := parseServiceEntry(entry)
			if gw == nil || seen[gw.Instance] {
				continue
			}
			seen[gw.Instance] = true
			logging.Debug("Gateway discovered",
				zap.String("instance", gw.Instance),
				zap.String("addr", gw.Addr()),
			)
			gateways = append(gateways, gw)
		}
		done <- gateways
	}()

	if err := browser.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	select {
	case gateways := <-done:
		return gateways, nil
	case <-time.After(time.Second):
		return nil, fmt.Errorf("mDNS browse did not finish")
	}
}

// WaitForGateway waits for the gateway with the given instance name
func (s *Scanner) WaitForGateway(ctx context.Context, instance string) (*Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	browser, err := s.browser()
	if err != nil {
		return nil, err
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Gateway, 1)

	go func() {
		for entry := range entries {
			gw := parseServiceEntry(entry)
			if gw != nil && gw.Instance == instance {
				select {
				case found <- gw:
				default:
				}
				cancel()
			}
		}
	}()

	if err := browser.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case gw := <-found:
		return gw, nil
	case <-ctx.Done():
		select {
		case gw := <-found:
			return gw, nil
		default:
		}
		return nil, fmt.Errorf("gateway %s not found within timeout", instance)
	}
}

// parseServiceEntry converts a zeroconf entry to a Gateway. It returns nil
// for entries without an address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Gateway {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Gateway{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForGateways scans with a custom timeout
func ScanForGateways(ctx context.Context, timeout time.Duration) ([]*Gateway, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan(ctx)
}
