package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/muurk/retools/internal/config"
)

// Gateway transports
const (
	ProtoWebSocket = "ws"
	ProtoNATS      = "nats"
)

// DefaultSubject is the NATS subject assumed when a gateway does not name one
const DefaultSubject = "can.>"

// Gateway represents a discovered CAN gateway
type Gateway struct {
	// Instance is the mDNS service instance name (e.g., "garage-obd")
	Instance string

	// Hostname is the mDNS hostname (e.g., "canbridge.local.")
	Hostname string

	// IP is the gateway address, IPv4 preferred
	IP string

	// Port is the service port
	Port int

	// Metadata contains the TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the gateway was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable description of the gateway
func (g *Gateway) String() string {
	return fmt.Sprintf("CAN gateway %s (%s) bus %s at %s", g.Instance, g.Hostname, g.Bus(), g.Addr())
}

// Addr returns host:port
func (g *Gateway) Addr() string {
	return net.JoinHostPort(g.IP, strconv.Itoa(g.Port))
}

// GetMetadata retrieves a TXT value by key, or returns empty string if not found
func (g *Gateway) GetMetadata(key string) string {
	if g.Metadata == nil {
		return ""
	}
	return g.Metadata[key]
}

// Bus returns the advertised bus name, falling back to the instance name
func (g *Gateway) Bus() string {
	if bus := g.GetMetadata("bus"); bus != "" {
		return bus
	}
	return g.Instance
}

// Proto returns the advertised transport
func (g *Gateway) Proto() string {
	if g.GetMetadata("proto") == ProtoNATS {
		return ProtoNATS
	}
	return ProtoWebSocket
}

// URL returns the address a frame source should connect to
func (g *Gateway) URL() string {
	if g.Proto() == ProtoNATS {
		return "nats://" + g.Addr()
	}
	path := g.GetMetadata("path")
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return "ws://" + g.Addr() + path
}

// SourceConfig returns a source definition for the gateway
func (g *Gateway) SourceConfig() config.SourceConfig {
	if g.Proto() == ProtoNATS {
		subject := g.GetMetadata("subject")
		if subject == "" {
			subject = DefaultSubject
		}
		return config.SourceConfig{
			Type:    config.SourceNATS,
			URL:     g.URL(),
			Subject: subject,
			Origin:  g.GetMetadata("bus"),
		}
	}
	return config.SourceConfig{
		Type:   config.SourceWebSocket,
		URL:    g.URL(),
		Origin: g.Bus(),
	}
}
