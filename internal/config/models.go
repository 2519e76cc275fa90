package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/muurk/retools/internal/retools"
)

// CurrentVersion is the configuration format version written by Save
const CurrentVersion = 1

// Source types
const (
	SourceNATS      = "nats"
	SourceWebSocket = "websocket"
	SourceReplay    = "replay"
)

// Config represents the entire configuration file
type Config struct {
	Version  int                 `yaml:"version"`
	LogLevel string              `yaml:"log_level,omitempty"`
	Engine   *EngineConfig       `yaml:"engine,omitempty"`
	Sources  []SourceConfig      `yaml:"sources,omitempty"`
	Keys     map[string][]int    `yaml:"keys,omitempty"` // Hex identifier to 1-based byte positions
	API      *APIConfig          `yaml:"api,omitempty"`
	Gateways map[string]*Gateway `yaml:"gateways,omitempty"` // Keyed by mDNS instance name
}

// EngineConfig tunes the statistics engine
type EngineConfig struct {
	QueueSize int `yaml:"queue_size,omitempty"` // Listener queue depth (0 = default)
}

// SourceConfig describes one frame source
type SourceConfig struct {
	Type    string  `yaml:"type"`              // nats, websocket or replay
	URL     string  `yaml:"url,omitempty"`     // nats and websocket
	Subject string  `yaml:"subject,omitempty"` // nats
	Path    string  `yaml:"path,omitempty"`    // replay
	Rate    float64 `yaml:"rate,omitempty"`    // replay, frames per second (0 = unlimited)
	Origin  string  `yaml:"origin,omitempty"`  // Overrides the origin reported by the source
}

// APIConfig configures the HTTP control surface
type APIConfig struct {
	Listen   string `yaml:"listen"`
	CertPath string `yaml:"cert,omitempty"`
	KeyPath  string `yaml:"key,omitempty"`
}

// Gateway records a CAN gateway seen on the network
type Gateway struct {
	Nickname string    `yaml:"nickname,omitempty"`
	LastAddr string    `yaml:"last_addr,omitempty"` // host:port
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// NewConfig creates a Config with default values
func NewConfig() *Config {
	return &Config{
		Version:  CurrentVersion,
		Engine:   &EngineConfig{},
		Keys:     make(map[string][]int),
		Gateways: make(map[string]*Gateway),
	}
}

// applyDefaults fills in sections missing from a loaded file
func (c *Config) applyDefaults() {
	if c.Engine == nil {
		c.Engine = &EngineConfig{}
	}
	if c.Keys == nil {
		c.Keys = make(map[string][]int)
	}
	if c.Gateways == nil {
		c.Gateways = make(map[string]*Gateway)
	}
}

// Validate checks the configuration for values that cannot be used
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.Engine != nil && c.Engine.QueueSize < 0 {
		return fmt.Errorf("engine.queue_size must not be negative, got %d", c.Engine.QueueSize)
	}
	for i, s := range c.Sources {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
	}
	if _, err := c.PresetKeys(); err != nil {
		return err
	}
	return nil
}

// Validate checks a source definition
func (s SourceConfig) Validate() error {
	switch s.Type {
	case SourceNATS:
		if s.URL == "" || s.Subject == "" {
			return fmt.Errorf("nats source needs url and subject")
		}
	case SourceWebSocket:
		if s.URL == "" {
			return fmt.Errorf("websocket source needs url")
		}
	case SourceReplay:
		if s.Path == "" {
			return fmt.Errorf("replay source needs path")
		}
		if s.Rate < 0 {
			return fmt.Errorf("replay rate must not be negative")
		}
	default:
		return fmt.Errorf("unknown source type %q", s.Type)
	}
	return nil
}

// PresetKeys converts the keys section into engine presets
func (c *Config) PresetKeys() (map[uint32][]int, error) {
	presets := make(map[uint32][]int, len(c.Keys))
	for hexID, positions := range c.Keys {
		id, err := strconv.ParseUint(hexID, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("keys: invalid identifier %q: %w", hexID, err)
		}
		presets[uint32(id)] = positions
	}
	return presets, nil
}

// SetKeys replaces the keys section with a mask table snapshot
func (c *Config) SetKeys(entries []retools.MaskEntry) {
	c.Keys = make(map[string][]int, len(entries))
	for _, e := range entries {
		c.Keys[fmt.Sprintf("%x", e.ID)] = e.Positions()
	}
}

// EnsureGateway returns the entry for a gateway, creating it if needed
func (c *Config) EnsureGateway(name string) *Gateway {
	if c.Gateways == nil {
		c.Gateways = make(map[string]*Gateway)
	}
	if gw, ok := c.Gateways[name]; ok {
		return gw
	}
	gw := &Gateway{}
	c.Gateways[name] = gw
	return gw
}

// UpdateGatewayLastSeen records where and when a gateway was seen
func (c *Config) UpdateGatewayLastSeen(name, addr string, seen time.Time) {
	gw := c.EnsureGateway(name)
	gw.LastAddr = addr
	gw.LastSeen = seen
}

// GatewayNames returns the known gateway names, sorted
func (c *Config) GatewayNames() []string {
	names := make([]string, 0, len(c.Gateways))
	for name := range c.Gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
