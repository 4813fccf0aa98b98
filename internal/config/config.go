// Package config handles TOML configuration parsing and validation for
// relaykit.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/relaykit/relaykit/pkg/dhcpv4"
)

// Config is the top-level configuration for relaykitd and the relaykit CLI.
type Config struct {
	Server       ServerConfig   `toml:"server"`
	Resolver     ResolverConfig `toml:"resolver"`
	RADIUS       RADIUSConfig   `toml:"radius"`
	StaticRoutes []StaticRoute  `toml:"static_route"`
}

// ServerConfig holds daemon settings.
type ServerConfig struct {
	LogLevel      string `toml:"log_level"`
	MetricsListen string `toml:"metrics_listen"`
	EventSocket   string `toml:"event_socket"`
	ObservationDB string `toml:"observation_db"`
}

// ResolverConfig holds upstream DNS servers used to resolve hostname
// gateways in static routes.
type ResolverConfig struct {
	Servers []string `toml:"servers"`
	Timeout string   `toml:"timeout"`
}

// RADIUSConfig holds RADIUS authorization settings.
type RADIUSConfig struct {
	Enabled       bool   `toml:"enabled"`
	Address       string `toml:"address"`
	Secret        string `toml:"secret"`
	Timeout       string `toml:"timeout"`
	Retries       int    `toml:"retries"`
	NASIdentifier string `toml:"nas_identifier"`
	SendOption82  bool   `toml:"send_option82"`
}

// StaticRoute is one classless static route entry. The TOML array of tables
// syntax keeps entries in file order, and that order is carried through to
// the encoded option.
type StaticRoute struct {
	Subnet  string `toml:"subnet"`
	Gateway string `toml:"gateway"`
}

// Load reads, parses, and validates a configuration file.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.MetricsListen == "" {
		c.Server.MetricsListen = "127.0.0.1:9482"
	}
	if c.Server.EventSocket == "" {
		c.Server.EventSocket = "/run/relaykit/events.sock"
	}
	if c.Server.ObservationDB == "" {
		c.Server.ObservationDB = "/var/lib/relaykit/observations.db"
	}
	if c.Resolver.Timeout == "" {
		c.Resolver.Timeout = "3s"
	}
	if c.RADIUS.Timeout == "" {
		c.RADIUS.Timeout = "5s"
	}
	if c.RADIUS.Retries == 0 {
		c.RADIUS.Retries = 3
	}
}

// Validate checks the configuration for errors that would only surface at
// runtime otherwise.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Resolver.Timeout); err != nil {
		return fmt.Errorf("resolver.timeout %q: %w", c.Resolver.Timeout, err)
	}
	if _, err := time.ParseDuration(c.RADIUS.Timeout); err != nil {
		return fmt.Errorf("radius.timeout %q: %w", c.RADIUS.Timeout, err)
	}
	if c.RADIUS.Enabled {
		if c.RADIUS.Address == "" {
			return fmt.Errorf("radius.address is required when radius is enabled")
		}
		if c.RADIUS.Secret == "" {
			return fmt.Errorf("radius.secret is required when radius is enabled")
		}
	}

	resolverConfigured := len(c.Resolver.Servers) > 0
	for i, r := range c.StaticRoutes {
		if _, _, err := net.ParseCIDR(r.Subnet); err != nil {
			return fmt.Errorf("static_route[%d].subnet %q: %w", i, r.Subnet, err)
		}
		if net.ParseIP(r.Gateway) == nil && !resolverConfigured {
			return fmt.Errorf("static_route[%d].gateway %q is not an IP address and no resolver is configured", i, r.Gateway)
		}
	}
	return nil
}

// Routes converts the configured static routes to codec input, preserving
// file order.
func (c *Config) Routes() []dhcpv4.StaticRoute {
	routes := make([]dhcpv4.StaticRoute, len(c.StaticRoutes))
	for i, r := range c.StaticRoutes {
		routes[i] = dhcpv4.StaticRoute{Subnet: r.Subnet, Gateway: r.Gateway}
	}
	return routes
}

// ResolverTimeout returns the parsed resolver timeout.
func (c *Config) ResolverTimeout() time.Duration {
	d, err := time.ParseDuration(c.Resolver.Timeout)
	if err != nil {
		return 3 * time.Second
	}
	return d
}
