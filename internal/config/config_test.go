package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[server]
log_level = "debug"
event_socket = "/tmp/relaykit-test.sock"
observation_db = "/tmp/relaykit-test.db"

[[static_route]]
subnet = "10.0.0.0/8"
gateway = "10.0.0.1"

[[static_route]]
subnet = "0.0.0.0/0"
gateway = "192.168.1.254"
`

func TestLoadMinimalConfig(t *testing.T) {
	path := writeTestConfig(t, minimalConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.Server.LogLevel)
	}
	if len(cfg.StaticRoutes) != 2 {
		t.Fatalf("static routes = %d, want 2", len(cfg.StaticRoutes))
	}
	// Array-of-tables order must survive parsing.
	if cfg.StaticRoutes[0].Subnet != "10.0.0.0/8" || cfg.StaticRoutes[1].Subnet != "0.0.0.0/0" {
		t.Errorf("route order = %q, %q", cfg.StaticRoutes[0].Subnet, cfg.StaticRoutes[1].Subnet)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeTestConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("default log_level = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Server.MetricsListen == "" || cfg.Server.EventSocket == "" || cfg.Server.ObservationDB == "" {
		t.Error("server defaults not applied")
	}
	if cfg.RADIUS.Retries != 3 {
		t.Errorf("default radius retries = %d, want 3", cfg.RADIUS.Retries)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/relaykit.toml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateBadRoute(t *testing.T) {
	path := writeTestConfig(t, `
[[static_route]]
subnet = "not-a-subnet"
gateway = "10.0.0.1"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid subnet")
	}
}

func TestValidateHostnameGatewayNeedsResolver(t *testing.T) {
	withoutResolver := `
[[static_route]]
subnet = "10.0.0.0/8"
gateway = "gw.example.net"
`
	if _, err := Load(writeTestConfig(t, withoutResolver)); err == nil {
		t.Error("expected error for hostname gateway without resolver")
	}

	withResolver := withoutResolver + `
[resolver]
servers = ["192.168.1.1:53"]
`
	if _, err := Load(writeTestConfig(t, withResolver)); err != nil {
		t.Errorf("Load with resolver: %v", err)
	}
}

func TestValidateRADIUS(t *testing.T) {
	path := writeTestConfig(t, `
[radius]
enabled = true
address = "127.0.0.1:1812"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for enabled radius without secret")
	}

	path = writeTestConfig(t, `
[radius]
enabled = true
address = "127.0.0.1:1812"
secret = "testing123"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.RADIUS.Enabled {
		t.Error("radius not enabled")
	}
}

func TestRoutesConversion(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	routes := cfg.Routes()
	if len(routes) != 2 {
		t.Fatalf("Routes() = %d entries, want 2", len(routes))
	}
	if routes[1].Gateway != "192.168.1.254" {
		t.Errorf("routes[1].Gateway = %q", routes[1].Gateway)
	}
}
