package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env

	cfg := Load()

	if cfg.ServiceName != "handTrackingService" || cfg.ServiceType != "_handTracking._tcp" {
		t.Errorf("unexpected service %s %s", cfg.ServiceName, cfg.ServiceType)
	}
	if cfg.ListenAddr != ":0" {
		t.Errorf("ListenAddr = %s, want :0", cfg.ListenAddr)
	}
	if cfg.UDPDestPort != 7777 || cfg.UDPBasePort != 1201 {
		t.Errorf("ports = %d/%d, want 7777/1201", cfg.UDPDestPort, cfg.UDPBasePort)
	}
	if cfg.PollInterval != 5*time.Millisecond {
		t.Errorf("PollInterval = %v, want 5ms", cfg.PollInterval)
	}
	if cfg.StartupDelay != time.Second {
		t.Errorf("StartupDelay = %v, want 1s", cfg.StartupDelay)
	}
	if cfg.Source != SourceSimulator {
		t.Errorf("Source = %s, want simulator", cfg.Source)
	}
	if cfg.ClampFlexion || cfg.Tray || cfg.Debug {
		t.Error("optional features should default to off")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HANDSTREAM_UDP_DEST_PORT", "9000")
	t.Setenv("HANDSTREAM_POLL_INTERVAL", "2ms")
	t.Setenv("HANDSTREAM_CLAMP_FLEXION", "true")
	t.Setenv("HANDSTREAM_SOURCE", "replay")
	t.Setenv("HANDSTREAM_REPLAY_FILE", "session.jsonl")

	cfg := Load()

	if cfg.UDPDestPort != 9000 {
		t.Errorf("UDPDestPort = %d, want 9000", cfg.UDPDestPort)
	}
	if cfg.PollInterval != 2*time.Millisecond {
		t.Errorf("PollInterval = %v, want 2ms", cfg.PollInterval)
	}
	if !cfg.ClampFlexion {
		t.Error("ClampFlexion should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HANDSTREAM_UDP_BASE_PORT", "lots")
	t.Setenv("HANDSTREAM_DEBUG", "maybe")
	t.Setenv("HANDSTREAM_STARTUP_DELAY", "soon")

	cfg := Load()

	if cfg.UDPBasePort != 1201 || cfg.Debug || cfg.StartupDelay != time.Second {
		t.Errorf("expected defaults, got %d %v %v", cfg.UDPBasePort, cfg.Debug, cfg.StartupDelay)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"dest port zero", func(c *Config) { c.UDPDestPort = 0 }, "HANDSTREAM_UDP_DEST_PORT"},
		{"base port too large", func(c *Config) { c.UDPBasePort = 70000 }, "HANDSTREAM_UDP_BASE_PORT"},
		{"poll interval", func(c *Config) { c.PollInterval = 0 }, "HANDSTREAM_POLL_INTERVAL"},
		{"shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, "HANDSTREAM_SHUTDOWN_TIMEOUT"},
		{"unknown source", func(c *Config) { c.Source = "kinect" }, "unknown HANDSTREAM_SOURCE"},
		{"replay without file", func(c *Config) { c.Source = SourceReplay }, "HANDSTREAM_REPLAY_FILE"},
		{"bridge without command", func(c *Config) { c.Source = SourceBridge; c.BridgeCmd = "  " }, "HANDSTREAM_BRIDGE_CMD"},
		{"simulator fps", func(c *Config) { c.SimFPS = 0 }, "HANDSTREAM_SIM_FPS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			cfg := Load()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.want)
			}
		})
	}

	t.Run("base port zero is allowed", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cfg := Load()
		cfg.UDPBasePort = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestBridgeArgs(t *testing.T) {
	cfg := &Config{BridgeCmd: "  leap-bridge --hand right  "}
	got := cfg.BridgeArgs()
	if len(got) != 3 || got[0] != "leap-bridge" || got[2] != "right" {
		t.Errorf("BridgeArgs() = %v", got)
	}
}
