// Package config loads handstream settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Source kinds.
const (
	SourceSimulator = "simulator"
	SourceReplay    = "replay"
	SourceBridge    = "bridge"
)

type Config struct {
	// Discovery
	ServiceName   string
	ServiceType   string
	ServiceDomain string

	// Delivery
	ListenAddr      string
	UDPDestPort     int
	UDPBasePort     int
	PollInterval    time.Duration
	StartupDelay    time.Duration
	ShutdownTimeout time.Duration

	// Frame source
	Source         string
	ReplayFile     string
	ReplayInterval time.Duration
	ReplayLoop     bool
	BridgeCmd      string
	SimFPS         int

	// Tracking
	ClampFlexion bool

	// Monitor API, disabled when empty
	HTTPAddr string

	// MQTT mirror, disabled when the broker is empty
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string

	Tray  bool
	Debug bool
}

// Load reads a .env file if present, then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:   getEnv("HANDSTREAM_SERVICE_NAME", "handTrackingService"),
		ServiceType:   getEnv("HANDSTREAM_SERVICE_TYPE", "_handTracking._tcp"),
		ServiceDomain: getEnv("HANDSTREAM_SERVICE_DOMAIN", "local."),

		ListenAddr:      getEnv("HANDSTREAM_LISTEN_ADDR", ":0"),
		UDPDestPort:     getEnvInt("HANDSTREAM_UDP_DEST_PORT", 7777),
		UDPBasePort:     getEnvInt("HANDSTREAM_UDP_BASE_PORT", 1201),
		PollInterval:    getEnvDuration("HANDSTREAM_POLL_INTERVAL", 5*time.Millisecond),
		StartupDelay:    getEnvDuration("HANDSTREAM_STARTUP_DELAY", time.Second),
		ShutdownTimeout: getEnvDuration("HANDSTREAM_SHUTDOWN_TIMEOUT", 2*time.Second),

		Source:         getEnv("HANDSTREAM_SOURCE", SourceSimulator),
		ReplayFile:     getEnv("HANDSTREAM_REPLAY_FILE", ""),
		ReplayInterval: getEnvDuration("HANDSTREAM_REPLAY_INTERVAL", 16*time.Millisecond),
		ReplayLoop:     getEnvBool("HANDSTREAM_REPLAY_LOOP", true),
		BridgeCmd:      getEnv("HANDSTREAM_BRIDGE_CMD", ""),
		SimFPS:         getEnvInt("HANDSTREAM_SIM_FPS", 60),

		ClampFlexion: getEnvBool("HANDSTREAM_CLAMP_FLEXION", false),

		HTTPAddr: getEnv("HANDSTREAM_HTTP_ADDR", ""),

		MQTTBroker:   getEnv("HANDSTREAM_MQTT_BROKER", ""),
		MQTTClientID: getEnv("HANDSTREAM_MQTT_CLIENT_ID", "handstream"),
		MQTTUsername: getEnv("HANDSTREAM_MQTT_USERNAME", ""),
		MQTTPassword: getEnv("HANDSTREAM_MQTT_PASSWORD", ""),
		MQTTTopic:    getEnv("HANDSTREAM_MQTT_TOPIC", "handstream/pose"),

		Tray:  getEnvBool("HANDSTREAM_TRAY", false),
		Debug: getEnvBool("HANDSTREAM_DEBUG", false),
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := checkPort("HANDSTREAM_UDP_DEST_PORT", c.UDPDestPort, false); err != nil {
		return err
	}
	if err := checkPort("HANDSTREAM_UDP_BASE_PORT", c.UDPBasePort, true); err != nil {
		return err
	}
	if c.PollInterval <= 0 {
		return errors.New("HANDSTREAM_POLL_INTERVAL must be positive")
	}
	if c.StartupDelay < 0 {
		return errors.New("HANDSTREAM_STARTUP_DELAY must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("HANDSTREAM_SHUTDOWN_TIMEOUT must be positive")
	}

	switch c.Source {
	case SourceSimulator:
		if c.SimFPS <= 0 {
			return errors.New("HANDSTREAM_SIM_FPS must be positive")
		}
	case SourceReplay:
		if c.ReplayFile == "" {
			return errors.New("HANDSTREAM_REPLAY_FILE is required for the replay source")
		}
	case SourceBridge:
		if len(c.BridgeArgs()) == 0 {
			return errors.New("HANDSTREAM_BRIDGE_CMD is required for the bridge source")
		}
	default:
		return fmt.Errorf("unknown HANDSTREAM_SOURCE %q", c.Source)
	}
	return nil
}

// BridgeArgs splits the bridge command line on whitespace.
func (c *Config) BridgeArgs() []string {
	return strings.Fields(c.BridgeCmd)
}

func checkPort(key string, port int, allowZero bool) error {
	if port == 0 && allowZero {
		return nil
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s out of range: %d", key, port)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}
