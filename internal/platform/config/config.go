// Package config provides server settings and concurrency tuning presets.
// Game balance is not configurable here; it lives in the economy catalog.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const (
	PresetDefault     = "default"
	PresetStressTest  = "stress"
	PresetLowResource = "low"
)

// Config holds server settings and tuned parameters.
type Config struct {
	Preset string `yaml:"preset"`

	// Server
	ListenAddr  string `yaml:"listen_addr"`
	DBPath      string `yaml:"db_path"` // empty keeps saves in memory
	SaveSlot    string `yaml:"save_slot"`
	CatalogPath string `yaml:"catalog_path"` // empty uses the embedded catalog

	AutosaveInterval      time.Duration `yaml:"autosave_interval"`
	ViewBroadcastInterval time.Duration `yaml:"view_broadcast_interval"`
	EventPollInterval     time.Duration `yaml:"event_poll_interval"`
	PersistTimeout        time.Duration `yaml:"persist_timeout"`

	// Channel buffer sizes
	CommandBuffer          int `yaml:"command_buffer"`
	BroadcastChannelBuffer int `yaml:"broadcast_channel_buffer"`
	ClientSendBuffer       int `yaml:"client_send_buffer"`

	// Connection pools
	DBMaxOpenConns int `yaml:"db_max_open_conns"`
	DBMaxIdleConns int `yaml:"db_max_idle_conns"`

	BonusCacheSize int `yaml:"bonus_cache_size"`

	// Rate limiting
	MaxMessagesPerSecond float64 `yaml:"max_messages_per_second"` // per client
	MessageBurst         int     `yaml:"message_burst"`
	MaxClients           int     `yaml:"max_clients"`
}

func base() *Config {
	return &Config{
		ListenAddr:            ":8080",
		DBPath:                "data/cosmic.db",
		SaveSlot:              "main",
		AutosaveInterval:      5 * time.Second,
		ViewBroadcastInterval: 250 * time.Millisecond,
		EventPollInterval:     200 * time.Millisecond,
		PersistTimeout:        2 * time.Second,
		BonusCacheSize:        256,
	}
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	c := base()
	c.Preset = PresetDefault
	c.CommandBuffer = 256
	c.BroadcastChannelBuffer = 256
	c.ClientSendBuffer = 64
	c.DBMaxOpenConns = numCPU * 4
	c.DBMaxIdleConns = numCPU * 2
	c.MaxMessagesPerSecond = 30 // a fast human clicks ~15/s
	c.MessageBurst = 60
	c.MaxClients = 16
	return c
}

// StressTestConfig returns aggressive settings for bot soak runs.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	c := base()
	c.Preset = PresetStressTest
	c.CommandBuffer = 4096
	c.BroadcastChannelBuffer = 512
	c.ClientSendBuffer = 128
	c.DBMaxOpenConns = numCPU * 8
	c.DBMaxIdleConns = numCPU * 4
	c.MaxMessagesPerSecond = 500
	c.MessageBurst = 1000
	c.MaxClients = 500
	return c
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	c := base()
	c.Preset = PresetLowResource
	c.ViewBroadcastInterval = time.Second
	c.CommandBuffer = 64
	c.BroadcastChannelBuffer = 16
	c.ClientSendBuffer = 8
	c.DBMaxOpenConns = 2
	c.DBMaxIdleConns = 1
	c.BonusCacheSize = 32
	c.MaxMessagesPerSecond = 10
	c.MessageBurst = 20
	c.MaxClients = 4
	return c
}

// FromPreset returns the preset called name; "" means the default.
func FromPreset(name string) (*Config, error) {
	switch name {
	case "", PresetDefault:
		return DefaultConfig(), nil
	case PresetStressTest:
		return StressTestConfig(), nil
	case PresetLowResource:
		return LowResourceConfig(), nil
	}
	return nil, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
}

// Parse overlays a YAML document on the preset it names.
func Parse(data []byte) (*Config, error) {
	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	c, err := FromPreset(head.Preset)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	c.Preset = head.Preset
	if c.Preset == "" {
		c.Preset = PresetDefault
	}
	return c, c.Validate()
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, name, v))
		}
	}
	positiveDur := func(name string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, name, d))
		}
	}

	if c.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("%w: listen_addr is required", ErrInvalidConfig))
	}
	if c.SaveSlot == "" {
		errs = append(errs, fmt.Errorf("%w: save_slot is required", ErrInvalidConfig))
	}
	positiveDur("autosave_interval", c.AutosaveInterval)
	positiveDur("view_broadcast_interval", c.ViewBroadcastInterval)
	positiveDur("event_poll_interval", c.EventPollInterval)
	positiveDur("persist_timeout", c.PersistTimeout)
	positive("command_buffer", c.CommandBuffer)
	positive("broadcast_channel_buffer", c.BroadcastChannelBuffer)
	positive("client_send_buffer", c.ClientSendBuffer)
	positive("db_max_open_conns", c.DBMaxOpenConns)
	positive("bonus_cache_size", c.BonusCacheSize)
	positive("message_burst", c.MessageBurst)
	positive("max_clients", c.MaxClients)
	if c.DBMaxIdleConns < 0 {
		errs = append(errs, fmt.Errorf("%w: db_max_idle_conns must not be negative", ErrInvalidConfig))
	}
	if c.MaxMessagesPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_messages_per_second must be positive", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseCommandBuffer   bool
	IncreaseBroadcastBuffer bool
	IncreaseDBConnections   bool
	Notes                   []string
}

// Analyze examines a metrics.Collector snapshot and returns tuning recommendations.
func Analyze(metrics map[string]any) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	if eng, ok := metrics["engine"].(map[string]any); ok {
		if maxLat, ok := eng["max_tick_ms"].(float64); ok && maxLat > 100 {
			rec.IncreaseCommandBuffer = true
			rec.Notes = append(rec.Notes, "Tick latency exceeds one tick interval - commands are queueing")
		}
	}

	if analytics, ok := metrics["analytics"].(map[string]any); ok {
		if maxLat, ok := analytics["max_persist_ms"].(float64); ok && maxLat > 50 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Analytics write latency exceeds 50ms - increase DB connections")
		}
		if errs, ok := analytics["errors"].(int64); ok && errs > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Analytics write errors detected - check DB connection pool")
		}
	}

	if ws, ok := metrics["websocket"].(map[string]any); ok {
		if errs, ok := ws["errors"].(int64); ok && errs > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// ApplyRecommendations returns a copy of c adjusted by rec.
func ApplyRecommendations(c *Config, rec *Recommendations) *Config {
	out := *c
	if rec.IncreaseCommandBuffer {
		out.CommandBuffer *= 2
	}
	if rec.IncreaseBroadcastBuffer {
		out.BroadcastChannelBuffer *= 2
		out.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		out.DBMaxOpenConns = int(float64(out.DBMaxOpenConns) * 1.5)
		out.DBMaxIdleConns = int(float64(out.DBMaxIdleConns) * 1.5)
	}
	return &out
}
