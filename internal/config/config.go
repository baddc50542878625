package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Network  NetworkConfig  `toml:"network"`
	Worker   WorkerConfig   `toml:"worker"`
	Room     RoomConfig     `toml:"room"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
}

// EngineConfig holds the Engine constructor options read from config:
// auto_connect, use_worker and scripts_dir. Worker and network options live
// in their own tables.
type EngineConfig struct {
	AutoConnect bool   `toml:"auto_connect"`
	UseWorker   bool   `toml:"use_worker"`
	ScriptsDir  string `toml:"scripts_dir"`
}

type NetworkConfig struct {
	Codec             string        `toml:"codec"` // "json" or "binary"
	ReconnectEnabled  bool          `toml:"reconnect"`
	MessageBufferSize int           `toml:"message_buffer_size"`
	BaseDelay         time.Duration `toml:"base_delay"`
	MaxDelay          time.Duration `toml:"max_delay"`
	MaxAttempts       int           `toml:"max_attempts"`
	Jitter            bool          `toml:"jitter"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
}

// WorkerConfig configures the bounded goroutine pool batch actions
// (batch:shuffle, batch:draw) may offload to.
type WorkerConfig struct {
	Debug          bool          `toml:"debug"`
	Timeout        time.Duration `toml:"timeout"`
	EnableBatching bool          `toml:"enable_batching"`
	BatchWindow    time.Duration `toml:"batch_window"`
	PoolSize       int           `toml:"pool_size"`
}

// RoomConfig mirrors the Room server options of spec.md §6: {port, verbose, maxRooms}.
type RoomConfig struct {
	BindAddress string `toml:"bind_address"`
	Verbose     bool   `toml:"verbose"`
	MaxRooms    int    `toml:"max_rooms"`
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			AutoConnect: true,
			UseWorker:   false,
			ScriptsDir:  "scripts",
		},
		Network: NetworkConfig{
			Codec:             "json",
			ReconnectEnabled:  true,
			MessageBufferSize: 100,
			BaseDelay:         200 * time.Millisecond,
			MaxDelay:          10 * time.Second,
			MaxAttempts:       0, // 0 = unbounded
			Jitter:            true,
			WriteTimeout:      10 * time.Second,
			ReadTimeout:       60 * time.Second,
		},
		Worker: WorkerConfig{
			Debug:          false,
			Timeout:        2 * time.Second,
			EnableBatching: false,
			BatchWindow:    10 * time.Millisecond,
			PoolSize:       4,
		},
		Room: RoomConfig{
			BindAddress: "0.0.0.0:7700",
			Verbose:     false,
			MaxRooms:    0, // 0 = unbounded
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
