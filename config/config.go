package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Cache      CacheConfig      `yaml:"cache"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// BackendConfig describes the upstream REST API the cache is filled from.
type BackendConfig struct {
	BaseURL                   string            `yaml:"base_url"`
	RoomsPath                 string            `yaml:"rooms_path"`
	BookingsPath              string            `yaml:"bookings_path"`
	Headers                   map[string]string `yaml:"headers"`
	HTTPProxy                 string            `yaml:"http_proxy"`
	PageSize                  int               `yaml:"page_size"`
	TimeoutSeconds            int               `yaml:"timeout_seconds"`
	MaxRetries                int               `yaml:"max_retries"`
	RevalidateIntervalSeconds int               `yaml:"revalidate_interval_seconds"`
	RevalidateInterval        time.Duration     `yaml:"-"`
}

// CacheConfig selects the cache store and its freshness policy.
type CacheConfig struct {
	// Driver is one of "gorm", "memory" or "none".
	Driver                    string        `yaml:"driver"`
	RoomsStaleAfterSeconds    int           `yaml:"rooms_stale_after_seconds"`
	BookingsStaleAfterSeconds int           `yaml:"bookings_stale_after_seconds"`
	WarmupOnStart             bool          `yaml:"warmup_on_start"`
	RoomsStaleAfter           time.Duration `yaml:"-"`
	BookingsStaleAfter        time.Duration `yaml:"-"`
}

// ScheduleConfig holds the day-grid layout settings.
type ScheduleConfig struct {
	IntervalMinutes int    `yaml:"interval_minutes"`
	DayStartHour    int    `yaml:"day_start_hour"`
	DayEndHour      int    `yaml:"day_end_hour"`
	Timezone        string `yaml:"timezone"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Backend.RoomsPath == "" {
		cfg.Backend.RoomsPath = "/api/rooms"
	}
	if cfg.Backend.BookingsPath == "" {
		cfg.Backend.BookingsPath = "/api/bookings"
	}
	if cfg.Backend.PageSize <= 0 {
		cfg.Backend.PageSize = 100
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 30
	}
	if cfg.Backend.MaxRetries < 0 {
		cfg.Backend.MaxRetries = 0
	}
	if cfg.Backend.RevalidateIntervalSeconds <= 0 {
		cfg.Backend.RevalidateIntervalSeconds = 60
	}
	cfg.Backend.RevalidateInterval = time.Duration(cfg.Backend.RevalidateIntervalSeconds) * time.Second

	switch cfg.Cache.Driver {
	case "":
		cfg.Cache.Driver = "gorm"
	case "gorm", "memory", "none":
	default:
		return fmt.Errorf("unknown cache.driver %q", cfg.Cache.Driver)
	}
	if cfg.Cache.RoomsStaleAfterSeconds <= 0 {
		cfg.Cache.RoomsStaleAfterSeconds = 300
	}
	if cfg.Cache.BookingsStaleAfterSeconds <= 0 {
		cfg.Cache.BookingsStaleAfterSeconds = 60
	}
	cfg.Cache.RoomsStaleAfter = time.Duration(cfg.Cache.RoomsStaleAfterSeconds) * time.Second
	cfg.Cache.BookingsStaleAfter = time.Duration(cfg.Cache.BookingsStaleAfterSeconds) * time.Second

	if cfg.Schedule.IntervalMinutes <= 0 {
		cfg.Schedule.IntervalMinutes = 15
	}
	if cfg.Schedule.DayStartHour == 0 && cfg.Schedule.DayEndHour == 0 {
		cfg.Schedule.DayStartHour = 6
		cfg.Schedule.DayEndHour = 23
	}
	if cfg.Schedule.DayStartHour < 0 || cfg.Schedule.DayEndHour > 24 || cfg.Schedule.DayStartHour >= cfg.Schedule.DayEndHour {
		return fmt.Errorf("invalid schedule window %d-%d", cfg.Schedule.DayStartHour, cfg.Schedule.DayEndHour)
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid schedule.timezone %q: %w", cfg.Schedule.Timezone, err)
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "file:venue-cache.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return nil
}
