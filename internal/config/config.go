package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		ClientToken string `yaml:"client_token"`
		OrdersToken string `yaml:"orders_token"`
		AdminID     int64  `yaml:"admin_id"`
		Debug       bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Sessions struct {
		TTLMinutes             int `yaml:"ttl_minutes"`
		CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
	} `yaml:"sessions"`

	Booking struct {
		AnchorNextWeek *bool `yaml:"anchor_next_week"`
	} `yaml:"booking"`

	Notify struct {
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
		MaxRetries    int     `yaml:"max_retries"`
	} `yaml:"notify"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Google struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SheetName       string `yaml:"sheet_name"`
	} `yaml:"google"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Telegram.ClientToken == "" {
		return nil, fmt.Errorf("telegram.client_token is required")
	}
	if cfg.Telegram.OrdersToken == "" {
		cfg.Telegram.OrdersToken = cfg.Telegram.ClientToken
	}
	if cfg.Telegram.AdminID == 0 {
		return nil, fmt.Errorf("telegram.admin_id is required")
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/manibot.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SessionTTL returns the dialog lifetime, 30 minutes when unset.
func (c *Config) SessionTTL() time.Duration {
	if c.Sessions.TTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

func (c *Config) SessionCleanupInterval() time.Duration {
	if c.Sessions.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Sessions.CleanupIntervalMinutes) * time.Minute
}

// BackupInterval returns the pause between backups, 24h when unset.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// BookingAnchorNextWeek reports whether the "current week" menu starts at
// the upcoming Monday rather than this week's. Defaults to true.
func (c *Config) BookingAnchorNextWeek() bool {
	if c.Booking.AnchorNextWeek == nil {
		return true
	}
	return *c.Booking.AnchorNextWeek
}
