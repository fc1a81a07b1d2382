// Package config loads and exposes application configuration (TOML).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/realtyhub/realtyhub/internal/notify"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath        = "config.toml"
	DefaultHTTPAddr          = ":8080"
	DefaultJWTExpiresIn      = "24h"
	DefaultPGHost            = "127.0.0.1"
	DefaultPGPort            = 5432
	DefaultPGUser            = "postgres"
	DefaultPGDatabase        = "realtyhub"
	DefaultPGSSLMode         = "disable"
	DefaultHeartbeatInterval = "25s"
	DefaultWriteTimeout      = "2s"
	DefaultDirectoryTimeout  = "3s"
	DefaultStreamBufferSize  = notify.DefaultBufferSize
	DefaultSnapshotSchedule  = notify.DefaultSnapshotSchedule
	DefaultStreamRateLimit   = 1.0
	DefaultStreamBurst       = 10
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Admin    AdminConfig    `toml:"admin"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	Notify   NotifyConfig   `toml:"notify"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AdminConfig holds the bootstrap admin account created on an empty database.
type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Email    string `toml:"email"`
}

// AuthConfig holds JWT secret and token expiry (e.g. 24h).
type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

// ExpiresIn parses JWTExpiresIn.
func (c AuthConfig) ExpiresIn() (time.Duration, error) {
	return parseDuration("auth.jwt_expires_in", c.JWTExpiresIn, DefaultJWTExpiresIn)
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// NotifyConfig tunes the real-time notification streams.
type NotifyConfig struct {
	HeartbeatInterval string  `toml:"heartbeat_interval"`
	WriteTimeout      string  `toml:"write_timeout"`
	DirectoryTimeout  string  `toml:"directory_timeout"`
	BufferSize        int     `toml:"buffer_size"`
	SnapshotSchedule  string  `toml:"snapshot_schedule"`
	StreamRateLimit   float64 `toml:"stream_rate_limit"`
	StreamBurst       int     `toml:"stream_burst"`
}

// NotifyTimings is the parsed form of the duration fields in NotifyConfig.
type NotifyTimings struct {
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	DirectoryTimeout  time.Duration
}

// Timings parses the duration fields.
func (c NotifyConfig) Timings() (NotifyTimings, error) {
	var (
		t   NotifyTimings
		err error
	)
	if t.HeartbeatInterval, err = parseDuration("notify.heartbeat_interval", c.HeartbeatInterval, DefaultHeartbeatInterval); err != nil {
		return t, err
	}
	if t.WriteTimeout, err = parseDuration("notify.write_timeout", c.WriteTimeout, DefaultWriteTimeout); err != nil {
		return t, err
	}
	if t.DirectoryTimeout, err = parseDuration("notify.directory_timeout", c.DirectoryTimeout, DefaultDirectoryTimeout); err != nil {
		return t, err
	}
	return t, nil
}

func parseDuration(name, value, fallback string) (time.Duration, error) {
	if value == "" {
		value = fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", name)
	}
	return d, nil
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "change-your-password-here",
			Email:    "admin@example.com",
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Notify: NotifyConfig{
			HeartbeatInterval: DefaultHeartbeatInterval,
			WriteTimeout:      DefaultWriteTimeout,
			DirectoryTimeout:  DefaultDirectoryTimeout,
			BufferSize:        DefaultStreamBufferSize,
			SnapshotSchedule:  DefaultSnapshotSchedule,
			StreamRateLimit:   DefaultStreamRateLimit,
			StreamBurst:       DefaultStreamBurst,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	if _, err := cfg.Notify.Timings(); err != nil {
		return cfg, err
	}
	if _, err := cfg.Auth.ExpiresIn(); err != nil {
		return cfg, err
	}

	return cfg, nil
}
