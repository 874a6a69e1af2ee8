// Package config provides Viper-based configuration loading for the game server.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level HTTP server settings.
type ServerConfig struct {
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener.
	Port int `mapstructure:"port"`
	// ShutdownTimeout bounds graceful shutdown of in-flight connections.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds MongoDB connection settings.
type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	Name             string        `mapstructure:"name"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	MinPoolSize      uint64        `mapstructure:"min_pool_size"`
	MaxPoolSize      uint64        `mapstructure:"max_pool_size"`
}

// URI returns the MongoDB connection string. Credentials are URL-escaped.
//
// Precondition: Host must be non-empty and Port valid.
// Postcondition: Returns a valid mongodb:// URI.
func (d DatabaseConfig) URI() string {
	if d.User == "" {
		return fmt.Sprintf("mongodb://%s:%d", d.Host, d.Port)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%d/?authSource=admin",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port,
	)
}

// WebsocketConfig holds settings for player-facing websocket connections.
type WebsocketConfig struct {
	// ReadLimit is the maximum inbound message size in bytes.
	ReadLimit int64 `mapstructure:"read_limit"`
	// WriteTimeout is the per-write deadline for outbound messages.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// PongTimeout is how long to wait for a pong before dropping the connection.
	PongTimeout time.Duration `mapstructure:"pong_timeout"`
	// SendBuffer is the per-player outbound message buffer size.
	SendBuffer int `mapstructure:"send_buffer"`
}

// AuthConfig holds access-token settings.
type AuthConfig struct {
	// Secret is the HMAC signing secret for access tokens.
	Secret string `mapstructure:"secret"`
	// Issuer is the expected token issuer claim.
	Issuer string `mapstructure:"issuer"`
	// TokenTTL is the lifetime of newly issued access tokens.
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Websocket WebsocketConfig `mapstructure:"websocket"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWebsocket(c.Websocket); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAuth(c.Auth); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Host == "" {
		errs = append(errs, "server.host must not be empty")
	}
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	if d.ConnectTimeout <= 0 {
		errs = append(errs, "database.connect_timeout must be positive")
	}
	if d.OperationTimeout <= 0 {
		errs = append(errs, "database.operation_timeout must be positive")
	}
	if d.MinPoolSize > d.MaxPoolSize {
		errs = append(errs, "database.min_pool_size must not exceed database.max_pool_size")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWebsocket(w WebsocketConfig) error {
	var errs []string
	if w.ReadLimit < 1 {
		errs = append(errs, fmt.Sprintf("websocket.read_limit must be >= 1, got %d", w.ReadLimit))
	}
	if w.WriteTimeout <= 0 {
		errs = append(errs, "websocket.write_timeout must be positive")
	}
	if w.PongTimeout <= 0 {
		errs = append(errs, "websocket.pong_timeout must be positive")
	}
	if w.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("websocket.send_buffer must be >= 1, got %d", w.SendBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAuth(a AuthConfig) error {
	var errs []string
	if a.Secret == "" {
		errs = append(errs, "auth.secret must not be empty")
	}
	if a.Issuer == "" {
		errs = append(errs, "auth.issuer must not be empty")
	}
	if a.TokenTTL <= 0 {
		errs = append(errs, "auth.token_ttl must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with GAMETABLE_ prefix
	v.SetEnvPrefix("GAMETABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	if v == nil {
		return Config{}, errors.New("viper instance must not be nil")
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 27017)
	v.SetDefault("database.name", "gametable")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.operation_timeout", "5s")
	v.SetDefault("database.min_pool_size", 2)
	v.SetDefault("database.max_pool_size", 16)

	v.SetDefault("websocket.read_limit", 65536)
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.send_buffer", 64)

	v.SetDefault("auth.issuer", "gametable")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
