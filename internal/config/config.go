// Package config provides server configuration loaded from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/kelseyhightower/envconfig"

	"github.com/morezero/comms-transport/pkg/codec"
	"github.com/morezero/comms-transport/pkg/commsutil"
)

const logPrefix = "config:LoadConfig"

// Config holds comms-transport configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"chat-persist"`
	// QueueGroup lets replicas share the served subjects. Empty subscribes every replica.
	QueueGroup string `envconfig:"QUEUE_GROUP"`

	// Error model
	ServiceDomain string `envconfig:"SERVICE_DOMAIN" default:"chat-persist.runtiva.com"`
	ErrorDomain   string `envconfig:"ERROR_DOMAIN" default:"runtiva.com"`

	// Envelopes
	Codec           string        `envconfig:"COMMS_CODEC" default:"json"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"25s"`
	EnvelopeVersion string        `envconfig:"ENVELOPE_VERSION" default:"1.0.0"`
	EnvelopeAccept  string        `envconfig:"ENVELOPE_ACCEPT" default:">= 1.0.0, < 2.0.0"`

	// Error events
	ErrorEventSubject string `envconfig:"ERROR_EVENT_SUBJECT" default:"comms.errors"`

	// Error audit (Postgres)
	AuditEnabled bool   `envconfig:"AUDIT_ENABLED" default:"false"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`

	// HTTP health endpoint
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// gRPC health endpoint. 0 disables it.
	GRPCPort int `envconfig:"GRPC_PORT" default:"9090"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	return &c, nil
}

// Validate checks the configuration used by serve.
func (c *Config) Validate() error {
	if !codec.ValidName(c.Codec) {
		return fmt.Errorf("%s - COMMS_CODEC must be %q or %q, got %q", logPrefix, codec.NameJSON, codec.NameProto, c.Codec)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("%s - GRPC_PORT must be between 0 and 65535, got %d", logPrefix, c.GRPCPort)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if _, err := c.Version(); err != nil {
		return err
	}
	if _, err := c.Accept(); err != nil {
		return err
	}
	if !commsutil.ValidSubject(c.ErrorEventSubject) {
		return fmt.Errorf("%s - ERROR_EVENT_SUBJECT %q is not a valid subject", logPrefix, c.ErrorEventSubject)
	}
	if c.ServiceDomain == "" || c.ErrorDomain == "" {
		return fmt.Errorf("%s - SERVICE_DOMAIN and ERROR_DOMAIN are required", logPrefix)
	}
	if c.AuditEnabled {
		return c.ValidateForDB()
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// Version parses ENVELOPE_VERSION.
func (c *Config) Version() (*semver.Version, error) {
	v, err := semver.NewVersion(c.EnvelopeVersion)
	if err != nil {
		return nil, fmt.Errorf("%s - ENVELOPE_VERSION %q: %w", logPrefix, c.EnvelopeVersion, err)
	}
	return v, nil
}

// Accept parses ENVELOPE_ACCEPT. An empty constraint accepts every version.
func (c *Config) Accept() (*semver.Constraints, error) {
	if strings.TrimSpace(c.EnvelopeAccept) == "" {
		return nil, nil
	}
	cs, err := semver.NewConstraint(c.EnvelopeAccept)
	if err != nil {
		return nil, fmt.Errorf("%s - ENVELOPE_ACCEPT %q: %w", logPrefix, c.EnvelopeAccept, err)
	}
	return cs, nil
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
