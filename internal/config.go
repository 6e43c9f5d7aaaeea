package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Teams   TeamsConfig       `yaml:"teams"`
	Limits  LimitsConfig      `yaml:"limits"`
	Gateway GatewayConfig     `yaml:"gateway"`
	MCP     MCPConfig         `yaml:"mcp"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("limits: %w", err)
	}
	if err := c.Gateway.Validate(); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TeamsConfig points at the teams file. An empty Path disables team loading.
type TeamsConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// LimitsConfig throttles the mutation endpoint. Zero disables limiting.
type LimitsConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Validate validates the limits configuration.
func (c *LimitsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// GatewayConfig configures the HTTP transport clients use to reach a
// backend. An empty BaseURL means the local store is used directly.
type GatewayConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// Validate validates the gateway configuration.
func (c *GatewayConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// BreakerConfig holds circuit breaker settings of the HTTP transport.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// MCPConfig holds settings of the MCP stdio server.
type MCPConfig struct {
	// AnnotatorID is recorded as the author of annotations written by tools.
	AnnotatorID string `yaml:"annotator_id"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./folio.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Limits: LimitsConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Gateway: GatewayConfig{
			Timeout: 30 * time.Second,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		MCP: MCPConfig{
			AnnotatorID: "mcp",
		},
	}
}
