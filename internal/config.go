package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/navgate/internal/disclosure"
	"github.com/starford/navgate/internal/policy"
	"github.com/starford/navgate/internal/session"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Menu       MenuConfig        `yaml:"menu"`
	Policies   PoliciesConfig    `yaml:"policies"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
	Disclosure DisclosureConfig  `yaml:"disclosure"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Policies.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Disclosure.Validate()
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

// MenuConfig points at the menu definition. An empty path selects the
// built-in dashboard menu.
type MenuConfig struct {
	Path string `yaml:"path"`
}

// PoliciesConfig holds the path to the policy directory.
type PoliciesConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the policies configuration.
func (c *PoliciesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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

// TokenConfig maps one bearer token to the actor it authenticates.
type TokenConfig struct {
	Token string `yaml:"token"`
	Actor string `yaml:"actor"`
}

// Validate validates the token entry.
func (c *TokenConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.Actor, validation.Required, validation.By(actorName)),
	)
}

func actorName(value interface{}) error {
	s, _ := value.(string)
	if !policy.ValidActor(s) {
		return errors.New("must be a valid actor name")
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how callers are identified:
//   - "disabled" (default): the actor is read from the X-Actor header, suitable for local dev.
//   - "token": Bearer token authentication; each token maps to one actor.
type AuthConfig struct {
	Mode   string        `yaml:"mode"`
	Tokens []TokenConfig `yaml:"tokens"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
		validation.Field(&c.Tokens),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && len(c.Tokens) == 0 {
		return fmt.Errorf("auth: mode is %q but no tokens are configured", AuthModeToken)
	}
	seen := make(map[string]struct{}, len(c.Tokens))
	for _, t := range c.Tokens {
		if _, dup := seen[t.Token]; dup {
			return fmt.Errorf("auth: token for actor %q is configured twice", t.Actor)
		}
		seen[t.Token] = struct{}{}
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TokenMap returns token -> actor.
func (c *AuthConfig) TokenMap() map[string]string {
	out := make(map[string]string, len(c.Tokens))
	for _, t := range c.Tokens {
		out[t.Token] = t.Actor
	}
	return out
}

// DisclosureConfig tunes the mega-menu debounce and session expiry.
type DisclosureConfig struct {
	OpenDelay  time.Duration `yaml:"open_delay"`
	CloseDelay time.Duration `yaml:"close_delay"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// Validate validates the disclosure configuration.
func (c *DisclosureConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OpenDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.CloseDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Second)),
	)
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
		Policies: PoliciesConfig{
			Path: "./policies",
		},
		SQLite: SQLiteConfig{
			Path: "./navgate.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Disclosure: DisclosureConfig{
			OpenDelay:  disclosure.DefaultOpenDelay,
			CloseDelay: disclosure.DefaultCloseDelay,
			SessionTTL: session.DefaultTTL,
		},
	}
}
