package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	gate "github.com/goliatone/go-auth-gate"
	"github.com/joho/godotenv"
)

// Config is the gatekeeper configuration, read from GATE_ prefixed
// environment variables.
type Config struct {
	// Origin is the public URL of the application, used for redirects
	Origin string `env:"ORIGIN" envDefault:"http://localhost:8080" json:"origin"`

	// HTTPAddr is the listen address of the HTTP shell
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080" json:"http_addr"`

	// IdentityURL is the root of the GoTrue compatible auth API
	IdentityURL string `env:"IDP_URL" json:"idp_url"`

	// IdentityAPIKey is the public (anon) key of the identity service
	IdentityAPIKey string `env:"IDP_API_KEY" json:"-"`

	// JWKSURL enables access token signature checks when set
	JWKSURL string `env:"IDP_JWKS_URL" json:"idp_jwks_url,omitempty"`

	// Persistence configures the sqlite record store
	Persistence Persistence `envPrefix:"DB_" json:"persistence"`

	// DefaultRole is stored for users seen for the first time
	DefaultRole string `env:"DEFAULT_ROLE" envDefault:"OBSERVER" json:"default_role"`

	// OAuthTimeout bounds how long loading stays on while the user is at
	// the OAuth provider
	OAuthTimeout time.Duration `env:"OAUTH_TIMEOUT" envDefault:"5m" json:"oauth_timeout"`

	// PhoneRegion is used to parse phone numbers without a country code
	PhoneRegion string `env:"PHONE_REGION" envDefault:"US" json:"phone_region"`

	// OperationTimeout bounds each identity and record store call
	OperationTimeout time.Duration `env:"OPERATION_TIMEOUT" envDefault:"10s" json:"operation_timeout"`

	// Debug dumps the effective configuration on boot
	Debug bool `env:"DEBUG" envDefault:"false" json:"debug"`
}

// Persistence holds the record store settings
type Persistence struct {
	DSN         string        `env:"DSN" envDefault:"file:gate.db?cache=shared" json:"dsn"`
	Driver      string        `env:"DRIVER" envDefault:"sqlite3" json:"driver"`
	Server      string        `env:"SERVER" envDefault:"localhost" json:"server"`
	PingTimeout time.Duration `env:"PING_TIMEOUT" envDefault:"5s" json:"ping_timeout"`
	Debug       bool          `env:"DEBUG" envDefault:"false" json:"debug"`

	// Seed truncates the users table and loads the fixtures on boot
	Seed bool `env:"SEED" envDefault:"false" json:"seed"`
}

func (p Persistence) GetDSN() string                { return p.DSN }
func (p Persistence) GetDebug() bool                { return p.Debug }
func (p Persistence) GetDriver() string             { return p.Driver }
func (p Persistence) GetServer() string             { return p.Server }
func (p Persistence) GetPingTimeout() time.Duration { return p.PingTimeout }
func (p Persistence) GetOtelIdentifier() string     { return "gatekeeper" }

// Validate will validate the store settings
func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DSN, validation.Required),
		validation.Field(&p.Driver, validation.Required),
	)
}

// Prefix is prepended to every variable name
const Prefix = "GATE_"

// Load reads an optional .env file and then the environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	return Parse()
}

// Parse reads the configuration from the environment only
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Sanitize normalizes values loaded from env
func (c *Config) Sanitize() {
	c.Origin = strings.TrimRight(strings.TrimSpace(c.Origin), "/")
	c.IdentityURL = strings.TrimRight(strings.TrimSpace(c.IdentityURL), "/")
	c.PhoneRegion = strings.ToUpper(strings.TrimSpace(c.PhoneRegion))
	c.DefaultRole = strings.ToUpper(strings.TrimSpace(c.DefaultRole))
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 10 * time.Second
	}
	if c.OAuthTimeout <= 0 {
		c.OAuthTimeout = 5 * time.Minute
	}
	if c.Persistence.PingTimeout <= 0 {
		c.Persistence.PingTimeout = 5 * time.Second
	}
}

// Validate will validate the configuration
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Origin, validation.Required, is.URL),
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.IdentityURL, validation.Required, is.URL),
		validation.Field(&c.JWKSURL, is.URL),
		validation.Field(&c.Persistence),
		validation.Field(&c.DefaultRole, validation.In(roleNames()...)),
		validation.Field(&c.PhoneRegion, validation.Required, validation.Length(2, 2)),
	)
}

func roleNames() []any {
	roles := gate.AllRoles()
	out := make([]any, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}
