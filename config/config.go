package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/blogem/oauth-login/authenticator"
)

// Supported STATE_STORE values
const (
	StateStoreMemory = "memory"
	StateStoreSQLite = "sqlite"
)

// Config is the runtime configuration of the login service
type Config struct {
	ClientID     string `env:"CLIENT_ID,required"`
	ClientSecret string `env:"CLIENT_SECRET,required"`
	RedirectURI  string `env:"REDIRECT_URI" envDefault:"http://localhost:5000/callback"`

	// SessionSecret signs the state cookie
	SessionSecret string `env:"SESSION_SECRET"`

	AuthorizationEndpoint string   `env:"AUTHORIZATION_ENDPOINT" envDefault:"https://accounts.google.com/o/oauth2/v2/auth"`
	TokenEndpoint         string   `env:"TOKEN_ENDPOINT"         envDefault:"https://oauth2.googleapis.com/token"`
	OIDCIssuer            string   `env:"OIDC_ISSUER"            envDefault:"https://accounts.google.com"`
	Scopes                []string `env:"SCOPES"                 envDefault:"openid,email,profile" envSeparator:","`
	OfflineAccess         bool     `env:"OFFLINE_ACCESS"         envDefault:"false"`

	StateTTL             time.Duration `env:"STATE_TTL"              envDefault:"10m"`
	TokenExchangeTimeout time.Duration `env:"TOKEN_EXCHANGE_TIMEOUT" envDefault:"10s"`

	StateStore           string        `env:"STATE_STORE"           envDefault:"memory"`
	DatabaseFile         string        `env:"DATABASE_FILE"         envDefault:"oauth_login.db"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"5m"`
	AuditRetention       time.Duration `env:"AUDIT_RETENTION"       envDefault:"720h"`

	Port     string `env:"PORT"      envDefault:"5000"`
	UseHTTPS bool   `env:"USE_HTTPS" envDefault:"false"`

	Env       string `env:"ENV"        envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// GeneratedSessionSecret is set when SESSION_SECRET was empty and a random
	// one was generated. Signed cookies then do not survive a restart.
	GeneratedSessionSecret bool
}

// Load reads an optional .env file and parses the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.SessionSecret = secret
		cfg.GeneratedSessionSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the env tags cannot express
func (c *Config) Validate() error {
	switch c.StateStore {
	case StateStoreMemory, StateStoreSQLite:
	default:
		return fmt.Errorf("unsupported STATE_STORE %q, use %q or %q", c.StateStore, StateStoreMemory, StateStoreSQLite)
	}
	if c.StateTTL <= 0 {
		return errors.New("STATE_TTL must be positive")
	}
	if c.TokenExchangeTimeout <= 0 {
		return errors.New("TOKEN_EXCHANGE_TIMEOUT must be positive")
	}
	if c.HousekeepingInterval <= 0 {
		return errors.New("HOUSEKEEPING_INTERVAL must be positive")
	}
	return c.ClientConfig().Validate()
}

// ClientConfig returns the OAuth client registration
func (c *Config) ClientConfig() authenticator.ClientConfig {
	return authenticator.ClientConfig{
		ClientID:              c.ClientID,
		ClientSecret:          c.ClientSecret,
		RedirectURI:           c.RedirectURI,
		AuthorizationEndpoint: c.AuthorizationEndpoint,
		TokenEndpoint:         c.TokenEndpoint,
		Scopes:                trimCSV(c.Scopes),
	}
}

// IsProduction reports whether ENV names a production deployment
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

func trimCSV(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
