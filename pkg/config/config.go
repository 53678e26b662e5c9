package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/telefonbog/telefonbog/pkg/delta"
)

// Config holds all configuration for telefonbog.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, certificates, client secrets) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8501"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// CookieDomain is the domain for session cookies (optional).
	CookieDomain string `yaml:"cookie_domain" env:"COOKIE_DOMAIN" env-default:""`

	// SessionSecret signs the session cookies. Any passphrase works; it must
	// be the same on every instance behind a load balancer.
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML

	Keycloak KeycloakConfig `yaml:"keycloak"`
	Delta    DeltaConfig    `yaml:"delta"`
	Database DatabaseConfig `yaml:"database"`
}

// KeycloakConfig identifies the realm and client users log in with.
type KeycloakConfig struct {
	URL          string `yaml:"url" env:"KEYCLOAK_URL" env-default:""`
	Realm        string `yaml:"realm" env:"KEYCLOAK_REALM" env-default:""`
	ClientID     string `yaml:"client_id" env:"KEYCLOAK_CLIENT" env-default:"telefonbog"`
	ClientSecret string `yaml:"-" env:"KEYCLOAK_CLIENT_SECRET"` // Secret - not in YAML; empty for public clients

	// CPRRole is the client role that permits CPR searches.
	CPRRole string `yaml:"cpr_role" env:"KEYCLOAK_CPR_ROLE" env-default:"cpr"`

	// EnableVerification controls whether bearer tokens are validated
	// against the realm JWKS. Set to false for local development only.
	EnableVerification bool `yaml:"enable_verification" env:"KEYCLOAK_ENABLE_VERIFICATION" env-default:"true"`
}

// IssuerURL returns the realm issuer, e.g. https://kc.example/realms/aarhus.
func (k *KeycloakConfig) IssuerURL() string {
	return strings.TrimRight(k.URL, "/") + "/realms/" + k.Realm
}

// DeltaConfig holds the Delta endpoint and how to authenticate to it.
type DeltaConfig struct {
	URL      string        `yaml:"url" env:"DELTA_URL" env-default:"https://delta-cert.kmd.dk/api/object"`
	AuthMode string        `yaml:"auth_mode" env:"DELTA_AUTH_MODE" env-default:"client_credentials"`
	Timeout  time.Duration `yaml:"timeout" env:"DELTA_TIMEOUT" env-default:"30s"`

	// client_credentials mode
	AuthURL      string `yaml:"auth_url" env:"DELTA_AUTH_URL" env-default:"https://idp.opus-universe.kmd.dk"`
	Realm        string `yaml:"realm" env:"DELTA_REALM" env-default:"730"`
	ClientID     string `yaml:"client_id" env:"DELTA_CLIENT_ID" env-default:""`
	ClientSecret string `yaml:"-" env:"DELTA_CLIENT_SECRET"` // Secret - not in YAML

	// certificate mode
	CertBase64   string `yaml:"-" env:"DELTA_CERT_BASE64"`   // Secret - not in YAML
	CertPassword string `yaml:"-" env:"DELTA_CERT_PASSWORD"` // Secret - not in YAML
}

// AuthConfig converts the settings into the Delta transport configuration.
func (d *DeltaConfig) AuthConfig() delta.AuthConfig {
	return delta.AuthConfig{
		Mode:         d.AuthMode,
		Timeout:      d.Timeout,
		CertBase64:   d.CertBase64,
		CertPassword: d.CertPassword,
		ClientID:     d.ClientID,
		ClientSecret: d.ClientSecret,
		TokenURL:     delta.TokenURL(d.AuthURL, d.Realm),
	}
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User           string `yaml:"user" env:"DB_USER" env-default:"telefonbog"`
	Password       string `yaml:"-" env:"DB_PASS"` // Secret - not in YAML
	Database       string `yaml:"database" env:"DB_DATABASE" env-default:"telefonbog"`
	MaxConnections int32  `yaml:"max_connections" env:"DB_MAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"DB_SSLMODE" env-default:"disable"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// A missing config.yaml is not an error; every setting has an env variable.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Auto-derive BaseURL from Port if not explicitly set
	// Use HTTPS scheme if TLS is configured
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Keycloak.URL == "" {
		errs = append(errs, errors.New("KEYCLOAK_URL is required"))
	}
	if c.Keycloak.Realm == "" {
		errs = append(errs, errors.New("KEYCLOAK_REALM is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}

	switch c.Delta.AuthMode {
	case delta.AuthModeClientCredentials:
		if c.Delta.ClientID == "" || c.Delta.ClientSecret == "" {
			errs = append(errs, errors.New("DELTA_CLIENT_ID and DELTA_CLIENT_SECRET are required for client_credentials auth"))
		}
	case delta.AuthModeCertificate:
		if c.Delta.CertBase64 == "" {
			errs = append(errs, errors.New("DELTA_CERT_BASE64 is required for certificate auth"))
		}
	default:
		errs = append(errs, fmt.Errorf("delta auth_mode must be %q or %q, got %q",
			delta.AuthModeClientCredentials, delta.AuthModeCertificate, c.Delta.AuthMode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	// Readability is checked by tls.LoadX509KeyPair at startup
	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// RedirectURL is where Keycloak sends the browser after login.
func (c *Config) RedirectURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/auth/callback"
}

// ConnectionString returns a postgres:// URL. User and password are
// percent-encoded, so any character is allowed in DB_PASS.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
