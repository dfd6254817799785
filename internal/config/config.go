package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Provider types accepted in PROVIDER_TYPE.
const (
	ProviderFile       = "file"
	ProviderCloudflare = "cloudflare"
	ProviderRoute53    = "route53"
	ProviderDynDNS2    = "dyndns2"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Provider ProviderConfig
	Log      LogConfig
	Sweep    SweepConfig
	Notify   NotifyConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host              string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port              int    `env:"SERVER_PORT" envDefault:"8080"`
	TrustProxyHeaders bool   `env:"TRUST_PROXY_HEADERS" envDefault:"false"` // honour X-Forwarded-For / X-Real-IP
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver       string        `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN          string        `env:"DB_DSN" envDefault:"data/dyndns.db?_busy_timeout=5000"`
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`
}

// ProviderConfig selects and configures the DNS provider gateway.
type ProviderConfig struct {
	Type    string        `env:"PROVIDER_TYPE" envDefault:"file"`
	Zone    string        `env:"DNS_ZONE"`
	TTL     int           `env:"DNS_TTL" envDefault:"300"`
	Timeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
	File    string        `env:"PROVIDER_FILE" envDefault:"data/records.json"`

	Cloudflare CloudflareConfig
	Route53    Route53Config
	DynDNS2    DynDNS2Config
}

// CloudflareConfig holds Cloudflare API credentials.
// Either an API token or a global API key with email is required.
type CloudflareConfig struct {
	APIToken string `env:"CLOUDFLARE_API_TOKEN"`
	APIKey   string `env:"CLOUDFLARE_API_KEY"`
	Email    string `env:"CLOUDFLARE_EMAIL"`
	Proxied  bool   `env:"CLOUDFLARE_PROXIED" envDefault:"false"`
}

// Route53Config holds AWS Route 53 settings. Credentials come from the
// default AWS credential chain.
type Route53Config struct {
	HostedZone string `env:"ROUTE53_HOSTED_ZONE"` // defaults to DNS_ZONE
	Region     string `env:"AWS_REGION" envDefault:"us-east-1"`
}

// DynDNS2Config holds settings for a dyndns2 protocol server.
type DynDNS2Config struct {
	Server   string `env:"DYNDNS2_SERVER"`
	Username string `env:"DYNDNS2_USERNAME"`
	Password string `env:"DYNDNS2_PASSWORD"`
	Retries  int    `env:"DYNDNS2_RETRIES" envDefault:"3"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// SweepConfig holds the stale host sweep configuration.
type SweepConfig struct {
	StaleAfter time.Duration `env:"STALE_AFTER" envDefault:"24h"`
	Schedule   string        `env:"STALE_SWEEP_SCHEDULE" envDefault:"@every 15m"` // empty disables the sweep
}

// NotifyConfig holds operator notification configuration.
type NotifyConfig struct {
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`
	TelegramAPIURL string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Provider); err != nil {
		return nil, fmt.Errorf("parsing provider config: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("parsing log config: %w", err)
	}
	if err := env.Parse(&cfg.Sweep); err != nil {
		return nil, fmt.Errorf("parsing sweep config: %w", err)
	}
	if err := env.Parse(&cfg.Notify); err != nil {
		return nil, fmt.Errorf("parsing notify config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HostedZone returns the Route 53 hosted zone name, falling back to DNS_ZONE.
func (c *ProviderConfig) HostedZone() string {
	if c.Route53.HostedZone != "" {
		return c.Route53.HostedZone
	}
	return c.Zone
}

// TelegramEnabled returns true if inconsistency alerts should go to Telegram.
func (c *NotifyConfig) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.Database.Driver)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}

	if c.Sweep.Schedule != "" && c.Sweep.StaleAfter <= 0 {
		return fmt.Errorf("STALE_AFTER must be positive when STALE_SWEEP_SCHEDULE is set")
	}

	p := c.Provider
	if p.Timeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}

	// The file shim needs no zone or credentials
	if p.Type == ProviderFile {
		if p.File == "" {
			return fmt.Errorf("PROVIDER_FILE is required when PROVIDER_TYPE=%s", ProviderFile)
		}
		return nil
	}

	if p.Zone == "" {
		return fmt.Errorf("DNS_ZONE is required (or set PROVIDER_TYPE=%s for testing)", ProviderFile)
	}

	switch p.Type {
	case ProviderCloudflare:
		if p.Cloudflare.APIToken == "" && (p.Cloudflare.APIKey == "" || p.Cloudflare.Email == "") {
			return fmt.Errorf("CLOUDFLARE_API_TOKEN or CLOUDFLARE_API_KEY and CLOUDFLARE_EMAIL are required")
		}
	case ProviderRoute53:
		if p.Route53.Region == "" {
			return fmt.Errorf("AWS_REGION is required when PROVIDER_TYPE=%s", ProviderRoute53)
		}
	case ProviderDynDNS2:
		if p.DynDNS2.Server == "" {
			return fmt.Errorf("DYNDNS2_SERVER is required when PROVIDER_TYPE=%s", ProviderDynDNS2)
		}
		if p.DynDNS2.Username == "" || p.DynDNS2.Password == "" {
			return fmt.Errorf("DYNDNS2_USERNAME and DYNDNS2_PASSWORD are required")
		}
	default:
		return fmt.Errorf("unsupported PROVIDER_TYPE %q", p.Type)
	}

	return nil
}
