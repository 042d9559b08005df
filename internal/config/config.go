// Package config loads the sessiond service configuration from the
// environment and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/spf13/viper"
)

// Config holds service configuration. Every key is read from a SESSIOND_*
// environment variable; .env values apply when the variable is unset.
type Config struct {
	// Env is the deployment environment; "production" turns on Secure cookies.
	Env             string        `mapstructure:"SESSIOND_ENV"`
	HTTPAddr        string        `mapstructure:"SESSIOND_HTTP_ADDR"`
	ShutdownTimeout time.Duration `mapstructure:"SESSIOND_SHUTDOWN_TIMEOUT"`
	LogLevel        string        `mapstructure:"SESSIOND_LOG_LEVEL"`
	// LogFormat is "json" or "console".
	LogFormat string `mapstructure:"SESSIOND_LOG_FORMAT"`

	RedisAddr     string `mapstructure:"SESSIOND_REDIS_ADDR"`
	RedisPassword string `mapstructure:"SESSIOND_REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"SESSIOND_REDIS_DB"`

	// MongoURI selects the durable registry; empty uses the in-memory one.
	MongoURI        string `mapstructure:"SESSIOND_MONGO_URI"`
	MongoDatabase   string `mapstructure:"SESSIOND_MONGO_DATABASE"`
	MongoCollection string `mapstructure:"SESSIOND_MONGO_COLLECTION"`

	// TicketKey is the HS256 cookie signing secret, at least 32 bytes.
	TicketKey    string `mapstructure:"SESSIOND_TICKET_KEY"`
	TicketIssuer string `mapstructure:"SESSIOND_TICKET_ISSUER"`

	WebTTL        time.Duration `mapstructure:"SESSIOND_WEB_TTL"`
	AppTTL        time.Duration `mapstructure:"SESSIOND_APP_TTL"`
	MarkerTTL     time.Duration `mapstructure:"SESSIOND_MARKER_TTL"`
	LookupTimeout time.Duration `mapstructure:"SESSIOND_LOOKUP_TIMEOUT"`
	FailOpen      bool          `mapstructure:"SESSIOND_FAIL_OPEN"`
	TouchActivity bool          `mapstructure:"SESSIOND_TOUCH_ACTIVITY"`
	RollingExpiry bool          `mapstructure:"SESSIOND_ROLLING_EXPIRY"`

	CookieName     string `mapstructure:"SESSIOND_COOKIE_NAME"`
	CookieDomain   string `mapstructure:"SESSIOND_COOKIE_DOMAIN"`
	CookieSecure   bool   `mapstructure:"SESSIOND_COOKIE_SECURE"`
	CookieSameSite string `mapstructure:"SESSIOND_COOKIE_SAMESITE"`

	CleanupEnabled  bool          `mapstructure:"SESSIOND_CLEANUP_ENABLED"`
	CleanupInterval time.Duration `mapstructure:"SESSIOND_CLEANUP_INTERVAL"`

	AuditEnabled   bool `mapstructure:"SESSIOND_AUDIT_ENABLED"`
	MetricsEnabled bool `mapstructure:"SESSIOND_METRICS_ENABLED"`

	// Users is a semicolon-separated list of username:userID:argon2id-hash
	// entries for the credential directory.
	Users string `mapstructure:"SESSIOND_USERS"`
	// AppUserAgentPrefix marks User-Agents of the first-party app.
	AppUserAgentPrefix string `mapstructure:"SESSIOND_APP_UA_PREFIX"`
}

var defaults = map[string]any{
	"SESSIOND_ENV":              "development",
	"SESSIOND_HTTP_ADDR":        ":8080",
	"SESSIOND_SHUTDOWN_TIMEOUT": "15s",
	"SESSIOND_LOG_LEVEL":        "info",
	"SESSIOND_LOG_FORMAT":       "json",
	"SESSIOND_REDIS_ADDR":       "localhost:6379",
	"SESSIOND_REDIS_PASSWORD":   "",
	"SESSIOND_REDIS_DB":         0,
	"SESSIOND_MONGO_URI":        "",
	"SESSIOND_MONGO_DATABASE":   "gosession",
	"SESSIOND_MONGO_COLLECTION": "sessions",
	"SESSIOND_TICKET_KEY":       "",
	"SESSIOND_TICKET_ISSUER":    "gosession",
	"SESSIOND_WEB_TTL":          "24h",
	"SESSIOND_APP_TTL":          "720h",
	"SESSIOND_MARKER_TTL":       "30s",
	"SESSIOND_LOOKUP_TIMEOUT":   "250ms",
	"SESSIOND_FAIL_OPEN":        true,
	"SESSIOND_TOUCH_ACTIVITY":   false,
	"SESSIOND_ROLLING_EXPIRY":   false,
	"SESSIOND_COOKIE_NAME":      "sid",
	"SESSIOND_COOKIE_DOMAIN":    "",
	"SESSIOND_COOKIE_SECURE":    false,
	"SESSIOND_COOKIE_SAMESITE":  "lax",
	"SESSIOND_CLEANUP_ENABLED":  true,
	"SESSIOND_CLEANUP_INTERVAL": "5m",
	"SESSIOND_AUDIT_ENABLED":    true,
	"SESSIOND_METRICS_ENABLED":  true,
	"SESSIOND_USERS":            "",
	"SESSIOND_APP_UA_PREFIX":    "",
}

// Load reads envFile (if present), then builds and validates Config from the
// environment. A missing file is ignored. Environment variables override
// file values.
func Load(envFile string) (*Config, error) {
	v := viper.New()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // ignore missing file
	}

	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: SESSIOND_HTTP_ADDR must be set")
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		return errors.New("config: SESSIOND_REDIS_ADDR must be set")
	}
	if len(c.TicketKey) < 32 {
		return errors.New("config: SESSIOND_TICKET_KEY must be at least 32 bytes")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("config: SESSIOND_SHUTDOWN_TIMEOUT must be > 0")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return errors.New("config: SESSIOND_LOG_FORMAT must be json or console")
	}
	if _, err := parseSameSite(c.CookieSameSite); err != nil {
		return err
	}
	if c.MongoURI != "" && (c.MongoDatabase == "" || c.MongoCollection == "") {
		return errors.New("config: SESSIOND_MONGO_DATABASE and SESSIOND_MONGO_COLLECTION must be set with SESSIOND_MONGO_URI")
	}
	return nil
}

// Production reports whether Env is production.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// UserEntries splits Users into its non-empty entries.
func (c *Config) UserEntries() []string {
	if c == nil || c.Users == "" {
		return nil
	}
	parts := strings.Split(c.Users, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Engine maps the service configuration onto the engine configuration and
// validates the result.
func (c *Config) Engine() (goSession.Config, error) {
	sameSite, err := parseSameSite(c.CookieSameSite)
	if err != nil {
		return goSession.Config{}, err
	}

	cfg := goSession.DefaultConfig()
	cfg.Platform.WebTTL = c.WebTTL
	cfg.Platform.AppTTL = c.AppTTL
	cfg.Ledger.MarkerTTL = c.MarkerTTL
	cfg.Guard.LookupTimeout = c.LookupTimeout
	cfg.Guard.FailOpenOnInfraError = c.FailOpen
	cfg.Guard.TouchActivity = c.TouchActivity
	cfg.Guard.RollingExpiry = c.RollingExpiry
	cfg.Cookie.Name = c.CookieName
	cfg.Cookie.Domain = c.CookieDomain
	cfg.Cookie.Secure = c.CookieSecure
	cfg.Cookie.SameSite = sameSite
	cfg.Ticket.PrivateKey = []byte(c.TicketKey)
	cfg.Ticket.Issuer = c.TicketIssuer
	cfg.Cleanup.Enabled = c.CleanupEnabled
	cfg.Cleanup.Interval = c.CleanupInterval
	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	cfg.Security.ProductionMode = c.Production()

	if err := cfg.Validate(); err != nil {
		return goSession.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, errors.New("config: SESSIOND_COOKIE_SAMESITE must be lax, strict or none")
	}
}
