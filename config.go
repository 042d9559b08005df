package goSession

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config holds every tunable of the session engine.
//
// Config values are copied by [Builder.WithConfig] and treated as immutable
// once the engine is built.
type Config struct {
	Platform PlatformConfig
	Session  SessionConfig
	Ledger   LedgerConfig
	Guard    GuardConfig
	Cookie   CookieConfig
	Ticket   TicketConfig
	Cleanup  CleanupConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
PLATFORM CONFIG
====================================
*/

// PlatformConfig is the per-platform session lifetime table read by
// [Config.TTLFor]. The cookie Max-Age and the registry expiresAt are both
// derived from it.
type PlatformConfig struct {
	WebTTL time.Duration
	AppTTL time.Duration
}

/*
====================================
SESSION STORE CONFIG
====================================
*/

// SessionConfig controls the ephemeral Redis blob store.
type SessionConfig struct {
	RedisPrefix string
	MaxBlobSize int
}

/*
====================================
LEDGER CONFIG
====================================
*/

// LedgerConfig controls the invalidation ledger. MarkerTTL must outlive any
// request that could have read the session before it was destroyed.
type LedgerConfig struct {
	RedisPrefix string
	MarkerTTL   time.Duration
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig controls the per-request session gate.
//
// FailOpenOnInfraError selects the read-path policy for backend failures and
// timeouts. When true, a request whose ticket is valid proceeds (marked
// degraded) if the ledger, registry or store cannot answer; when false such
// requests fail with [ErrInfraUnavailable]. Explicit negative answers
// (ledger hit, missing or expired record) always reject regardless of this
// setting.
type GuardConfig struct {
	LookupTimeout        time.Duration
	FailOpenOnInfraError bool
	CheckStore           bool
	TouchActivity        bool
	ActivityThrottle     time.Duration
	RollingExpiry        bool
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the session cookie written by the middleware.
type CookieConfig struct {
	Name         string
	Domain       string
	Path         string
	Secure       bool
	SameSite     http.SameSite
	AcceptBearer bool
}

/*
====================================
TICKET CONFIG
====================================
*/

// TicketConfig controls signing of the cookie value.
type TicketConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	KeyID         string
	Leeway        time.Duration
}

/*
====================================
CLEANUP CONFIG
====================================
*/

// CleanupConfig controls the expired-record sweeper.
type CleanupConfig struct {
	Enabled    bool
	Interval   time.Duration
	Timeout    time.Duration
	RunOnStart bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and the guard latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds deployment-wide switches.
type SecurityConfig struct {
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Ticket keys are empty
// and must be supplied before [Config.Validate] passes.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Platform: PlatformConfig{
			WebTTL: 24 * time.Hour,
			AppTTL: 30 * 24 * time.Hour,
		},
		Session: SessionConfig{
			RedisPrefix: "gs",
			MaxBlobSize: 512,
		},
		Ledger: LedgerConfig{
			RedisPrefix: "gsl",
			MarkerTTL:   30 * time.Second,
		},
		Guard: GuardConfig{
			LookupTimeout:        250 * time.Millisecond,
			FailOpenOnInfraError: true,
			CheckStore:           true,
			TouchActivity:        false,
			ActivityThrottle:     time.Minute,
			RollingExpiry:        false,
		},
		Cookie: CookieConfig{
			Name:         "sid",
			Path:         "/",
			SameSite:     http.SameSiteLaxMode,
			AcceptBearer: true,
		},
		Ticket: TicketConfig{
			SigningMethod: "hs256",
			Issuer:        "gosession",
		},
		Cleanup: CleanupConfig{
			Enabled:    true,
			Interval:   5 * time.Minute,
			Timeout:    30 * time.Second,
			RunOnStart: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Ticket.PrivateKey = cloneBytes(cfg.Ticket.PrivateKey)
	out.Ticket.PublicKey = cloneBytes(cfg.Ticket.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// TTLFor returns the session lifetime for platform.
func (c Config) TTLFor(platform Platform) (time.Duration, error) {
	switch platform {
	case PlatformWeb:
		return c.Platform.WebTTL, nil
	case PlatformApp:
		return c.Platform.AppTTL, nil
	default:
		return 0, ErrInvalidPlatform
	}
}

// CookieSecure reports whether session cookies carry the Secure attribute.
// SameSite=None cookies are rejected by browsers without it.
func (c Config) CookieSecure() bool {
	return c.Cookie.Secure || c.Security.ProductionMode || c.Cookie.SameSite == http.SameSiteNoneMode
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	// Platform
	if c.Platform.WebTTL <= 0 {
		return errors.New("Platform WebTTL must be > 0")
	}
	if c.Platform.AppTTL <= 0 {
		return errors.New("Platform AppTTL must be > 0")
	}

	// Session store
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must be set")
	}
	if c.Session.MaxBlobSize <= 0 {
		return errors.New("Session MaxBlobSize must be > 0")
	}

	// Ledger
	if strings.TrimSpace(c.Ledger.RedisPrefix) == "" {
		return errors.New("Ledger RedisPrefix must be set")
	}
	if c.Ledger.RedisPrefix == c.Session.RedisPrefix {
		return errors.New("Ledger RedisPrefix must differ from Session RedisPrefix")
	}
	if c.Ledger.MarkerTTL < time.Second || c.Ledger.MarkerTTL > 5*time.Minute {
		return errors.New("Ledger MarkerTTL must be between 1s and 5m")
	}

	// Guard
	if c.Guard.LookupTimeout <= 0 {
		return errors.New("Guard LookupTimeout must be > 0")
	}
	if c.Guard.LookupTimeout >= c.Ledger.MarkerTTL {
		return errors.New("Guard LookupTimeout must be shorter than Ledger MarkerTTL")
	}
	if c.Guard.ActivityThrottle < 0 {
		return errors.New("Guard ActivityThrottle must be >= 0")
	}
	if c.Guard.RollingExpiry && !c.Guard.TouchActivity {
		return errors.New("Guard RollingExpiry requires TouchActivity")
	}

	// Cookie
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return errors.New("Cookie Name must be set")
	}
	if strings.ContainsAny(c.Cookie.Name, " ;,=\t\r\n") {
		return errors.New("Cookie Name contains invalid characters")
	}
	switch c.Cookie.SameSite {
	case http.SameSiteDefaultMode, http.SameSiteLaxMode, http.SameSiteStrictMode, http.SameSiteNoneMode:
	default:
		return errors.New("Cookie SameSite is invalid")
	}

	// Ticket
	switch c.Ticket.SigningMethod {
	case "hs256":
		if len(c.Ticket.PrivateKey) < 32 {
			return errors.New("hs256 requires PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.Ticket.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.Ticket.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported Ticket signing method")
	}
	if c.Ticket.Leeway < 0 || c.Ticket.Leeway > 2*time.Minute {
		return errors.New("Ticket Leeway must be between 0 and 2m")
	}

	// Cleanup
	if c.Cleanup.Enabled {
		if c.Cleanup.Interval <= 0 {
			return errors.New("Cleanup Interval must be > 0")
		}
		if c.Cleanup.Timeout <= 0 {
			return errors.New("Cleanup Timeout must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
