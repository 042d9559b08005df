package goSession

import (
	"net/http"
	"testing"
	"time"
)

func TestDefaultConfigNeedsOnlyKey(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without key to fail")
	}
	cfg.Ticket.PrivateKey = testTicketKey
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config with key to pass: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero web ttl", func(c *Config) { c.Platform.WebTTL = 0 }},
		{"negative app ttl", func(c *Config) { c.Platform.AppTTL = -time.Hour }},
		{"empty session prefix", func(c *Config) { c.Session.RedisPrefix = " " }},
		{"zero blob size", func(c *Config) { c.Session.MaxBlobSize = 0 }},
		{"shared prefixes", func(c *Config) { c.Ledger.RedisPrefix = c.Session.RedisPrefix }},
		{"marker too short", func(c *Config) { c.Ledger.MarkerTTL = 500 * time.Millisecond }},
		{"marker too long", func(c *Config) { c.Ledger.MarkerTTL = 10 * time.Minute }},
		{"zero lookup timeout", func(c *Config) { c.Guard.LookupTimeout = 0 }},
		{"lookup outlives marker", func(c *Config) { c.Guard.LookupTimeout = c.Ledger.MarkerTTL }},
		{"negative throttle", func(c *Config) { c.Guard.ActivityThrottle = -1 }},
		{"rolling without touch", func(c *Config) { c.Guard.RollingExpiry = true }},
		{"empty cookie name", func(c *Config) { c.Cookie.Name = "" }},
		{"bad cookie name", func(c *Config) { c.Cookie.Name = "sid;x" }},
		{"bad samesite", func(c *Config) { c.Cookie.SameSite = http.SameSite(42) }},
		{"short hmac key", func(c *Config) { c.Ticket.PrivateKey = []byte("short") }},
		{"unknown signing method", func(c *Config) { c.Ticket.SigningMethod = "rs256" }},
		{"ed25519 without public key", func(c *Config) { c.Ticket.SigningMethod = "ed25519" }},
		{"leeway too large", func(c *Config) { c.Ticket.Leeway = time.Hour }},
		{"cleanup without interval", func(c *Config) { c.Cleanup.Interval = 0 }},
		{"cleanup without timeout", func(c *Config) { c.Cleanup.Timeout = 0 }},
		{"audit without buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDisabledCleanupSkipsIntervalChecks(t *testing.T) {
	cfg := testConfig()
	cfg.Cleanup.Enabled = false
	cfg.Cleanup.Interval = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTTLFor(t *testing.T) {
	cfg := testConfig()
	cfg.Platform.WebTTL = 2 * time.Hour
	cfg.Platform.AppTTL = 48 * time.Hour

	tests := []struct {
		platform Platform
		want     time.Duration
		wantErr  bool
	}{
		{PlatformWeb, 2 * time.Hour, false},
		{PlatformApp, 48 * time.Hour, false},
		{Platform("desktop"), 0, true},
	}
	for _, tt := range tests {
		got, err := cfg.TTLFor(tt.platform)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("TTLFor(%q) = %v, %v", tt.platform, got, err)
		}
	}
}

func TestCookieSecure(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   bool
	}{
		{"default", func(*Config) {}, false},
		{"explicit", func(c *Config) { c.Cookie.Secure = true }, true},
		{"production", func(c *Config) { c.Security.ProductionMode = true }, true},
		{"samesite none", func(c *Config) { c.Cookie.SameSite = http.SameSiteNoneMode }, true},
	}
	for _, tt := range tests {
		cfg := testConfig()
		tt.mutate(&cfg)
		if got := cfg.CookieSecure(); got != tt.want {
			t.Fatalf("%s: CookieSecure() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParsePlatform(t *testing.T) {
	if p, err := ParsePlatform(" WEB "); err != nil || p != PlatformWeb {
		t.Fatalf("expected web, got %q %v", p, err)
	}
	if _, err := ParsePlatform("tv"); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestSessionHandleIsStableAndOpaque(t *testing.T) {
	a := SessionHandle("5f0c2a8e-1c1e-4a57-9a39-6c3c9b0f7d11")
	if a != SessionHandle("5f0c2a8e-1c1e-4a57-9a39-6c3c9b0f7d11") {
		t.Fatal("handle must be deterministic")
	}
	if a == SessionHandle("5f0c2a8e-1c1e-4a57-9a39-6c3c9b0f7d12") {
		t.Fatal("distinct ids must yield distinct handles")
	}
	if len(a) != 22 {
		t.Fatalf("expected 22-char handle, got %d", len(a))
	}
}
