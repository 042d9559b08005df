package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/ledger"
	"github.com/MrEthical07/goSession/registry"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/ticket"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. Every dependency is passed explicitly; the
// engine holds no package-level state.
//
// A Builder is single use: Build fails on the second call.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	registry registry.Registry

	auditSink AuditSink
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() (string, error)

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the blob store and the ledger.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRegistry sets the durable session registry, usually a
// [registry.Mongo] in production and a [registry.Memory] in tests.
func (b *Builder) WithRegistry(r registry.Registry) *Builder {
	b.registry = r
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock replaces time.Now for expiry decisions. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithSessionIDGenerator replaces the random session id source.
func (b *Builder) WithSessionIDGenerator(fn func() (string, error)) *Builder {
	b.newID = fn
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.registry == nil {
		return nil, errors.New("session registry required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	newID := b.newID
	if newID == nil {
		newID = newSessionID
	}

	signer, err := ticket.NewSigner(ticket.Config{
		SigningMethod: ticket.SigningMethod(cfg.Ticket.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Ticket.PrivateKey),
		PublicKey:     cloneBytes(cfg.Ticket.PublicKey),
		Issuer:        cfg.Ticket.Issuer,
		KeyID:         cfg.Ticket.KeyID,
		Leeway:        cfg.Ticket.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		redis:    b.redis,
		registry: b.registry,
		store:    session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.MaxBlobSize).WithClock(now),
		ledger:   ledger.New(b.redis, cfg.Ledger.RedisPrefix, cfg.Ledger.MarkerTTL),
		signer:   signer,
		logger:   b.logger.With().Str("component", "gosession").Logger(),
		metrics:  NewMetrics(cfg.Metrics),
		now:      now,
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.initFlows(newID)

	b.built = true
	return engine, nil
}

// newSessionID returns a random (version 4) UUID.
func newSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
