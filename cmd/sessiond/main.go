// Command sessiond serves login, logout and session management over HTTP
// using the goSession engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/cleanup"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/device"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/httpapi"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/registry"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "sessiond: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("sessiond exited")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "sessiond").Logger()
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCfg, err := cfg.Engine()
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	reg, closeRegistry, err := openRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRegistry()

	verifier, err := newDirectory(cfg)
	if err != nil {
		return err
	}

	builder := goSession.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithRegistry(reg).
		WithLogger(logger.With().Str("component", "engine").Logger())
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(goSession.NewLogSink(logger.With().Str("component", "audit").Logger()))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = promexport.Handler(promexport.NewRegistry(promexport.NewCollector(engine)))
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Engine:     engine,
			Verifier:   verifier,
			Classifier: device.Classifier{AppUserAgentPrefix: cfg.AppUserAgentPrefix},
			Metrics:    metricsHandler,
			Logger:     logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if engineCfg.Cleanup.Enabled {
		sched := cleanup.New(engine, engineCfg.Cleanup, logger.With().Str("component", "cleanup").Logger())
		g.Go(func() error {
			if err := sched.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openRegistry(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (registry.Registry, func(), error) {
	if cfg.MongoURI == "" {
		logger.Warn().Msg("SESSIOND_MONGO_URI is empty; using the in-memory registry")
		return registry.NewMemory(), func() {}, nil
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	closeFn := func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}

	reg := registry.NewMongo(client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection))
	ictx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := reg.EnsureIndexes(ictx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("mongo indexes: %w", err)
	}
	logger.Info().
		Str("database", cfg.MongoDatabase).
		Str("collection", cfg.MongoCollection).
		Msg("mongo registry ready")
	return reg, closeFn, nil
}

func newDirectory(cfg *config.Config) (*credential.Directory, error) {
	hasher, err := credential.NewHasher(credential.DefaultHashParams())
	if err != nil {
		return nil, err
	}
	dir, err := credential.NewDirectory(hasher)
	if err != nil {
		return nil, err
	}
	for _, entry := range cfg.UserEntries() {
		username, userID, hash, err := credential.ParseEntry(entry)
		if err != nil {
			return nil, err
		}
		if err := dir.Add(username, userID, hash); err != nil {
			return nil, err
		}
	}
	return dir, nil
}
