//go:build integration
// +build integration

package test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/registry"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var testTicketKey = []byte("integration-ticket-key-0123456789abcdef")

// backendMode is one Redis or registry backend the suite runs against.
type backendMode[T any] struct {
	name  string
	setup func(t *testing.T) (T, func())
}

// redisModes returns miniredis plus a real Redis when REDIS_ADDR is set
// (e.g. "127.0.0.1:6379"). Cluster mode is not covered: the blob and user
// index keys of one session live in different hash slots.
func redisModes(t *testing.T) []backendMode[redis.UniversalClient] {
	t.Helper()
	modes := []backendMode[redis.UniversalClient]{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, backendMode[redis.UniversalClient]{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	return modes
}

// registryModes returns the in-memory registry plus MongoDB when MONGO_URI
// is set. Each Mongo setup uses a fresh collection.
func registryModes(t *testing.T) []backendMode[registry.Registry] {
	t.Helper()
	modes := []backendMode[registry.Registry]{
		{
			name: "memory",
			setup: func(t *testing.T) (registry.Registry, func()) {
				return registry.NewMemory(), func() {}
			},
		},
	}

	if uri := os.Getenv("MONGO_URI"); uri != "" {
		modes = append(modes, backendMode[registry.Registry]{
			name: "mongo",
			setup: func(t *testing.T) (registry.Registry, func()) {
				t.Helper()
				reg, _, done := newMongoRegistry(t, uri)
				return reg, done
			},
		})
	}
	return modes
}

func newMongoRegistry(t *testing.T, uri string) (*registry.Mongo, *mongo.Collection, func()) {
	t.Helper()
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("mongo connect: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("cannot connect to MongoDB: %v", err)
	}

	name := fmt.Sprintf("sessions_%d", time.Now().UnixNano())
	coll := client.Database("gosession_test").Collection(name)
	reg := registry.NewMongo(coll)
	if err := reg.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return reg, coll, func() {
		_ = coll.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	}
}

// forEachBackend runs fn against every Redis x registry combination.
func forEachBackend(t *testing.T, fn func(t *testing.T, rdb redis.UniversalClient, reg registry.Registry)) {
	for _, rm := range redisModes(t) {
		for _, gm := range registryModes(t) {
			t.Run(rm.name+"/"+gm.name, func(t *testing.T) {
				rdb, closeRedis := rm.setup(t)
				defer closeRedis()
				reg, closeReg := gm.setup(t)
				defer closeReg()
				fn(t, rdb, reg)
			})
		}
	}
}

func newEngine(t *testing.T, rdb redis.UniversalClient, reg registry.Registry, mutate func(*goSession.Config)) *goSession.Engine {
	t.Helper()
	cfg := goSession.DefaultConfig()
	cfg.Ticket.PrivateKey = append([]byte(nil), testTicketKey...)
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}
	engine, err := goSession.New().WithConfig(cfg).WithRedis(rdb).WithRegistry(reg).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
