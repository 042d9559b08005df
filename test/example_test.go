package test

import (
	"context"
	"errors"
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/registry"
	"github.com/redis/go-redis/v9"
)

// ExampleNew demonstrates engine construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := goSession.DefaultConfig()
	cfg.Ticket.PrivateKey = []byte("replace-with-a-32-byte-or-longer-secret")

	engine, _ := goSession.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithRegistry(registry.NewMemory()).
		Build()
	_ = engine
}

// ExampleEngine_Authenticate shows how callers distinguish the three guard
// failures.
func ExampleEngine_Authenticate() {
	var engine *goSession.Engine
	_, err := engine.Authenticate(context.Background(), "ticket-from-cookie")
	switch {
	case err == nil:
	case errors.Is(err, goSession.ErrSessionInvalidated):
		fmt.Println("clear the cookie and ask for a new login")
	case errors.Is(err, goSession.ErrInfraUnavailable):
		fmt.Println("retry later")
	default:
		fmt.Println("log in")
	}
}

// ExampleEngine_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *goSession.Engine
	snapshot := engine.MetricsSnapshot()
	_ = snapshot
}
