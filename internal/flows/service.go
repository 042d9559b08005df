package flows

import (
	"context"

	"github.com/MrEthical07/goSession/registry"
)

// Service is the flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired.
func (s Service) Initialized() bool {
	return s.deps.Guard.ParseTicket != nil && s.deps.Create.Registry != nil
}

func (s Service) Create(ctx context.Context, in CreateInput) (*CreateOutput, error) {
	return RunCreate(ctx, in, s.deps.Create)
}

func (s Service) Delete(ctx context.Context, sessionID string) (*DeleteOutput, error) {
	return RunDelete(ctx, sessionID, s.deps.Delete)
}

func (s Service) DeleteAll(ctx context.Context, userID, exceptSessionID string) (*DeleteManyOutput, error) {
	return RunDeleteAll(ctx, userID, exceptSessionID, s.deps.Delete)
}

func (s Service) Guard(ctx context.Context, token string) GuardResult {
	return RunGuard(ctx, token, s.deps.Guard)
}

func (s Service) UpdateActivity(ctx context.Context, sessionID string) (*registry.Record, error) {
	return RunUpdateActivity(ctx, sessionID, s.deps.Activity)
}

func (s Service) CleanExpired(ctx context.Context) (int, error) {
	return RunCleanExpired(ctx, s.deps.Maintain)
}

func (s Service) ListActive(ctx context.Context, userID string) ([]registry.Record, error) {
	return RunListActive(ctx, userID, s.deps.Maintain)
}

func (s Service) CountActive(ctx context.Context, userID string) (int, error) {
	return RunCountActive(ctx, userID, s.deps.Maintain)
}

func (s Service) ResolveHandle(ctx context.Context, userID, handle string) (string, error) {
	return ResolveHandle(ctx, userID, handle, s.deps.Maintain)
}
