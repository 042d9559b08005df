package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func testRecord(sessionID, userID, platform string, expiresAt time.Time) Record {
	now := time.Now().UTC()
	return Record{
		SessionID:      sessionID,
		UserID:         userID,
		Platform:       platform,
		DeviceName:     "test device",
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      expiresAt,
	}
}

func TestMemoryReplaceSlotReturnsDisplacedRecord(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	exp := time.Now().Add(time.Hour)

	prev, err := reg.ReplaceSlot(ctx, testRecord("s1", "u1", "web", exp))
	if err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if prev != nil {
		t.Fatalf("expected empty slot, got %+v", prev)
	}

	prev, err = reg.ReplaceSlot(ctx, testRecord("s2", "u1", "web", exp))
	if err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if prev == nil || prev.SessionID != "s1" {
		t.Fatalf("expected s1 displaced, got %+v", prev)
	}

	if _, err := reg.FindBySessionID(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected s1 gone, got %v", err)
	}
	if _, err := reg.FindBySessionID(ctx, "s2"); err != nil {
		t.Fatalf("expected s2 present: %v", err)
	}
}

func TestMemoryPlatformSlotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	exp := time.Now().Add(time.Hour)

	if _, err := reg.ReplaceSlot(ctx, testRecord("w1", "u1", "web", exp)); err != nil {
		t.Fatalf("replace web: %v", err)
	}
	prev, err := reg.ReplaceSlot(ctx, testRecord("a1", "u1", "app", exp))
	if err != nil {
		t.Fatalf("replace app: %v", err)
	}
	if prev != nil {
		t.Fatalf("app slot should not displace web record, got %+v", prev)
	}

	recs, err := reg.FindByUserID(ctx, "u1")
	if err != nil {
		t.Fatalf("find by user: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
}

func TestMemoryDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	if _, err := reg.ReplaceSlot(ctx, testRecord("s1", "u1", "web", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("replace: %v", err)
	}

	removed, err := reg.Delete(ctx, "s1")
	if err != nil || !removed {
		t.Fatalf("first delete: removed=%v err=%v", removed, err)
	}
	removed, err = reg.Delete(ctx, "s1")
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v", removed, err)
	}

	// The slot must be free again after the delete.
	prev, err := reg.ReplaceSlot(ctx, testRecord("s2", "u1", "web", time.Now().Add(time.Hour)))
	if err != nil || prev != nil {
		t.Fatalf("expected free slot, prev=%+v err=%v", prev, err)
	}
}

func TestMemoryDeleteExpiredCountsOnlyExpired(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	now := time.Now()

	for i, exp := range []time.Time{now.Add(-time.Hour), now.Add(-time.Second), now.Add(time.Hour)} {
		rec := testRecord(fmt.Sprintf("s%d", i), fmt.Sprintf("u%d", i), "web", exp)
		if _, err := reg.ReplaceSlot(ctx, rec); err != nil {
			t.Fatalf("replace: %v", err)
		}
	}

	n, err := reg.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	n, err = reg.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("second delete expired: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 on second run, got %d", n)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected live record untouched, len=%d", reg.Len())
	}
}

func TestMemoryCountActiveSkipsExpired(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	now := time.Now()

	_, _ = reg.ReplaceSlot(ctx, testRecord("w", "u1", "web", now.Add(-time.Minute)))
	_, _ = reg.ReplaceSlot(ctx, testRecord("a", "u1", "app", now.Add(time.Minute)))

	n, err := reg.CountActive(ctx, "u1", now)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 active, got %d", n)
	}
}

func TestMemoryTouch(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	_, _ = reg.ReplaceSlot(ctx, testRecord("s1", "u1", "web", time.Now().Add(time.Hour)))

	at := time.Now().Add(time.Minute).UTC()
	exp := time.Now().Add(2 * time.Hour).UTC()
	if err := reg.Touch(ctx, "s1", at, exp); err != nil {
		t.Fatalf("touch: %v", err)
	}
	rec, err := reg.FindBySessionID(ctx, "s1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !rec.LastActivityAt.Equal(at) || !rec.ExpiresAt.Equal(exp) {
		t.Fatalf("touch not applied: %+v", rec)
	}

	if err := reg.Touch(ctx, "missing", at, time.Time{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryConcurrentReplaceLeavesOneRecord(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	exp := time.Now().Add(time.Hour)

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, _ = reg.ReplaceSlot(ctx, testRecord(fmt.Sprintf("s%d", i), "u1", "web", exp))
		}(i)
	}
	wg.Wait()

	recs, err := reg.FindByUserID(ctx, "u1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one surviving record, got %d", len(recs))
	}
}

func TestMemoryFailureWrapsUnavailable(t *testing.T) {
	reg := NewMemory()
	reg.SetFailure(errors.New("boom"))

	if _, err := reg.FindBySessionID(context.Background(), "s1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	reg.SetFailure(nil)
	if err := reg.Ping(context.Background()); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}
