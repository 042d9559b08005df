package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "gs", 512)
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func testBlob(sessionID, userID string) *Blob {
	now := time.Now()
	return &Blob{
		SessionID: sessionID,
		UserID:    userID,
		Platform:  "web",
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
}

func TestEncodeDecodeKeepsFields(t *testing.T) {
	in := testBlob("sid-1", "u-1")
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.UserID != in.UserID || out.Platform != in.Platform || out.CreatedAt != in.CreatedAt || out.ExpiresAt != in.ExpiresAt {
		t.Fatalf("decoded blob mismatch: %+v vs %+v", out, in)
	}
	if out.SchemaVersion != CurrentSchemaVersion {
		t.Fatalf("expected schema version %d, got %d", CurrentSchemaVersion, out.SchemaVersion)
	}
}

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	if _, err := Decode([]byte{99}); err == nil {
		t.Fatal("expected unsupported schema version error")
	}
}

func TestEncodeRejectsEmptyUser(t *testing.T) {
	if _, err := Encode(&Blob{Platform: "web"}); err == nil {
		t.Fatal("expected empty user id to be rejected")
	}
}

func TestSaveGetRoundTripAppliesTTL(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, testBlob("sid-1", "u-1"), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	b, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.SessionID != "sid-1" || b.UserID != "u-1" {
		t.Fatalf("unexpected blob: %+v", b)
	}

	ttl, err := store.TTL(ctx, "sid-1")
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected ttl within (0, 1h], got %v", ttl)
	}

	mr.FastForward(time.Hour + time.Second)
	if _, err := store.Get(ctx, "sid-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected blob to expire, got %v", err)
	}
}

func TestSaveKeepsUserIndexForLongestMember(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, testBlob("app-1", "u-1"), 30*24*time.Hour); err != nil {
		t.Fatalf("save app: %v", err)
	}
	if err := store.Save(ctx, testBlob("web-1", "u-1"), 24*time.Hour); err != nil {
		t.Fatalf("save web: %v", err)
	}

	if ttl := mr.TTL("gs:u:u-1"); ttl < 29*24*time.Hour {
		t.Fatalf("user index ttl shrank to %v", ttl)
	}

	ids, err := store.SessionIDsForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 indexed ids, got %v", ids)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, testBlob("sid-1", "u-1"), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	existed, err := store.Delete(ctx, "sid-1")
	if err != nil || !existed {
		t.Fatalf("first delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "sid-1")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}

	if mr.Exists("gs:s:sid-1") {
		t.Fatal("expected blob key removed")
	}
	if ok, _ := mr.SIsMember("gs:u:u-1", "sid-1"); ok {
		t.Fatal("expected index entry removed")
	}
}

func TestDeleteManyCountsExistingBlobs(t *testing.T) {
	store, _, done := newSessionStoreTest(t)
	defer done()
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := store.Save(ctx, testBlob(id, "u-1"), time.Hour); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	n, err := store.DeleteMany(ctx, "u-1", []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}

	ids, err := store.SessionIDsForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty index, got %v", ids)
	}
}

func TestSaveRejectsOversizedBlob(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewStore(rdb, "gs", 8)
	if err := store.Save(context.Background(), testBlob("sid-1", "u-1"), time.Hour); !errors.Is(err, ErrBlobTooLarge) {
		t.Fatalf("expected ErrBlobTooLarge, got %v", err)
	}
}

func TestStoreWrapsRedisFailures(t *testing.T) {
	store, mr, done := newSessionStoreTest(t)
	defer done()
	mr.Close()

	if _, err := store.Get(context.Background(), "sid-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from ping, got %v", err)
	}
}
