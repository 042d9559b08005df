package credential

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fastParams keeps argon2 cheap enough for unit tests.
func fastParams() HashParams {
	return HashParams{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := h.Verify("correct-horse", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("wrong-horse!", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	if _, err := newTestHasher(t).Hash("short"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h := newTestHasher(t)
	for _, bad := range []string{
		"",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$aGFzaGhhc2hoYXNoaGFzaA",
	} {
		if _, err := h.Verify("whatever-pass", bad); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("expected ErrMalformedHash for %q, got %v", bad, err)
		}
	}
}

func TestNewHasherValidatesParams(t *testing.T) {
	p := fastParams()
	p.Memory = 1024
	if _, err := NewHasher(p); err == nil {
		t.Fatal("expected low memory to be rejected")
	}
}

func TestDirectoryVerify(t *testing.T) {
	dir, err := NewDirectory(newTestHasher(t))
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	if err := dir.AddPassword("Alice@example.com", "user-1", "correct-horse"); err != nil {
		t.Fatalf("add: %v", err)
	}

	uid, err := dir.Verify(context.Background(), "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if uid != "user-1" {
		t.Fatalf("expected user-1, got %q", uid)
	}

	if _, err := dir.Verify(context.Background(), "alice@example.com", "wrong-horse!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := dir.Verify(context.Background(), "bob@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestParseEntry(t *testing.T) {
	user, uid, hash, err := ParseEntry("alice:user-1:$argon2id$v=19$m=8192,t=1,p=1$abc$def")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if user != "alice" || uid != "user-1" || !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected parse result: %q %q %q", user, uid, hash)
	}
	if _, _, _, err := ParseEntry("alice-only"); err == nil {
		t.Fatal("expected malformed entry error")
	}
}
