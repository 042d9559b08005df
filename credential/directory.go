package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
// The two cases are indistinguishable to callers.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Verifier resolves a username/password pair to a user id.
type Verifier interface {
	Verify(ctx context.Context, username, password string) (string, error)
}

type account struct {
	userID string
	hash   string
}

// Directory is a static in-memory [Verifier].
type Directory struct {
	hasher *Hasher

	mu       sync.RWMutex
	accounts map[string]account
	decoy    string
}

// NewDirectory returns an empty directory that verifies with h.
func NewDirectory(h *Hasher) (*Directory, error) {
	if h == nil {
		return nil, errors.New("credential: nil hasher")
	}
	decoy, err := h.Hash("decoy-password-never-matches")
	if err != nil {
		return nil, err
	}
	return &Directory{
		hasher:   h,
		accounts: make(map[string]account),
		decoy:    decoy,
	}, nil
}

// Add registers username with a precomputed argon2id hash.
func (d *Directory) Add(username, userID, hash string) error {
	username = normalizeUsername(username)
	if username == "" || strings.TrimSpace(userID) == "" {
		return errors.New("credential: username and user id are required")
	}
	if _, _, _, err := decodePHC(hash); err != nil {
		return fmt.Errorf("credential: user %q: %w", username, err)
	}

	d.mu.Lock()
	d.accounts[username] = account{userID: userID, hash: hash}
	d.mu.Unlock()
	return nil
}

// AddPassword hashes password and registers username.
func (d *Directory) AddPassword(username, userID, password string) error {
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return err
	}
	return d.Add(username, userID, hash)
}

// ParseEntry parses "username:userID:<phc hash>" as used in configuration.
func ParseEntry(entry string) (username, userID, hash string, err error) {
	parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("credential: entry must be username:userID:hash")
	}
	return parts[0], parts[1], parts[2], nil
}

// Verify implements [Verifier]. Unknown users are checked against a decoy
// hash so response time does not reveal which usernames exist.
func (d *Directory) Verify(ctx context.Context, username, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.RLock()
	acct, ok := d.accounts[normalizeUsername(username)]
	d.mu.RUnlock()

	hash := d.decoy
	if ok {
		hash = acct.hash
	}
	match, err := d.hasher.Verify(password, hash)
	if err != nil {
		return "", err
	}
	if !ok || !match {
		return "", ErrInvalidCredentials
	}
	return acct.userID, nil
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
