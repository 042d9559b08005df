package ticket

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidTicket is returned for any ticket that fails parsing, signature,
// issuer or expiry checks.
var ErrInvalidTicket = errors.New("invalid session ticket")

// ErrTicketExpired is returned, together with the claims, for a ticket whose
// signature is valid but whose expiry has passed. It matches
// ErrInvalidTicket.
var ErrTicketExpired = fmt.Errorf("%w: expired", ErrInvalidTicket)

// SigningMethod selects the ticket signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// Config configures a [Signer].
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
	// Now overrides the clock used for expiry checks.
	Now func() time.Time
}

// Claims is the ticket payload.
type Claims struct {
	SID      string `json:"sid"`
	UID      string `json:"uid"`
	Platform string `json:"plat"`
	jwt.RegisteredClaims
}

// Signer issues and verifies tickets.
type Signer struct {
	config Config
}

// NewSigner validates cfg and returns a [Signer].
func NewSigner(cfg Config) (*Signer, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a key of at least 32 bytes")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Signer{config: cfg}, nil
}

// Issue signs a ticket for the session. expiresAt should be the registry
// record's expiry.
func (s *Signer) Issue(sessionID, userID, platform string, issuedAt, expiresAt time.Time) (string, error) {
	if sessionID == "" || userID == "" {
		return "", errors.New("ticket requires session and user id")
	}

	claims := Claims{
		SID:      sessionID,
		UID:      userID,
		Platform: platform,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    s.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(s.method(), claims)
	if s.config.KeyID != "" {
		token.Header["kid"] = s.config.KeyID
	}

	key, err := s.signKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

// Parse verifies tokenStr and returns its claims. Every failure matches
// ErrInvalidTicket; an authentic but expired ticket returns its claims with
// ErrTicketExpired.
func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.config.Now),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != s.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}

		if len(s.config.VerifyKeys) > 0 {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			key, ok := s.config.VerifyKeys[kid]
			if !ok {
				return nil, errors.New("unknown kid")
			}
			return s.verifyKeyFromBytes(key)
		}

		if s.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != s.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}

		return s.verifyKey()
	})
	if err != nil {
		// The v5 parser validates claims only after the signature verified.
		if errors.Is(err, jwt.ErrTokenExpired) && token != nil {
			if claims, ok := token.Claims.(*Claims); ok && claims.SID != "" && claims.UID != "" {
				return claims, ErrTicketExpired
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidTicket
	}
	if claims.SID == "" || claims.UID == "" {
		return nil, fmt.Errorf("%w: missing sid or uid", ErrInvalidTicket)
	}
	return claims, nil
}

func (s *Signer) method() jwt.SigningMethod {
	if s.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (s *Signer) signKey() (interface{}, error) {
	if s.config.SigningMethod == MethodEd25519 {
		return parseEdPrivateKey(s.config.PrivateKey)
	}
	return s.config.PrivateKey, nil
}

func (s *Signer) verifyKey() (interface{}, error) {
	if s.config.SigningMethod == MethodEd25519 {
		return parseEdPublicKey(s.config.PublicKey)
	}
	return s.config.PrivateKey, nil
}

func (s *Signer) verifyKeyFromBytes(key []byte) (interface{}, error) {
	if s.config.SigningMethod == MethodEd25519 {
		return parseEdPublicKey(key)
	}
	return key, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
