// Package auth issues and verifies the signed access and refresh tokens used
// by the API.  Verification is pure: it needs no database access.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/quizgen/internal/clock"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken covers every verification failure: malformed input, bad
// signature, unexpected algorithm, expiry and kind mismatch.
var ErrInvalidToken = errors.New("invalid token")

// Subject identifies the user a token is issued for.
type Subject struct {
	Username string
	UserID   uint64
}

// Claims is the JWT payload.  The username travels in the standard `sub`
// claim.
type Claims struct {
	UserID uint64 `json:"user_id"`
	Kind   Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Identity returns the subject carried by the claims.
func (c Claims) Identity() Subject {
	return Subject{Username: c.RegisteredClaims.Subject, UserID: c.UserID}
}

// Token is a signed token string together with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Pair is what a successful sign-up, login or rotation hands out.
type Pair struct {
	Access  Token
	Refresh Token
}

// Issuer signs and verifies tokens.  Refresh tokens use their own key so a
// token of one kind can never be replayed as the other.
type Issuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
}

// NewIssuer builds an Issuer.  When refreshSecret is empty a refresh key is
// derived from secret.  Non-positive TTLs fall back to the defaults.
func NewIssuer(secret, refreshSecret string, accessTTL, refreshTTL time.Duration, c clock.Clock) *Issuer {
	if c == nil {
		c = clock.Real()
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	refreshKey := []byte(refreshSecret)
	if refreshSecret == "" || refreshSecret == secret {
		sum := sha256.Sum256([]byte("refresh:" + secret))
		refreshKey = sum[:]
	}
	return &Issuer{
		accessKey:  []byte(secret),
		refreshKey: refreshKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      c,
	}
}

// RefreshTTL is the lifetime of refresh tokens; the refresh cookie uses it
// as its Max-Age.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// Issue signs a fresh access/refresh pair for s.
func (i *Issuer) Issue(s Subject) (Pair, error) {
	access, err := i.sign(s, KindAccess)
	if err != nil {
		return Pair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := i.sign(s, KindRefresh)
	if err != nil {
		return Pair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Verify parses raw and checks signature, expiry and kind.
func (i *Issuer) Verify(raw string, kind Kind) (Claims, error) {
	key, _ := i.params(kind)
	if key == nil || raw == "" {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != kind || claims.UserID == 0 || claims.RegisteredClaims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Rotate verifies a refresh token and issues a brand-new pair for the same
// subject.  The presented token is not revoked here; callers that keep a
// revocation store must do that themselves.
func (i *Issuer) Rotate(refresh string) (Pair, Claims, error) {
	claims, err := i.Verify(refresh, KindRefresh)
	if err != nil {
		return Pair{}, Claims{}, err
	}
	pair, err := i.Issue(claims.Identity())
	if err != nil {
		return Pair{}, Claims{}, err
	}
	return pair, claims, nil
}

func (i *Issuer) params(kind Kind) ([]byte, time.Duration) {
	switch kind {
	case KindAccess:
		return i.accessKey, i.accessTTL
	case KindRefresh:
		return i.refreshKey, i.refreshTTL
	}
	return nil, 0
}

func (i *Issuer) sign(s Subject, kind Kind) (Token, error) {
	key, ttl := i.params(kind)
	now := i.clock.Now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID: s.UserID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// HashToken returns the SHA‑256 hex digest of a raw token.  Only digests
// are ever written to the refresh_tokens table.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
