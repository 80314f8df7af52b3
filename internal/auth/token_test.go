package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/quizgen/internal/clock"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestIssuer(t *testing.T) (*Issuer, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(epoch)
	return NewIssuer("test-secret", "", 15*time.Minute, 7*24*time.Hour, fake), fake
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	issuer, _ := newTestIssuer(t)
	pair, err := issuer.Issue(Subject{Username: "alice", UserID: 42})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := issuer.Verify(pair.Access.Value, KindAccess)
	if err != nil {
		t.Fatalf("Verify access: %v", err)
	}
	if got := claims.Identity(); got.Username != "alice" || got.UserID != 42 {
		t.Errorf("identity = %+v, want alice/42", got)
	}
	if !pair.Access.ExpiresAt.Equal(epoch.Add(15 * time.Minute)) {
		t.Errorf("access expiry = %v", pair.Access.ExpiresAt)
	}
	if !pair.Refresh.ExpiresAt.Equal(epoch.Add(7 * 24 * time.Hour)) {
		t.Errorf("refresh expiry = %v", pair.Refresh.ExpiresAt)
	}
}

func TestVerifyRejectsKindMismatch(t *testing.T) {
	t.Parallel()

	issuer, _ := newTestIssuer(t)
	pair, err := issuer.Issue(Subject{Username: "alice", UserID: 42})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := issuer.Verify(pair.Access.Value, KindRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access as refresh: err = %v, want ErrInvalidToken", err)
	}
	if _, err := issuer.Verify(pair.Refresh.Value, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh as access: err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsKindClaimUnderSameKey(t *testing.T) {
	t.Parallel()

	// Even with a shared secret the kind claim keeps the two apart.
	fake := clock.NewFake(epoch)
	issuer := NewIssuer("shared", "shared-refresh", time.Minute, time.Hour, fake)
	issuer.refreshKey = issuer.accessKey

	pair, err := issuer.Issue(Subject{Username: "bob", UserID: 1})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Verify(pair.Access.Value, KindRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	issuer, fake := newTestIssuer(t)
	pair, err := issuer.Issue(Subject{Username: "alice", UserID: 42})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	fake.Advance(16 * time.Minute)
	if _, err := issuer.Verify(pair.Access.Value, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired access: err = %v, want ErrInvalidToken", err)
	}
	if _, err := issuer.Verify(pair.Refresh.Value, KindRefresh); err != nil {
		t.Errorf("refresh should still be valid: %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	issuer, _ := newTestIssuer(t)
	pair, err := issuer.Issue(Subject{Username: "alice", UserID: 42})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other := NewIssuer("other-secret", "", 0, 0, clock.NewFake(epoch))

	tests := map[string]string{
		"empty":       "",
		"garbage":     "not.a.jwt",
		"foreign key": mustSign(t, other, Subject{Username: "alice", UserID: 42}),
		"truncated":   pair.Access.Value[:len(pair.Access.Value)-4],
		"none alg":    noneToken(t),
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := issuer.Verify(raw, KindAccess); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestRotate(t *testing.T) {
	t.Parallel()

	issuer, fake := newTestIssuer(t)
	first, err := issuer.Issue(Subject{Username: "alice", UserID: 42})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	fake.Advance(time.Hour)
	second, claims, err := issuer.Rotate(first.Refresh.Value)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if claims.Identity().UserID != 42 {
		t.Errorf("rotated claims = %+v", claims)
	}
	if second.Refresh.Value == first.Refresh.Value {
		t.Error("rotation returned the same refresh token")
	}
	if _, err := issuer.Verify(second.Refresh.Value, KindRefresh); err != nil {
		t.Errorf("new refresh rejected: %v", err)
	}
	// Without a revocation store the old token stays valid until expiry.
	if _, err := issuer.Verify(first.Refresh.Value, KindRefresh); err != nil {
		t.Errorf("old refresh rejected before expiry: %v", err)
	}
	if _, _, err := issuer.Rotate(first.Access.Value); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("rotating an access token: err = %v, want ErrInvalidToken", err)
	}
}

func TestHashToken(t *testing.T) {
	t.Parallel()

	h := HashToken("abc")
	if len(h) != 64 || strings.ToLower(h) != h {
		t.Errorf("HashToken = %q, want 64 lowercase hex chars", h)
	}
	if HashToken("abc") != h || HashToken("abd") == h {
		t.Error("HashToken is not a stable digest")
	}
}

func mustSign(t *testing.T, issuer *Issuer, s Subject) string {
	t.Helper()
	pair, err := issuer.Issue(s)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return pair.Access.Value
}

func noneToken(t *testing.T) string {
	t.Helper()
	claims := Claims{
		UserID: 42,
		Kind:   KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	return raw
}
