package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned for passwords bcrypt would silently refuse.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// dummyHash is compared against when the user does not exist so that a
// failed lookup costs about as much as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("quizgen-dummy-password"), bcrypt.DefaultCost)

// HashPassword returns bcrypt hash using the given cost.  Costs outside the
// bcrypt range fall back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) > 72 {
		return "", ErrPasswordTooLong
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.  An empty
// hash is checked against a dummy so callers can pass a missing user's
// zero value without shortening the response time.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
