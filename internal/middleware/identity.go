package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/quizgen/internal/auth"
)

const (
	claimsKey = "claims"
	userIDKey = "user_id"
)

// ClaimsFrom returns the access token claims stored by JWTAuth.
func ClaimsFrom(c echo.Context) (auth.Claims, bool) {
	claims, ok := c.Get(claimsKey).(auth.Claims)
	return claims, ok
}

// currentUserID is the authenticated user id as a string, or "anon".
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(userIDKey).(string); ok && s != "" {
		return s
	}
	return "anon"
}
