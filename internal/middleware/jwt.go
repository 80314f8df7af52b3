package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/quizgen/internal/auth"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores its claims in the request context.  Handlers read them with
// ClaimsFrom; the rate limiter and cache read the "user_id" string.
func JWTAuth(issuer *auth.Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

			claims, err := issuer.Verify(raw, auth.KindAccess)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(claimsKey, claims)
			c.Set(userIDKey, strconv.FormatUint(claims.UserID, 10))
			return next(c)
		}
	}
}
