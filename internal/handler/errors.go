package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/quizgen/internal/auth"
	"github.com/iliyamo/quizgen/internal/generation"
	"github.com/iliyamo/quizgen/internal/pdf"
	"github.com/iliyamo/quizgen/internal/repository"
	"github.com/iliyamo/quizgen/internal/service"
)

// respondError maps service errors onto status codes.  Anything unknown is
// logged and reported as a bare 500.
func respondError(c echo.Context, log *slog.Logger, err error) error {
	var (
		quotaErr *service.QuotaError
		genErr   *generation.Error
	)
	switch {
	case errors.As(err, &quotaErr):
		secs := int(math.Ceil(quotaErr.RetryAfter.Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":       "quiz quota exhausted",
			"retry_after": secs,
			"quota":       quotaErr.Quota,
		})
	case errors.As(err, &genErr):
		log.Warn("generation failed", slog.String("kind", genErr.Kind.String()), slog.Any("error", genErr.Err))
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error":  "quiz generation failed",
			"detail": genErr.Kind.String(),
		})
	case errors.Is(err, service.ErrBadRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "quiz not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, pdf.ErrTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": err.Error()})
	case errors.Is(err, pdf.ErrUnsupportedType):
		return c.JSON(http.StatusUnsupportedMediaType, echo.Map{"error": err.Error()})
	case errors.Is(err, pdf.ErrNoText):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	log.Error("request failed",
		slog.String("method", c.Request().Method),
		slog.String("path", c.Path()),
		slog.Any("error", err),
	)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
