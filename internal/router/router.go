// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/quizgen/internal/auth"
	"github.com/iliyamo/quizgen/internal/handler"
	"github.com/iliyamo/quizgen/internal/middleware"
)

// Deps are the handlers and route middleware.  RateLimit and Cache may be
// nil.
type Deps struct {
	Auth   *handler.AuthHandler
	Quiz   *handler.QuizHandler
	Issuer *auth.Issuer
	DB     handler.Pinger

	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc

	// ResultOwnerCheck puts the result route behind JWTAuth.
	ResultOwnerCheck bool
}

// Options configure the global middleware chain.
type Options struct {
	CORSOrigins  []string
	MaxBodyBytes int64
	Log          *slog.Logger
}

// Use installs request id, access logging, panic recovery, body limit and,
// when origins are configured, CORS with credentials for the refresh cookie.
func Use(e *echo.Echo, opts Options) {
	e.Use(echomw.RequestID())
	if opts.Log != nil {
		e.Use(middleware.RequestLogger(opts.Log))
	}
	e.Use(echomw.Recover())
	if opts.MaxBodyBytes > 0 {
		e.Use(echomw.BodyLimit(fmt.Sprintf("%dK", opts.MaxBodyBytes>>10+1)))
	}
	if len(opts.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
			AllowCredentials: true,
		}))
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// Register mounts /healthz and the /api routes.
func Register(e *echo.Echo, d Deps) {
	rate, cache := d.RateLimit, d.Cache
	if rate == nil {
		rate = passThrough
	}
	if cache == nil {
		cache = passThrough
	}

	e.GET("/healthz", handler.Health(d.DB))

	api := e.Group("/api")
	api.POST("/sign-up", d.Auth.SignUp)
	api.POST("/token", d.Auth.Token)
	api.POST("/refresh", d.Auth.Refresh)
	api.POST("/logout", d.Auth.Logout)

	jwt := middleware.JWTAuth(d.Issuer)
	if d.ResultOwnerCheck {
		api.PATCH("/quizzes-result/:id", d.Quiz.UpdateResult, jwt)
	} else {
		api.PATCH("/quizzes-result/:id", d.Quiz.UpdateResult)
	}

	protected := api.Group("", jwt)
	protected.POST("/generate-quiz", d.Quiz.Generate, rate)
	protected.POST("/generate-quiz/document", d.Quiz.GenerateFromDocument, rate)
	protected.GET("/quizzes-history", d.Quiz.History, cache)
	protected.GET("/quizzes/:id", d.Quiz.Get)
	protected.GET("/quizzes/:id/export", d.Quiz.Export)
}
