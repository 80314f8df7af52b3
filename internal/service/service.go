// Package service orchestrates sign-up, login, token rotation and quota-gated
// quiz generation on top of the store, the credential issuer, the quota
// ledger and the generation pipeline.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/quizgen/internal/auth"
	"github.com/iliyamo/quizgen/internal/clock"
	"github.com/iliyamo/quizgen/internal/generation"
	"github.com/iliyamo/quizgen/internal/model"
	"github.com/iliyamo/quizgen/internal/queue"
	"github.com/iliyamo/quizgen/internal/quota"
)

// DefaultMaxQuestions caps number_of_questions when no limit is configured.
const DefaultMaxQuestions = 20

// Column widths, in characters.
const (
	MaxUsernameLen = 64
	MaxEmailLen    = 255
	MaxTitleLen    = 255
	MaxResultLen   = 255
)

// Store is the persistence the service needs.  Every method that writes
// more than one row does so in a single transaction.
type Store interface {
	CreateAccount(ctx context.Context, u *model.User, initial model.Quota) (model.Quota, error)
	UserByUsername(ctx context.Context, username string) (model.User, error)
	Quota(ctx context.Context, userID uint64) (model.Quota, error)
	UpdateQuota(ctx context.Context, userID uint64, apply func(model.Quota) (model.Quota, bool)) (model.Quota, error)
	CreateQuiz(ctx context.Context, quiz *model.Quiz, charge func(model.Quota) (model.Quota, error)) (model.Quota, error)
	QuizzesByUser(ctx context.Context, userID uint64) ([]model.QuizSummary, error)
	QuizByID(ctx context.Context, id uint64) (model.Quiz, error)
	UpdateQuizResult(ctx context.Context, id uint64, result string, authorize func(ownerID uint64) error) error
}

// TokenStore records issued refresh tokens.  Without one, refresh tokens
// stay valid until they expire.
type TokenStore interface {
	SaveRefresh(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
	RotateRefresh(ctx context.Context, userID uint64, oldHash, newHash string, newExpiresAt, now time.Time) error
	RevokeRefresh(ctx context.Context, tokenHash string, now time.Time) error
}

// Generator turns a request into validated quiz elements.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) ([]model.QuizElement, error)
}

// EventPublisher receives a notification after a quiz was committed.
type EventPublisher interface {
	PublishQuizGenerated(ctx context.Context, event queue.QuizGeneratedEvent) error
}

// CacheInvalidator drops cached history responses for a user.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID uint64) error
}

// Config holds the tunables of the service.
type Config struct {
	BcryptCost       int
	MaxQuestions     int
	ResultOwnerCheck bool
}

// Service bundles the dependencies of every use case.  Tokens, Events and
// Cache are optional.
type Service struct {
	Cfg       Config
	Store     Store
	Issuer    *auth.Issuer
	Ledger    *quota.Ledger
	Generator Generator
	Clock     clock.Clock
	Log       *slog.Logger

	Tokens TokenStore
	Events EventPublisher
	Cache  CacheInvalidator
}

func New(cfg Config, store Store, issuer *auth.Issuer, ledger *quota.Ledger, gen Generator, c clock.Clock, log *slog.Logger) *Service {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	if c == nil {
		c = clock.Real()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		Cfg:       cfg,
		Store:     store,
		Issuer:    issuer,
		Ledger:    ledger,
		Generator: gen,
		Clock:     c,
		Log:       log,
	}
}

// QuotaView is the quota as shown to clients.
type QuotaView struct {
	Remaining int       `json:"remaining"`
	Allowance int       `json:"allowance"`
	LastReset time.Time `json:"last_reset"`
	NextReset time.Time `json:"next_reset"`
}

func (s *Service) quotaView(q model.Quota) QuotaView {
	return QuotaView{
		Remaining: q.Remaining,
		Allowance: s.Ledger.Allowance(),
		LastReset: q.LastReset,
		NextReset: s.Ledger.NextReset(q),
	}
}

func (s *Service) invalidate(ctx context.Context, userID uint64) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, userID); err != nil {
		s.Log.Warn("history cache invalidation failed", slog.Uint64("user_id", userID), slog.Any("error", err))
	}
}
