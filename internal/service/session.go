package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/quizgen/internal/auth"
	"github.com/iliyamo/quizgen/internal/model"
	"github.com/iliyamo/quizgen/internal/repository"
	"github.com/iliyamo/quizgen/internal/utils"
)

// Session is returned by SignUp and Login.
type Session struct {
	User    model.User
	Quota   QuotaView
	Quizzes []model.QuizSummary
	Tokens  auth.Pair
}

// SignUp registers a user together with a fresh quota and logs them in.
func (s *Service) SignUp(ctx context.Context, username string, email *string, password string) (Session, error) {
	const op = "service.SignUp"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, badRequest("username and password are required")
	}
	if email != nil {
		trimmed := strings.TrimSpace(*email)
		if trimmed == "" {
			email = nil
		} else {
			email = &trimmed
		}
	}
	if err := tooLong("username", username, MaxUsernameLen); err != nil {
		return Session{}, err
	}
	if email != nil {
		if err := tooLong("email", *email, MaxEmailLen); err != nil {
			return Session{}, err
		}
	}

	hash, err := utils.HashPassword(password, s.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return Session{}, badRequest("%v", err)
		}
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	u := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.Clock.Now(),
	}
	q, err := s.Store.CreateAccount(ctx, u, s.Ledger.Fresh(0))
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return Session{}, ErrConflict
		}
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issue(ctx, *u)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	s.Log.Info("user signed up", slog.Uint64("user_id", u.ID), slog.String("username", u.Username))

	return Session{User: *u, Quota: s.quotaView(q), Quizzes: []model.QuizSummary{}, Tokens: pair}, nil
}

// Login checks the password, applies a due quota reset and issues a token
// pair.  Unknown users and wrong passwords are indistinguishable.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	const op = "service.Login"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, badRequest("username and password are required")
	}

	u, err := s.Store.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.VerifyPassword("", password)
			return Session{}, ErrUnauthorized
		}
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrUnauthorized
	}

	q, err := s.Store.UpdateQuota(ctx, u.ID, s.Ledger.Reset)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	quizzes, err := s.Store.QuizzesByUser(ctx, u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	pair, err := s.issue(ctx, u)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return Session{User: u, Quota: s.quotaView(q), Quizzes: quizzes, Tokens: pair}, nil
}

// Refresh rotates a refresh token into a new pair.  With a TokenStore the
// presented token is revoked and cannot be used again.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.Pair, error) {
	const op = "service.Refresh"

	if refreshToken == "" {
		return auth.Pair{}, badRequest("missing refresh token")
	}
	pair, claims, err := s.Issuer.Rotate(refreshToken)
	if err != nil {
		return auth.Pair{}, err
	}
	if s.Tokens == nil {
		return pair, nil
	}

	err = s.Tokens.RotateRefresh(ctx, claims.UserID, auth.HashToken(refreshToken),
		auth.HashToken(pair.Refresh.Value), pair.Refresh.ExpiresAt, s.Clock.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.Log.Warn("refresh token reused or unknown", slog.Uint64("user_id", claims.UserID))
			return auth.Pair{}, auth.ErrInvalidToken
		}
		return auth.Pair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// Logout revokes the refresh token when a TokenStore is configured.  It is
// a no-op otherwise; the caller clears the cookie either way.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	const op = "service.Logout"

	if s.Tokens == nil || refreshToken == "" {
		return nil
	}
	if err := s.Tokens.RevokeRefresh(ctx, auth.HashToken(refreshToken), s.Clock.Now()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) issue(ctx context.Context, u model.User) (auth.Pair, error) {
	pair, err := s.Issuer.Issue(auth.Subject{Username: u.Username, UserID: u.ID})
	if err != nil {
		return auth.Pair{}, err
	}
	if s.Tokens != nil {
		if err := s.Tokens.SaveRefresh(ctx, u.ID, auth.HashToken(pair.Refresh.Value), pair.Refresh.ExpiresAt); err != nil {
			return auth.Pair{}, err
		}
	}
	return pair, nil
}
