package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/quizgen/internal/auth"
	"github.com/iliyamo/quizgen/internal/generation"
	"github.com/iliyamo/quizgen/internal/model"
	"github.com/iliyamo/quizgen/internal/queue"
	"github.com/iliyamo/quizgen/internal/quota"
	"github.com/iliyamo/quizgen/internal/repository"
)

const defaultDifficulty = "medium"

// GenerateInput is a quiz request.  Source is optional document text.
type GenerateInput struct {
	Topic      string
	Difficulty string
	Count      int
	Source     string
}

// GeneratedQuiz is a committed quiz together with the charged quota.
type GeneratedQuiz struct {
	Quiz  model.Quiz
	Quota QuotaView
}

// QuotaError is returned when no generation is left.  It unwraps to
// quota.ErrQuotaExhausted.
type QuotaError struct {
	Quota      QuotaView
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%v: next reset at %s", quota.ErrQuotaExhausted, e.Quota.NextReset.Format(time.RFC3339))
}

func (e *QuotaError) Unwrap() error { return quota.ErrQuotaExhausted }

func (s *Service) quotaError(q model.Quota) error {
	return &QuotaError{Quota: s.quotaView(q), RetryAfter: s.Ledger.RetryAfter(q)}
}

// Generate checks the caller's quota, asks the generator for questions and
// stores the quiz while charging one generation.  A failed generation or
// an invalid payload leaves the quota untouched.
func (s *Service) Generate(ctx context.Context, claims auth.Claims, in GenerateInput) (GeneratedQuiz, error) {
	const op = "service.Generate"

	in.Topic = strings.TrimSpace(in.Topic)
	in.Difficulty = strings.TrimSpace(in.Difficulty)
	if in.Topic == "" {
		return GeneratedQuiz{}, badRequest("topic is required")
	}
	if err := tooLong("topic", in.Topic, MaxTitleLen); err != nil {
		return GeneratedQuiz{}, err
	}
	if in.Count < 1 || in.Count > s.Cfg.MaxQuestions {
		return GeneratedQuiz{}, badRequest("number_of_questions must be between 1 and %d", s.Cfg.MaxQuestions)
	}
	if in.Difficulty == "" {
		in.Difficulty = defaultDifficulty
	}

	current, err := s.Store.Quota(ctx, claims.UserID)
	if err != nil {
		return GeneratedQuiz{}, fmt.Errorf("%s: %w", op, err)
	}
	if reserved, err := s.Ledger.CheckAndReserve(current); err != nil {
		return GeneratedQuiz{}, s.quotaError(reserved)
	}

	elems, err := s.Generator.Generate(ctx, generation.Request{
		Topic:      in.Topic,
		Difficulty: in.Difficulty,
		Count:      in.Count,
		Source:     in.Source,
	})
	if err != nil {
		return GeneratedQuiz{}, err
	}

	quiz := &model.Quiz{
		UserID:    claims.UserID,
		Title:     in.Topic,
		CreatedAt: s.Clock.Now(),
		Elements:  elems,
	}
	charged, err := s.Store.CreateQuiz(ctx, quiz, func(q model.Quota) (model.Quota, error) {
		q, err := s.Ledger.CheckAndReserve(q)
		if err != nil {
			return q, err
		}
		return s.Ledger.Commit(q)
	})
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExhausted) {
			// Another request spent the last generation while the oracle ran.
			return GeneratedQuiz{}, s.quotaError(charged)
		}
		return GeneratedQuiz{}, fmt.Errorf("%s: %w", op, err)
	}

	s.Log.Info("quiz generated",
		slog.Uint64("user_id", claims.UserID),
		slog.Uint64("quiz_id", quiz.ID),
		slog.Int("questions", len(quiz.Elements)),
		slog.Int("remaining", charged.Remaining),
	)
	s.publish(ctx, *quiz, charged)
	s.invalidate(ctx, claims.UserID)

	return GeneratedQuiz{Quiz: *quiz, Quota: s.quotaView(charged)}, nil
}

func (s *Service) publish(ctx context.Context, quiz model.Quiz, q model.Quota) {
	if s.Events == nil {
		return
	}
	event := queue.QuizGeneratedEvent{
		EventID:       uuid.NewString(),
		QuizID:        quiz.ID,
		UserID:        quiz.UserID,
		Title:         quiz.Title,
		QuestionCount: len(quiz.Elements),
		Remaining:     q.Remaining,
		OccurredAt:    s.Clock.Now(),
	}
	if err := s.Events.PublishQuizGenerated(context.WithoutCancel(ctx), event); err != nil {
		s.Log.Warn("publish quiz.generated failed", slog.Uint64("quiz_id", quiz.ID), slog.Any("error", err))
	}
}

// History lists the caller's quizzes newest first.
func (s *Service) History(ctx context.Context, claims auth.Claims) ([]model.QuizSummary, error) {
	const op = "service.History"

	list, err := s.Store.QuizzesByUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// UpdateResult stores the outcome of a quiz.  actor may be nil; it is only
// consulted when ResultOwnerCheck is on.
func (s *Service) UpdateResult(ctx context.Context, quizID uint64, result string, actor *auth.Claims) (model.Quiz, error) {
	const op = "service.UpdateResult"

	result = strings.TrimSpace(result)
	if result == "" {
		return model.Quiz{}, badRequest("result is required")
	}
	if err := tooLong("result", result, MaxResultLen); err != nil {
		return model.Quiz{}, err
	}
	if s.Cfg.ResultOwnerCheck && actor == nil {
		return model.Quiz{}, ErrUnauthorized
	}

	var owner uint64
	err := s.Store.UpdateQuizResult(ctx, quizID, result, func(ownerID uint64) error {
		owner = ownerID
		if s.Cfg.ResultOwnerCheck && ownerID != actor.UserID {
			return repository.ErrForbidden
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrForbidden) {
			return model.Quiz{}, err
		}
		return model.Quiz{}, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, owner)

	quiz, err := s.Store.QuizByID(ctx, quizID)
	if err != nil {
		return model.Quiz{}, fmt.Errorf("%s: %w", op, err)
	}
	return quiz, nil
}

// Quiz returns one of the caller's quizzes with its elements.
func (s *Service) Quiz(ctx context.Context, claims auth.Claims, quizID uint64) (model.Quiz, error) {
	const op = "service.Quiz"

	quiz, err := s.Store.QuizByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Quiz{}, err
		}
		return model.Quiz{}, fmt.Errorf("%s: %w", op, err)
	}
	if quiz.UserID != claims.UserID {
		return model.Quiz{}, repository.ErrForbidden
	}
	return quiz, nil
}
