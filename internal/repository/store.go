package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/quizgen/internal/model"
)

// Store composes the repositories into the transactional operations the
// service layer needs.  Every multi-row write runs in one transaction and
// is rolled back on any error.
type Store struct {
	db      *sql.DB
	Users   *UserRepo
	Quotas  *QuotaRepo
	Quizzes *QuizRepo
	Tokens  *TokenRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		Users:   NewUserRepo(db),
		Quotas:  NewQuotaRepo(db),
		Quizzes: NewQuizRepo(db),
		Tokens:  NewTokenRepo(db),
	}
}

// CreateAccount inserts u and its initial quota together.  A taken
// username or email yields ErrConflict, including when a concurrent
// sign-up wins the race between the check and the insert.
func (s *Store) CreateAccount(ctx context.Context, u *model.User, initial model.Quota) (model.Quota, error) {
	const op = "repository.CreateAccount"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	taken, err := s.Users.ExistsTx(ctx, tx, u.Username, u.Email)
	if err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return model.Quota{}, fmt.Errorf("%s: %w", op, ErrConflict)
	}
	if err := s.Users.CreateTx(ctx, tx, u); err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	initial.UserID = u.ID
	if err := s.Quotas.CreateTx(ctx, tx, initial); err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	committed = true
	return initial, nil
}

// UserByUsername returns ErrNotFound for unknown usernames.
func (s *Store) UserByUsername(ctx context.Context, username string) (model.User, error) {
	const op = "repository.UserByUsername"

	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		return u, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Quota reads a user's quota without locking.
func (s *Store) Quota(ctx context.Context, userID uint64) (model.Quota, error) {
	const op = "repository.Quota"

	q, err := s.Quotas.Get(ctx, userID)
	if err != nil {
		return q, fmt.Errorf("%s: %w", op, err)
	}
	return q, nil
}

// UpdateQuota runs apply on the locked quota row and writes the result back
// when apply reports a change.
func (s *Store) UpdateQuota(ctx context.Context, userID uint64, apply func(model.Quota) (model.Quota, bool)) (model.Quota, error) {
	const op = "repository.UpdateQuota"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	current, err := s.Quotas.GetForUpdateTx(ctx, tx, userID)
	if err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	next, changed := apply(current)
	if changed {
		if err := s.Quotas.UpdateTx(ctx, tx, next); err != nil {
			return model.Quota{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	committed = true
	return next, nil
}

// CreateQuiz charges the owner's quota and inserts quiz with its elements
// in one transaction.  charge sees the row-locked quota; if it fails
// nothing is written and its error is returned.
func (s *Store) CreateQuiz(ctx context.Context, quiz *model.Quiz, charge func(model.Quota) (model.Quota, error)) (model.Quota, error) {
	const op = "repository.CreateQuiz"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	current, err := s.Quotas.GetForUpdateTx(ctx, tx, quiz.UserID)
	if err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	charged, err := charge(current)
	if err != nil {
		return current, err
	}
	if err := s.Quizzes.CreateTx(ctx, tx, quiz); err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.Quotas.UpdateTx(ctx, tx, charged); err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Quota{}, fmt.Errorf("%s: %w", op, err)
	}
	committed = true
	return charged, nil
}

// QuizzesByUser lists quiz summaries newest first.
func (s *Store) QuizzesByUser(ctx context.Context, userID uint64) ([]model.QuizSummary, error) {
	const op = "repository.QuizzesByUser"

	list, err := s.Quizzes.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// QuizByID loads a quiz with its elements.
func (s *Store) QuizByID(ctx context.Context, id uint64) (model.Quiz, error) {
	const op = "repository.QuizByID"

	q, err := s.Quizzes.GetByID(ctx, id)
	if err != nil {
		return q, fmt.Errorf("%s: %w", op, err)
	}
	return q, nil
}

// UpdateQuizResult overwrites the result of quiz id.  authorize receives
// the owner id and may veto the update; it is nil when any caller may
// write.
func (s *Store) UpdateQuizResult(ctx context.Context, id uint64, result string, authorize func(ownerID uint64) error) error {
	const op = "repository.UpdateQuizResult"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	owner, err := s.Quizzes.OwnerForUpdateTx(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if authorize != nil {
		if err := authorize(owner); err != nil {
			return err
		}
	}
	if err := s.Quizzes.UpdateResultTx(ctx, tx, id, result); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	committed = true
	return nil
}

// SaveRefresh records an issued refresh token hash.
func (s *Store) SaveRefresh(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	const op = "repository.SaveRefresh"

	if err := s.Tokens.StoreRefresh(ctx, userID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RotateRefresh revokes the active token oldHash of userID and records
// newHash in the same transaction.  A reused, expired, unknown or foreign
// token yields ErrNotFound and nothing changes.
func (s *Store) RotateRefresh(ctx context.Context, userID uint64, oldHash, newHash string, newExpiresAt, now time.Time) error {
	const op = "repository.RotateRefresh"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	old, err := s.Tokens.ActiveForUpdateTx(ctx, tx, oldHash, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if old.UserID != userID {
		return fmt.Errorf("%s: token of user %d: %w", op, old.UserID, ErrNotFound)
	}
	if err := s.Tokens.RevokeByHashTx(ctx, tx, oldHash, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.Tokens.StoreRefreshTx(ctx, tx, userID, newHash, newExpiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	committed = true
	return nil
}

// RevokeRefresh revokes a refresh token if it is still active.
func (s *Store) RevokeRefresh(ctx context.Context, tokenHash string, now time.Time) error {
	const op = "repository.RevokeRefresh"

	if err := s.Tokens.RevokeByHash(ctx, tokenHash, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
