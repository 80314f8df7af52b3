// Package servicetest provides in-memory fakes for exercising the service
// and HTTP layers without MySQL or a real oracle.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/quizgen/internal/model"
	"github.com/iliyamo/quizgen/internal/repository"
)

type refreshRow struct {
	userID    uint64
	expiresAt time.Time
	revoked   bool
}

// Store is an in-memory service.Store and service.TokenStore.  Writes are
// all-or-nothing like the MySQL store.
type Store struct {
	mu       sync.Mutex
	nextID   uint64
	users    map[uint64]model.User
	quotas   map[uint64]model.Quota
	quizzes  map[uint64]model.Quiz
	refresh  map[string]refreshRow
	QuotaErr  error
	RotateErr error
}

func NewStore() *Store {
	return &Store{
		users:   map[uint64]model.User{},
		quotas:  map[uint64]model.Quota{},
		quizzes: map[uint64]model.Quiz{},
		refresh: map[string]refreshRow{},
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateAccount(_ context.Context, u *model.User, initial model.Quota) (model.Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return model.Quota{}, repository.ErrConflict
		}
		if u.Email != nil && existing.Email != nil && strings.EqualFold(*existing.Email, *u.Email) {
			return model.Quota{}, repository.ErrConflict
		}
	}
	u.ID = s.id()
	s.users[u.ID] = *u
	initial.UserID = u.ID
	s.quotas[u.ID] = initial
	return initial, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *Store) Quota(_ context.Context, userID uint64) (model.Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.QuotaErr != nil {
		return model.Quota{}, s.QuotaErr
	}
	q, ok := s.quotas[userID]
	if !ok {
		return model.Quota{}, repository.ErrNotFound
	}
	return q, nil
}

// SetQuota overwrites a user's quota row.
func (s *Store) SetQuota(q model.Quota) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotas[q.UserID] = q
}

func (s *Store) UpdateQuota(_ context.Context, userID uint64, apply func(model.Quota) (model.Quota, bool)) (model.Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotas[userID]
	if !ok {
		return model.Quota{}, repository.ErrNotFound
	}
	next, changed := apply(q)
	if changed {
		s.quotas[userID] = next
	}
	return next, nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz *model.Quiz, charge func(model.Quota) (model.Quota, error)) (model.Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.quotas[quiz.UserID]
	if !ok {
		return model.Quota{}, repository.ErrNotFound
	}
	charged, err := charge(current)
	if err != nil {
		return current, err
	}
	quiz.ID = s.id()
	elems := make([]model.QuizElement, len(quiz.Elements))
	for i, e := range quiz.Elements {
		e.ID = s.id()
		e.QuizID = quiz.ID
		elems[i] = e
	}
	quiz.Elements = elems
	stored := *quiz
	stored.Elements = append([]model.QuizElement(nil), elems...)
	s.quizzes[quiz.ID] = stored
	s.quotas[quiz.UserID] = charged
	return charged, nil
}

func (s *Store) QuizzesByUser(_ context.Context, userID uint64) ([]model.QuizSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.QuizSummary{}
	for _, q := range s.quizzes {
		if q.UserID != userID {
			continue
		}
		out = append(out, model.QuizSummary{
			ID:            q.ID,
			Title:         q.Title,
			Result:        q.Result,
			CreatedAt:     q.CreatedAt,
			QuestionCount: len(q.Elements),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) QuizByID(_ context.Context, id uint64) (model.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[id]
	if !ok {
		return model.Quiz{}, fmt.Errorf("servicetest.QuizByID: %w", repository.ErrNotFound)
	}
	q.Elements = append([]model.QuizElement(nil), q.Elements...)
	return q, nil
}

func (s *Store) UpdateQuizResult(_ context.Context, id uint64, result string, authorize func(ownerID uint64) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[id]
	if !ok {
		return fmt.Errorf("servicetest.UpdateQuizResult: %w", repository.ErrNotFound)
	}
	if authorize != nil {
		if err := authorize(q.UserID); err != nil {
			return err
		}
	}
	q.Result = &result
	s.quizzes[id] = q
	return nil
}

// QuizCount reports how many quizzes are stored across all users.
func (s *Store) QuizCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quizzes)
}

func (s *Store) SaveRefresh(_ context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[tokenHash] = refreshRow{userID: userID, expiresAt: expiresAt}
	return nil
}

// RotateRefresh fails with RotateErr, when set, without touching any token.
func (s *Store) RotateRefresh(_ context.Context, userID uint64, oldHash, newHash string, newExpiresAt, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.refresh[oldHash]
	if !ok || row.revoked || now.After(row.expiresAt) || row.userID != userID {
		return repository.ErrNotFound
	}
	if s.RotateErr != nil {
		return s.RotateErr
	}
	row.revoked = true
	s.refresh[oldHash] = row
	s.refresh[newHash] = refreshRow{userID: userID, expiresAt: newExpiresAt}
	return nil
}

func (s *Store) RevokeRefresh(_ context.Context, tokenHash string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.refresh[tokenHash]; ok {
		row.revoked = true
		s.refresh[tokenHash] = row
	}
	return nil
}
