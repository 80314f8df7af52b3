package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/quizgen/internal/model"
)

// UserRepo reads and writes the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, username, email, password_hash, created_at"

// CreateTx inserts u inside tx and fills in its ID and CreatedAt.  A
// duplicate username or email yields ErrConflict.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, u *model.User) error {
	var email any
	if u.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*u.Email))
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?,?,?,?)",
		u.Username, email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// ExistsTx reports whether the username or (non-empty) email is taken.
func (r *UserRepo) ExistsTx(ctx context.Context, tx *sql.Tx, username string, email *string) (bool, error) {
	var n int
	var err error
	if email != nil {
		err = tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM users WHERE username=? OR email=?",
			username, strings.ToLower(strings.TrimSpace(*email))).Scan(&n)
	} else {
		err = tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM users WHERE username=?", username).Scan(&n)
	}
	return n > 0, err
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u     model.User
		email sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, ErrNotFound
		}
		return u, err
	}
	if email.Valid {
		e := email.String
		u.Email = &e
	}
	return u, nil
}
