package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/quizgen/internal/model"
)

// TokenRepo persists refresh token hashes when revocation is enabled.  Only
// the SHA-256 hex digest of a token is stored.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertRefresh = "INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)"

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	return storeRefresh(ctx, r.DB, userID, tokenHash, exp)
}

// StoreRefreshTx inserts a refresh token hash row inside tx.
func (r *TokenRepo) StoreRefreshTx(ctx context.Context, tx *sql.Tx, userID uint64, tokenHash string, exp time.Time) error {
	return storeRefresh(ctx, tx, userID, tokenHash, exp)
}

func storeRefresh(ctx context.Context, db execer, userID uint64, tokenHash string, exp time.Time) error {
	_, err := db.ExecContext(ctx, insertRefresh, userID, tokenHash, exp)
	return err
}

// ActiveForUpdateTx loads a non-revoked, non-expired token and locks its
// row.  Unknown, revoked and expired tokens all yield ErrNotFound.
func (r *TokenRepo) ActiveForUpdateTx(ctx context.Context, tx *sql.Tx, tokenHash string, now time.Time) (model.RefreshToken, error) {
	var (
		t       model.RefreshToken
		revoked sql.NullTime
	)
	err := tx.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1 FOR UPDATE",
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revoked, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, ErrNotFound
		}
		return t, err
	}
	if revoked.Valid {
		t.RevokedAt = &revoked.Time
	}
	if t.RevokedAt != nil || now.After(t.ExpiresAt) {
		return t, ErrNotFound
	}
	return t, nil
}

const revokeRefresh = "UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL"

// RevokeByHashTx marks a token as revoked inside tx.
func (r *TokenRepo) RevokeByHashTx(ctx context.Context, tx *sql.Tx, tokenHash string, now time.Time) error {
	_, err := tx.ExecContext(ctx, revokeRefresh, now, tokenHash)
	return err
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, revokeRefresh, now, tokenHash)
	return err
}
