package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/quizgen/internal/model"
)

// QuotaRepo reads and writes the quotas table.  A row exists for every
// user and is only ever created together with it.
type QuotaRepo struct{ DB *sql.DB }

func NewQuotaRepo(db *sql.DB) *QuotaRepo { return &QuotaRepo{DB: db} }

// CreateTx inserts the initial quota row.
func (r *QuotaRepo) CreateTx(ctx context.Context, tx *sql.Tx, q model.Quota) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO quotas (user_id, remaining, last_reset) VALUES (?,?,?)",
		q.UserID, q.Remaining, q.LastReset)
	return err
}

// Get reads a quota without locking.
func (r *QuotaRepo) Get(ctx context.Context, userID uint64) (model.Quota, error) {
	return scanQuota(r.DB.QueryRowContext(ctx,
		"SELECT user_id, remaining, last_reset FROM quotas WHERE user_id=?", userID))
}

// GetForUpdateTx reads a quota and holds its row lock until tx ends, so
// concurrent charges for the same user are serialized.
func (r *QuotaRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64) (model.Quota, error) {
	return scanQuota(tx.QueryRowContext(ctx,
		"SELECT user_id, remaining, last_reset FROM quotas WHERE user_id=? FOR UPDATE", userID))
}

// UpdateTx writes remaining and last_reset back.
func (r *QuotaRepo) UpdateTx(ctx context.Context, tx *sql.Tx, q model.Quota) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE quotas SET remaining=?, last_reset=? WHERE user_id=?",
		q.Remaining, q.LastReset, q.UserID)
	return err
}

func scanQuota(row *sql.Row) (model.Quota, error) {
	var q model.Quota
	if err := row.Scan(&q.UserID, &q.Remaining, &q.LastReset); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return q, ErrNotFound
		}
		return q, err
	}
	return q, nil
}
