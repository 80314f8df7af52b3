package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/quizgen/internal/model"
)

// QuizRepo provides access to quizzes and their elements.  Elements are
// written once together with their quiz and never updated; deleting a quiz
// cascades to its elements.
type QuizRepo struct{ DB *sql.DB }

func NewQuizRepo(db *sql.DB) *QuizRepo { return &QuizRepo{DB: db} }

// CreateTx inserts q and all of its elements inside tx.  q.ID and each
// element's QuizID are set; element IDs are left zero.
func (r *QuizRepo) CreateTx(ctx context.Context, tx *sql.Tx, q *model.Quiz) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO quizzes (user_id, title, created_at) VALUES (?,?,?)",
		q.UserID, q.Title, q.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)
	for i := range q.Elements {
		q.Elements[i].QuizID = q.ID
	}
	return r.createElementsBulkTx(ctx, tx, q.Elements)
}

// createElementsBulkTx inserts every element in a single statement.
func (r *QuizRepo) createElementsBulkTx(ctx context.Context, tx *sql.Tx, elems []model.QuizElement) error {
	if len(elems) == 0 {
		return nil
	}
	var query strings.Builder
	query.WriteString("INSERT INTO quiz_elements (quiz_id, position, question, options, correct_option, point, explanation) VALUES ")
	args := make([]any, 0, len(elems)*7)
	for i, e := range elems {
		if i > 0 {
			query.WriteString(",")
		}
		query.WriteString("(?, ?, ?, ?, ?, ?, ?)")
		opts, err := e.EncodeOptions()
		if err != nil {
			return fmt.Errorf("encode options of element %d: %w", i, err)
		}
		args = append(args, e.QuizID, e.Position, e.Question, opts, e.CorrectOption, e.Point, e.Explanation)
	}
	_, err := tx.ExecContext(ctx, query.String(), args...)
	return err
}

// ListByUser returns the user's quizzes newest first, with element counts.
func (r *QuizRepo) ListByUser(ctx context.Context, userID uint64) ([]model.QuizSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT q.id, q.title, q.result, q.created_at, COUNT(e.id)
		FROM quizzes q
		LEFT JOIN quiz_elements e ON e.quiz_id = q.id
		WHERE q.user_id = ?
		GROUP BY q.id, q.title, q.result, q.created_at
		ORDER BY q.created_at DESC, q.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.QuizSummary{}
	for rows.Next() {
		var (
			s      model.QuizSummary
			result sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Title, &result, &s.CreatedAt, &s.QuestionCount); err != nil {
			return nil, err
		}
		if result.Valid {
			v := result.String
			s.Result = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID loads a quiz with its elements ordered by position.
func (r *QuizRepo) GetByID(ctx context.Context, id uint64) (model.Quiz, error) {
	var (
		q      model.Quiz
		result sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, title, result, created_at FROM quizzes WHERE id=?", id).
		Scan(&q.ID, &q.UserID, &q.Title, &result, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return q, ErrNotFound
		}
		return q, err
	}
	if result.Valid {
		v := result.String
		q.Result = &v
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, quiz_id, position, question, options, correct_option, point, explanation
		FROM quiz_elements WHERE quiz_id = ? ORDER BY position`, id)
	if err != nil {
		return q, err
	}
	defer rows.Close()
	q.Elements = []model.QuizElement{}
	for rows.Next() {
		var (
			e    model.QuizElement
			opts string
		)
		if err := rows.Scan(&e.ID, &e.QuizID, &e.Position, &e.Question, &opts, &e.CorrectOption, &e.Point, &e.Explanation); err != nil {
			return q, err
		}
		if e.Options, err = model.DecodeOptions(opts); err != nil {
			return q, fmt.Errorf("decode options of element %d: %w", e.ID, err)
		}
		q.Elements = append(q.Elements, e)
	}
	return q, rows.Err()
}

// OwnerForUpdateTx returns the owner of a quiz and locks its row.
func (r *QuizRepo) OwnerForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (uint64, error) {
	var owner uint64
	err := tx.QueryRowContext(ctx, "SELECT user_id FROM quizzes WHERE id=? FOR UPDATE", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return owner, err
}

// UpdateResultTx overwrites the result column.
func (r *QuizRepo) UpdateResultTx(ctx context.Context, tx *sql.Tx, id uint64, result string) error {
	_, err := tx.ExecContext(ctx, "UPDATE quizzes SET result=? WHERE id=?", result, id)
	return err
}
