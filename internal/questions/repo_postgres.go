package questions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"call-insights/pkg/utils"
)

// NOTE: This repository assumes the questions and answers tables from
// migrations/0001_init.sql. answers.question_id references questions(id) ON DELETE CASCADE.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (p *PostgresRepo) Create(ctx context.Context, q Question) error {
	const stmt = `
INSERT INTO questions (id, organisation_id, question_text, is_active, is_common, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := p.db.ExecContext(ctx, stmt, q.ID, q.OrganisationID, q.QuestionText, q.IsActive, q.IsCommon, q.CreatedAt)
	return err
}

func (p *PostgresRepo) Get(ctx context.Context, organisationID, id string) (Question, error) {
	const q = `
SELECT id, organisation_id, question_text, is_active, is_common, created_at
FROM questions
WHERE organisation_id = $1 AND id = $2
`
	var out Question
	if err := p.db.QueryRowContext(ctx, q, organisationID, id).Scan(
		&out.ID,
		&out.OrganisationID,
		&out.QuestionText,
		&out.IsActive,
		&out.IsCommon,
		&out.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrNotFound
		}
		return Question{}, err
	}
	return out, nil
}

func (p *PostgresRepo) List(ctx context.Context, organisationID string) ([]Question, error) {
	return p.query(ctx, `
SELECT id, organisation_id, question_text, is_active, is_common, created_at
FROM questions
WHERE organisation_id = $1
ORDER BY created_at, id
`, organisationID)
}

func (p *PostgresRepo) ActiveCommon(ctx context.Context, organisationID string) ([]Question, error) {
	return p.query(ctx, `
SELECT id, organisation_id, question_text, is_active, is_common, created_at
FROM questions
WHERE organisation_id = $1 AND is_active AND is_common
ORDER BY created_at, id
`, organisationID)
}

func (p *PostgresRepo) query(ctx context.Context, q string, args ...any) ([]Question, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var qu Question
		if err := rows.Scan(&qu.ID, &qu.OrganisationID, &qu.QuestionText, &qu.IsActive, &qu.IsCommon, &qu.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, qu)
	}
	return out, rows.Err()
}

func (p *PostgresRepo) Update(ctx context.Context, organisationID, id string, u QuestionUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.QuestionText != nil {
		args = append(args, *u.QuestionText)
		sets = append(sets, fmt.Sprintf("question_text = $%d", len(args)))
	}
	if u.IsActive != nil {
		args = append(args, *u.IsActive)
		sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if u.IsCommon != nil {
		args = append(args, *u.IsCommon)
		sets = append(sets, fmt.Sprintf("is_common = $%d", len(args)))
	}
	if len(sets) == 0 {
		return ErrInvalidArgument
	}
	args = append(args, organisationID, id)
	q := fmt.Sprintf("UPDATE questions SET %s WHERE organisation_id = $%d AND id = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args))
	res, err := p.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (p *PostgresRepo) Delete(ctx context.Context, organisationID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM questions WHERE organisation_id = $1 AND id = $2`, organisationID, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresRepo) InsertAnswers(ctx context.Context, answers []Answer) error {
	if len(answers) == 0 {
		return nil
	}
	return utils.WithTx(ctx, p.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return InsertAnswersTx(ctx, tx, answers)
	})
}

// InsertAnswersTx inserts answers inside an existing transaction.
func InsertAnswersTx(ctx context.Context, tx *sql.Tx, answers []Answer) error {
	const q = `
INSERT INTO answers (id, call_record_id, question_id, answer_text, created_at)
VALUES ($1,$2,$3,$4,$5)
`
	for _, a := range answers {
		if _, err := tx.ExecContext(ctx, q, a.ID, a.CallRecordID, a.QuestionID, a.AnswerText, a.CreatedAt); err != nil {
			return fmt.Errorf("insert answer for question %s: %w", a.QuestionID, err)
		}
	}
	return nil
}

func (p *PostgresRepo) AnswersForCall(ctx context.Context, organisationID, callRecordID string) ([]AnswerView, error) {
	const q = `
SELECT a.question_id, q.question_text, a.answer_text, a.created_at
FROM answers a
JOIN questions q ON q.id = a.question_id
JOIN call_records c ON c.id = a.call_record_id
WHERE a.call_record_id = $1 AND c.organisation_id = $2
ORDER BY a.created_at, q.question_text
`
	rows, err := p.db.QueryContext(ctx, q, callRecordID, organisationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnswerView
	for rows.Next() {
		var v AnswerView
		if err := rows.Scan(&v.QuestionID, &v.QuestionText, &v.AnswerText, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
