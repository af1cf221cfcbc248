package pipeline

import (
	"context"
	"database/sql"
	"time"

	"call-insights/internal/calls"
	"call-insights/internal/questions"
	"call-insights/pkg/utils"
)

// SQLFinalizer applies the record update and inserts answers in one transaction.
type SQLFinalizer struct {
	db    *sql.DB
	clock func() time.Time
}

func NewSQLFinalizer(db *sql.DB) *SQLFinalizer {
	return &SQLFinalizer{db: db, clock: time.Now}
}

func (f *SQLFinalizer) Finalize(ctx context.Context, organisationID, recordID string, u calls.CallRecordUpdate, answers []questions.Answer) error {
	return utils.WithTx(ctx, f.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := calls.ApplyUpdateTx(ctx, tx, organisationID, recordID, u, f.clock().UTC()); err != nil {
			return err
		}
		return questions.InsertAnswersTx(ctx, tx, answers)
	})
}

// RepoFinalizer writes through repositories in sequence, answers first. It backs
// the in-memory stores, which have no transactions.
type RepoFinalizer struct {
	Calls   calls.Repository
	Answers questions.Repository
}

func (f RepoFinalizer) Finalize(ctx context.Context, organisationID, recordID string, u calls.CallRecordUpdate, answers []questions.Answer) error {
	if len(answers) > 0 {
		if err := f.Answers.InsertAnswers(ctx, answers); err != nil {
			return err
		}
	}
	return f.Calls.ApplyUpdate(ctx, organisationID, recordID, u)
}
