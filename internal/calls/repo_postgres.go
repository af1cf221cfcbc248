package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"call-insights/pkg/utils"
)

// NOTE: This repository assumes the call_records table from migrations/0001_init.sql,
// including UNIQUE (organisation_id, filename).

const recordColumns = `
id, organisation_id, filename, call_type, toll_free_did, agent_extension, customer_number,
call_date, call_start_time, call_id, status, failure_reason, transcription, report_generated,
call_log, responder_name, caller_name, request_type, issue_summary, caller_sentiment,
created_at, updated_at`

type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (CallRecord, error) {
	var (
		r                                                             CallRecord
		tollFree, agentExt, failure, transcript, report, callLog      sql.NullString
		responder, caller, requestType, issueSummary, callerSentiment sql.NullString
	)
	if err := s.Scan(
		&r.ID,
		&r.OrganisationID,
		&r.Filename,
		&r.CallType,
		&tollFree,
		&agentExt,
		&r.CustomerNumber,
		&r.CallDate,
		&r.CallStartTime,
		&r.CallID,
		&r.Status,
		&failure,
		&transcript,
		&report,
		&callLog,
		&responder,
		&caller,
		&requestType,
		&issueSummary,
		&callerSentiment,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return CallRecord{}, err
	}
	r.TollFreeDID = utils.StringPtr(tollFree)
	r.AgentExtension = utils.StringPtr(agentExt)
	r.FailureReason = utils.StringPtr(failure)
	r.Transcription = utils.StringPtr(transcript)
	r.ReportGenerated = utils.StringPtr(report)
	r.CallLog = utils.StringPtr(callLog)
	r.ResponderName = utils.StringPtr(responder)
	r.CallerName = utils.StringPtr(caller)
	r.RequestType = utils.StringPtr(requestType)
	r.IssueSummary = utils.StringPtr(issueSummary)
	r.CallerSentiment = utils.StringPtr(callerSentiment)
	return r, nil
}

func (p *PostgresRepo) Create(ctx context.Context, r CallRecord) error {
	const q = `
INSERT INTO call_records (
  id, organisation_id, filename, call_type, toll_free_did, agent_extension, customer_number,
  call_date, call_start_time, call_id, status, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
`
	_, err := p.db.ExecContext(ctx, q,
		r.ID,
		r.OrganisationID,
		r.Filename,
		r.CallType,
		utils.NullStringPtr(r.TollFreeDID),
		utils.NullStringPtr(r.AgentExtension),
		r.CustomerNumber,
		r.CallDate,
		r.CallStartTime,
		r.CallID,
		string(r.Status),
		r.CreatedAt,
		r.UpdatedAt,
	)
	if utils.IsUniqueViolation(err) {
		return ErrDuplicateFilename
	}
	return err
}

func (p *PostgresRepo) Get(ctx context.Context, organisationID, id string) (CallRecord, error) {
	q := `SELECT ` + recordColumns + `
FROM call_records
WHERE organisation_id = $1 AND id = $2
`
	r, err := scanRecord(p.db.QueryRowContext(ctx, q, organisationID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, err
	}
	return r, nil
}

func (p *PostgresRepo) ExistsByFilename(ctx context.Context, organisationID, filename string) (bool, error) {
	const q = `
SELECT EXISTS (SELECT 1 FROM call_records WHERE organisation_id = $1 AND filename = $2)
`
	var ok bool
	if err := p.db.QueryRowContext(ctx, q, organisationID, filename).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// buildList renders q into a WHERE/ORDER/LIMIT clause. q must be normalized.
func buildList(q ListQuery) (string, []any) {
	var (
		where = []string{"organisation_id = $1"}
		args  = []any{q.OrganisationID}
	)
	eq := func(col, v string) {
		if v != "" {
			args = append(args, v)
			where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	like := func(col, v string) {
		if v != "" {
			args = append(args, "%"+escapeLike(v)+"%")
			where = append(where, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
		}
	}
	eq("status", string(q.Status))
	eq("call_type", q.CallType)
	eq("request_type", q.RequestType)
	eq("caller_sentiment", q.CallerSentiment)
	like("caller_name", q.CallerName)
	like("responder_name", q.ResponderName)
	like("issue_summary", q.IssueSummary)
	like("call_id", q.CallID)
	if !q.CreatedFrom.IsZero() {
		args = append(args, q.CreatedFrom)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !q.CreatedTo.IsZero() {
		args = append(args, q.CreatedTo)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}

	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	args = append(args, q.Limit, q.Offset)
	clause := fmt.Sprintf("WHERE %s\nORDER BY %s %s, id\nLIMIT $%d OFFSET $%d",
		strings.Join(where, " AND "), q.SortBy, dir, len(args)-1, len(args))
	return clause, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (p *PostgresRepo) List(ctx context.Context, q ListQuery) ([]CallRecord, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	clause, args := buildList(q)
	rows, err := p.db.QueryContext(ctx, `SELECT `+recordColumns+`
FROM call_records
`+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresRepo) Columns(ctx context.Context, organisationID string, cols []string, limit int) ([]map[string]any, error) {
	if err := validateColumns(cols); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	// cols are allow-listed above, so they are safe to interpolate.
	q := fmt.Sprintf(`SELECT %s
FROM call_records
WHERE organisation_id = $1
ORDER BY created_at DESC
LIMIT $2`, strings.Join(cols, ", "))

	rows, err := p.db.QueryContext(ctx, q, organisationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (p *PostgresRepo) ApplyUpdate(ctx context.Context, organisationID, id string, u CallRecordUpdate) error {
	return utils.WithTx(ctx, p.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return ApplyUpdateTx(ctx, tx, organisationID, id, u, p.clock().UTC())
	})
}

// ApplyUpdateTx writes every set field of u in one UPDATE statement inside tx.
func ApplyUpdateTx(ctx context.Context, tx *sql.Tx, organisationID, id string, u CallRecordUpdate, now time.Time) error {
	as := u.assignments()
	if len(as) == 0 {
		return fmt.Errorf("%w: empty update", ErrInvalidArgument)
	}

	sets := make([]string, 0, len(as)+1)
	args := make([]any, 0, len(as)+3)
	for _, a := range as {
		args = append(args, a.value)
		sets = append(sets, fmt.Sprintf("%s = $%d", a.column, len(args)))
	}
	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, organisationID, id)

	q := fmt.Sprintf("UPDATE call_records SET %s WHERE organisation_id = $%d AND id = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args))
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresRepo) Delete(ctx context.Context, organisationID, id string) error {
	const q = `DELETE FROM call_records WHERE organisation_id = $1 AND id = $2`
	res, err := p.db.ExecContext(ctx, q, organisationID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
