package memory

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	const q = `
INSERT INTO memory (id, user_id, organisation_id, role, content, timestamp)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.UserID, e.OrganisationID, string(e.Role), e.Content, e.Timestamp)
	return err
}

func (r *PostgresRepo) Recent(ctx context.Context, organisationID, userID string, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	const q = `
SELECT id, user_id, organisation_id, role, content, timestamp
FROM memory
WHERE organisation_id = $1 AND user_id = $2
ORDER BY timestamp DESC, id DESC
LIMIT $3
`
	rows, err := r.db.QueryContext(ctx, q, organisationID, userID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.OrganisationID, &e.Role, &e.Content, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reverse(out), nil
}
