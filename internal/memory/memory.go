// Package memory stores the per-user chat history that grounds follow-up questions.
package memory

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Entry is one append-only chat turn.
type Entry struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganisationID string    `json:"organisation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

var ErrInvalidArgument = errors.New("invalid argument")

// Repository is append-only. Recent returns at most n of the newest entries for
// the user in the organisation, oldest first.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, organisationID, userID string, n int) ([]Entry, error)
}

func (e Entry) validate() error {
	if e.UserID == "" || e.OrganisationID == "" || e.ID == "" {
		return ErrInvalidArgument
	}
	if e.Role != RoleUser && e.Role != RoleBot {
		return ErrInvalidArgument
	}
	return nil
}

// reverse flips a newest-first page into chronological order.
func reverse(es []Entry) []Entry {
	for i, j := 0, len(es)-1; i < j; i, j = i+1, j-1 {
		es[i], es[j] = es[j], es[i]
	}
	return es
}
