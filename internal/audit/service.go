package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only: there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records pipeline progress and admin actions.
// Audit is internal-only and callers treat failures as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.OrganisationID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogStage records the outcome of one pipeline stage for a call record.
func (s *Service) LogStage(ctx context.Context, organisationID, callRecordID, stage string, failed bool, message string) error {
	t := EventTypeStageCompleted
	if failed {
		t = EventTypeStageFailed
	}
	return s.Append(ctx, Event{
		OrganisationID: organisationID,
		Type:           t,
		CallRecordID:   callRecordID,
		Stage:          stage,
		Message:        message,
	})
}

// LogRecordUpdated records the pipeline's final write. fields lists the columns set.
func (s *Service) LogRecordUpdated(ctx context.Context, organisationID, callRecordID string, fields []string, answers int) error {
	meta, err := json.Marshal(map[string]any{"fields": fields, "answers": answers})
	if err != nil {
		return err
	}
	return s.Append(ctx, Event{
		OrganisationID: organisationID,
		Type:           EventTypeRecordUpdated,
		CallRecordID:   callRecordID,
		Message:        "call record finalised",
		Metadata:       string(meta),
	})
}

// LogAdminAction records a manual change made through the API.
func (s *Service) LogAdminAction(ctx context.Context, organisationID, actorUserID, actorRole, callRecordID, message string) error {
	return s.Append(ctx, Event{
		OrganisationID: organisationID,
		Type:           EventTypeAdminAction,
		ActorUserID:    actorUserID,
		ActorRole:      actorRole,
		CallRecordID:   callRecordID,
		Message:        message,
	})
}
