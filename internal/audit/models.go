package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - organisation_id is required for tenancy isolation.
// - Audit writes are best-effort; processing never blocks on them.
type Event struct {
	ID             string `json:"id"`
	OrganisationID string `json:"organisation_id"`

	Type EventType `json:"type"`

	// ActorUserID is empty for events raised by the pipeline itself.
	ActorUserID string `json:"actor_user_id,omitempty"`
	ActorRole   string `json:"actor_role,omitempty"`

	CallRecordID string `json:"call_record_id,omitempty"`
	Stage        string `json:"stage,omitempty"`

	Message string `json:"message,omitempty"`

	// Metadata is optional JSON.
	Metadata string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventTypeStageCompleted EventType = "stage_completed"
	EventTypeStageFailed    EventType = "stage_failed"
	EventTypeRecordUpdated  EventType = "record_updated"
	EventTypeAdminAction    EventType = "admin_action"
)
