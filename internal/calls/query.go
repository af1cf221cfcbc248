package calls

import (
	"fmt"
	"slices"
	"time"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ListQuery filters an organisation's records. Exact fields match verbatim; the
// substring fields match case-insensitively.
type ListQuery struct {
	OrganisationID string

	Status          Status
	CallType        string
	RequestType     string
	CallerSentiment string

	CallerName    string
	ResponderName string
	IssueSummary  string
	CallID        string

	CreatedFrom time.Time
	CreatedTo   time.Time

	Limit  int
	Offset int

	SortBy   string
	SortDesc bool
}

var sortable = []string{
	"created_at", "updated_at", "call_date", "call_start_time",
	"caller_name", "responder_name", "status", "request_type", "caller_sentiment",
}

// selectable is the allow-list for column projections.
var selectable = []string{
	"id", "filename", "call_type", "toll_free_did", "agent_extension", "customer_number",
	"call_date", "call_start_time", "call_id", "status", "failure_reason",
	"transcription", "report_generated", "call_log", "responder_name", "caller_name",
	"request_type", "issue_summary", "caller_sentiment", "created_at", "updated_at",
}

// SelectableColumns returns the columns that may be requested by name.
func SelectableColumns() []string { return slices.Clone(selectable) }

// Normalize applies defaults and rejects unknown sort columns or bad paging.
func (q *ListQuery) Normalize() error {
	if q.OrganisationID == "" {
		return ErrInvalidArgument
	}
	if q.Status != "" && !q.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidArgument, q.Status)
	}
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Offset < 0 {
		return fmt.Errorf("%w: negative offset", ErrInvalidArgument)
	}
	if q.SortBy == "" {
		q.SortBy = "created_at"
		q.SortDesc = true
	}
	if !slices.Contains(sortable, q.SortBy) {
		return fmt.Errorf("%w: cannot sort by %q", ErrInvalidArgument, q.SortBy)
	}
	return nil
}

func validateColumns(cols []string) error {
	if len(cols) == 0 {
		return fmt.Errorf("%w: no columns requested", ErrInvalidArgument)
	}
	for _, c := range cols {
		if !slices.Contains(selectable, c) {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidArgument, c)
		}
	}
	return nil
}
