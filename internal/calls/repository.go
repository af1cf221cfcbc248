package calls

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrDuplicateFilename = errors.New("a call with this filename already exists")
	ErrNoTranscript      = errors.New("call has no transcript")
)

// Repository persists call records. Every method is organisation-scoped.
type Repository interface {
	Create(ctx context.Context, r CallRecord) error
	Get(ctx context.Context, organisationID, id string) (CallRecord, error)
	ExistsByFilename(ctx context.Context, organisationID, filename string) (bool, error)
	List(ctx context.Context, q ListQuery) ([]CallRecord, error)
	Columns(ctx context.Context, organisationID string, cols []string, limit int) ([]map[string]any, error)
	ApplyUpdate(ctx context.Context, organisationID, id string, u CallRecordUpdate) error
	Delete(ctx context.Context, organisationID, id string) error
}

// column returns the value of one selectable column.
func (r CallRecord) column(name string) any {
	str := func(p *string) any {
		if p == nil {
			return nil
		}
		return *p
	}
	switch name {
	case "id":
		return r.ID
	case "filename":
		return r.Filename
	case "call_type":
		return r.CallType
	case "toll_free_did":
		return str(r.TollFreeDID)
	case "agent_extension":
		return str(r.AgentExtension)
	case "customer_number":
		return r.CustomerNumber
	case "call_date":
		return r.CallDate
	case "call_start_time":
		return r.CallStartTime
	case "call_id":
		return r.CallID
	case "status":
		return string(r.Status)
	case "failure_reason":
		return str(r.FailureReason)
	case "transcription":
		return str(r.Transcription)
	case "report_generated":
		return str(r.ReportGenerated)
	case "call_log":
		return str(r.CallLog)
	case "responder_name":
		return str(r.ResponderName)
	case "caller_name":
		return str(r.CallerName)
	case "request_type":
		return str(r.RequestType)
	case "issue_summary":
		return str(r.IssueSummary)
	case "caller_sentiment":
		return str(r.CallerSentiment)
	case "created_at":
		return r.CreatedAt
	case "updated_at":
		return r.UpdatedAt
	}
	return nil
}
