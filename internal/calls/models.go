package calls

import (
	"time"
)

// CallRecord is one uploaded call recording and everything extracted from it.
//
// Lifecycle:
// - Created at upload with filename metadata only, status processing.
// - Mutated once by the pipeline, as a single CallRecordUpdate, to complete or failed.
// - organisation_id is required on every row and every query.
type CallRecord struct {
	ID             string `json:"id"`
	OrganisationID string `json:"organisation_id"`
	Filename       string `json:"filename"`

	CallType       string  `json:"call_type"`
	TollFreeDID    *string `json:"toll_free_did"`
	AgentExtension *string `json:"agent_extension"`
	CustomerNumber string  `json:"customer_number"`
	CallDate       string  `json:"call_date"`
	CallStartTime  string  `json:"call_start_time"`
	CallID         string  `json:"call_id"`

	Status        Status  `json:"status"`
	FailureReason *string `json:"failure_reason,omitempty"`

	Transcription   *string `json:"transcription"`
	ReportGenerated *string `json:"report_generated"`
	CallLog         *string `json:"call_log"`
	ResponderName   *string `json:"responder_name"`
	CallerName      *string `json:"caller_name"`
	RequestType     *string `json:"request_type"`
	IssueSummary    *string `json:"issue_summary"`
	CallerSentiment *string `json:"caller_sentiment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusComplete, StatusFailed:
		return true
	}
	return false
}

var (
	RequestTypes = []string{"technical support", "billing", "new connection"}
	Sentiments   = []string{"happy", "sad", "angry", "frustrated"}
)

// CallRecordUpdate is a partial update. Nil fields are left unchanged.
type CallRecordUpdate struct {
	Status        *Status
	FailureReason *string

	Transcription   *string
	ReportGenerated *string
	CallLog         *string
	ResponderName   *string
	CallerName      *string
	RequestType     *string
	IssueSummary    *string
	CallerSentiment *string
}

func (u CallRecordUpdate) IsEmpty() bool {
	return len(u.assignments()) == 0
}

// Apply merges u into r.
func (u CallRecordUpdate) Apply(r *CallRecord) {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.FailureReason != nil {
		r.FailureReason = ptr(*u.FailureReason)
	}
	if u.Transcription != nil {
		r.Transcription = ptr(*u.Transcription)
	}
	if u.ReportGenerated != nil {
		r.ReportGenerated = ptr(*u.ReportGenerated)
	}
	if u.CallLog != nil {
		r.CallLog = ptr(*u.CallLog)
	}
	if u.ResponderName != nil {
		r.ResponderName = ptr(*u.ResponderName)
	}
	if u.CallerName != nil {
		r.CallerName = ptr(*u.CallerName)
	}
	if u.RequestType != nil {
		r.RequestType = ptr(*u.RequestType)
	}
	if u.IssueSummary != nil {
		r.IssueSummary = ptr(*u.IssueSummary)
	}
	if u.CallerSentiment != nil {
		r.CallerSentiment = ptr(*u.CallerSentiment)
	}
}

// Columns names the columns u sets, in a fixed order.
func (u CallRecordUpdate) Columns() []string {
	as := u.assignments()
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.column
	}
	return out
}

type assignment struct {
	column string
	value  any
}

// assignments lists the set columns in a fixed order.
func (u CallRecordUpdate) assignments() []assignment {
	var out []assignment
	add := func(col string, v *string) {
		if v != nil {
			out = append(out, assignment{col, *v})
		}
	}
	if u.Status != nil {
		out = append(out, assignment{"status", string(*u.Status)})
	}
	add("failure_reason", u.FailureReason)
	add("transcription", u.Transcription)
	add("report_generated", u.ReportGenerated)
	add("call_log", u.CallLog)
	add("responder_name", u.ResponderName)
	add("caller_name", u.CallerName)
	add("request_type", u.RequestType)
	add("issue_summary", u.IssueSummary)
	add("caller_sentiment", u.CallerSentiment)
	return out
}

func ptr[T any](v T) *T { return &v }
