package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// SummaryRequest asks for aggregated call record counts.
// Organisation isolation: OrganisationID is required.
type SummaryRequest struct {
	OrganisationID string    `json:"organisation_id"`
	Range          TimeRange `json:"range"`
}

type Summary struct {
	OrganisationID string    `json:"organisation_id"`
	Range          TimeRange `json:"range"`

	TotalCalls int `json:"total_calls"`

	ByStatus      map[string]int `json:"by_status"`
	ByRequestType map[string]int `json:"by_request_type"`
	BySentiment   map[string]int `json:"by_sentiment"`
	ByCallType    map[string]int `json:"by_call_type"`

	// Unclassified counts records with no form yet (pending or failed).
	Unclassified int `json:"unclassified"`
}

// ExportRequest selects the call logs written to a spreadsheet.
type ExportRequest struct {
	OrganisationID string    `json:"organisation_id"`
	Range          TimeRange `json:"range"`
}
