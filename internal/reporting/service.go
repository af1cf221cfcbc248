// Package reporting aggregates call records for dashboards and exports call logs.
package reporting

import (
	"context"
	"errors"

	"call-insights/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

type Service struct {
	src Source
}

func NewService(src Source) *Service { return &Service{src: src} }

func validRange(r TimeRange) bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

func (s *Service) Summary(ctx context.Context, req SummaryRequest) (Summary, error) {
	if req.OrganisationID == "" || !validRange(req.Range) {
		return Summary{}, ErrInvalidRequest
	}
	if s.src == nil {
		return Summary{}, errors.New("reporting: source not configured")
	}

	rows, err := s.src.ListCalls(ctx, req.OrganisationID, req.Range.From, req.Range.To)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{
		OrganisationID: req.OrganisationID,
		Range:          req.Range,
		ByStatus:       map[string]int{},
		ByRequestType:  map[string]int{},
		BySentiment:    map[string]int{},
		ByCallType:     map[string]int{},
	}
	for _, r := range rows {
		out.TotalCalls++
		out.ByStatus[string(r.Status)]++
		out.ByCallType[r.CallType]++
		if r.RequestType == nil || *r.RequestType == "" {
			out.Unclassified++
			continue
		}
		out.ByRequestType[*r.RequestType]++
		if r.CallerSentiment != nil && *r.CallerSentiment != "" {
			out.BySentiment[*r.CallerSentiment]++
		}
	}
	for _, st := range []calls.Status{calls.StatusProcessing, calls.StatusComplete, calls.StatusFailed} {
		if _, ok := out.ByStatus[string(st)]; !ok {
			out.ByStatus[string(st)] = 0
		}
	}
	return out, nil
}
