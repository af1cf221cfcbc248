package reporting

import (
	"context"
	"time"

	"call-insights/internal/calls"
)

// Source returns every call record of an organisation created in [from, to).
type Source interface {
	ListCalls(ctx context.Context, organisationID string, from, to time.Time) ([]calls.CallRecord, error)
}

// CallsSource pages through a calls.Repository.
type CallsSource struct {
	Repo calls.Repository

	// PageSize defaults to calls.MaxListLimit.
	PageSize int
}

func (s CallsSource) ListCalls(ctx context.Context, organisationID string, from, to time.Time) ([]calls.CallRecord, error) {
	size := s.PageSize
	if size <= 0 || size > calls.MaxListLimit {
		size = calls.MaxListLimit
	}
	var out []calls.CallRecord
	for offset := 0; ; offset += size {
		q := calls.ListQuery{
			OrganisationID: organisationID,
			CreatedFrom:    from,
			CreatedTo:      to,
			Limit:          size,
			Offset:         offset,
			SortBy:         "created_at",
		}
		if err := q.Normalize(); err != nil {
			return nil, err
		}
		page, err := s.Repo.List(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < size {
			return out, nil
		}
	}
}
