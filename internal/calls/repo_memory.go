package calls

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]CallRecord
	updates int
	clock   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: map[string]CallRecord{}, clock: time.Now}
}

func (m *MemoryRepo) Create(ctx context.Context, r CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.OrganisationID == r.OrganisationID && existing.Filename == r.Filename {
			return ErrDuplicateFilename
		}
	}
	m.records[r.ID] = r
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, organisationID, id string) (CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.OrganisationID != organisationID {
		return CallRecord{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryRepo) ExistsByFilename(ctx context.Context, organisationID, filename string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.OrganisationID == organisationID && r.Filename == filename {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepo) List(ctx context.Context, q ListQuery) ([]CallRecord, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	var out []CallRecord
	for _, r := range m.records {
		if matches(r, q) {
			out = append(out, r)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := sortKey(out[i], q.SortBy), sortKey(out[j], q.SortBy)
		if a != b {
			return (a < b) != q.SortDesc
		}
		return out[i].ID < out[j].ID
	})

	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

const sortableTime = "2006-01-02T15:04:05.000000000"

func sortKey(r CallRecord, col string) string {
	switch v := r.column(col).(type) {
	case time.Time:
		return v.UTC().Format(sortableTime)
	case string:
		return v
	}
	return ""
}

func matches(r CallRecord, q ListQuery) bool {
	if r.OrganisationID != q.OrganisationID {
		return false
	}
	eq := func(want string, got *string) bool {
		return want == "" || (got != nil && *got == want)
	}
	contains := func(want string, got *string) bool {
		return want == "" || (got != nil && strings.Contains(strings.ToLower(*got), strings.ToLower(want)))
	}
	switch {
	case q.Status != "" && r.Status != q.Status:
		return false
	case q.CallType != "" && r.CallType != q.CallType:
		return false
	case !eq(q.RequestType, r.RequestType), !eq(q.CallerSentiment, r.CallerSentiment):
		return false
	case !contains(q.CallerName, r.CallerName), !contains(q.ResponderName, r.ResponderName),
		!contains(q.IssueSummary, r.IssueSummary), !contains(q.CallID, &r.CallID):
		return false
	case !q.CreatedFrom.IsZero() && r.CreatedAt.Before(q.CreatedFrom):
		return false
	case !q.CreatedTo.IsZero() && !r.CreatedAt.Before(q.CreatedTo):
		return false
	}
	return true
}

func (m *MemoryRepo) Columns(ctx context.Context, organisationID string, cols []string, limit int) ([]map[string]any, error) {
	if err := validateColumns(cols); err != nil {
		return nil, err
	}
	recs, err := m.List(ctx, ListQuery{OrganisationID: organisationID, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			row[c] = r.column(c)
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *MemoryRepo) ApplyUpdate(ctx context.Context, organisationID, id string, u CallRecordUpdate) error {
	if u.IsEmpty() {
		return fmt.Errorf("%w: empty update", ErrInvalidArgument)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.OrganisationID != organisationID {
		return ErrNotFound
	}
	u.Apply(&r)
	r.UpdatedAt = m.clock().UTC()
	m.records[id] = r
	m.updates++
	return nil
}

// Updates reports how many ApplyUpdate calls succeeded.
func (m *MemoryRepo) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

func (m *MemoryRepo) Delete(ctx context.Context, organisationID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.OrganisationID != organisationID {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}
