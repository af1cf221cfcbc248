package memory

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

// Recent relies on append order matching timestamp order.
func (r *MemoryRepo) Recent(ctx context.Context, organisationID, userID string, n int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for i := len(r.entries) - 1; i >= 0 && len(out) < n; i-- {
		e := r.entries[i]
		if e.OrganisationID == organisationID && e.UserID == userID {
			out = append(out, e)
		}
	}
	return reverse(out), nil
}

// All returns every stored entry in append order.
func (r *MemoryRepo) All() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
