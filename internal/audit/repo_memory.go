package audit

import (
	"context"
	"sync"
)

// MemoryRepo keeps audit events in process, in append order.
type MemoryRepo struct {
	mu  sync.RWMutex
	log []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.log = append(r.log, e)
	r.mu.Unlock()
	return nil
}

// Events returns a snapshot of every event.
func (r *MemoryRepo) Events() []Event {
	return r.filter(func(Event) bool { return true })
}

// OfType returns the recorded events of type t, oldest first.
func (r *MemoryRepo) OfType(t EventType) []Event {
	return r.filter(func(e Event) bool { return e.Type == t })
}

// ForCall returns the events raised for one call record of an organisation.
func (r *MemoryRepo) ForCall(organisationID, callRecordID string) []Event {
	return r.filter(func(e Event) bool {
		return e.OrganisationID == organisationID && e.CallRecordID == callRecordID
	})
}

func (r *MemoryRepo) filter(keep func(Event) bool) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, 0, len(r.log))
	for _, e := range r.log {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
