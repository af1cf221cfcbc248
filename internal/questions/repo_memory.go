package questions

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests and local runs. Answers are
// organisation-checked through their question.
type MemoryRepo struct {
	mu        sync.Mutex
	questions map[string]Question
	answers   []Answer
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{questions: map[string]Question{}}
}

func (m *MemoryRepo) Create(ctx context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, organisationID, id string) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok || q.OrganisationID != organisationID {
		return Question{}, ErrNotFound
	}
	return q, nil
}

func (m *MemoryRepo) filter(organisationID string, keep func(Question) bool) []Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Question
	for _, q := range m.questions {
		if q.OrganisationID == organisationID && keep(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemoryRepo) List(ctx context.Context, organisationID string) ([]Question, error) {
	return m.filter(organisationID, func(Question) bool { return true }), nil
}

func (m *MemoryRepo) ActiveCommon(ctx context.Context, organisationID string) ([]Question, error) {
	return m.filter(organisationID, func(q Question) bool { return q.IsActive && q.IsCommon }), nil
}

func (m *MemoryRepo) Update(ctx context.Context, organisationID, id string, u QuestionUpdate) error {
	if u.QuestionText == nil && u.IsActive == nil && u.IsCommon == nil {
		return ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok || q.OrganisationID != organisationID {
		return ErrNotFound
	}
	if u.QuestionText != nil {
		q.QuestionText = *u.QuestionText
	}
	if u.IsActive != nil {
		q.IsActive = *u.IsActive
	}
	if u.IsCommon != nil {
		q.IsCommon = *u.IsCommon
	}
	m.questions[id] = q
	return nil
}

func (m *MemoryRepo) Delete(ctx context.Context, organisationID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok || q.OrganisationID != organisationID {
		return ErrNotFound
	}
	delete(m.questions, id)
	kept := m.answers[:0]
	for _, a := range m.answers {
		if a.QuestionID != id {
			kept = append(kept, a)
		}
	}
	m.answers = kept
	return nil
}

func (m *MemoryRepo) InsertAnswers(ctx context.Context, answers []Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range answers {
		if _, ok := m.questions[a.QuestionID]; !ok {
			return ErrNotFound
		}
	}
	m.answers = append(m.answers, answers...)
	return nil
}

func (m *MemoryRepo) AnswersForCall(ctx context.Context, organisationID, callRecordID string) ([]AnswerView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AnswerView
	for _, a := range m.answers {
		q, ok := m.questions[a.QuestionID]
		if a.CallRecordID != callRecordID || !ok || q.OrganisationID != organisationID {
			continue
		}
		out = append(out, AnswerView{
			QuestionID:   a.QuestionID,
			QuestionText: q.QuestionText,
			AnswerText:   a.AnswerText,
			CreatedAt:    a.CreatedAt,
		})
	}
	return out, nil
}
