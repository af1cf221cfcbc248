package questions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo  Repository
	clock func() time.Time
	newID func() string
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now, newID: uuid.NewString}
}

// Create adds an active question. Common questions are asked of every call.
func (s *Service) Create(ctx context.Context, organisationID, text string, isCommon bool) (Question, error) {
	text = strings.TrimSpace(text)
	if organisationID == "" || text == "" {
		return Question{}, ErrInvalidArgument
	}
	q := Question{
		ID:             s.newID(),
		OrganisationID: organisationID,
		QuestionText:   text,
		IsActive:       true,
		IsCommon:       isCommon,
		CreatedAt:      s.clock().UTC(),
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *Service) List(ctx context.Context, organisationID string) ([]Question, error) {
	return s.repo.List(ctx, organisationID)
}

func (s *Service) ActiveCommon(ctx context.Context, organisationID string) ([]Question, error) {
	return s.repo.ActiveCommon(ctx, organisationID)
}

func (s *Service) Update(ctx context.Context, organisationID, id string, u QuestionUpdate) (Question, error) {
	if u.QuestionText != nil {
		t := strings.TrimSpace(*u.QuestionText)
		if t == "" {
			return Question{}, ErrInvalidArgument
		}
		u.QuestionText = &t
	}
	if err := s.repo.Update(ctx, organisationID, id, u); err != nil {
		return Question{}, err
	}
	return s.repo.Get(ctx, organisationID, id)
}

func (s *Service) Delete(ctx context.Context, organisationID, id string) error {
	return s.repo.Delete(ctx, organisationID, id)
}

func (s *Service) AnswersForCall(ctx context.Context, organisationID, callRecordID string) ([]AnswerView, error) {
	return s.repo.AnswersForCall(ctx, organisationID, callRecordID)
}

// NewAnswer builds an answer row stamped with the service clock.
func (s *Service) NewAnswer(callRecordID, questionID, text string) Answer {
	return Answer{
		ID:           s.newID(),
		CallRecordID: callRecordID,
		QuestionID:   questionID,
		AnswerText:   text,
		CreatedAt:    s.clock().UTC(),
	}
}
