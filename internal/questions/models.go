// Package questions manages an organisation's standing questionnaire and the answers
// extracted for each call.
package questions

import (
	"context"
	"errors"
	"time"
)

// Question is asked of every call while it is active and common.
type Question struct {
	ID             string    `json:"id"`
	OrganisationID string    `json:"organisation_id"`
	QuestionText   string    `json:"question_text"`
	IsActive       bool      `json:"is_active"`
	IsCommon       bool      `json:"is_common"`
	CreatedAt      time.Time `json:"created_at"`
}

// Answer always references a known question. Orphans are never stored.
type Answer struct {
	ID           string    `json:"id"`
	CallRecordID string    `json:"call_record_id"`
	QuestionID   string    `json:"question_id"`
	AnswerText   string    `json:"answer_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// AnswerView is an answer joined with its question text.
type AnswerView struct {
	QuestionID   string    `json:"question_id"`
	QuestionText string    `json:"question_text"`
	AnswerText   string    `json:"answer_text"`
	CreatedAt    time.Time `json:"created_at"`
}

type QuestionUpdate struct {
	QuestionText *string `json:"question_text"`
	IsActive     *bool   `json:"is_active"`
	IsCommon     *bool   `json:"is_common"`
}

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Repository interface {
	Create(ctx context.Context, q Question) error
	Get(ctx context.Context, organisationID, id string) (Question, error)
	List(ctx context.Context, organisationID string) ([]Question, error)
	ActiveCommon(ctx context.Context, organisationID string) ([]Question, error)
	Update(ctx context.Context, organisationID, id string, u QuestionUpdate) error
	Delete(ctx context.Context, organisationID, id string) error

	InsertAnswers(ctx context.Context, answers []Answer) error
	AnswersForCall(ctx context.Context, organisationID, callRecordID string) ([]AnswerView, error)
}
