package pipeline

import (
	"context"
	"time"

	"call-insights/internal/agents"
	"call-insights/internal/calls"
	"call-insights/internal/questions"
	"call-insights/internal/transcription"

	"github.com/google/uuid"
)

type Records interface {
	Get(ctx context.Context, organisationID, id string) (calls.CallRecord, error)
	MarkFailed(ctx context.Context, organisationID, id, reason string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, key, prompt string) (transcription.Result, error)
}

type Sanitizer interface {
	Sanitize(ctx context.Context, transcript string) (string, error)
}

type TextAgent interface {
	Run(ctx context.Context, transcript string) (string, error)
}

type FormAgent interface {
	Run(ctx context.Context, transcript string) (agents.Form, error)
}

type QuestionnaireAgent interface {
	Run(ctx context.Context, transcript string, questions []string) (string, error)
}

type QuestionSource interface {
	ActiveCommon(ctx context.Context, organisationID string) ([]questions.Question, error)
}

// Finalizer writes the completed record and its answers in one unit.
type Finalizer interface {
	Finalize(ctx context.Context, organisationID, recordID string, u calls.CallRecordUpdate, answers []questions.Answer) error
}

type AuditLog interface {
	LogStage(ctx context.Context, organisationID, callRecordID, stage string, failed bool, message string) error
	LogRecordUpdated(ctx context.Context, organisationID, callRecordID string, fields []string, answers int) error
}

// Deps holds every collaborator of the processor. All fields except Audit are required.
type Deps struct {
	Records       Records
	Transcriber   Transcriber
	Sanitizer     Sanitizer
	CallLog       TextAgent
	Report        TextAgent
	Form          FormAgent
	Questionnaire QuestionnaireAgent
	Questions     QuestionSource
	Finalizer     Finalizer
	Audit         AuditLog

	// TranscriptionPrompt is the vocabulary hint sent with every provider call.
	TranscriptionPrompt string

	Clock func() time.Time
	NewID func() string
}

func (d *Deps) withDefaults() {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
}
