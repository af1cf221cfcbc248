// Package agents holds the LLM extraction stages run over a sanitized call transcript.
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"call-insights/internal/llm"

	"github.com/cloudwego/eino/components/model"
)

// ErrNoStructuredOutput means the form agent produced nothing usable. The pipeline
// treats it as fatal.
var ErrNoStructuredOutput = errors.New("agents: no structured output")

// TextModel is satisfied by *llm.Client.
type TextModel interface {
	Complete(ctx context.Context, system, user string, opts ...model.Option) (string, error)
}

// StructuredModel is satisfied by *llm.Client.
type StructuredModel interface {
	CompleteJSON(ctx context.Context, system, user string, out any, opts ...model.Option) error
}

type CallLogAgent struct {
	llm    TextModel
	prompt string
}

func NewCallLogAgent(m TextModel, prompt string) *CallLogAgent {
	return &CallLogAgent{llm: m, prompt: prompt}
}

func (a *CallLogAgent) Run(ctx context.Context, transcript string) (string, error) {
	out, err := a.llm.Complete(ctx, a.prompt, transcript)
	if err != nil {
		return "", fmt.Errorf("call log agent: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ReportAgent usually runs on a reasoning model; its thinking blocks are removed.
type ReportAgent struct {
	llm    TextModel
	prompt string
}

func NewReportAgent(m TextModel, prompt string) *ReportAgent {
	return &ReportAgent{llm: m, prompt: prompt}
}

func (a *ReportAgent) Run(ctx context.Context, transcript string) (string, error) {
	out, err := a.llm.Complete(ctx, a.prompt, transcript)
	if err != nil {
		return "", fmt.Errorf("report agent: %w", err)
	}
	report := llm.StripReasoning(out)
	if report == "" {
		return "", fmt.Errorf("report agent: %w", llm.ErrEmptyResponse)
	}
	return report, nil
}

// Form is the structured extraction written onto the call record.
type Form struct {
	ResponderName   string `json:"responder_name" validate:"required"`
	CallerName      string `json:"caller_name" validate:"required"`
	RequestType     string `json:"request_type" validate:"required,oneof='technical support' billing 'new connection'"`
	IssueSummary    string `json:"issue_summary" validate:"required"`
	CallerSentiment string `json:"caller_sentiment" validate:"required,oneof=happy sad angry frustrated"`
}

// Normalize trims every field and lower-cases the enumerated ones.
func (f *Form) Normalize() {
	f.ResponderName = strings.TrimSpace(f.ResponderName)
	f.CallerName = strings.TrimSpace(f.CallerName)
	f.IssueSummary = strings.TrimSpace(f.IssueSummary)
	f.RequestType = strings.ToLower(strings.Join(strings.Fields(f.RequestType), " "))
	f.CallerSentiment = strings.ToLower(strings.TrimSpace(f.CallerSentiment))
}

type FormAgent struct {
	llm    StructuredModel
	prompt string
}

func NewFormAgent(m StructuredModel, prompt string) *FormAgent {
	return &FormAgent{llm: m, prompt: prompt}
}

func (a *FormAgent) Run(ctx context.Context, transcript string) (Form, error) {
	var f Form
	if err := a.llm.CompleteJSON(ctx, a.prompt, transcript, &f); err != nil {
		return Form{}, fmt.Errorf("%w: %v", ErrNoStructuredOutput, err)
	}
	return f, nil
}
