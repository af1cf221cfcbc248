// Package sanitize redacts PII from transcripts: deterministic pattern masking first,
// then a contextual LLM redaction pass.
package sanitize

import (
	"context"
	"errors"
	"fmt"

	"call-insights/internal/llm"

	"github.com/cloudwego/eino/components/model"
)

var ErrEmptyRedaction = errors.New("sanitize: redaction returned no text")

const redactionTemperature = 0.1

// Completer is the LLM call shape the redaction pass needs.
type Completer interface {
	Complete(ctx context.Context, system, user string, opts ...model.Option) (string, error)
}

type Service struct {
	llm    Completer
	prompt string
}

// NewService returns a sanitizer using prompt as the redaction instruction.
func NewService(c Completer, prompt string) *Service {
	return &Service{llm: c, prompt: prompt}
}

// Sanitize never degrades: if the LLM pass fails, no text is returned.
func (s *Service) Sanitize(ctx context.Context, transcript string) (string, error) {
	masked := MaskPatterns(transcript)

	reply, err := s.llm.Complete(ctx, s.prompt, masked, model.WithTemperature(redactionTemperature))
	if err != nil {
		return "", fmt.Errorf("sanitize: llm redaction: %w", err)
	}
	out := llm.StripReasoning(reply)
	if out == "" {
		return "", ErrEmptyRedaction
	}
	return out, nil
}
