package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"call-insights/internal/llm"
	"call-insights/pkg/logger"
)

// ParsedAnswer is one item of the questionnaire reply, before reconciliation against
// stored questions.
type ParsedAnswer struct {
	QuestionText string `json:"question_text"`
	AnswerText   string `json:"answer_text"`
}

type answerEnvelope struct {
	Answers []ParsedAnswer `json:"answers"`
}

type QuestionnaireAgent struct {
	llm    TextModel
	prompt string
}

func NewQuestionnaireAgent(m TextModel, prompt string) *QuestionnaireAgent {
	return &QuestionnaireAgent{llm: m, prompt: prompt}
}

// Run returns the raw model reply. Use ParseAnswers to decode it.
func (a *QuestionnaireAgent) Run(ctx context.Context, transcript string, questions []string) (string, error) {
	var b strings.Builder
	b.WriteString("Transcript:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nQuestions:\n")
	b.WriteString(strings.Join(questions, "\n"))

	out, err := a.llm.Complete(ctx, a.prompt, b.String())
	if err != nil {
		return "", fmt.Errorf("questionnaire agent: %w", err)
	}
	return out, nil
}

// ParseAnswers decodes {"answers":[...]} from raw, tolerating code fences and
// surrounding prose. Anything undecodable yields no answers.
func ParseAnswers(ctx context.Context, raw string) []ParsedAnswer {
	text := llm.StripCodeFences(llm.StripReasoning(raw))
	if obj := llm.ExtractJSON(text); obj != "" {
		text = obj
	}

	var env answerEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		logger.From(ctx).Warn("questionnaire reply not decodable", "err", err, "reply_len", len(raw))
		return nil
	}

	out := make([]ParsedAnswer, 0, len(env.Answers))
	for _, a := range env.Answers {
		if strings.TrimSpace(a.QuestionText) == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}
