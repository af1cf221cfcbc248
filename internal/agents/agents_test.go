package agents

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"call-insights/internal/llm"

	"github.com/cloudwego/eino/components/model"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	text    string
	json    string
	err     error
	gotUser string
}

func (f *fakeModel) Complete(ctx context.Context, system, user string, opts ...model.Option) (string, error) {
	f.gotUser = user
	return f.text, f.err
}

func (f *fakeModel) CompleteJSON(ctx context.Context, system, user string, out any, opts ...model.Option) error {
	if f.err != nil {
		return f.err
	}
	if err := json.Unmarshal([]byte(f.json), out); err != nil {
		return err
	}
	if n, ok := out.(llm.Normalizer); ok {
		n.Normalize()
	}
	return validator.New().Struct(out)
}

func TestReportAgent_StripsReasoning(t *testing.T) {
	a := NewReportAgent(&fakeModel{text: "<think>\nplan\n</think>\n\nThe caller had no internet."}, "p")
	out, err := a.Run(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "The caller had no internet.", out)
}

func TestReportAgent_OnlyReasoningIsAnError(t *testing.T) {
	a := NewReportAgent(&fakeModel{text: "<think>plan</think>"}, "p")
	_, err := a.Run(context.Background(), "t")
	assert.Error(t, err)
}

func TestCallLogAgent_PropagatesFailure(t *testing.T) {
	a := NewCallLogAgent(&fakeModel{err: errors.New("boom")}, "p")
	_, err := a.Run(context.Background(), "t")
	assert.Error(t, err)
}

func TestFormAgent_NormalisesEnums(t *testing.T) {
	m := &fakeModel{json: `{"responder_name":" Sam ","caller_name":"Dana","request_type":"Technical  Support","issue_summary":"no dial tone","caller_sentiment":" Frustrated"}`}
	f, err := NewFormAgent(m, "p").Run(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "Sam", f.ResponderName)
	assert.Equal(t, "technical support", f.RequestType)
	assert.Equal(t, "frustrated", f.CallerSentiment)
}

func TestFormAgent_InvalidEnumIsNoStructuredOutput(t *testing.T) {
	m := &fakeModel{json: `{"responder_name":"Sam","caller_name":"Dana","request_type":"refund","issue_summary":"x","caller_sentiment":"happy"}`}
	_, err := NewFormAgent(m, "p").Run(context.Background(), "t")
	assert.ErrorIs(t, err, ErrNoStructuredOutput)
}

func TestFormAgent_ModelFailureIsNoStructuredOutput(t *testing.T) {
	_, err := NewFormAgent(&fakeModel{err: llm.ErrInvalidOutput}, "p").Run(context.Background(), "t")
	assert.ErrorIs(t, err, ErrNoStructuredOutput)
}

func TestQuestionnaireAgent_SendsQuestions(t *testing.T) {
	m := &fakeModel{text: `{"answers":[]}`}
	_, err := NewQuestionnaireAgent(m, "p").Run(context.Background(), "hello", []string{"Q1?", "Q2?"})
	require.NoError(t, err)
	assert.Contains(t, m.gotUser, "hello")
	assert.Contains(t, m.gotUser, "Q1?\nQ2?")
}

func TestParseAnswers(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"plain", `{"answers":[{"question_text":"Q1?","answer_text":"yes"}]}`, 1},
		{"fenced", "```json\n{\"answers\":[{\"question_text\":\"Q1?\",\"answer_text\":\"yes\"},{\"question_text\":\"Q2?\",\"answer_text\":\"no\"}]}\n```", 2},
		{"prose around", `Here you go: {"answers":[{"question_text":"Q1?","answer_text":"yes"}]} thanks`, 1},
		{"blank question dropped", `{"answers":[{"question_text":" ","answer_text":"yes"}]}`, 0},
		{"malformed", `{"answers":[{"question_text":`, 0},
		{"not json", "I could not answer.", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, ParseAnswers(ctx, tc.raw), tc.want)
		})
	}
}

func TestLoadPrompts_DefaultsAndOverride(t *testing.T) {
	def, err := LoadPrompts("")
	require.NoError(t, err)
	for name, p := range map[string]string{
		"call_log": def.CallLog, "report": def.Report, "form": def.Form,
		"questionnaire": def.Questionnaire, "redaction": def.Redaction, "chat": def.Chat,
	} {
		assert.NotEmpty(t, p, name)
	}
	assert.Contains(t, def.Questionnaire, `"answers"`)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("report: custom report prompt\n"), 0o600))
	p, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "custom report prompt", p.Report)
	assert.Equal(t, def.CallLog, p.CallLog)
}

func TestLoadPrompts_MissingFile(t *testing.T) {
	_, err := LoadPrompts(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
