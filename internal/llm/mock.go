package llm

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockGenerator returns canned replies for USE_MOCK_LLM=true runs.
// Structured requests get a valid form, questionnaire requests an empty answer list,
// everything else an echo of the first part of the user prompt.
type MockGenerator struct{}

func (MockGenerator) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	var system, user string
	for _, m := range input {
		switch m.Role {
		case schema.System:
			system += m.Content
		case schema.User:
			user = m.Content
		}
	}

	switch {
	case strings.Contains(system, jsonInstruction):
		return schema.AssistantMessage(`{"responder_name":"null","caller_name":"null","request_type":"technical support","issue_summary":"MOCK: caller reported an issue.","caller_sentiment":"frustrated"}`, nil), nil
	case strings.Contains(system, `"answers"`):
		return schema.AssistantMessage(`{"answers":[]}`, nil), nil
	}

	if len(user) > 120 {
		user = user[:120]
	}
	return schema.AssistantMessage("MOCK: "+user, nil), nil
}
