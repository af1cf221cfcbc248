package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripReasoning(t *testing.T) {
	in := "<think>\nlet me think\nabout it</think>\n  Final answer. <think>more</think>"
	assert.Equal(t, "Final answer.", StripReasoning(in))
	assert.Equal(t, "plain", StripReasoning("  plain  "))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}```"))
	assert.Equal(t, "no fence", StripCodeFences("no fence"))
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"bare":         `{"a":1}`,
		"prose":        `Sure! {"a":{"b":"}"}} trailing`,
		"fenced":       "```json\n{\"a\":1}\n```",
		"unterminated": `{"a":`,
		"none":         "nothing here",
	}
	want := map[string]string{
		"bare":         `{"a":1}`,
		"prose":        `{"a":{"b":"}"}}`,
		"fenced":       `{"a":1}`,
		"unterminated": "",
		"none":         "",
	}
	for name, in := range cases {
		assert.Equal(t, want[name], ExtractJSON(in), name)
	}
}
