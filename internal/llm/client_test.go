package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scripted(replies ...any) (Generator, *int32) {
	var calls int32
	return GeneratorFunc(func(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
		i := atomic.AddInt32(&calls, 1) - 1
		if int(i) >= len(replies) {
			return nil, errors.New("script exhausted")
		}
		switch r := replies[i].(type) {
		case error:
			return nil, r
		case string:
			return schema.AssistantMessage(r, nil), nil
		}
		return nil, errors.New("bad script entry")
	}), &calls
}

func fastClient(gen Generator, attempts int) *Client {
	c := NewClient(gen, "test", attempts)
	c.initialInterval = time.Millisecond
	return c
}

func TestComplete_RetriesTransientFailures(t *testing.T) {
	gen, calls := scripted(errors.New("503"), errors.New("timeout"), "ok")
	out, err := fastClient(gen, 3).Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestComplete_GivesUpAfterMaxAttempts(t *testing.T) {
	gen, calls := scripted(errors.New("a"), errors.New("b"), errors.New("c"), "late")
	_, err := fastClient(gen, 3).Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestComplete_EmptyReplyIsAnError(t *testing.T) {
	gen, _ := scripted("   ")
	_, err := fastClient(gen, 1).Complete(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

type sample struct {
	Kind string `json:"kind" validate:"required,oneof=a b"`
}

func (s *sample) Normalize() { s.Kind = strings.ToLower(s.Kind) }

func TestCompleteJSON_ValidatesAndRetries(t *testing.T) {
	gen, calls := scripted("not json", `{"kind":"z"}`, "```json\n{\"kind\":\"A\"}\n```")
	var out sample
	err := fastClient(gen, 3).CompleteJSON(context.Background(), "sys", "user", &out)
	require.NoError(t, err)
	assert.Equal(t, "a", out.Kind)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestCompleteJSON_FailsWithInvalidOutput(t *testing.T) {
	gen, _ := scripted(`{"kind":""}`)
	var out sample
	err := fastClient(gen, 1).CompleteJSON(context.Background(), "sys", "user", &out)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestComplete_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := GeneratorFunc(func(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
		cancel()
		return nil, errors.New("boom")
	})
	_, err := fastClient(gen, 5).Complete(ctx, "s", "u")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockGenerator_FormReplyValidates(t *testing.T) {
	c := fastClient(MockGenerator{}, 1)
	var out struct {
		RequestType string `json:"request_type" validate:"required"`
	}
	require.NoError(t, c.CompleteJSON(context.Background(), "extract", "transcript", &out))
	assert.Equal(t, "technical support", out.RequestType)
}
