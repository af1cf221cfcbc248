// Package llm wraps eino chat models with bounded retries, reasoning-block stripping
// and schema-validated structured output.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"call-insights/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-playground/validator/v10"
)

var (
	ErrEmptyResponse = errors.New("llm: empty response")
	ErrInvalidOutput = errors.New("llm: output failed validation")
)

// Generator is the part of eino's model.BaseChatModel this package consumes.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)

func (f GeneratorFunc) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return f(ctx, input, opts...)
}

// Normalizer is implemented by structured outputs that clean themselves up before validation.
type Normalizer interface {
	Normalize()
}

// Client issues prompts against one Generator.
type Client struct {
	gen        Generator
	name       string
	maxRetries int
	opts       []model.Option
	validate   *validator.Validate

	// initialInterval is the first backoff delay. Tests shorten it.
	initialInterval time.Duration
}

// NewClient returns a Client making at most maxAttempts calls per request.
// opts are applied to every Generate call.
func NewClient(gen Generator, name string, maxAttempts int, opts ...model.Option) *Client {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Client{
		gen:             gen,
		name:            name,
		maxRetries:      maxAttempts,
		opts:            opts,
		validate:        validator.New(),
		initialInterval: 500 * time.Millisecond,
	}
}

// Name returns the model label used in logs.
func (c *Client) Name() string { return c.name }

// Complete sends a system + user prompt and returns the raw text reply.
func (c *Client) Complete(ctx context.Context, system, user string, opts ...model.Option) (string, error) {
	msgs := []*schema.Message{schema.SystemMessage(system), schema.UserMessage(user)}
	return c.Chat(ctx, msgs, opts...)
}

// Chat sends a prepared conversation and returns the reply text.
func (c *Client) Chat(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (string, error) {
	var out string
	err := c.retry(ctx, func() error {
		text, err := c.generate(ctx, msgs, opts)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

const jsonInstruction = "Respond with a single JSON object only, no prose and no code fences."

// CompleteJSON asks for a JSON object, decodes it into out and validates it with
// `validate` struct tags. Unparseable or invalid replies are retried like transport
// failures; after the last attempt the error wraps ErrInvalidOutput.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, out any, opts ...model.Option) error {
	msgs := []*schema.Message{
		schema.SystemMessage(system + "\n\n" + jsonInstruction),
		schema.UserMessage(user),
	}
	return c.retry(ctx, func() error {
		text, err := c.generate(ctx, msgs, opts)
		if err != nil {
			return err
		}
		raw := ExtractJSON(StripReasoning(text))
		if raw == "" {
			return fmt.Errorf("%w: no JSON object in reply", ErrInvalidOutput)
		}
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
		if n, ok := out.(Normalizer); ok {
			n.Normalize()
		}
		if err := c.validate.Struct(out); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
		return nil
	})
}

func (c *Client) generate(ctx context.Context, msgs []*schema.Message, opts []model.Option) (string, error) {
	all := make([]model.Option, 0, len(c.opts)+len(opts))
	all = append(all, c.opts...)
	all = append(all, opts...)

	resp, err := c.gen.Generate(ctx, msgs, all...)
	if err != nil {
		return "", fmt.Errorf("llm %s: %w", c.name, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Content, nil
}

func (c *Client) retry(ctx context.Context, op func() error) error {
	log := logger.From(ctx)
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		log.Warn("llm attempt failed", "model", c.name, "attempt", attempt, "max_attempts", c.maxRetries, "err", err)
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxRetries-1)), ctx)
	return backoff.Retry(wrapped, b)
}
