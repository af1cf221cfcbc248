// Package chat answers questions about a processed call, grounded on its transcript
// and the user's recent conversation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"call-insights/internal/calls"
	"call-insights/internal/memory"
	"call-insights/pkg/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

var (
	ErrTranscriptUnavailable = errors.New("chat: call transcript unavailable")
	ErrEmptyPrompt           = errors.New("chat: empty prompt")
)

// GenerationFailedMarker is stored as the bot turn when the model call fails.
const GenerationFailedMarker = "[generation failed]"

const DefaultWindow = 10

type TranscriptSource interface {
	Transcript(ctx context.Context, organisationID, callRecordID string) (string, error)
}

type ChatModel interface {
	Chat(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (string, error)
}

type Identity struct {
	UserID         string
	OrganisationID string
}

type Service struct {
	memory      memory.Repository
	transcripts TranscriptSource
	llm         ChatModel
	prompt      string
	window      int

	clock func() time.Time
	newID func() string
}

func NewService(mem memory.Repository, transcripts TranscriptSource, llm ChatModel, systemPrompt string, window int) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		memory:      mem,
		transcripts: transcripts,
		llm:         llm,
		prompt:      systemPrompt,
		window:      window,
		clock:       time.Now,
		newID:       uuid.NewString,
	}
}

// Chat answers prompt about callRef. The user turn is stored before generation; the
// bot turn (or GenerationFailedMarker) after it.
func (s *Service) Chat(ctx context.Context, prompt, callRef string, id Identity) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if id.UserID == "" || id.OrganisationID == "" || callRef == "" {
		return "", memory.ErrInvalidArgument
	}
	log := logger.From(ctx).With("call_record_id", callRef)

	history, err := s.memory.Recent(ctx, id.OrganisationID, id.UserID, s.window)
	if err != nil {
		return "", fmt.Errorf("chat: load memory: %w", err)
	}
	if err := s.append(ctx, id, memory.RoleUser, prompt); err != nil {
		return "", fmt.Errorf("chat: store user turn: %w", err)
	}

	transcript, err := s.transcripts.Transcript(ctx, id.OrganisationID, callRef)
	if err != nil {
		if errors.Is(err, calls.ErrNoTranscript) || errors.Is(err, calls.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", ErrTranscriptUnavailable, err)
		}
		return "", fmt.Errorf("chat: load transcript: %w", err)
	}

	reply, err := s.llm.Chat(ctx, buildMessages(s.prompt, transcript, history, prompt))
	if err != nil {
		log.Error("chat generation failed", "err", err)
		if aerr := s.append(ctx, id, memory.RoleBot, GenerationFailedMarker); aerr != nil {
			log.Warn("store failure marker failed", "err", aerr)
		}
		return "", fmt.Errorf("chat: generate: %w", err)
	}

	if err := s.append(ctx, id, memory.RoleBot, reply); err != nil {
		// The reply is still useful to the caller.
		log.Warn("store bot turn failed", "err", err)
	}
	return reply, nil
}

func (s *Service) append(ctx context.Context, id Identity, role memory.Role, content string) error {
	return s.memory.Append(ctx, memory.Entry{
		ID:             s.newID(),
		UserID:         id.UserID,
		OrganisationID: id.OrganisationID,
		Role:           role,
		Content:        content,
		Timestamp:      s.clock().UTC(),
	})
}

// buildMessages orders the conversation as: system prompt, transcript grounding,
// history, live prompt.
func buildMessages(system, transcript string, history []memory.Entry, prompt string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+3)
	msgs = append(msgs,
		schema.SystemMessage(system),
		schema.SystemMessage("Call transcript:\n"+transcript),
	)
	for _, e := range history {
		switch e.Role {
		case memory.RoleUser:
			msgs = append(msgs, schema.UserMessage(e.Content))
		case memory.RoleBot:
			msgs = append(msgs, schema.AssistantMessage(e.Content, nil))
		}
	}
	return append(msgs, schema.UserMessage(prompt))
}
