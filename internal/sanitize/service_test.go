package sanitize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
)

type fakeCompleter struct {
	reply   string
	err     error
	gotUser string
	gotOpts int
	called  int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string, opts ...model.Option) (string, error) {
	f.called++
	f.gotUser = user
	f.gotOpts = len(opts)
	return f.reply, f.err
}

func TestSanitize_MasksBeforeLLMAndStripsReasoning(t *testing.T) {
	f := &fakeCompleter{reply: "<think>hmm\nok</think>\n clean text \n"}
	svc := NewService(f, "redact")

	out, err := svc.Sanitize(context.Background(), "ssn 123-45-6789 card 4111111111111111")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if out != "clean text" {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(f.gotUser, "123-45") || strings.Contains(f.gotUser, "4111111111111111") {
		t.Fatalf("llm must only see masked text, got %q", f.gotUser)
	}
	if f.gotOpts != 1 {
		t.Fatalf("expected temperature option, got %d opts", f.gotOpts)
	}
}

func TestSanitize_PropagatesLLMFailure(t *testing.T) {
	f := &fakeCompleter{err: errors.New("provider down")}
	if _, err := NewService(f, "redact").Sanitize(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSanitize_EmptyAfterStripIsFailure(t *testing.T) {
	f := &fakeCompleter{reply: "<think>only thoughts</think>"}
	_, err := NewService(f, "redact").Sanitize(context.Background(), "x")
	if !errors.Is(err, ErrEmptyRedaction) {
		t.Fatalf("expected ErrEmptyRedaction, got %v", err)
	}
}
