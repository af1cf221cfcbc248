package transcription

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestWhisperClient_SendsFormAndParsesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		f := r.MultipartForm
		check := func(k, v string) {
			if got := f.Value[k]; len(got) == 0 || got[0] != v {
				t.Errorf("field %s = %v, want %s", k, got, v)
			}
		}
		check("model", "whisper-large-v3-turbo")
		check("response_format", "verbose_json")
		check("language", "en")
		check("temperature", "0")
		check("prompt", "hint")
		if g := f.Value["timestamp_granularities[]"]; len(g) != 2 || g[0] != "word" || g[1] != "segment" {
			t.Errorf("unexpected granularities %v", g)
		}
		fh := f.File["file"]
		if len(fh) != 1 || fh[0].Filename != "chunk_0.wav" {
			t.Errorf("unexpected file part %v", fh)
		} else {
			file, _ := fh[0].Open()
			b, _ := io.ReadAll(file)
			if string(b) != "RIFF" {
				t.Errorf("unexpected file body %q", b)
			}
		}
		_, _ = io.WriteString(w, `{"text":" hello world ","segments":[]}`)
	}))
	defer srv.Close()

	c := NewWhisperClient(WhisperConfig{APIKey: "key", BaseURL: srv.URL + "/", Model: "whisper-large-v3-turbo", Language: "en"}, srv.Client())
	res, err := c.Transcribe(context.Background(), Request{Name: "chunk_0.wav", Audio: []byte("RIFF"), Prompt: "hint"})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if res.Text != " hello world " {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestWhisperClient_RetriesServerErrorsNotClientErrors(t *testing.T) {
	var calls int32
	status := http.StatusBadGateway
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := NewWhisperClient(WhisperConfig{BaseURL: srv.URL, MaxAttempts: 3}, srv.Client())
	c.initialInterval = time.Millisecond

	if _, err := c.Transcribe(context.Background(), Request{Name: "a.wav"}); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts on 502, got %d", calls)
	}

	atomic.StoreInt32(&calls, 0)
	status = http.StatusBadRequest
	if _, err := c.Transcribe(context.Background(), Request{Name: "a.wav"}); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected no retry on 400, got %d", calls)
	}
}
