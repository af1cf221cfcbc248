package transcription

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"call-insights/internal/audio"
	"call-insights/internal/blob"
)

var testFormat = audio.WAVFormat{AudioFormat: 1, Channels: 1, SampleRate: 8000, BitsPerSample: 16}

// wavSeconds is 16000 bytes of PCM per second plus a 44-byte header.
func wavSeconds(secs int) []byte {
	n := int(testFormat.SampleRate) * secs
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(i))
	}
	return audio.EncodeWAV(testFormat, pcm)
}

type fakeProvider struct {
	mu       sync.Mutex
	calls    int32
	names    []string
	inFlight int32
	peak     int32
	fail     map[string]bool
	delay    func(name string) time.Duration
}

func (p *fakeProvider) Transcribe(ctx context.Context, req Request) (ProviderResult, error) {
	atomic.AddInt32(&p.calls, 1)
	cur := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&p.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&p.peak, peak, cur) {
			break
		}
	}
	if p.delay != nil {
		time.Sleep(p.delay(req.Name))
	}

	p.mu.Lock()
	p.names = append(p.names, req.Name)
	p.mu.Unlock()

	if p.fail[req.Name] {
		return ProviderResult{}, errors.New("provider down")
	}
	return ProviderResult{Text: "text-" + req.Name}, nil
}

func seeded(t *testing.T, key string, data []byte) *blob.MemoryStore {
	t.Helper()
	s := blob.NewMemoryStore()
	if err := s.Put(context.Background(), key, data, "audio/wav"); err != nil {
		t.Fatalf("put: %v", err)
	}
	return s
}

func TestTranscribe_SmallFileSingleCallKeepsBlob(t *testing.T) {
	store := seeded(t, "call.wav", wavSeconds(10))
	p := &fakeProvider{}
	svc := NewService(store, p, Options{MaxChunkBytes: 1 << 20})

	res, err := svc.Transcribe(context.Background(), "call.wav", "hint")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if p.calls != 1 || res.Chunks != 1 {
		t.Fatalf("expected one provider call, got %d", p.calls)
	}
	if res.Text != "text-call.wav" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if ok, _ := store.Exists(context.Background(), "call.wav"); !ok {
		t.Fatalf("single-call path must keep the blob")
	}
}

func TestTranscribe_ChunkedPreservesOrderAndDeletesBlob(t *testing.T) {
	store := seeded(t, "call.wav", wavSeconds(10))
	// Earlier chunks finish last to shake out ordering bugs.
	p := &fakeProvider{delay: func(name string) time.Duration {
		switch name {
		case "chunk_0.wav":
			return 30 * time.Millisecond
		case "chunk_1.wav":
			return 20 * time.Millisecond
		}
		return 0
	}}
	svc := NewService(store, p, Options{MaxChunkBytes: 44 + 48000, MaxInFlight: 4})

	res, err := svc.Transcribe(context.Background(), "call.wav", "")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if p.calls != 4 || res.Chunks != 4 {
		t.Fatalf("expected 4 chunk calls (10s / 3s), got %d", p.calls)
	}
	want := "text-chunk_0.wav\ntext-chunk_1.wav\ntext-chunk_2.wav\ntext-chunk_3.wav"
	if res.Text != want {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if ok, _ := store.Exists(context.Background(), "call.wav"); ok {
		t.Fatalf("chunked path must delete the blob")
	}
}

func TestTranscribe_RespectsMaxInFlight(t *testing.T) {
	store := seeded(t, "call.wav", wavSeconds(10))
	p := &fakeProvider{delay: func(string) time.Duration { return 10 * time.Millisecond }}
	svc := NewService(store, p, Options{MaxChunkBytes: 44 + 16000, MaxInFlight: 2})

	if _, err := svc.Transcribe(context.Background(), "call.wav", ""); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if p.calls != 10 {
		t.Fatalf("expected 10 chunks, got %d", p.calls)
	}
	if p.peak > 2 {
		t.Fatalf("expected at most 2 in flight, saw %d", p.peak)
	}
}

func TestTranscribe_ChunkFailureLeavesGap(t *testing.T) {
	store := seeded(t, "call.wav", wavSeconds(10))
	p := &fakeProvider{fail: map[string]bool{"chunk_1.wav": true}}
	svc := NewService(store, p, Options{MaxChunkBytes: 44 + 48000})

	res, err := svc.Transcribe(context.Background(), "call.wav", "")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if !res.Partial() || res.FailedChunks != 1 {
		t.Fatalf("expected one failed chunk, got %+v", res)
	}
	parts := strings.Split(res.Text, "\n")
	if len(parts) != 4 || parts[1] != "" || parts[2] != "text-chunk_2.wav" {
		t.Fatalf("unexpected parts %q", parts)
	}
}

func TestTranscribe_AllChunksFailedKeepsBlob(t *testing.T) {
	store := seeded(t, "call.wav", wavSeconds(6))
	fail := map[string]bool{"chunk_0.wav": true, "chunk_1.wav": true}
	svc := NewService(store, &fakeProvider{fail: fail}, Options{MaxChunkBytes: 44 + 48000})

	if _, err := svc.Transcribe(context.Background(), "call.wav", ""); !errors.Is(err, ErrAllChunksFailed) {
		t.Fatalf("expected ErrAllChunksFailed, got %v", err)
	}
	if ok, _ := store.Exists(context.Background(), "call.wav"); !ok {
		t.Fatalf("blob must survive a failed transcription")
	}
}

func TestTranscribe_SingleCallFailureIsError(t *testing.T) {
	store := seeded(t, "call.wav", wavSeconds(1))
	svc := NewService(store, &fakeProvider{fail: map[string]bool{"call.wav": true}}, Options{})
	if _, err := svc.Transcribe(context.Background(), "call.wav", ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTranscribe_MissingBlob(t *testing.T) {
	svc := NewService(blob.NewMemoryStore(), &fakeProvider{}, Options{})
	if _, err := svc.Transcribe(context.Background(), "nope.wav", ""); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected blob.ErrNotFound, got %v", err)
	}
}

func TestTranscribe_UnsupportedFormatWhenChunking(t *testing.T) {
	store := seeded(t, "call.ogg", make([]byte, 2048))
	svc := NewService(store, &fakeProvider{}, Options{MaxChunkBytes: 1024})
	if _, err := svc.Transcribe(context.Background(), "call.ogg", ""); !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
