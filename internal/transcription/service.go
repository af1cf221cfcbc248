package transcription

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"call-insights/internal/audio"
	"call-insights/internal/blob"
	"call-insights/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var ErrAllChunksFailed = errors.New("transcription: every chunk failed")

const (
	DefaultMaxChunkBytes = 5 * 1024 * 1024
	DefaultMaxInFlight   = 4
)

type Options struct {
	MaxChunkBytes int
	MaxInFlight   int
	Limiter       Limiter
}

// Result is the assembled transcript. FailedChunks > 0 marks a partial transcript.
type Result struct {
	Text         string
	Chunks       int
	FailedChunks int
}

func (r Result) Partial() bool { return r.FailedChunks > 0 }

type Service struct {
	store    blob.Store
	provider Provider
	limiter  Limiter

	maxChunkBytes int
	maxInFlight   int
}

func NewService(store blob.Store, provider Provider, opts Options) *Service {
	if opts.MaxChunkBytes <= 0 {
		opts.MaxChunkBytes = DefaultMaxChunkBytes
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.Limiter == nil {
		opts.Limiter = noopLimiter{}
	}
	return &Service{
		store:         store,
		provider:      provider,
		limiter:       opts.Limiter,
		maxChunkBytes: opts.MaxChunkBytes,
		maxInFlight:   opts.MaxInFlight,
	}
}

// Transcribe reads key from the blob store and returns its transcript.
// Objects within the size ceiling go to the provider whole and are left in place.
// Larger objects are split, transcribed concurrently, joined in order with "\n",
// and deleted from the store afterwards. A failed chunk contributes "".
func (s *Service) Transcribe(ctx context.Context, key, prompt string) (Result, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("transcription: load %s: %w", key, err)
	}

	if len(data) <= s.maxChunkBytes {
		text, err := s.call(ctx, Request{Name: key, Audio: data, Prompt: prompt})
		if err != nil {
			// No transcript is a failure, never an empty text the pipeline could complete on.
			return Result{}, err
		}
		return Result{Text: text, Chunks: 1}, nil
	}

	a, err := audio.Decode(key, data)
	if err != nil {
		return Result{}, fmt.Errorf("transcription: decode %s: %w", key, err)
	}
	chunks, err := audio.Split(a, s.maxChunkBytes)
	if err != nil {
		return Result{}, fmt.Errorf("transcription: split %s: %w", key, err)
	}

	res, err := s.transcribeChunks(ctx, chunks, prompt)
	if err != nil {
		return Result{}, err
	}

	if err := s.store.Delete(ctx, key); err != nil {
		logger.From(ctx).Warn("delete chunked source failed", "key", key, "err", err)
	}
	return res, nil
}

type chunkText struct {
	index int
	text  string
	err   error
}

func (s *Service) transcribeChunks(ctx context.Context, chunks []audio.Chunk, prompt string) (Result, error) {
	log := logger.From(ctx)
	out := make(chan chunkText, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxInFlight)
	for _, c := range chunks {
		g.Go(func() error {
			text, err := s.call(gctx, Request{Name: c.Name, Audio: c.Data, Prompt: prompt})
			out <- chunkText{index: c.Index, text: text, err: err}
			return nil
		})
	}
	_ = g.Wait()
	close(out)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	results := make([]chunkText, 0, len(chunks))
	for r := range out {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })

	res := Result{Chunks: len(results)}
	parts := make([]string, len(results))
	for i, r := range results {
		if r.err != nil {
			log.Warn("chunk transcription failed", "chunk_index", r.index, "err", r.err)
			res.FailedChunks++
			continue
		}
		parts[i] = r.text
	}
	// An all-empty join would be an empty transcript, which is treated as a failure.
	if res.FailedChunks == res.Chunks {
		return Result{}, ErrAllChunksFailed
	}
	res.Text = strings.Join(parts, "\n")
	return res, nil
}

func (s *Service) call(ctx context.Context, req Request) (string, error) {
	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("transcription: acquire slot: %w", err)
	}
	defer release()

	r, err := s.provider.Transcribe(ctx, req)
	if err != nil {
		return "", fmt.Errorf("transcription: %s: %w", req.Name, err)
	}
	return strings.TrimSpace(r.Text), nil
}
