// Package audio splits encoded call recordings into size-bounded chunks that can be
// submitted independently to a speech-to-text provider.
package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrUnsupportedFormat = errors.New("audio: unsupported format")
	ErrMalformed         = errors.New("audio: malformed stream")
	ErrBudgetTooSmall    = errors.New("audio: chunk byte budget too small")
)

// Chunk is one standalone, independently decodable slice of a recording.
// It only lives for the duration of one transcription call.
type Chunk struct {
	Index    int
	Name     string
	Data     []byte
	Duration time.Duration
}

// Audio is a decoded view over an encoded recording.
type Audio interface {
	Duration() time.Duration
	// PayloadSize is the size of the audio payload, excluding container headers.
	PayloadSize() int
	// Overhead is the fixed per-chunk container cost added by Slice.
	Overhead() int
	// Slice returns a standalone encoded stream covering [from, to).
	Slice(from, to time.Duration) ([]byte, error)
	Ext() string
}

// Decode inspects the filename extension and decodes data accordingly.
func Decode(filename string, data []byte) (Audio, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		w, err := DecodeWAV(data)
		if err != nil {
			return nil, err
		}
		return w, nil
	case ".mp3":
		m, err := DecodeMP3(data)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// Plan returns the chunk duration in milliseconds and the number of chunks needed so
// that each chunk stays under maxBytes, estimating size from the average byte rate.
func Plan(a Audio, maxBytes int) (chunkMS int64, count int, err error) {
	totalMS := a.Duration().Milliseconds()
	if totalMS <= 0 || a.PayloadSize() <= 0 {
		return 0, 0, fmt.Errorf("%w: empty audio", ErrMalformed)
	}
	budget := maxBytes - a.Overhead()
	if budget <= 0 {
		return 0, 0, ErrBudgetTooSmall
	}

	bytesPerMS := float64(a.PayloadSize()) / float64(totalMS)
	chunkMS = int64(float64(budget) / bytesPerMS)
	if chunkMS <= 0 {
		return 0, 0, ErrBudgetTooSmall
	}
	count = int((totalMS + chunkMS - 1) / chunkMS)
	return chunkMS, count, nil
}

// Split slices a into sequential chunks of Plan's duration. The last chunk may be shorter.
func Split(a Audio, maxBytes int) ([]Chunk, error) {
	chunkMS, count, err := Plan(a, maxBytes)
	if err != nil {
		return nil, err
	}

	step := time.Duration(chunkMS) * time.Millisecond
	total := a.Duration()
	chunks := make([]Chunk, 0, count)
	for i := 0; i < count; i++ {
		from := time.Duration(i) * step
		to := from + step
		if i == count-1 || to > total {
			to = total
		}
		b, err := a.Slice(from, to)
		if err != nil {
			return nil, fmt.Errorf("audio: slice chunk %d: %w", i, err)
		}
		chunks = append(chunks, Chunk{
			Index:    i,
			Name:     fmt.Sprintf("chunk_%d%s", i, a.Ext()),
			Data:     b,
			Duration: to - from,
		})
	}
	return chunks, nil
}
