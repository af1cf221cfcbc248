package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

const wavHeaderSize = 44

// WAVFormat is the subset of the fmt chunk needed to slice PCM audio.
type WAVFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

func (f WAVFormat) blockAlign() int { return int(f.Channels) * int(f.BitsPerSample) / 8 }

func (f WAVFormat) byteRate() int { return int(f.SampleRate) * f.blockAlign() }

// WAV is a decoded RIFF/WAVE stream.
type WAV struct {
	Format WAVFormat
	pcm    []byte
}

// DecodeWAV walks the RIFF chunk list and keeps the fmt and data chunks.
func DecodeWAV(data []byte) (*WAV, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrMalformed)
	}

	var (
		w       WAV
		haveFmt bool
	)
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		end := body + size
		if end > len(data) {
			// Truncated trailing chunk: keep what is there for data, reject otherwise.
			if id != "data" {
				return nil, fmt.Errorf("%w: chunk %q overruns stream", ErrMalformed, id)
			}
			end = len(data)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrMalformed)
			}
			w.Format = WAVFormat{
				AudioFormat:   binary.LittleEndian.Uint16(data[body : body+2]),
				Channels:      binary.LittleEndian.Uint16(data[body+2 : body+4]),
				SampleRate:    binary.LittleEndian.Uint32(data[body+4 : body+8]),
				BitsPerSample: binary.LittleEndian.Uint16(data[body+14 : body+16]),
			}
			haveFmt = true
		case "data":
			w.pcm = data[body:end]
		}

		off = end
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt || w.Format.blockAlign() == 0 || w.Format.SampleRate == 0 {
		return nil, fmt.Errorf("%w: missing or invalid fmt chunk", ErrMalformed)
	}
	if w.pcm == nil {
		return nil, fmt.Errorf("%w: missing data chunk", ErrMalformed)
	}
	return &w, nil
}

func (w *WAV) frames() int { return len(w.pcm) / w.Format.blockAlign() }

func (w *WAV) Duration() time.Duration {
	return time.Duration(w.frames()) * time.Second / time.Duration(w.Format.SampleRate)
}

func (w *WAV) PayloadSize() int { return len(w.pcm) }

func (w *WAV) Overhead() int { return wavHeaderSize }

func (w *WAV) Ext() string { return ".wav" }

func (w *WAV) Slice(from, to time.Duration) ([]byte, error) {
	if from < 0 || to < from {
		return nil, fmt.Errorf("%w: bad range %v..%v", ErrMalformed, from, to)
	}
	start := w.frameAt(from)
	end := w.frameAt(to)
	if end > w.frames() {
		end = w.frames()
	}
	ba := w.Format.blockAlign()
	return EncodeWAV(w.Format, w.pcm[start*ba:end*ba]), nil
}

func (w *WAV) frameAt(d time.Duration) int {
	return int(int64(d) * int64(w.Format.SampleRate) / int64(time.Second))
}

// EncodeWAV writes a canonical 44-byte header followed by pcm.
func EncodeWAV(f WAVFormat, pcm []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcm))

	le := binary.LittleEndian
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, le, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, le, uint32(16))
	_ = binary.Write(&buf, le, f.AudioFormat)
	_ = binary.Write(&buf, le, f.Channels)
	_ = binary.Write(&buf, le, f.SampleRate)
	_ = binary.Write(&buf, le, uint32(f.byteRate()))
	_ = binary.Write(&buf, le, uint16(f.blockAlign()))
	_ = binary.Write(&buf, le, f.BitsPerSample)
	buf.WriteString("data")
	_ = binary.Write(&buf, le, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
