package audio

import (
	"bytes"
	"fmt"
	"time"
)

// MPEG audio Layer III tables, kbps and Hz.
var (
	mpeg1L3Bitrates = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	mpeg2L3Bitrates = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}

	sampleRates = map[byte][3]int{
		0b11: {44100, 48000, 32000}, // MPEG1
		0b10: {22050, 24000, 16000}, // MPEG2
		0b00: {11025, 12000, 8000},  // MPEG2.5
	}
)

type mp3Frame struct {
	offset   int
	length   int
	start    time.Duration
	duration time.Duration
}

// MP3 is an MPEG Layer III stream indexed by frame.
// Frames are self-delimiting, so a run of frames is itself a playable stream.
type MP3 struct {
	data     []byte
	frames   []mp3Frame
	payload  int
	maxFrame int
	duration time.Duration
}

// DecodeMP3 indexes the frames of data, skipping a leading ID3v2 tag and any junk
// between frames.
func DecodeMP3(data []byte) (*MP3, error) {
	m := &MP3{data: data}
	off := id3v2Size(data)

	var elapsed time.Duration
	for off+4 <= len(data) {
		if len(data)-off == 128 && bytes.HasPrefix(data[off:], []byte("TAG")) {
			break
		}
		length, dur, ok := parseFrameHeader(data[off : off+4])
		if !ok || off+length > len(data) {
			off++
			continue
		}
		m.frames = append(m.frames, mp3Frame{offset: off, length: length, start: elapsed, duration: dur})
		m.payload += length
		if length > m.maxFrame {
			m.maxFrame = length
		}
		elapsed += dur
		off += length
	}

	if len(m.frames) == 0 {
		return nil, fmt.Errorf("%w: no mpeg layer III frames", ErrMalformed)
	}
	m.duration = elapsed
	return m, nil
}

func parseFrameHeader(h []byte) (length int, dur time.Duration, ok bool) {
	if h[0] != 0xFF || h[1]&0xE0 != 0xE0 {
		return 0, 0, false
	}
	version := (h[1] >> 3) & 0b11
	layer := (h[1] >> 1) & 0b11
	if version == 0b01 || layer != 0b01 {
		return 0, 0, false
	}
	bitrateIdx := h[2] >> 4
	rateIdx := (h[2] >> 2) & 0b11
	padding := int((h[2] >> 1) & 0b1)
	if rateIdx == 0b11 {
		return 0, 0, false
	}

	sampleRate := sampleRates[version][rateIdx]
	bitrate := mpeg2L3Bitrates[bitrateIdx]
	coeff, samples := 72, 576
	if version == 0b11 {
		bitrate = mpeg1L3Bitrates[bitrateIdx]
		coeff, samples = 144, 1152
	}
	if bitrate == 0 {
		return 0, 0, false
	}

	length = coeff*bitrate*1000/sampleRate + padding
	if length < 4 {
		return 0, 0, false
	}
	dur = time.Duration(samples) * time.Second / time.Duration(sampleRate)
	return length, dur, true
}

func id3v2Size(data []byte) int {
	if len(data) < 10 || string(data[0:3]) != "ID3" {
		return 0
	}
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	total := 10 + size
	if data[5]&0x10 != 0 {
		total += 10
	}
	if total > len(data) {
		return len(data)
	}
	return total
}

func (m *MP3) Duration() time.Duration { return m.duration }

func (m *MP3) PayloadSize() int { return m.payload }

// Overhead reserves one frame: slices end on frame boundaries, so a chunk can run
// up to one frame past the byte estimate.
func (m *MP3) Overhead() int { return m.maxFrame }

func (m *MP3) Ext() string { return ".mp3" }

// Slice concatenates the frames whose start lies in [from, to).
func (m *MP3) Slice(from, to time.Duration) ([]byte, error) {
	if from < 0 || to < from {
		return nil, fmt.Errorf("%w: bad range %v..%v", ErrMalformed, from, to)
	}
	var buf bytes.Buffer
	for _, f := range m.frames {
		if f.start < from {
			continue
		}
		if f.start >= to {
			break
		}
		buf.Write(m.data[f.offset : f.offset+f.length])
	}
	return buf.Bytes(), nil
}

// Frames returns the number of indexed frames.
func (m *MP3) Frames() int { return len(m.frames) }
