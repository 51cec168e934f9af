package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

// maxChunkBytes bounds a single RIFF chunk. The declared size comes straight
// from the upload, so it must be checked before allocating; uploads are
// capped well below this upstream.
const maxChunkBytes = 64 << 20

// decodeWAV parses a RIFF/WAVE container with 16-bit PCM data. Other sample
// formats are rejected as invalid input; conversion belongs to the uploader's
// toolchain, not this service.
func decodeWAV(r io.Reader) (domain.AudioSignal, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return domain.AudioSignal{}, fmt.Errorf("audio: truncated wav header: %w", domain.ErrInvalidInput)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return domain.AudioSignal{}, fmt.Errorf("audio: not a RIFF/WAVE file: %w", domain.ErrInvalidInput)
	}

	var (
		channels   int
		sampleRate int
		bitDepth   int
		haveFmt    bool
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return domain.AudioSignal{}, fmt.Errorf("audio: wav has no data chunk: %w", domain.ErrInvalidInput)
			}
			return domain.AudioSignal{}, fmt.Errorf("audio: read wav chunk: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])
		if (id == "fmt " || id == "data") && size > maxChunkBytes {
			return domain.AudioSignal{}, fmt.Errorf("audio: wav %s chunk of %d bytes exceeds limit: %w", id, size, domain.ErrInvalidInput)
		}

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return domain.AudioSignal{}, fmt.Errorf("audio: truncated fmt chunk: %w", domain.ErrInvalidInput)
			}
			if len(body) < 16 {
				return domain.AudioSignal{}, fmt.Errorf("audio: malformed fmt chunk: %w", domain.ErrInvalidInput)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitDepth = int(binary.LittleEndian.Uint16(body[14:16]))
			if format != 1 || bitDepth != 16 {
				return domain.AudioSignal{}, fmt.Errorf("audio: only 16-bit PCM wav is supported: %w", domain.ErrInvalidInput)
			}
			if channels < 1 || sampleRate <= 0 {
				return domain.AudioSignal{}, fmt.Errorf("audio: malformed fmt chunk: %w", domain.ErrInvalidInput)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return domain.AudioSignal{}, fmt.Errorf("audio: wav data before fmt chunk: %w", domain.ErrInvalidInput)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return domain.AudioSignal{}, fmt.Errorf("audio: truncated wav data: %w", domain.ErrInvalidInput)
			}
			frames := make([]int16, len(body)/2)
			for i := range frames {
				frames[i] = int16(binary.LittleEndian.Uint16(body[2*i : 2*i+2]))
			}
			samples := downmix(frames, channels)
			if len(samples) == 0 {
				return domain.AudioSignal{}, fmt.Errorf("audio: wav contains no samples: %w", domain.ErrInvalidInput)
			}
			return domain.AudioSignal{Samples: samples, SampleRate: sampleRate}, nil

		default:
			// Skip unknown chunks (LIST, bext, ...). Chunks are word-aligned.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return domain.AudioSignal{}, fmt.Errorf("audio: wav has no data chunk: %w", domain.ErrInvalidInput)
			}
		}
	}
}
