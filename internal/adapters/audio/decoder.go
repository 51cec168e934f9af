// Package audio decodes uploaded files into mono sample streams for the
// analysis core.
package audio

import (
	"fmt"
	"io"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
	"github.com/ewilliams-labs/rubato/backend/internal/core/ports"
)

// Decoder implements ports.AudioDecoder for WAV and MP3 uploads.
type Decoder struct{}

var _ ports.AudioDecoder = (*Decoder)(nil)

// NewDecoder constructs the decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode dispatches on the format hint (lowercase extension without dot).
func (d *Decoder) Decode(r io.Reader, format string) (domain.AudioSignal, error) {
	switch format {
	case "wav":
		return decodeWAV(r)
	case "mp3":
		return decodeMP3(r)
	default:
		return domain.AudioSignal{}, fmt.Errorf("audio: unsupported format %q: %w", format, domain.ErrInvalidInput)
	}
}

// downmix folds interleaved int16 frames into mono float64 samples in
// [-1, 1].
func downmix(frames []int16, channels int) []float64 {
	if channels < 1 {
		channels = 1
	}
	n := len(frames) / channels
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(frames[i*channels+c])
		}
		out[i] = sum / float64(channels) / 32768.0
	}
	return out
}
