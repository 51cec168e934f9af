package audio

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

// decodeMP3 streams the decoder's 16-bit stereo output and folds it to mono.
func decodeMP3(r io.Reader) (domain.AudioSignal, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return domain.AudioSignal{}, fmt.Errorf("audio: mp3 decode failed: %w", domain.ErrInvalidInput)
	}

	// go-mp3 always emits interleaved 16-bit little-endian stereo.
	var frames []int16
	buf := make([]byte, 8192)
	for {
		n, err := decoder.Read(buf)
		if n > 0 {
			for i := 0; i+1 < n; i += 2 {
				frames = append(frames, int16(buf[i])|int16(buf[i+1])<<8)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return domain.AudioSignal{}, fmt.Errorf("audio: mp3 read failed: %w", domain.ErrInvalidInput)
		}
	}

	samples := downmix(frames, 2)
	if len(samples) == 0 {
		return domain.AudioSignal{}, fmt.Errorf("audio: mp3 contains no samples: %w", domain.ErrInvalidInput)
	}
	return domain.AudioSignal{Samples: samples, SampleRate: decoder.SampleRate()}, nil
}
