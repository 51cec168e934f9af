package ports

import (
	"io"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

// AudioDecoder turns an uploaded file into a mono sample stream. The format
// hint is the lowercase file extension without the dot ("wav", "mp3").
type AudioDecoder interface {
	Decode(r io.Reader, format string) (domain.AudioSignal, error)
}
