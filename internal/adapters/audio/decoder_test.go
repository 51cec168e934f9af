package audio

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
)

// buildWAV assembles a minimal 16-bit PCM RIFF file from interleaved frames.
func buildWAV(t *testing.T, channels int, sampleRate int, frames []int16) []byte {
	t.Helper()
	var data bytes.Buffer
	for _, f := range frames {
		require.NoError(t, binary.Write(&data, binary.LittleEndian, f))
	}

	var fmtChunk bytes.Buffer
	vals := []any{
		uint16(1), // PCM
		uint16(channels),
		uint32(sampleRate),
		uint32(sampleRate * channels * 2), // byte rate
		uint16(channels * 2),              // block align
		uint16(16),                        // bit depth
	}
	for _, v := range vals {
		require.NoError(t, binary.Write(&fmtChunk, binary.LittleEndian, v))
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	require.NoError(t, binary.Write(&out, binary.LittleEndian, uint32(4+8+fmtChunk.Len()+8+data.Len())))
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	require.NoError(t, binary.Write(&out, binary.LittleEndian, uint32(fmtChunk.Len())))
	out.Write(fmtChunk.Bytes())
	out.WriteString("data")
	require.NoError(t, binary.Write(&out, binary.LittleEndian, uint32(data.Len())))
	out.Write(data.Bytes())
	return out.Bytes()
}

func TestDecoder_WAVMono(t *testing.T) {
	frames := []int16{0, 16384, -16384, 32767}
	raw := buildWAV(t, 1, 22050, frames)

	signal, err := NewDecoder().Decode(bytes.NewReader(raw), "wav")
	require.NoError(t, err)

	require.Equal(t, 22050, signal.SampleRate)
	require.Len(t, signal.Samples, len(frames))
	require.InDelta(t, 0.5, signal.Samples[1], 1e-4)
	require.InDelta(t, -0.5, signal.Samples[2], 1e-4)
}

func TestDecoder_WAVStereoDownmix(t *testing.T) {
	// L=16384, R=0 should average to quarter scale.
	raw := buildWAV(t, 2, 44100, []int16{16384, 0, 16384, 0})

	signal, err := NewDecoder().Decode(bytes.NewReader(raw), "wav")
	require.NoError(t, err)

	require.Len(t, signal.Samples, 2)
	require.InDelta(t, 0.25, signal.Samples[0], 1e-4)
	require.InDelta(t, 0.25, signal.Samples[1], 1e-4)
}

func TestDecoder_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		raw    []byte
		format string
	}{
		{"unsupported format", []byte("whatever"), "ogg"},
		{"empty wav", nil, "wav"},
		{"not a riff file", []byte("this is definitely not audio data"), "wav"},
		{"garbage mp3", []byte("not an mp3 at all, just text"), "mp3"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDecoder().Decode(bytes.NewReader(tc.raw), tc.format)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestDecoder_WAVRejectsOversizedChunk(t *testing.T) {
	raw := buildWAV(t, 1, 8000, []int16{100, -100})

	// Forge the data chunk's declared size to ~4 GiB. The decoder must
	// reject it before attempting the allocation.
	dataIdx := bytes.Index(raw, []byte("data"))
	binary.LittleEndian.PutUint32(raw[dataIdx+4:dataIdx+8], 0xFFFF0000)

	_, err := NewDecoder().Decode(bytes.NewReader(raw), "wav")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDecoder_WAVSkipsUnknownChunks(t *testing.T) {
	raw := buildWAV(t, 1, 8000, []int16{100, -100})

	// Splice a LIST chunk between fmt and data.
	dataIdx := bytes.Index(raw, []byte("data"))
	var spliced bytes.Buffer
	spliced.Write(raw[:dataIdx])
	spliced.WriteString("LIST")
	require.NoError(t, binary.Write(&spliced, binary.LittleEndian, uint32(4)))
	spliced.WriteString("INFO")
	spliced.Write(raw[dataIdx:])

	signal, err := NewDecoder().Decode(bytes.NewReader(spliced.Bytes()), "wav")
	require.NoError(t, err)
	require.Len(t, signal.Samples, 2)
}
