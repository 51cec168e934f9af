package domain

// AudioSignal is a decoded mono recording in the domain layer.
// Samples are normalized to [-1, 1]; SampleRate is in Hz.
type AudioSignal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in seconds.
func (s AudioSignal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Empty reports whether the signal carries no samples.
func (s AudioSignal) Empty() bool {
	return len(s.Samples) == 0 || s.SampleRate <= 0
}
