package ports

// BeatDetector locates the pulse of a recording. DetectPulses returns an
// ordered list of beat timestamps in seconds. The detection algorithm is a
// pluggable capability so it can be swapped without touching the rest of the
// pipeline.
type BeatDetector interface {
	DetectPulses(samples []float64, sampleRate int) ([]float64, error)
}

// TempoEstimator is an optional capability a BeatDetector may also provide:
// a single global tempo estimate for the whole recording, in BPM. Detectors
// that cannot estimate one simply don't implement it.
type TempoEstimator interface {
	EstimateTempo(samples []float64, sampleRate int) (float64, error)
}
