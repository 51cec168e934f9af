// Package analysis implements the performance-comparison engine: feature
// extraction, tempo-pulse disambiguation, loudness-curve alignment, deviation
// metrics, and insight generation.
package analysis

// Config carries every tuning knob of the pipeline. All values have working
// defaults; the service layer may override them from the tuning file.
type Config struct {
	// Loudness framing, in samples.
	WindowSize int `toml:"window_size"`
	HopSize    int `toml:"hop_size"`

	// Moving-average widths. LoudnessSmooth suppresses frame-to-frame jitter
	// without erasing phrase-level dynamics; 0 disables. TempoSmooth matches
	// the smoothed BPM series shown alongside the raw curve.
	LoudnessSmooth int `toml:"loudness_smooth"`
	TempoSmooth    int `toml:"tempo_smooth"`

	// Instantaneous BPM clamp. Values outside this range are treated as
	// detector glitches.
	MinBPM float64 `toml:"min_bpm"`
	MaxBPM float64 `toml:"max_bpm"`

	// Tempo interpretation. PlausibleBPM is the typical solo-piano
	// quarter-note pulse the candidates are measured against. The two
	// weights blend distance-to-plausible with distance-to-global-estimate;
	// the global term only applies when the detector provides an estimate.
	PlausibleBPM    float64 `toml:"plausible_bpm"`
	PlausibleWeight float64 `toml:"plausible_weight"`
	GlobalWeight    float64 `toml:"global_weight"`

	// MaxAlignFrames caps each resampled loudness curve fed to the DTW
	// matrix. The hop is widened until both sides fit, bounding cost and
	// memory at MaxAlignFrames² cells.
	MaxAlignFrames int `toml:"max_align_frames"`

	// Instability event detection: a run of at least InstabilityMinRun beats
	// whose relative deviation from the mean BPM exceeds
	// InstabilityDeviation becomes an event. Severity is the run's mean
	// deviation divided by InstabilitySeverityScale, capped at 1.
	InstabilityDeviation     float64 `toml:"instability_deviation"`
	InstabilitySeverityScale float64 `toml:"instability_severity_scale"`
	InstabilityMinRun        int     `toml:"instability_min_run"`

	Thresholds Thresholds `toml:"thresholds"`
}

// DefaultConfig returns the tuning used in production.
func DefaultConfig() Config {
	return Config{
		WindowSize:               2048,
		HopSize:                  512,
		LoudnessSmooth:           5,
		TempoSmooth:              7,
		MinBPM:                   40,
		MaxBPM:                   240,
		PlausibleBPM:             80,
		PlausibleWeight:          1.0,
		GlobalWeight:             1.0,
		MaxAlignFrames:           3000,
		InstabilityDeviation:     0.15,
		InstabilitySeverityScale: 0.30,
		InstabilityMinRun:        2,
		Thresholds:               DefaultThresholds(),
	}
}
