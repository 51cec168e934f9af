package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a requested entity does not exist in the repository.
var ErrNotFound = errors.New("domain: not found")

// ErrInvalidInput indicates undecodable or empty audio. Requests failing this
// way are rejected, not retried.
var ErrInvalidInput = errors.New("domain: invalid input")

// ErrInsufficientData indicates the audio was too short or too sparse for a
// full analysis (fewer than two beats, or shorter than one analysis frame).
var ErrInsufficientData = errors.New("domain: insufficient data")

// ErrAlignment indicates the two recordings could not be aligned, typically
// because a loudness curve was empty or degenerate. Comparison is aborted but
// each recording's standalone analysis remains valid.
var ErrAlignment = errors.New("domain: alignment failed")

// InsufficientDataError carries context for an ErrInsufficientData failure.
type InsufficientDataError struct {
	Reason string
}

func (e InsufficientDataError) Error() string {
	if e.Reason == "" {
		return ErrInsufficientData.Error()
	}
	return fmt.Sprintf("insufficient data: %s", e.Reason)
}

func (e InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// AlignmentError carries context for an ErrAlignment failure.
type AlignmentError struct {
	Reason string
}

func (e AlignmentError) Error() string {
	if e.Reason == "" {
		return ErrAlignment.Error()
	}
	return fmt.Sprintf("alignment failed: %s", e.Reason)
}

func (e AlignmentError) Is(target error) bool {
	return target == ErrAlignment
}
