// Package capture provides the raw hand-tracking frame model and the sources
// that produce it (device bridge, file replay, simulator and mock).
package capture

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrSourceClosed is returned when reading from a source that is not open.
	ErrSourceClosed = errors.New("source is not open")

	// ErrEndOfStream is returned when a finite source has no more frames.
	ErrEndOfStream = errors.New("end of frame stream")
)

// RawFinger is one finger pointable as reported by the device.
type RawFinger struct {
	ID          int    `json:"id"`
	TipPosition Vector `json:"tipPosition"`
	Direction   Vector `json:"direction"`
}

// RawHand is the detected hand of a frame.
type RawHand struct {
	Position   Vector      `json:"position"`
	Direction  Vector      `json:"direction"`
	PalmNormal Vector      `json:"palmNormal"`
	Fingers    []RawFinger `json:"fingers"`
}

// Finger returns the finger with the given ID, if present in the hand.
func (h *RawHand) Finger(id int) (RawFinger, bool) {
	for _, f := range h.Fingers {
		if f.ID == id {
			return f, true
		}
	}
	return RawFinger{}, false
}

// RawFrame is one discrete sample from the device. Hand is nil when no hand
// was detected.
type RawFrame struct {
	ID              int64    `json:"id"`
	TimestampMicros int64    `json:"timestamp"`
	Hand            *RawHand `json:"hand,omitempty"`
}

// HasHand reports whether the frame contains a detected hand.
func (f *RawFrame) HasHand() bool {
	return f != nil && f.Hand != nil
}

// Source defines the interface for frame producers.
type Source interface {
	// Open prepares the source for reading.
	Open() error

	// Close releases the source. A blocked ReadFrame returns ErrSourceClosed.
	Close() error

	// ReadFrame blocks until the next frame is available.
	// Finite sources return ErrEndOfStream when exhausted.
	ReadFrame() (*RawFrame, error)
}

// ParseFrame decodes one JSON frame document.
func ParseFrame(data []byte) (*RawFrame, error) {
	var frame RawFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	return &frame, nil
}
