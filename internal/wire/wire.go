// Package wire encodes hand poses into the text document sent to clients.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/ayusman/handstream/internal/capture"
	"github.com/ayusman/handstream/internal/tracker"
)

// ErrNonFinite is returned when a pose contains NaN or infinite values.
var ErrNonFinite = errors.New("pose contains non-finite value")

// Hand is one entry of the hands array. Every value is a decimal string.
type Hand struct {
	PalmRotation   []string `json:"palmRotation"`
	PalmPosition   []string `json:"palmPosition"`
	FingersFlexion []string `json:"fingersFlexion"`
}

// Document is the top-level frame document.
type Document struct {
	FrameID   int64  `json:"FrameID"`
	Timestamp int64  `json:"timestamp"`
	Hands     []Hand `json:"hands"`
}

// Encode serializes a pose into a frame document. Each number is formatted
// with exactly two decimals.
func Encode(rec tracker.PoseRecord) (string, error) {
	rotation, err := formatAll(rec.Rotation.Pitch, rec.Rotation.Yaw, rec.Rotation.Roll)
	if err != nil {
		return "", fmt.Errorf("palm rotation: %w", err)
	}
	position, err := formatAll(rec.Position.X, rec.Position.Y, rec.Position.Z)
	if err != nil {
		return "", fmt.Errorf("palm position: %w", err)
	}
	flexion, err := formatAll(rec.Flexion[:]...)
	if err != nil {
		return "", fmt.Errorf("finger flexion: %w", err)
	}

	doc := Document{
		FrameID:   rec.FrameID,
		Timestamp: rec.TimestampMillis,
		Hands: []Hand{{
			PalmRotation:   rotation,
			PalmPosition:   position,
			FingersFlexion: flexion,
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal frame: %w", err)
	}
	return string(data), nil
}

// Decode parses a frame document back into a pose. Values carry the two
// decimal precision of the document.
func Decode(text string) (tracker.PoseRecord, error) {
	var doc Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return tracker.PoseRecord{}, fmt.Errorf("unmarshal frame: %w", err)
	}
	if len(doc.Hands) == 0 {
		return tracker.PoseRecord{}, errors.New("frame has no hand")
	}
	hand := doc.Hands[0]

	rotation, err := parseAll(hand.PalmRotation, 3)
	if err != nil {
		return tracker.PoseRecord{}, fmt.Errorf("palm rotation: %w", err)
	}
	position, err := parseAll(hand.PalmPosition, 3)
	if err != nil {
		return tracker.PoseRecord{}, fmt.Errorf("palm position: %w", err)
	}
	flexion, err := parseAll(hand.FingersFlexion, tracker.NumFingers)
	if err != nil {
		return tracker.PoseRecord{}, fmt.Errorf("finger flexion: %w", err)
	}

	rec := tracker.PoseRecord{
		FrameID:         doc.FrameID,
		TimestampMillis: doc.Timestamp,
		Position:        capture.Vector{X: position[0], Y: position[1], Z: position[2]},
		Rotation:        tracker.Rotation{Pitch: rotation[0], Yaw: rotation[1], Roll: rotation[2]},
	}
	copy(rec.Flexion[:], flexion)
	return rec, nil
}

// Round returns v rounded the way Encode formats it.
func Round(v float64) float64 {
	r, _ := strconv.ParseFloat(format(v), 64)
	return r
}

// format writes v with two decimals. Values that round to zero are written
// as "0.00", never "-0.00".
func format(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}

func formatAll(values ...float64) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrNonFinite
		}
		out[i] = format(v)
	}
	return out, nil
}

func parseAll(values []string, n int) ([]float64, error) {
	if len(values) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(values))
	}
	out := make([]float64, n)
	for i, s := range values {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
