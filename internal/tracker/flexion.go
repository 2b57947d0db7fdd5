package tracker

import (
	"math"

	"github.com/ayusman/handstream/internal/capture"
)

// flexionScale is the angle span, in radians, that maps onto a full curl.
// Fingers within 0.2 rad of the normal read above 1.0.
const flexionScale = math.Pi/2 - 0.2

// EstimateFlexion maps a finger direction and the palm normal to a flexion
// value: 0 for a straight finger, 1 for a finger curled onto the normal.
// The result is not clamped and exceeds 1 for angles below 0.2 rad.
// fingerDirection must be non-zero.
func EstimateFlexion(fingerDirection, palmNormal capture.Vector) float64 {
	theta := fingerDirection.AngleTo(palmNormal)

	if theta >= math.Pi/2 {
		return 0.0
	}
	if theta <= 0 {
		return 1.0
	}

	return (math.Pi/2 - theta) / flexionScale
}
