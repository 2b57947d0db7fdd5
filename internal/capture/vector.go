package capture

import "math"

// Vector is a 3D vector in the device coordinate system (millimetres for
// positions, unit length for directions).
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Dot returns the dot product of v and o.
func (v Vector) Dot(o Vector) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Magnitude returns the Euclidean length of v.
func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.Dot(v))
}

// IsZero reports whether all components of v are exactly zero.
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// AngleTo returns the angle in radians between v and o, in [0, pi].
// It returns 0 if either vector has zero length.
func (v Vector) AngleTo(o Vector) float64 {
	denom := v.Magnitude() * o.Magnitude()
	if denom <= 1e-10 {
		return 0
	}
	cos := v.Dot(o) / denom
	// Rounding can push the cosine slightly outside [-1, 1]
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}

// Pitch is the angle in radians between the negative z-axis and the
// projection of v onto the y-z plane.
func (v Vector) Pitch() float64 {
	return math.Atan2(v.Y, -v.Z)
}

// Yaw is the angle in radians between the negative z-axis and the
// projection of v onto the x-z plane.
func (v Vector) Yaw() float64 {
	return math.Atan2(v.X, -v.Z)
}

// Roll is the angle in radians between the negative y-axis and the
// projection of v onto the x-y plane.
func (v Vector) Roll() float64 {
	return math.Atan2(v.X, -v.Y)
}
