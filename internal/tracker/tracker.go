// Package tracker turns raw device frames into calibrated hand poses.
package tracker

import (
	"math"
	"sort"

	"github.com/ayusman/handstream/internal/capture"
)

// NumFingers is the number of finger slots tracked per hand.
const NumFingers = 5

// State is the calibration state of a Tracker.
type State int

const (
	// Uncalibrated means slot identities are missing or stale and will be
	// reassigned on the next frame reporting every finger.
	Uncalibrated State = iota
	// Calibrated means every slot holds a finger identity.
	Calibrated
)

func (s State) String() string {
	switch s {
	case Calibrated:
		return "calibrated"
	default:
		return "uncalibrated"
	}
}

// Rotation holds the hand orientation in degrees.
type Rotation struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// PoseRecord is the normalized hand pose derived from one frame.
type PoseRecord struct {
	FrameID         int64               `json:"frame_id"`
	TimestampMillis int64               `json:"timestamp_ms"`
	Position        capture.Vector      `json:"position"`
	Rotation        Rotation            `json:"rotation"`
	Flexion         [NumFingers]float64 `json:"flexion"`
}

// slot binds one stable finger identity.
type slot struct {
	fingerID int
	assigned bool
}

// Options tune the tracker.
type Options struct {
	// ClampFlexion caps flexion values at 1.0.
	ClampFlexion bool
}

// Tracker runs the finger calibration state machine. It is not safe for
// concurrent use; the capture pipeline owns it.
type Tracker struct {
	opts    Options
	state   State
	slots   [NumFingers]slot
	flexion [NumFingers]float64
}

// New creates a Tracker in the Uncalibrated state.
func New(opts Options) *Tracker {
	return &Tracker{opts: opts, state: Uncalibrated}
}

// State returns the current calibration state.
func (t *Tracker) State() State {
	return t.state
}

// Slots returns the finger ID bound to each slot, -1 for unassigned slots.
func (t *Tracker) Slots() [NumFingers]int {
	var ids [NumFingers]int
	for i, s := range t.slots {
		if s.assigned {
			ids[i] = s.fingerID
		} else {
			ids[i] = -1
		}
	}
	return ids
}

// Reset drops all slot assignments and flexion values.
func (t *Tracker) Reset() {
	t.state = Uncalibrated
	t.slots = [NumFingers]slot{}
	t.flexion = [NumFingers]float64{}
}

// Process consumes one frame. It returns false when the frame has no hand,
// in which case the tracker state is left untouched.
func (t *Tracker) Process(frame *capture.RawFrame) (PoseRecord, bool) {
	if !frame.HasHand() {
		return PoseRecord{}, false
	}
	hand := frame.Hand
	normal := hand.PalmNormal
	count := len(hand.Fingers)

	if t.state == Uncalibrated && count == NumFingers {
		t.calibrate(hand)
	}

	for i, s := range t.slots {
		if !s.assigned {
			continue
		}
		finger, ok := hand.Finger(s.fingerID)
		if !ok || finger.Direction.IsZero() {
			continue
		}
		t.flexion[i] = t.estimate(finger.Direction, normal)
	}

	// Losing any finger invalidates the identities for the next full hand
	if count < NumFingers {
		t.state = Uncalibrated
	}

	// No fingers at all: the hand is closed
	if count == 0 {
		for i := range t.flexion {
			t.flexion[i] = 1.0
		}
	}

	return PoseRecord{
		FrameID:         frame.ID,
		TimestampMillis: frame.TimestampMicros / 1000,
		Position:        hand.Position,
		Rotation: Rotation{
			Pitch: degrees(hand.Direction.Pitch()),
			Yaw:   degrees(hand.Direction.Yaw()),
			Roll:  degrees(normal.Roll()),
		},
		Flexion: t.flexion,
	}, true
}

// calibrate binds slots to fingers ordered by tip X, reversed when the palm
// faces up.
func (t *Tracker) calibrate(hand *capture.RawHand) {
	fingers := make([]capture.RawFinger, len(hand.Fingers))
	copy(fingers, hand.Fingers)

	sort.SliceStable(fingers, func(i, j int) bool {
		return fingers[i].TipPosition.X < fingers[j].TipPosition.X
	})

	roll := hand.PalmNormal.Roll()
	if !(roll > -math.Pi/2 && roll < math.Pi/2) {
		for i, j := 0, len(fingers)-1; i < j; i, j = i+1, j-1 {
			fingers[i], fingers[j] = fingers[j], fingers[i]
		}
	}

	for i := range t.slots {
		t.slots[i] = slot{fingerID: fingers[i].ID, assigned: true}
	}
	t.state = Calibrated
}

func (t *Tracker) estimate(direction, normal capture.Vector) float64 {
	f := EstimateFlexion(direction, normal)
	if t.opts.ClampFlexion && f > 1.0 {
		return 1.0
	}
	return f
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
