package capture

import (
	"math"
	"sync"
	"time"
)

// Simulator timing constants.
const (
	// DefaultSimFPS is the simulated sensor rate.
	DefaultSimFPS = 60
	// simFistEvery is how often the simulated hand closes into a fist.
	simFistEvery = 4 * time.Second
	// simFistFor is how long the fist is held, with no fingers reported.
	simFistFor = 500 * time.Millisecond
)

// fingerSpacing is the tip X offset of each finger from the palm centre, in mm.
var fingerSpacing = [5]float64{-60, -30, 0, 30, 60}

// SimulatedSource produces a synthetic hand that drifts in a circle and
// curls its fingers in a wave. It is used when no device is attached.
type SimulatedSource struct {
	fps int

	mu      sync.Mutex
	ticker  *time.Ticker
	done    chan struct{}
	start   time.Time
	frameID int64
}

// NewSimulatedSource creates a simulator running at fps frames per second.
func NewSimulatedSource(fps int) *SimulatedSource {
	if fps <= 0 {
		fps = DefaultSimFPS
	}
	return &SimulatedSource{fps: fps}
}

func (s *SimulatedSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return nil
	}
	s.ticker = time.NewTicker(time.Second / time.Duration(s.fps))
	s.done = make(chan struct{})
	s.start = time.Now()
	return nil
}

func (s *SimulatedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return nil
	}
	close(s.done)
	s.ticker.Stop()
	s.done = nil
	return nil
}

func (s *SimulatedSource) ReadFrame() (*RawFrame, error) {
	s.mu.Lock()
	done, ticker := s.done, s.ticker
	s.mu.Unlock()

	if done == nil {
		return nil, ErrSourceClosed
	}

	select {
	case <-done:
		return nil, ErrSourceClosed
	case <-ticker.C:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID++
	return SimulateFrame(s.frameID, time.Since(s.start)), nil
}

// SimulateFrame computes the synthetic frame at elapsed time t.
func SimulateFrame(id int64, t time.Duration) *RawFrame {
	secs := t.Seconds()

	normal := Vector{X: 0, Y: -1, Z: 0}
	forward := Vector{X: 0, Y: 0, Z: -1}
	hand := &RawHand{
		Position: Vector{
			X: 40 * math.Cos(secs),
			Y: 200 + 20*math.Sin(2*secs),
			Z: 40 * math.Sin(secs),
		},
		Direction:  forward,
		PalmNormal: normal,
	}

	frame := &RawFrame{
		ID:              id,
		TimestampMicros: t.Microseconds(),
		Hand:            hand,
	}

	// Closed fist: the device loses every finger
	if t%simFistEvery < simFistFor {
		return frame
	}

	for i, dx := range fingerSpacing {
		curl := 0.5 + 0.5*math.Sin(secs*2+float64(i)*0.6)
		theta := (math.Pi / 2) * (1 - curl)
		hand.Fingers = append(hand.Fingers, RawFinger{
			ID: 10 + i,
			TipPosition: Vector{
				X: hand.Position.X + dx,
				Y: hand.Position.Y + 30,
				Z: hand.Position.Z - 50,
			},
			Direction: Vector{
				X: math.Cos(theta)*normal.X + math.Sin(theta)*forward.X,
				Y: math.Cos(theta)*normal.Y + math.Sin(theta)*forward.Y,
				Z: math.Cos(theta)*normal.Z + math.Sin(theta)*forward.Z,
			},
		})
	}
	return frame
}
