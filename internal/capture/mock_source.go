package capture

import "sync"

// MockSource plays back a scripted frame sequence for testing
type MockSource struct {
	frames  []RawFrame
	index   int
	loop    bool
	err     error
	mu      sync.Mutex
	running bool
}

func NewMockSource(frames []RawFrame, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
	}
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) ReadFrame() (*RawFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceClosed
	}
	if s.err != nil {
		err := s.err
		s.err = nil
		return nil, err
	}

	if s.index >= len(s.frames) {
		if !s.loop || len(s.frames) == 0 {
			return nil, ErrEndOfStream
		}
		s.index = 0
	}

	frame := s.frames[s.index]
	s.index++
	return &frame, nil
}

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetFrames replaces the frame sequence and rewinds.
func (s *MockSource) SetFrames(frames []RawFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
	s.index = 0
}

// FailNext makes the next ReadFrame return err once.
func (s *MockSource) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// FingersAt builds a hand with one finger per tip X coordinate. Finger IDs
// start at firstID. Every finger points straight forward.
func FingersAt(firstID int, xs ...float64) *RawHand {
	hand := &RawHand{
		Position:   Vector{X: 0, Y: 150, Z: 0},
		Direction:  Vector{X: 0, Y: 0, Z: -1},
		PalmNormal: Vector{X: 0, Y: -1, Z: 0},
	}
	for i, x := range xs {
		hand.Fingers = append(hand.Fingers, RawFinger{
			ID:          firstID + i,
			TipPosition: Vector{X: x, Y: 180, Z: -40},
			Direction:   Vector{X: 0, Y: 0, Z: -1},
		})
	}
	return hand
}
