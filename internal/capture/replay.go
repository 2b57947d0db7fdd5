package capture

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ReplaySource plays back frames recorded as JSON lines, one frame per line,
// paced at a fixed interval.
type ReplaySource struct {
	open     func() (io.ReadCloser, error)
	interval time.Duration
	loop     bool

	mu     sync.Mutex
	frames []RawFrame
	index  int
	ticker *time.Ticker
	done   chan struct{}
}

// NewReplaySource creates a source reading the recording at path.
func NewReplaySource(path string, interval time.Duration, loop bool) *ReplaySource {
	return newReplaySource(func() (io.ReadCloser, error) { return os.Open(path) }, interval, loop)
}

// NewReplayReader creates a source reading a recording from r. The reader is
// consumed on Open.
func NewReplayReader(r io.Reader, interval time.Duration, loop bool) *ReplaySource {
	return newReplaySource(func() (io.ReadCloser, error) { return io.NopCloser(r), nil }, interval, loop)
}

func newReplaySource(open func() (io.ReadCloser, error), interval time.Duration, loop bool) *ReplaySource {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &ReplaySource{
		open:     open,
		interval: interval,
		loop:     loop,
	}
}

// Open loads the whole recording into memory.
func (s *ReplaySource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return nil
	}

	rc, err := s.open()
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer rc.Close()

	frames, err := ReadFrames(rc)
	if err != nil {
		return err
	}

	s.frames = frames
	s.index = 0
	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})
	return nil
}

// Close stops playback and unblocks a pending ReadFrame.
func (s *ReplaySource) Close() error {
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

// ReadFrame waits for the next tick and returns the next recorded frame.
func (s *ReplaySource) ReadFrame() (*RawFrame, error) {
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

// ReadFrames parses a JSON-lines recording. Blank lines and lines starting
// with '#' are skipped.
func ReadFrames(r io.Reader) ([]RawFrame, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var frames []RawFrame
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 || data[0] == '#' {
			continue
		}
		frame, err := ParseFrame(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, *frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return frames, nil
}
