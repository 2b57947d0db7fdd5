package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// BridgeSource reads frames from a helper process wrapping the device SDK.
// The helper writes one JSON frame per line on stdout.
type BridgeSource struct {
	name string
	args []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdout  *bufio.Reader
	pipe    io.ReadCloser
	started bool
	reads   sync.WaitGroup
}

// NewBridgeSource creates a bridge that runs name with args on Open.
func NewBridgeSource(name string, args ...string) *BridgeSource {
	return &BridgeSource{
		name: name,
		args: args,
	}
}

// Open starts the helper process.
func (b *BridgeSource) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}
	if b.name == "" {
		return errors.New("bridge command not configured")
	}

	cmd := exec.Command(b.name, b.args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Forward helper diagnostics
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start bridge %s: %w", b.name, err)
	}

	b.cmd = cmd
	b.pipe = stdout
	b.stdout = bufio.NewReaderSize(stdout, 64*1024)
	b.started = true
	return nil
}

// ReadFrame blocks until the helper emits the next line.
func (b *BridgeSource) ReadFrame() (*RawFrame, error) {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil, ErrSourceClosed
	}
	reader := b.stdout
	b.reads.Add(1)
	b.mu.Unlock()
	defer b.reads.Done()

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 1 {
			return ParseFrame(line)
		}
		if err != nil {
			if !b.isStarted() {
				return nil, ErrSourceClosed
			}
			if errors.Is(err, io.EOF) {
				return nil, ErrEndOfStream
			}
			return nil, fmt.Errorf("read bridge output: %w", err)
		}
	}
}

// Close terminates the helper process. The process is reaped only after
// any blocked ReadFrame has observed the closed pipe.
func (b *BridgeSource) Close() error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	cmd, pipe := b.cmd, b.pipe
	b.cmd = nil
	b.stdout = nil
	b.pipe = nil
	b.mu.Unlock()

	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	pipe.Close()
	b.reads.Wait()

	// The helper was killed, so its exit status is not interesting
	_ = cmd.Wait()
	return nil
}

func (b *BridgeSource) isStarted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}
