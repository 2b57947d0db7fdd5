// Package app wires the frame pipeline, client delivery and optional
// publishing surfaces into one lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/handstream/internal/capture"
	"github.com/ayusman/handstream/internal/discovery"
	"github.com/ayusman/handstream/internal/mirror"
	"github.com/ayusman/handstream/internal/relay"
	"github.com/ayusman/handstream/internal/tracker"
)

// DefaultShutdownTimeout bounds the wait for delivery workers on Stop.
const DefaultShutdownTimeout = 2 * time.Second

// ErrAlreadyStarted is returned by Start on a running App.
var ErrAlreadyStarted = errors.New("app already started")

// Config holds configuration options for the application.
type Config struct {
	Source     capture.Source
	Listener   net.Listener
	Advertiser discovery.Advertiser

	Relay           relay.Config
	ShutdownTimeout time.Duration
	Tracker         tracker.Options

	// Mirror publishes frames when set.
	Mirror      mirror.Publisher
	MirrorTopic string
}

// App is the main application: it turns source frames into wire documents
// and serves them to every registered client.
type App struct {
	config   Config
	slot     relay.Slot
	registry *relay.Registry
	acceptor *relay.Acceptor
	tracker  *tracker.Tracker

	enabled    atomic.Bool
	calibrated atomic.Bool
	frames     atomic.Uint64

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	pipelineDone chan struct{}
	mirrorDone   chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Advertiser == nil {
		config.Advertiser = discovery.NopAdvertiser{}
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	if config.Relay.PollInterval <= 0 {
		config.Relay.PollInterval = relay.DefaultPollInterval
	}

	a := &App{
		config:   config,
		registry: relay.NewRegistry(),
		tracker:  tracker.New(config.Tracker),
	}
	a.enabled.Store(true)
	return a
}

// Start opens the source, advertises the control port and starts the
// pipeline, the acceptor and the mirror. ctx bounds every goroutine started.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return ErrAlreadyStarted
	}
	if a.config.Source == nil {
		return errors.New("no frame source configured")
	}
	if a.config.Listener == nil {
		return relay.ErrNoListener
	}

	if err := a.config.Source.Open(); err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	if err := a.config.Advertiser.Register(a.Port()); err != nil {
		log.Printf("Service registration failed, clients must connect manually: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running = true

	a.pipelineDone = make(chan struct{})
	go func() {
		defer close(a.pipelineDone)
		a.runPipeline(ctx)
	}()

	a.acceptor = relay.NewAcceptor(a.config.Listener, &a.slot, a.registry, a.config.Relay)
	go func() {
		if err := a.acceptor.Serve(ctx); err != nil {
			log.Printf("Acceptor stopped: %v", err)
		}
	}()

	if a.config.Mirror != nil {
		m := mirror.New(a.config.Mirror, &a.slot, a.config.MirrorTopic, a.config.Relay.PollInterval)
		a.mirrorDone = make(chan struct{})
		go func() {
			defer close(a.mirrorDone)
			m.Run(ctx)
		}()
	}

	log.Printf("Streaming started on port %d", a.Port())
	return nil
}

// Stop closes the listener, stops the workers, the mirror and the
// advertisement, then closes the source. It is safe to call more than once.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	a.running = false

	if err := a.config.Listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Printf("Error closing listener: %v", err)
	}

	a.cancel()
	if !a.acceptor.Wait(a.config.ShutdownTimeout) {
		log.Printf("Workers still running after %v, abandoning them", a.config.ShutdownTimeout)
	}

	if a.mirrorDone != nil {
		<-a.mirrorDone
	}

	a.config.Advertiser.Shutdown()

	if err := a.config.Source.Close(); err != nil {
		log.Printf("Error closing source: %v", err)
	}
	select {
	case <-a.pipelineDone:
	case <-time.After(a.config.ShutdownTimeout):
		log.Println("Pipeline did not stop in time")
	}

	log.Println("Streaming stopped")
}

// SetEnabled pauses or resumes frame processing. While paused, frames are
// read and dropped and clients keep receiving nothing new.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
	if enabled {
		log.Println("Tracking resumed")
	} else {
		log.Println("Tracking paused")
	}
}

// IsEnabled returns whether frame processing is running.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Slot returns the latest-frame slot.
func (a *App) Slot() *relay.Slot {
	return &a.slot
}

// Sessions returns the registry of connected clients.
func (a *App) Sessions() *relay.Registry {
	return a.registry
}

// Calibrated reports whether the tracker held a calibration after the last
// processed frame.
func (a *App) Calibrated() bool {
	return a.calibrated.Load()
}

// Frames returns the number of frames published to the slot.
func (a *App) Frames() uint64 {
	return a.frames.Load()
}

// Port returns the TCP control port, or 0 without a TCP listener.
func (a *App) Port() int {
	if a.config.Listener == nil {
		return 0
	}
	if addr, ok := a.config.Listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
