package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// ErrNoListener is returned by Serve when the acceptor has no listener.
var ErrNoListener = errors.New("acceptor has no listener")

// Acceptor registers clients by accepting control connections and starts one
// Worker per connection.
type Acceptor struct {
	listener net.Listener
	slot     *Slot
	registry *Registry
	cfg      Config

	nextID int

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewAcceptor creates an acceptor serving l. Workers read frames from slot
// and register themselves in registry.
func NewAcceptor(l net.Listener, slot *Slot, registry *Registry, cfg Config) *Acceptor {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Acceptor{
		listener: l,
		slot:     slot,
		registry: registry,
		cfg:      cfg,
	}
}

// Serve accepts connections until the listener is closed, which returns nil.
// Any other accept failure is returned; running workers are not affected.
// ctx is the lifetime of the workers, not of the accept loop.
func (a *Acceptor) Serve(ctx context.Context) error {
	if a.listener == nil {
		return ErrNoListener
	}

	if a.cfg.StartupDelay > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(a.cfg.StartupDelay):
		}
	}

	log.Printf("Waiting for incoming connections on %s", a.listener.Addr())

	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Println("Listener closed, no longer accepting clients")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		id := a.nextID
		a.nextID++
		log.Printf(">> :%d New connection request from %s", id, conn.RemoteAddr())

		session, err := newSession(id, conn, a.cfg)
		if err != nil {
			log.Printf("Session %d: %v", id, err)
			conn.Close()
			continue
		}

		worker := &Worker{
			session:  session,
			slot:     a.slot,
			cfg:      a.cfg,
			registry: a.registry,
		}

		// Workers are only added while nobody waits on them
		a.mu.Lock()
		if a.stopped {
			a.mu.Unlock()
			log.Printf("Session %d: rejected, acceptor is stopping", id)
			session.close()
			continue
		}
		a.registry.add(session)
		a.wg.Add(1)
		a.mu.Unlock()

		go func() {
			defer a.wg.Done()
			worker.Run(ctx)
		}()
	}
}

// Registry returns the registry of live sessions.
func (a *Acceptor) Registry() *Registry {
	return a.registry
}

// Wait blocks until every worker has exited or timeout elapses. It reports
// whether all workers exited. Connections accepted after Wait is first called
// are closed without starting a worker.
func (a *Acceptor) Wait(timeout time.Duration) bool {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
