package relay

import (
	"context"
	"fmt"
	"log"
)

// Worker delivers frames to one session until the client disconnects, a
// send fails or ctx is cancelled.
type Worker struct {
	session  *Session
	slot     *Slot
	cfg      Config
	registry *Registry
}

// Run blocks until the session ends. The session's connection and datagram
// socket are closed on every exit path.
func (w *Worker) Run(ctx context.Context) {
	s := w.session
	if w.registry != nil {
		defer w.registry.remove(s.ID)
	}
	defer s.close()

	log.Printf("Session %d (%s): streaming to %s from port %d", s.ID, s.Token, s.dest, s.LocalPort())

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		// Clients never send on the control connection; a read only
		// returns when it is closed
		buf := make([]byte, 256)
		for {
			if _, err := s.conn.Read(buf); err != nil {
				return
			}
		}
	}()

	err := Follow(ctx, w.slot, w.cfg.PollInterval, closed, func(frame string) error {
		if _, err := s.udp.WriteToUDP([]byte(frame), s.dest); err != nil {
			return fmt.Errorf("send datagram: %w", err)
		}
		s.sent.Add(1)
		if w.cfg.Debug {
			log.Printf("id:%d %s", s.ID, frame)
		}
		return nil
	})

	switch {
	case err != nil:
		log.Printf("Session %d: %v", s.ID, err)
	case ctx.Err() != nil:
		log.Printf("Session %d: shutting down after %d frames", s.ID, s.sent.Load())
	default:
		log.Printf("Session %d: client disconnected after %d frames", s.ID, s.sent.Load())
	}
}
