// Package relay fans the latest encoded frame out to connected clients.
package relay

import "sync/atomic"

// Slot holds the most recently encoded frame. It has a single writer and any
// number of readers; Load never blocks Store and always sees a whole frame.
type Slot struct {
	frame atomic.Pointer[string]
}

// Store publishes frame, replacing the previous one.
func (s *Slot) Store(frame string) {
	s.frame.Store(&frame)
}

// Load returns the current frame, or false before the first Store.
func (s *Slot) Load() (string, bool) {
	p := s.frame.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}
