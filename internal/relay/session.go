package relay

import (
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Delivery defaults.
const (
	// DefaultDestPort is the UDP port clients listen on for frames.
	DefaultDestPort = 7777
	// DefaultBasePort is the first local UDP port; session N sends from
	// DefaultBasePort+N.
	DefaultBasePort = 1201
	// DefaultStartupDelay is waited before accepting the first client, giving
	// the service advertisement time to propagate.
	DefaultStartupDelay = time.Second
)

// Config holds delivery settings shared by every session.
type Config struct {
	// DestPort is the client-side UDP port frames are sent to.
	DestPort int
	// BasePort is the local UDP port of session 0. Zero lets the OS pick
	// a port for every session.
	BasePort int
	// PollInterval is the delay between slot reads.
	PollInterval time.Duration
	// StartupDelay is waited once before the first accept.
	StartupDelay time.Duration
	// Debug logs every datagram sent.
	Debug bool
}

// DefaultConfig returns a Config with the standard ports and cadence.
func DefaultConfig() Config {
	return Config{
		DestPort:     DefaultDestPort,
		BasePort:     DefaultBasePort,
		PollInterval: DefaultPollInterval,
		StartupDelay: DefaultStartupDelay,
	}
}

// Session is one connected client: its control connection and the datagram
// socket frames are sent from.
type Session struct {
	ID        int
	Token     uuid.UUID
	StartedAt time.Time

	conn net.Conn
	udp  *net.UDPConn
	dest *net.UDPAddr
	sent atomic.Uint64
}

// SessionInfo is a read-only snapshot of a session.
type SessionInfo struct {
	ID        int       `json:"id"`
	Token     string    `json:"token"`
	Remote    string    `json:"remote"`
	LocalPort int       `json:"local_port"`
	Dest      string    `json:"dest"`
	Sent      uint64    `json:"sent"`
	StartedAt time.Time `json:"started_at"`
}

// newSession binds the datagram socket for an accepted connection.
func newSession(id int, conn net.Conn, cfg Config) (*Session, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("parse remote address: %w", err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("remote address %q is not an IP", host)
	}

	localPort := 0
	if cfg.BasePort > 0 {
		localPort = cfg.BasePort + id
	}

	udp, err := net.ListenUDP("udp", &net.UDPAddr{Port: localPort})
	if err != nil {
		return nil, fmt.Errorf("bind datagram port %d: %w", localPort, err)
	}

	return &Session{
		ID:        id,
		Token:     uuid.New(),
		StartedAt: time.Now(),
		conn:      conn,
		udp:       udp,
		dest:      &net.UDPAddr{IP: ip, Port: cfg.DestPort},
	}, nil
}

// Info returns a snapshot of the session.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		Token:     s.Token.String(),
		Remote:    s.conn.RemoteAddr().String(),
		LocalPort: s.LocalPort(),
		Dest:      s.dest.String(),
		Sent:      s.sent.Load(),
		StartedAt: s.StartedAt,
	}
}

// LocalPort returns the port frames are sent from.
func (s *Session) LocalPort() int {
	return s.udp.LocalAddr().(*net.UDPAddr).Port
}

// close releases the connection and the datagram socket.
func (s *Session) close() {
	s.conn.Close()
	s.udp.Close()
}

// Registry tracks live sessions. It is updated only when sessions start and
// end, never from the delivery loop.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int]*Session)}
}

func (r *Registry) add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *Registry) remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Get returns a snapshot of the session with the given ID.
func (r *Registry) Get(id int) (SessionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return SessionInfo{}, false
	}
	return s.Info(), true
}

// List returns snapshots of all live sessions ordered by ID.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
