// Package session holds the per-connection state of the file port and the
// credential check both protocols share.
//
// A Session is created when a connection is accepted and dropped when its
// handler returns; nothing is looked up by transport handle, so a recycled
// socket can never inherit an earlier login.
package session

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Protocol names the dialect a connection turned out to speak.
type Protocol string

const (
	ProtocolUnknown Protocol = "unknown"
	ProtocolHTTP    Protocol = "http"
	ProtocolCommand Protocol = "command"
)

// Session is the explicit context of one connection.
type Session struct {
	ID         string
	RemoteAddr string
	ClientIP   string
	StartedAt  time.Time

	mu            sync.RWMutex
	protocol      Protocol
	authenticated bool
	username      string
}

// New creates a session for a connection from remote. remote may be nil.
func New(remote net.Addr) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		protocol:  ProtocolUnknown,
	}
	if remote != nil {
		s.RemoteAddr = remote.String()
		s.ClientIP = hostOnly(s.RemoteAddr)
	}
	return s
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// SetProtocol records the sniffed protocol.
func (s *Session) SetProtocol(p Protocol) {
	s.mu.Lock()
	s.protocol = p
	s.mu.Unlock()
}

// Protocol returns the sniffed protocol.
func (s *Session) Protocol() Protocol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protocol
}

// MarkAuthenticated records a successful login.
func (s *Session) MarkAuthenticated(username string) {
	s.mu.Lock()
	s.authenticated = true
	s.username = username
	s.mu.Unlock()
}

// IsAuthenticated reports whether the connection has logged in.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Username returns the logged-in user, or "" before authentication.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Age returns how long the session has been open.
func (s *Session) Age() time.Duration {
	return time.Since(s.StartedAt)
}
