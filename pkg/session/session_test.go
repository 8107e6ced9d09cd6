package session

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	addr := &net.TCPAddr{IP: net.ParseIP("192.168.1.20"), Port: 51234}
	s := New(addr)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "192.168.1.20:51234", s.RemoteAddr)
	assert.Equal(t, "192.168.1.20", s.ClientIP)
	assert.Equal(t, ProtocolUnknown, s.Protocol())
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Username())
	assert.False(t, s.StartedAt.IsZero())
	assert.GreaterOrEqual(t, s.Age().Nanoseconds(), int64(0))
}

func TestSessionIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := New(nil).ID
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestSessionWithoutRemote(t *testing.T) {
	s := New(nil)
	assert.Empty(t, s.RemoteAddr)
	assert.Empty(t, s.ClientIP)
}

func TestAuthenticationState(t *testing.T) {
	s := New(nil)
	s.SetProtocol(ProtocolCommand)
	s.MarkAuthenticated("admin")

	assert.Equal(t, ProtocolCommand, s.Protocol())
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "admin", s.Username())
}

func TestSessionsDoNotShareState(t *testing.T) {
	a, b := New(nil), New(nil)
	a.MarkAuthenticated("admin")
	assert.False(t, b.IsAuthenticated())
}

func TestConcurrentAccess(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.MarkAuthenticated("admin") }()
		go func() { defer wg.Done(); _ = s.IsAuthenticated(); _ = s.Username() }()
	}
	wg.Wait()
	assert.True(t, s.IsAuthenticated())
}
