package gateway

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fileshare/pkg/adapter"
	"github.com/marmos91/fileshare/pkg/storage"
)

type countingMetrics struct {
	mu        sync.Mutex
	protocols map[string]int
	accepted  int
}

func (m *countingMetrics) RecordConnectionAccepted() {
	m.mu.Lock()
	m.accepted++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordProtocol(p string) {
	m.mu.Lock()
	m.protocols[p]++
	m.mu.Unlock()
}

func (m *countingMetrics) protocol(p string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.protocols[p]
}

func (m *countingMetrics) RecordConnectionClosed() {}
func (m *countingMetrics) RecordConnectionForceClosed() {}
func (m *countingMetrics) SetActiveConnections(int32) {}
func (m *countingMetrics) RecordAuth(string, bool) {}
func (m *countingMetrics) RecordCommand(string, string) {}
func (m *countingMetrics) RecordHTTPRequest(string, int) {}
func (m *countingMetrics) RecordBytes(string, string, int64) {}
func (m *countingMetrics) RecordDuration(string, string, time.Duration) {}

type harness struct {
	addr    string
	store   *storage.Store
	metrics *countingMetrics
}

func startGateway(t *testing.T) *harness {
	t.Helper()

	root := t.TempDir()
	store, err := storage.New(storage.Config{
		UploadDir: filepath.Join(root, "uploads"),
		TrashDir:  filepath.Join(root, "trash"),
		StaticDir: filepath.Join(root, "www"),
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureLayout())

	m := &countingMetrics{protocols: map[string]int{}}
	auth := adapter.CredentialFunc(func(u, p string) bool { return u == "admin" && p == "password123" })

	a := New(Config{
		BindAddress: "127.0.0.1",
		Timeouts: Timeouts{
			Initial:    500 * time.Millisecond,
			HeaderIdle: 200 * time.Millisecond,
			Command:    time.Second,
			UploadIdle: 200 * time.Millisecond,
			BodyIdle:   200 * time.Millisecond,
			Write:      2 * time.Second,
			Shutdown:   2 * time.Second,
		},
	}, store, auth, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	addr := a.GetListenerAddr()
	require.NotEmpty(t, addr)

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("gateway did not stop")
		}
	})

	return &harness{addr: addr, store: store, metrics: m}
}

func (h *harness) dial(t *testing.T) net.Conn {
	t.Helper()
	c, err := net.DialTimeout("tcp", h.addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readReply(t *testing.T, c net.Conn) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	buf := make([]byte, 4096)
	n, err := c.Read(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func readAll(t *testing.T, c net.Conn) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	data, err := io.ReadAll(c)
	require.NoError(t, err)
	return string(data)
}

func TestGateway_CommandProtocol(t *testing.T) {
	h := startGateway(t)

	c := h.dial(t)
	_, err := c.Write([]byte("admin password123"))
	require.NoError(t, err)
	assert.Equal(t, "AUTH OK", readReply(t, c))

	_, err = c.Write([]byte("UPLOAD hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "READY", readReply(t, c))

	_, err = c.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "File uploaded: hello.txt", readAll(t, c))

	data, err := os.ReadFile(filepath.Join(h.store.Dir(storage.AreaUpload), "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	c = h.dial(t)
	_, err = c.Write([]byte("admin password123\nLIST\n"))
	require.NoError(t, err)
	assert.Equal(t, "AUTH OK", readReply(t, c))
	assert.Equal(t, "=== Server Files ===\nhello.txt\n", readAll(t, c))

	assert.Equal(t, 2, h.metrics.protocol("command"))
}

func TestGateway_HTTP(t *testing.T) {
	h := startGateway(t)

	c := h.dial(t)
	_, err := c.Write([]byte("GET /list HTTP/1.1\r\nHost: localhost\r\nCookie: session=authenticated\r\n\r\n"))
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(strings.NewReader(readAll(t, c))), nil)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "=== Server Files ===\n(none)\n", string(body))

	c = h.dial(t)
	_, err = c.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	resp, err = http.ReadResponse(bufio.NewReader(strings.NewReader(readAll(t, c))), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	assert.Equal(t, 2, h.metrics.protocol("http"))
}

func TestGateway_SilentConnectionIsClosed(t *testing.T) {
	h := startGateway(t)

	c := h.dial(t)
	start := time.Now()
	assert.Equal(t, "", readAll(t, c))
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, 1, h.metrics.protocol("unknown"))
}

func TestGateway_ServesOneConnectionAtATime(t *testing.T) {
	h := startGateway(t)

	first := h.dial(t)
	_, err := first.Write([]byte("admin password123"))
	require.NoError(t, err)
	require.Equal(t, "AUTH OK", readReply(t, first))

	second := h.dial(t)
	_, err = second.Write([]byte("admin password123"))
	require.NoError(t, err)

	// The second peer is queued until the first connection is done.
	require.NoError(t, second.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, err = second.Read(make([]byte, 16))
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())

	_, err = first.Write([]byte("LIST_TRASH"))
	require.NoError(t, err)
	assert.Equal(t, "=== Trash Files ===\n(none)\n", readAll(t, first))

	assert.Equal(t, "AUTH OK", readReply(t, second))
}
