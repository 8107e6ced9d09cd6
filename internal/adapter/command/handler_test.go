package command

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fileshare/internal/protocol/framing"
	"github.com/marmos91/fileshare/pkg/adapter"
	"github.com/marmos91/fileshare/pkg/bufpool"
	"github.com/marmos91/fileshare/pkg/session"
	"github.com/marmos91/fileshare/pkg/storage"
)

const (
	testUser = "admin"
	testPass = "password123"
)

type fakeMetrics struct {
	mu       sync.Mutex
	auth     map[bool]int
	commands map[string]int
	bytes    map[string]int64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{auth: map[bool]int{}, commands: map[string]int{}, bytes: map[string]int64{}}
}

func (m *fakeMetrics) RecordConnectionAccepted() {}
func (m *fakeMetrics) RecordConnectionClosed() {}
func (m *fakeMetrics) RecordConnectionForceClosed() {}
func (m *fakeMetrics) SetActiveConnections(int32) {}
func (m *fakeMetrics) RecordProtocol(string) {}
func (m *fakeMetrics) RecordHTTPRequest(string, int) {}
func (m *fakeMetrics) RecordDuration(string, string, time.Duration) {}

func (m *fakeMetrics) RecordAuth(_ string, ok bool) {
	m.mu.Lock()
	m.auth[ok]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordCommand(verb, result string) {
	m.mu.Lock()
	m.commands[verb+"/"+result]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordBytes(_ string, direction string, n int64) {
	m.mu.Lock()
	m.bytes[direction] += n
	m.mu.Unlock()
}

type fixture struct {
	store   *storage.Store
	handler *Handler
	metrics *fakeMetrics
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()

	root := t.TempDir()
	store, err := storage.New(storage.Config{
		UploadDir: filepath.Join(root, "uploads"),
		TrashDir:  filepath.Join(root, "trash"),
		StaticDir: filepath.Join(root, "www"),
		ChunkSize: 16,
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureLayout())

	cfg := Config{
		CommandTimeout: 200 * time.Millisecond,
		UploadIdle:     150 * time.Millisecond,
		WriteTimeout:   2 * time.Second,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	m := newFakeMetrics()
	auth := adapter.CredentialFunc(func(u, p string) bool { return u == testUser && p == testPass })
	return &fixture{store: store, handler: NewHandler(store, auth, m, cfg), metrics: m}
}

func (f *fixture) put(t *testing.T, a storage.Area, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.store.Dir(a), name), []byte(content), 0644))
}

func (f *fixture) read(t *testing.T, a storage.Area, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.store.Dir(a), name))
	require.NoError(t, err)
	return string(data)
}

// run plays the server side of one connection: the sniffer's initial fill
// followed by Serve. client drives the other end of the pipe.
func (f *fixture) run(t *testing.T, client func(c net.Conn)) error {
	t.Helper()

	srv, cli := net.Pipe()
	done := make(chan error, 1)
	go func() {
		defer srv.Close()
		r := framing.NewReader(srv, 16)
		if _, err := r.Fill(bufpool.SniffSize, time.Second); err != nil {
			done <- err
			return
		}
		done <- f.handler.Serve(context.Background(), session.New(srv.RemoteAddr()), srv, r)
	}()

	client(cli)
	_ = cli.Close()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return")
		return nil
	}
}

func send(t *testing.T, c net.Conn, s string) {
	t.Helper()
	require.NoError(t, c.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err := c.Write([]byte(s))
	require.NoError(t, err)
}

func recv(t *testing.T, c net.Conn) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64<<10)
	n, err := c.Read(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func recvAll(t *testing.T, c net.Conn) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	data, err := io.ReadAll(c)
	require.NoError(t, err)
	return string(data)
}

func login(t *testing.T, c net.Conn) {
	t.Helper()
	send(t, c, testUser+" "+testPass)
	require.Equal(t, "AUTH OK", recv(t, c))
}

func TestServe_AuthFailed(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, func(c net.Conn) {
		send(t, c, "admin wrong")
		assert.Equal(t, "AUTH FAILED", recv(t, c))
	})
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, 1, f.metrics.auth[false])
}

func TestServe_AuthNeedsTwoFields(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, func(c net.Conn) {
		send(t, c, "admin")
		assert.Equal(t, "AUTH FAILED", recv(t, c))
	})
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestServe_NoCommand(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, func(c net.Conn) {
		login(t, c)
		time.Sleep(300 * time.Millisecond)
	})
	assert.ErrorIs(t, err, ErrNoCommand)
	assert.Equal(t, 1, f.metrics.auth[true])
}

func TestServe_UnknownCommand(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "LIST_ALL\n")
		assert.Equal(t, "Unknown command", recv(t, c))
	})
	assert.NoError(t, err)
}

func TestServe_Upload(t *testing.T) {
	sizes := []int{0, 1, 15, 16, 17, 100}
	for _, size := range sizes {
		t.Run(fmt.Sprintf("%d_bytes", size), func(t *testing.T) {
			f := newFixture(t)
			content := strings.Repeat("a", size)

			err := f.run(t, func(c net.Conn) {
				login(t, c)
				send(t, c, "UPLOAD a.txt\n")
				require.Equal(t, "READY", recv(t, c))
				for i := 0; i < len(content); i += 10 {
					send(t, c, content[i:min(i+10, len(content))])
				}
				assert.Equal(t, "File uploaded: a.txt", recv(t, c))
			})
			require.NoError(t, err)
			assert.Equal(t, content, f.read(t, storage.AreaUpload, "a.txt"))
			assert.Equal(t, int64(size), f.metrics.bytes["in"])
		})
	}
}

func TestServe_UploadNameWithSpaces(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "UPLOAD my file.txt\r\n")
		require.Equal(t, "READY", recv(t, c))
		send(t, c, "hello")
		assert.Equal(t, "File uploaded: my file.txt", recv(t, c))
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", f.read(t, storage.AreaUpload, "my file.txt"))
}

func TestServe_UploadTruncatesExisting(t *testing.T) {
	f := newFixture(t)
	f.put(t, storage.AreaUpload, "a.txt", "previous content that is long")

	err := f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "UPLOAD a.txt")
		require.Equal(t, "READY", recv(t, c))
		send(t, c, "new")
		assert.Equal(t, "File uploaded: a.txt", recv(t, c))
	})
	require.NoError(t, err)
	assert.Equal(t, "new", f.read(t, storage.AreaUpload, "a.txt"))
}

func TestServe_UploadCreateFailure(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "UPLOAD ../escape.txt")
		require.Equal(t, "READY", recv(t, c))
		assert.Equal(t, "Error creating file", recv(t, c))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.metrics.commands["UPLOAD/failure"])
}

func TestServe_UploadEndsOnShortRead(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.EndUploadOnShortRead = true
		c.UploadIdle = 5 * time.Second
	})

	start := time.Now()
	err := f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "UPLOAD a.txt")
		require.Equal(t, "READY", recv(t, c))
		send(t, c, "short")
		assert.Equal(t, "File uploaded: a.txt", recv(t, c))
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, "short", f.read(t, storage.AreaUpload, "a.txt"))
}

func TestServe_Download(t *testing.T) {
	f := newFixture(t)
	content := strings.Repeat("0123456789", 7)
	f.put(t, storage.AreaUpload, "a.txt", content)

	var got string
	err := f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "DOWNLOAD a.txt")
		got = recvAll(t, c)
	})
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, int64(len(content)), f.metrics.bytes["out"])
}

func TestServe_DownloadMissing(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "DOWNLOAD nope.txt")
		assert.Equal(t, "File not found: nope.txt", recv(t, c))
	})
	require.NoError(t, err)
}

func TestServe_List(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "LIST")
		assert.Equal(t, "=== Server Files ===\n(none)\n", recv(t, c))
	})
	require.NoError(t, err)

	f.put(t, storage.AreaUpload, "b.txt", "b")
	f.put(t, storage.AreaUpload, "a.txt", "a")
	require.NoError(t, os.Mkdir(filepath.Join(f.store.Dir(storage.AreaUpload), "dir"), 0755))

	err = f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "LIST\r\n")
		assert.Equal(t, "=== Server Files ===\na.txt\nb.txt\n", recv(t, c))
	})
	require.NoError(t, err)
}

func TestServe_ListTrash(t *testing.T) {
	f := newFixture(t)
	f.put(t, storage.AreaTrash, "old.txt", "x")

	err := f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "LIST_TRASH")
		assert.Equal(t, "=== Trash Files ===\nold.txt\n", recv(t, c))
	})
	require.NoError(t, err)
}

func TestServe_DeleteAndRestore(t *testing.T) {
	f := newFixture(t)
	f.put(t, storage.AreaUpload, "a.txt", "hello")

	err := f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "DELETE a.txt")
		assert.Equal(t, "File moved to trash: a.txt", recv(t, c))
	})
	require.NoError(t, err)
	assert.False(t, f.store.Exists(storage.AreaUpload, "a.txt"))
	assert.Equal(t, "hello", f.read(t, storage.AreaTrash, "a.txt"))

	err = f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "RESTORE a.txt")
		assert.Equal(t, "File restored: a.txt", recv(t, c))
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", f.read(t, storage.AreaUpload, "a.txt"))
	assert.False(t, f.store.Exists(storage.AreaTrash, "a.txt"))

	assert.Equal(t, 1, f.metrics.commands["DELETE/success"])
	assert.Equal(t, 1, f.metrics.commands["RESTORE/success"])
}

func TestServe_DeleteMissing(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "DELETE ghost.txt")
		assert.Equal(t, "Error moving file to trash: ghost.txt", recv(t, c))
	})
	require.NoError(t, err)

	err = f.run(t, func(c net.Conn) {
		login(t, c)
		send(t, c, "RESTORE ghost.txt")
		assert.Equal(t, "Error restoring file: ghost.txt", recv(t, c))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.metrics.commands["RESTORE/failure"])
}

func TestServe_CredentialsAndCommandInOneWrite(t *testing.T) {
	f := newFixture(t)
	f.put(t, storage.AreaUpload, "a.txt", "a")

	err := f.run(t, func(c net.Conn) {
		send(t, c, "admin password123\nLIST\n")
		assert.Equal(t, "AUTH OK", recv(t, c))
		assert.Equal(t, "=== Server Files ===\na.txt\n", recv(t, c))
	})
	require.NoError(t, err)
}

func TestServe_ClientGoneBeforeCommand(t *testing.T) {
	f := newFixture(t)

	err := f.run(t, func(c net.Conn) {
		login(t, c)
	})
	assert.ErrorIs(t, err, ErrNoCommand)
}
