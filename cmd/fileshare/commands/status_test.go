package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/fileshare/pkg/api"
	"github.com/marmos91/fileshare/pkg/storage"
)

type fakeListener struct{ listening bool }

func (f fakeListener) IsListening() bool      { return f.listening }
func (f fakeListener) GetListenerAddr() string { return "127.0.0.1:8080" }

func newHealthServer(t *testing.T, layout bool) (*httptest.Server, *storage.Store) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.New(storage.Config{
		UploadDir: filepath.Join(root, "uploads"),
		TrashDir:  filepath.Join(root, "trash"),
		StaticDir: filepath.Join(root, "www"),
	})
	require.NoError(t, err)
	if layout {
		require.NoError(t, store.EnsureLayout())
	}

	srv := httptest.NewServer(api.NewRouter(store, fakeListener{listening: true}))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestQueryHealth_Healthy(t *testing.T) {
	srv, store := newHealthServer(t, true)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(storage.AreaUpload), "a.txt"), []byte("hello"), 0644))

	var status ServerStatus
	queryHealth(context.Background(), srv.URL, &status)

	assert.True(t, status.Running)
	assert.True(t, status.Healthy)
	assert.NotEmpty(t, status.StartedAt)
	require.Len(t, status.Areas, len(storage.Areas))

	var uploads int
	for _, a := range status.Areas {
		if a.Name == storage.AreaUpload.String() {
			uploads = a.Files
		}
	}
	assert.Equal(t, 1, uploads)

	var out bytes.Buffer
	require.NoError(t, printStatusTable(&out, status))
	assert.Contains(t, out.String(), "Running")
	assert.Contains(t, out.String(), "healthy")
}

func TestQueryHealth_MissingAreas(t *testing.T) {
	srv, _ := newHealthServer(t, false)

	var status ServerStatus
	queryHealth(context.Background(), srv.URL, &status)

	assert.True(t, status.Running)
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Message, "unhealthy")
}

func TestQueryHealth_Unreachable(t *testing.T) {
	srv, _ := newHealthServer(t, true)
	url := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	status := ServerStatus{Message: "Server is not running"}
	queryHealth(ctx, url, &status)

	assert.False(t, status.Running)
	assert.Equal(t, "Server is not running", status.Message)
}

func TestProcessRunning(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("signal 0 is not supported on Windows")
	}
	path := filepath.Join(t.TempDir(), "fileshare.pid")

	_, running := processRunning(path)
	assert.False(t, running)

	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644))
	pid, running := processRunning(path)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	_, running = processRunning(path)
	assert.False(t, running)
}
