package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s, err := New(Config{
		UploadDir: filepath.Join(root, "uploads"),
		TrashDir:  filepath.Join(root, "trash"),
		StaticDir: filepath.Join(root, "www"),
		ChunkSize: 16,
	})
	require.NoError(t, err)
	require.NoError(t, s.EnsureLayout())
	return s
}

func put(t *testing.T, s *Store, a Area, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(a), name), []byte(content), 0644))
}

func TestNewRequiresDirs(t *testing.T) {
	_, err := New(Config{UploadDir: "u", TrashDir: "t"})
	assert.Error(t, err)
}

func TestEnsureLayoutIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureLayout())
	require.NoError(t, s.Ready())

	require.NoError(t, os.RemoveAll(s.Dir(AreaTrash)))
	assert.Error(t, s.Ready())
}

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"a.txt", "my report.pdf", "..hidden", "x..y", "ünïcode"} {
		assert.NoError(t, ValidateName(ok), ok)
	}
	for _, bad := range []string{"", ".", "..", "../x", "a/b", `a\b`, "nul\x00",
		"x\r\nSet-Cookie: evil=1", "line\nbreak", "tab\there", "del\x7f"} {
		assert.ErrorIs(t, ValidateName(bad), ErrInvalidName, bad)
	}
}

func TestListSortedRegularFilesOnly(t *testing.T) {
	s := newTestStore(t)
	put(t, s, AreaUpload, "zeta.bin", "zz")
	put(t, s, AreaUpload, "alpha.txt", "a")
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(AreaUpload), "subdir"), 0755))

	entries, err := s.List(AreaUpload)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha.txt", entries[0].Name)
	assert.Equal(t, "zeta.bin", entries[1].Name)
	assert.EqualValues(t, 2, entries[1].Size)
	assert.Equal(t, AreaUpload, entries[0].Area)

	names, err := s.Names(AreaTrash)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListSkipsUnservableNames(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("control bytes are not valid in Windows file names")
	}
	s := newTestStore(t)
	put(t, s, AreaUpload, "ok.txt", "1")
	put(t, s, AreaUpload, "two\nlines", "2")

	names, err := s.Names(AreaUpload)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.txt"}, names)
}

func TestCreateRejectsControlBytes(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create("x\r\nSet-Cookie: evil=1")
	assert.ErrorIs(t, err, ErrInvalidName)

	names, err := s.Names(AreaUpload)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListMissingDirectory(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.RemoveAll(s.Dir(AreaTrash)))
	entries, err := s.List(AreaTrash)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUsage(t *testing.T) {
	s := newTestStore(t)
	put(t, s, AreaTrash, "a", "1234")
	put(t, s, AreaTrash, "b", "56")

	u, err := s.Usage(AreaTrash)
	require.NoError(t, err)
	assert.Equal(t, Usage{Files: 2, Bytes: 6}, u)
}

func TestAreaString(t *testing.T) {
	assert.Equal(t, "uploads", AreaUpload.String())
	assert.Equal(t, "trash", AreaTrash.String())
	assert.Equal(t, "static", AreaStatic.String())
	assert.Equal(t, "area(9)", Area(9).String())
}

func receive(s *Store, name string, src io.Reader) (int64, error) {
	f, err := s.Create(name)
	if err != nil {
		return 0, err
	}
	return s.ReceiveFile(f, src)
}

func send(s *Store, dst io.Writer, a Area, name string) (int64, error) {
	f, _, err := s.Open(a, name)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return s.SendFile(dst, f)
}

func TestReceiveAndSendRoundTrip(t *testing.T) {
	s := newTestStore(t)

	for _, size := range []int{0, 1, 15, 16, 17, 100, 4096 + 3} {
		payload := bytes.Repeat([]byte{'q'}, size)
		n, err := receive(s, "blob.bin", bytes.NewReader(payload))
		require.NoError(t, err)
		assert.EqualValues(t, size, n)

		var out bytes.Buffer
		sent, err := send(s, &out, AreaUpload, "blob.bin")
		require.NoError(t, err)
		assert.EqualValues(t, size, sent)
		assert.Equal(t, payload, out.Bytes())
	}
}

func TestReceiveTruncates(t *testing.T) {
	s := newTestStore(t)
	put(t, s, AreaUpload, "a.txt", "a much longer previous body")

	_, err := receive(s, "a.txt", strings.NewReader("short"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.Dir(AreaUpload), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}

type brokenReader struct{ sent bool }

func (b *brokenReader) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, "part"), nil
	}
	return 0, errors.New("connection reset")
}

func TestReceiveKeepsPartialOnReadError(t *testing.T) {
	s := newTestStore(t)
	n, err := receive(s, "p.bin", &brokenReader{})
	assert.Error(t, err)
	assert.EqualValues(t, 4, n)
	assert.True(t, s.Exists(AreaUpload, "p.bin"))
}

func TestReceiveRejectsBadNames(t *testing.T) {
	s := newTestStore(t)
	_, err := receive(s, "../escape", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
}

type failAfter struct{ n int }

func (f *failAfter) Write(p []byte) (int, error) {
	if f.n <= 0 {
		return 0, io.ErrClosedPipe
	}
	f.n--
	return len(p), nil
}

func TestSendStopsOnWriteFailure(t *testing.T) {
	s := newTestStore(t)
	put(t, s, AreaUpload, "big", strings.Repeat("x", 100))

	n, err := send(s, &failAfter{n: 2}, AreaUpload, "big")
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.EqualValues(t, 32, n)
}

func TestOpenMissing(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Open(AreaUpload, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(AreaUpload), "dir"), 0755))
	_, _, err = s.Open(AreaUpload, "dir")
	assert.ErrorIs(t, err, ErrNotFound)
}
