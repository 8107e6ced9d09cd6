package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/fileshare/internal/protocol/httplite"
)

// OpenStatic resolves a request path inside the static area. Any path
// containing ".." is refused outright, before touching the filesystem.
// It returns the open file, its size and the content type to serve.
func (s *Store) OpenStatic(urlPath string) (*os.File, int64, string, error) {
	if strings.Contains(urlPath, "..") {
		return nil, 0, "", fmt.Errorf("%w: %s", ErrForbidden, urlPath)
	}

	rel := strings.TrimPrefix(urlPath, "/")
	if strings.ContainsRune(rel, 0) {
		return nil, 0, "", fmt.Errorf("%w: %s", ErrNotFound, urlPath)
	}
	local := filepath.Join(s.dirs[AreaStatic], filepath.FromSlash(rel))

	f, err := os.Open(local)
	if err != nil {
		return nil, 0, "", notFound(err, urlPath)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, "", err
	}
	if !fi.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, "", fmt.Errorf("%w: %s", ErrNotFound, urlPath)
	}
	return f, fi.Size(), httplite.ContentTypeFor(local), nil
}
