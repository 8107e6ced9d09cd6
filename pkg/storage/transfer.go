package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/marmos91/fileshare/pkg/bufpool"
)

// Create opens uploads/name for writing, truncating any previous content.
func (s *Store) Create(name string) (*os.File, error) {
	p, err := s.path(AreaUpload, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return f, nil
}

// ReceiveFile streams src into a file returned by Create and closes it.
func (s *Store) ReceiveFile(f *os.File, src io.Reader) (int64, error) {
	n, copyErr := s.copyChunks(f, src)
	closeErr := f.Close()
	if copyErr != nil {
		return n, fmt.Errorf("receive %s: %w", filepath.Base(f.Name()), copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("close %s: %w", filepath.Base(f.Name()), closeErr)
	}
	return n, nil
}

// copyChunks copies with one pooled buffer of the configured chunk size.
// io.CopyBuffer is avoided because *os.File's ReadFrom would bypass it.
func (s *Store) copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := bufpool.Get(s.chunk)
	defer bufpool.Put(buf)

	var total int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			total += int64(nw)
			if werr != nil {
				return total, werr
			}
			if nw != nr {
				return total, io.ErrShortWrite
			}
		}
		if errors.Is(rerr, io.EOF) {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// Open opens name in area for reading and returns its size.
func (s *Store) Open(a Area, name string) (*os.File, int64, error) {
	p, err := s.path(a, name)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, notFound(err, name)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if !fi.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, fi.Size(), nil
}

// SendFile streams an already opened file to dst.
func (s *Store) SendFile(dst io.Writer, f *os.File) (int64, error) {
	return s.copyChunks(dst, f)
}
