// Package storage keeps shared files in three flat directories: uploads,
// a trash area for soft-deleted files, and a read-only static area for the
// browser UI.
//
// File names are opaque. They are never split into path components, so a
// name that would resolve outside its directory is rejected up front.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/marmos91/fileshare/internal/logger"
)

// Area identifies one of the storage directories.
type Area int

const (
	AreaUpload Area = iota
	AreaTrash
	AreaStatic
)

func (a Area) String() string {
	switch a {
	case AreaUpload:
		return "uploads"
	case AreaTrash:
		return "trash"
	case AreaStatic:
		return "static"
	default:
		return fmt.Sprintf("area(%d)", int(a))
	}
}

// Areas lists every area in display order.
var Areas = []Area{AreaUpload, AreaTrash, AreaStatic}

// FileEntry describes one regular file in an area.
type FileEntry struct {
	Name    string
	Area    Area
	Size    int64
	ModTime time.Time
}

// Config locates the three areas.
type Config struct {
	UploadDir string
	TrashDir  string
	StaticDir string

	// ChunkSize bounds each read and write while streaming file bodies.
	ChunkSize int
}

// Store performs all file operations of both protocols.
type Store struct {
	dirs  map[Area]string
	chunk int
}

// New creates a Store. Directories are not touched until EnsureLayout.
func New(cfg Config) (*Store, error) {
	if cfg.UploadDir == "" || cfg.TrashDir == "" || cfg.StaticDir == "" {
		return nil, errors.New("storage: upload, trash and static directories are required")
	}
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = 4096
	}
	return &Store{
		dirs: map[Area]string{
			AreaUpload: filepath.Clean(cfg.UploadDir),
			AreaTrash:  filepath.Clean(cfg.TrashDir),
			AreaStatic: filepath.Clean(cfg.StaticDir),
		},
		chunk: chunk,
	}, nil
}

// EnsureLayout creates any missing area directory.
func (s *Store) EnsureLayout() error {
	for _, a := range Areas {
		if err := os.MkdirAll(s.dirs[a], 0755); err != nil {
			return fmt.Errorf("create %s directory %q: %w", a, s.dirs[a], err)
		}
	}
	logger.Debug("Storage layout ready",
		"uploads", s.dirs[AreaUpload], "trash", s.dirs[AreaTrash], "static", s.dirs[AreaStatic])
	return nil
}

// Dir returns the directory backing an area.
func (s *Store) Dir(a Area) string { return s.dirs[a] }

// ValidateName rejects names that are empty, "." or "..", or that contain a
// path separator or a control byte. A valid name fits on one line of a
// listing or a response header.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.IndexFunc(name, isControl) >= 0:
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func isControl(r rune) bool { return r < 0x20 || r == 0x7f }

func (s *Store) path(a Area, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dirs[a], name), nil
}

// Exists reports whether name is a regular file in area.
func (s *Store) Exists(a Area, name string) bool {
	p, err := s.path(a, name)
	if err != nil {
		return false
	}
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

// List returns the regular files of an area sorted by name. A missing
// directory lists as empty.
func (s *Store) List(a Area) ([]FileEntry, error) {
	dirents, err := os.ReadDir(s.dirs[a])
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", a, err)
	}

	entries := make([]FileEntry, 0, len(dirents))
	for _, d := range dirents {
		if !d.Type().IsRegular() {
			continue
		}
		// put on disk directly; no handler could serve it
		if ValidateName(d.Name()) != nil {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		entries = append(entries, FileEntry{
			Name:    d.Name(),
			Area:    a,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Names returns just the names from List.
func (s *Store) Names(a Area) ([]string, error) {
	entries, err := s.List(a)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

// Usage is the file count and total size of an area.
type Usage struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// Usage sums the regular files of an area.
func (s *Store) Usage(a Area) (Usage, error) {
	entries, err := s.List(a)
	if err != nil {
		return Usage{}, err
	}
	u := Usage{Files: len(entries)}
	for _, e := range entries {
		u.Bytes += e.Size
	}
	return u, nil
}

// Ready reports an error when any area directory is missing.
func (s *Store) Ready() error {
	for _, a := range Areas {
		if err := s.Check(a); err != nil {
			return err
		}
	}
	return nil
}

// Check reports an error when the directory of a is missing or is not a
// directory.
func (s *Store) Check(a Area) error {
	fi, err := os.Stat(s.dirs[a])
	if err != nil {
		return fmt.Errorf("%s directory: %w", a, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s directory %q is not a directory", a, s.dirs[a])
	}
	return nil
}

func notFound(err error, name string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}
