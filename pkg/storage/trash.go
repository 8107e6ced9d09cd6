package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/fileshare/internal/logger"
)

// MoveToTrash moves uploads/name into the trash, replacing any file of the
// same name already there.
func (s *Store) MoveToTrash(name string) error {
	return s.move(AreaUpload, AreaTrash, name)
}

// Restore moves trash/name back into uploads, replacing any file of the same
// name there.
func (s *Store) Restore(name string) error {
	return s.move(AreaTrash, AreaUpload, name)
}

func (s *Store) move(from, to Area, name string) error {
	src, err := s.path(from, name)
	if err != nil {
		return err
	}
	dst, _ := s.path(to, name)

	fi, err := os.Stat(src)
	if err != nil {
		return notFound(err, name)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replace %s in %s: %w", name, to, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move %s from %s to %s: %w", name, from, to, err)
	}
	logger.Debug("File moved", logger.Filename(name), "from", from.String(), "to", to.String())
	return nil
}

// Supersede removes trash/name if present. A fresh upload makes an older
// trashed copy of the same name obsolete.
func (s *Store) Supersede(name string) error {
	p, err := s.path(AreaTrash, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove trashed %s: %w", name, err)
	}
	return nil
}

// DeletePermanent removes trash/name.
func (s *Store) DeletePermanent(name string) error {
	p, err := s.path(AreaTrash, name)
	if err != nil {
		return err
	}
	fi, err := os.Lstat(p)
	if err != nil {
		return notFound(err, name)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := os.Remove(p); err != nil {
		return notFound(err, name)
	}
	return nil
}

// EmptyTrash removes every regular file in the trash and returns how many
// were removed. Files that cannot be removed are skipped.
func (s *Store) EmptyTrash() (int, error) {
	entries, err := s.List(AreaTrash)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if err := os.Remove(filepath.Join(s.dirs[AreaTrash], e.Name)); err != nil {
			logger.Warn("Failed to remove trashed file", logger.Filename(e.Name), logger.Err(err))
			continue
		}
		removed++
	}
	return removed, nil
}
