package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalStorage persists files on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "."
	}
	s := &LocalStorage{baseDir: baseDir}
	if err := s.EnsureDir(); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureDir creates the base directory if it is missing.
func (s *LocalStorage) EnsureDir() error {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}
	return nil
}

// Exists reports whether filename is present under the base dir.
func (s *LocalStorage) Exists(filename string) (bool, error) {
	_, err := os.Stat(s.resolve(filename))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat storage file: %w", err)
}

// Save writes the given bytes to the provided relative path under the base dir.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	err := s.WriteAtomic(filename, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return "", err
	}
	return filename, nil
}

// WriteAtomic streams content produced by write into a temp file next to the
// target and renames it into place. Readers see either the old or the new file.
func (s *LocalStorage) WriteAtomic(filename string, write func(io.Writer) error) error {
	path := s.resolve(filename)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare storage directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if err := write(tmp); err != nil {
		cleanup()
		return fmt.Errorf("write storage file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close storage file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod storage file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace storage file: %w", err)
	}
	return nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	file, err := os.Open(s.resolve(filename))
	if err != nil {
		return nil, fmt.Errorf("open storage file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	if err := os.Remove(s.resolve(filename)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete storage file: %w", err)
	}
	return nil
}

// CleanupDirsOlderThan removes files older than ttl inside the top-level
// directories accepted by match, then removes those directories once empty.
// Files directly under the base directory and in unmatched directories are
// never touched. Deleted entries are returned relative to the base directory.
func (s *LocalStorage) CleanupDirsOlderThan(ttl time.Duration, match func(dir string) bool) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("cleanup storage: %w", err)
	}
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() || match == nil || !match(entry.Name()) {
			continue
		}
		removed, empty, err := s.cleanupDir(entry.Name(), cutoff)
		deleted = append(deleted, removed...)
		if err != nil {
			return deleted, fmt.Errorf("cleanup storage: %w", err)
		}
		if empty {
			if err := s.Delete(entry.Name()); err != nil {
				return deleted, fmt.Errorf("cleanup storage: %w", err)
			}
		}
	}
	return deleted, nil
}

func (s *LocalStorage) cleanupDir(dir string, cutoff time.Time) (removed []string, empty bool, err error) {
	entries, err := os.ReadDir(s.resolve(dir))
	if err != nil {
		return nil, false, err
	}
	remaining := 0
	for _, entry := range entries {
		rel := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			remaining++
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return removed, false, err
		}
		if info.ModTime().After(cutoff) {
			remaining++
			continue
		}
		if err := s.Delete(rel); err != nil {
			return removed, false, err
		}
		removed = append(removed, rel)
	}
	return removed, remaining == 0, nil
}

// Path exposes the resolved path of filename.
func (s *LocalStorage) Path(filename string) string {
	return s.resolve(filename)
}

func (s *LocalStorage) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(s.baseDir, filename)
}
