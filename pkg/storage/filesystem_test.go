package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)

	exists, err := s.Exists("requests.csv")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Save("requests.csv", []byte("id\n"))
	require.NoError(t, err)

	exists, err = s.Exists("requests.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	f, err := s.Open("requests.csv")
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "id\n", string(body))
}

func TestLocalStorageWriteAtomicFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	_, err = s.Save("file.txt", []byte("original"))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WriteAtomic("file.txt", func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err := os.ReadFile(s.Path("file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be removed")
}

func TestLocalStorageCleanupDirsOlderThan(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"requests.csv", "exp-a/old.pdf", "exp-b/old.csv", "exp-b/new.csv", "other/old.txt"} {
		_, err = s.Save(name, []byte("x"))
		require.NoError(t, err)
	}

	past := time.Now().Add(-48 * time.Hour)
	for _, name := range []string{"requests.csv", "exp-a/old.pdf", "exp-b/old.csv", "other/old.txt"} {
		require.NoError(t, os.Chtimes(s.Path(name), past, past))
	}

	deleted, err := s.CleanupDirsOlderThan(24*time.Hour, func(dir string) bool {
		return strings.HasPrefix(dir, "exp-")
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join("exp-a", "old.pdf"), filepath.Join("exp-b", "old.csv")}, deleted)

	for name, want := range map[string]bool{
		"requests.csv":  true,
		"exp-a":         false,
		"exp-b/new.csv": true,
		"other/old.txt": true,
	} {
		exists, err := s.Exists(name)
		require.NoError(t, err)
		assert.Equal(t, want, exists, name)
	}
}

func TestLocalStorageDeleteMissingIsNoop(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, s.Delete("absent.csv"))
}
