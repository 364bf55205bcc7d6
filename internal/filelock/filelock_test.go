package filelock

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlock(t *testing.T) {
	lock := NewFileLock(filepath.Join(t.TempDir(), "test.lock"))

	require.NoError(t, lock.Lock())
	require.NoError(t, lock.Unlock())
	require.NoError(t, lock.RLock())
	require.NoError(t, lock.Unlock())
}

func TestTryLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	first := NewFileLock(lockPath)
	require.NoError(t, first.Lock())

	second := NewFileLock(lockPath)
	acquired, err := second.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired, "lock is held by another handle")

	require.NoError(t, first.Unlock())

	acquired, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired)
	require.NoError(t, second.Unlock())
}

func TestLockWithTimeout(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	t.Run("free lock", func(t *testing.T) {
		lock := NewFileLock(lockPath)
		require.NoError(t, lock.LockWithTimeout(time.Second))
		require.NoError(t, lock.Unlock())
	})

	t.Run("held lock times out", func(t *testing.T) {
		holder := NewFileLock(lockPath)
		require.NoError(t, holder.Lock())
		defer holder.Unlock()

		start := time.Now()
		err := NewFileLock(lockPath).LockWithTimeout(50 * time.Millisecond)
		assert.True(t, errors.Is(err, ErrLockTimeout), "got %v", err)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestConcurrentLocking(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")
	counterPath := filepath.Join(tmpDir, "counter.txt")
	require.NoError(t, os.WriteFile(counterPath, []byte("0"), 0644))

	const goroutines = 5
	const iterations = 10

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				lock := NewFileLock(lockPath)
				if err := lock.Lock(); err != nil {
					t.Errorf("lock: %v", err)
					return
				}
				data, _ := os.ReadFile(counterPath)
				n, _ := strconv.Atoi(strings.TrimSpace(string(data)))
				_ = os.WriteFile(counterPath, []byte(strconv.Itoa(n+1)), 0644)
				lock.Unlock()
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(counterPath)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(goroutines*iterations), string(data))
}

func TestAtomicWrite(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		data     string
	}{
		{"new file", "", `{"version":"1"}`},
		{"overwrite", "old content that is longer", "new"},
		{"empty", "something", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sel.json")
			if tt.existing != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.existing), 0600))
			}

			require.NoError(t, AtomicWrite(path, []byte(tt.data)))

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.data, string(got))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
		})
	}
}

func TestAtomicWrite_CreatesDirectoryAndLeavesNoTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper")
	path := filepath.Join(dir, "sel.json")

	require.NoError(t, AtomicWrite(path, []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sel.json", entries[0].Name())
}

func TestLockAndWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "sel.json")

	require.NoError(t, LockAndWrite(path, []byte("payload")))
	_, err := os.Stat(LockPath(path))
	require.NoError(t, err, "lock file sits next to the target")

	data, err := LockAndRead(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestLockAndRead_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	_, err := LockAndRead(path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, statErr := os.Stat(LockPath(path))
	assert.True(t, os.IsNotExist(statErr), "no lock file is created for a missing target")
}

func TestConcurrentLockAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sel.json")
	payloads := []string{"alpha", "bravo", "charlie", "delta"}

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(2)
		go func(p string) {
			defer wg.Done()
			assert.NoError(t, LockAndWrite(path, []byte(strings.Repeat(p, 100))))
		}(p)
		go func() {
			defer wg.Done()
			data, err := LockAndRead(path)
			if err != nil {
				return
			}
			// Readers only ever see one complete payload.
			s := string(data)
			assert.True(t, len(s) > 0 && strings.Count(s, s[:5]) == 100, "torn read: %q", s)
		}()
	}
	wg.Wait()
}
