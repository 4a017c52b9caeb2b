//go:build unix

package mirror

import (
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withTimeout fails the test instead of hanging when fn blocks.
func withTimeout(t *testing.T, fn func() error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("blocked on a special file")
		return nil
	}
}

func TestCompare_FIFOAborts(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dst := filepath.Join(tmp, "mirror")
	writeTree(t, src, map[string]string{"a.txt": "X"})
	writeTree(t, dst, map[string]string{"a.txt": "X"})
	require.NoError(t, syscall.Mkfifo(filepath.Join(src, "pipe"), 0o644))
	require.NoError(t, syscall.Mkfifo(filepath.Join(dst, "pipe"), 0o644))

	err := withTimeout(t, func() error {
		_, err := Compare(src, dst)
		return err
	})
	require.ErrorIs(t, err, ErrComparisonAborted)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestCompare_FIFOInMirrorAborts(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dst := filepath.Join(tmp, "mirror")
	writeTree(t, src, map[string]string{"pipe": "X"})
	writeTree(t, dst, nil)
	require.NoError(t, syscall.Mkfifo(filepath.Join(dst, "pipe"), 0o644))

	err := withTimeout(t, func() error {
		_, err := Compare(src, dst)
		return err
	})
	require.ErrorIs(t, err, ErrComparisonAborted)
}

func TestSync_FIFOInSourceFails(t *testing.T) {
	f := newSyncFixture(t)
	writeTree(t, f.src, map[string]string{"a.txt": "X"})
	require.NoError(t, syscall.Mkfifo(filepath.Join(f.src, "pipe"), 0o644))

	err := withTimeout(t, func() error {
		_, err := f.sync.Sync(f.src, f.dst)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestSync_FIFOSourceRootFailsBeforeEvacuation(t *testing.T) {
	f := newSyncFixture(t)
	writeTree(t, f.dst, map[string]string{"keep.txt": "K"})
	fifo := filepath.Join(filepath.Dir(f.src), "fifo")
	require.NoError(t, syscall.Mkfifo(fifo, 0o644))

	err := withTimeout(t, func() error {
		_, err := f.sync.Sync(fifo, f.dst)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, map[string]string{"keep.txt": "K"}, snapshot(t, f.dst))
	assert.NoDirExists(t, f.vault.Root())
}
