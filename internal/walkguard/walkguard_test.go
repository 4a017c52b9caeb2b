package walkguard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stat(t *testing.T, path string) os.FileInfo {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info
}

func TestGuard_DetectsRepeatedDirectory(t *testing.T) {
	tmp := t.TempDir()
	sub := filepath.Join(tmp, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	g := New()
	require.NoError(t, g.Enter(tmp, stat(t, tmp)))
	require.NoError(t, g.Enter(sub, stat(t, sub)))
	assert.Equal(t, 2, g.Depth())

	err := g.Enter(filepath.Join(sub, "loop"), stat(t, tmp))
	assert.ErrorIs(t, err, ErrSymlinkCycle)
	assert.Equal(t, 2, g.Depth())

	// once left, a directory can be entered again
	g.Leave()
	g.Leave()
	assert.Equal(t, 0, g.Depth())
	require.NoError(t, g.Enter(tmp, stat(t, tmp)))
}

func TestGuard_DepthLimit(t *testing.T) {
	tmp := t.TempDir()
	a := filepath.Join(tmp, "a")
	b := filepath.Join(a, "b")
	require.NoError(t, os.MkdirAll(b, 0o755))

	g := NewWithDepth(2)
	require.NoError(t, g.Enter(tmp, stat(t, tmp)))
	require.NoError(t, g.Enter(a, stat(t, a)))

	err := g.Enter(b, stat(t, b))
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestGuard_LeaveOnEmptyIsNoop(t *testing.T) {
	g := New()
	g.Leave()
	assert.Equal(t, 0, g.Depth())
}
