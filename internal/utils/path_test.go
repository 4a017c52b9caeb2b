package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:      "empty path",
			input:     "",
			wantError: true,
		},
		{
			name:      "blank path",
			input:     "   ",
			wantError: true,
		},
		{
			name:      "relative path",
			input:     "./test",
			wantError: false,
		},
		{
			name:      "absolute path",
			input:     "/tmp/test",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolvePath(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ResolvePath(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
			if !tt.wantError && !filepath.IsAbs(result) {
				t.Errorf("ResolvePath(%q) = %q, want absolute path", tt.input, result)
			}
		})
	}
}

func TestResolvePath_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ResolvePath("~/mirror")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "mirror"), got)
}

func TestIsSubPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix style paths")
	}

	tests := []struct {
		parent, child string
		want          bool
	}{
		{"/data/src", "/data/src", true},
		{"/data/src", "/data/src/a/b", true},
		{"/data/src", "/data/srcx", false},
		{"/data/src", "/data", false},
		{"/data/src", "/other", false},
		{"/data/src", "/data/..src", false},
	}

	for _, tt := range tests {
		t.Run(tt.parent+"|"+tt.child, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSubPath(tt.parent, tt.child))
		})
	}
}

func TestEnsureDirAndExists(t *testing.T) {
	tmp := t.TempDir()
	nested := filepath.Join(tmp, "a", "b")

	require.NoError(t, EnsureDir(nested))
	assert.DirExists(t, nested)
	assert.False(t, FileExists(nested))

	file := filepath.Join(tmp, "c", "file.txt")
	require.NoError(t, EnsureParent(file))
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.True(t, FileExists(file))
}
