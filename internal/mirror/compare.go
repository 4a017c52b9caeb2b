package mirror

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/airsync/internal/utils"
	"github.com/openmined/airsync/internal/walkguard"
)

// Compare walks sourceRoot depth first and reports how mirrorRoot differs from it.
//
// A directory missing from the mirror is reported once, without its contents.
// Mirror entries with no source counterpart are reported one level deep only.
// Files are compared byte for byte. Any I/O error aborts the whole comparison
// and no partial result is returned.
func Compare(sourceRoot, mirrorRoot string) ([]Difference, error) {
	c := &comparer{guard: walkguard.New()}

	info, err := os.Stat(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrComparisonAborted, err)
	}

	// a linked mirror root is evacuated as the link itself and replaced by a real directory
	linked, err := isSymlink(mirrorRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrComparisonAborted, err)
	}
	if linked {
		if err := checkSupported(sourceRoot, info); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrComparisonAborted, err)
		}
		kind := OnlyInSource
		if !info.IsDir() {
			kind = ContentMismatch
		}
		return []Difference{{Kind: kind, Path: "."}}, nil
	}

	if err := c.compare(sourceRoot, mirrorRoot, ".", info); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrComparisonAborted, err)
	}

	slog.Debug("compare done", "source", sourceRoot, "mirror", mirrorRoot, "differences", len(c.diffs))
	return c.diffs, nil
}

type comparer struct {
	guard *walkguard.Guard
	diffs []Difference
}

func (c *comparer) add(kind DiffKind, rel string) {
	c.diffs = append(c.diffs, Difference{Kind: kind, Path: rel})
}

func (c *comparer) compare(src, mirror, rel string, srcInfo os.FileInfo) error {
	if err := checkSupported(src, srcInfo); err != nil {
		return err
	}
	mirrorInfo, exists, err := statOptional(mirror)
	if err != nil {
		return err
	}
	if exists {
		if err := checkSupported(mirror, mirrorInfo); err != nil {
			return err
		}
	}

	if !srcInfo.IsDir() {
		if !exists {
			c.add(OnlyInSource, rel)
			return nil
		}
		if mirrorInfo.IsDir() {
			c.add(ContentMismatch, rel)
			return nil
		}
		same, err := utils.SameContent(src, mirror)
		if err != nil {
			return err
		}
		if !same {
			c.add(ContentMismatch, rel)
		}
		return nil
	}

	// a file where the directory should be counts as a missing directory
	if !exists || !mirrorInfo.IsDir() {
		c.add(OnlyInSource, rel)
		return nil
	}

	if err := c.guard.Enter(src, srcInfo); err != nil {
		return err
	}
	defer c.guard.Leave()

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	names := mapset.NewThreadUnsafeSet[string]()
	for _, entry := range entries {
		name := entry.Name()
		names.Add(name)

		childSrc := filepath.Join(src, name)
		childInfo, err := os.Stat(childSrc)
		if err != nil {
			return err
		}
		if err := c.compare(childSrc, filepath.Join(mirror, name), path.Join(rel, name), childInfo); err != nil {
			return err
		}
	}

	mirrorEntries, err := os.ReadDir(mirror)
	if err != nil {
		return err
	}
	for _, entry := range mirrorEntries {
		if !names.Contains(entry.Name()) {
			c.add(OnlyInMirror, path.Join(rel, entry.Name()))
		}
	}
	return nil
}

// statOptional stats path, following symlinks. A missing path is not an error.
func statOptional(path string) (os.FileInfo, bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return info, true, nil
}

// checkSupported rejects anything that is neither a directory nor a regular
// file. Opening a FIFO or device would block or read without end.
func checkSupported(path string, info os.FileInfo) error {
	if info.IsDir() || info.Mode().IsRegular() {
		return nil
	}
	return fmt.Errorf("%s: unsupported file type %s", path, info.Mode().Type())
}

func isSymlink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}
