// Package walkguard bounds recursive directory walks.
//
// A Guard tracks the directories on the current descent path. Entering a
// directory that is already on the path (reachable again through a symlink)
// or going deeper than MaxDepth is an error instead of unbounded recursion.
package walkguard

import (
	"errors"
	"fmt"
	"os"
)

const MaxDepth = 512

var (
	ErrSymlinkCycle = errors.New("symlink cycle")
	ErrTooDeep      = errors.New("directory tree too deep")
)

type Guard struct {
	maxDepth  int
	ancestors []os.FileInfo
}

func New() *Guard {
	return &Guard{maxDepth: MaxDepth}
}

// NewWithDepth is New with a custom depth limit.
func NewWithDepth(maxDepth int) *Guard {
	return &Guard{maxDepth: maxDepth}
}

// Enter pushes the directory at path. Every successful Enter must be paired with Leave.
func (g *Guard) Enter(path string, info os.FileInfo) error {
	if len(g.ancestors) >= g.maxDepth {
		return fmt.Errorf("%w: %s exceeds %d levels", ErrTooDeep, path, g.maxDepth)
	}
	for _, a := range g.ancestors {
		if os.SameFile(a, info) {
			return fmt.Errorf("%w: %s", ErrSymlinkCycle, path)
		}
	}
	g.ancestors = append(g.ancestors, info)
	return nil
}

func (g *Guard) Leave() {
	if len(g.ancestors) > 0 {
		g.ancestors = g.ancestors[:len(g.ancestors)-1]
	}
}

// Depth is the number of directories currently entered.
func (g *Guard) Depth() int {
	return len(g.ancestors)
}
