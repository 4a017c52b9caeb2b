// Package mirror compares a source tree with its mirror and rebuilds the
// mirror from the source.
package mirror

import (
	"errors"
	"fmt"
)

var ErrComparisonAborted = errors.New("comparison aborted")

type DiffKind int

const (
	OnlyInSource DiffKind = iota + 1
	OnlyInMirror
	ContentMismatch
)

var diffKindNames = map[DiffKind]string{
	OnlyInSource:    "only_in_source",
	OnlyInMirror:    "only_in_mirror",
	ContentMismatch: "content_mismatch",
}

func (k DiffKind) String() string {
	if name, ok := diffKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("DiffKind(%d)", int(k))
}

func (k DiffKind) MarshalText() ([]byte, error) {
	if _, ok := diffKindNames[k]; !ok {
		return nil, fmt.Errorf("unknown diff kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *DiffKind) UnmarshalText(text []byte) error {
	for kind, name := range diffKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown diff kind %q", text)
}

// Label is the human readable form used in terminal output.
func (k DiffKind) Label() string {
	switch k {
	case OnlyInSource:
		return "only in source"
	case OnlyInMirror:
		return "only in mirror"
	case ContentMismatch:
		return "content differs"
	default:
		return k.String()
	}
}

// Difference is one entry of a comparison. Path is slash separated and
// relative to the roots; the roots themselves are ".".
type Difference struct {
	Kind DiffKind `json:"kind"`
	Path string   `json:"path"`
}

func (d Difference) String() string {
	return d.Kind.Label() + ": " + d.Path
}
