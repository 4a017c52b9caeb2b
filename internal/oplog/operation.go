// Package oplog records completed sync sessions in an append-only text log.
//
// Each session becomes one block: a header line carrying a timestamp and a
// random tag, followed by one line per filesystem action the session took.
package oplog

import "fmt"

// Kind tells which phase of a session produced an Operation.
type Kind int

const (
	// BackedUp is a mirror file copied into the backup session and then deleted.
	BackedUp Kind = iota + 1
	// Copied is a source file written into the mirror.
	Copied
)

func (k Kind) String() string {
	switch k {
	case BackedUp:
		return "backup"
	case Copied:
		return "copy"
	default:
		return "unknown"
	}
}

// Operation describes one completed filesystem action.
type Operation struct {
	Kind Kind
	// Src is the file that was acted on. For BackedUp it is the deleted mirror file.
	Src string
	// Dst is where the bytes ended up.
	Dst string
	// Size is the number of bytes moved.
	Size int64
}

// NewBackedUp records a mirror file that was preserved in dst and removed from src.
func NewBackedUp(src, dst string, size int64) Operation {
	return Operation{Kind: BackedUp, Src: src, Dst: dst, Size: size}
}

// NewCopied records a source file written to dst.
func NewCopied(src, dst string, size int64) Operation {
	return Operation{Kind: Copied, Src: src, Dst: dst, Size: size}
}

// String renders the line written to the log.
func (o Operation) String() string {
	switch o.Kind {
	case BackedUp:
		return fmt.Sprintf("backed up and deleted: %s", o.Src)
	case Copied:
		return fmt.Sprintf("copied: %s to %s", o.Src, o.Dst)
	default:
		return fmt.Sprintf("unknown operation: %s", o.Src)
	}
}

// Totals returns the number of operations and bytes of the given kind.
func Totals(ops []Operation, kind Kind) (count int, bytes int64) {
	for _, op := range ops {
		if op.Kind == kind {
			count++
			bytes += op.Size
		}
	}
	return count, bytes
}
