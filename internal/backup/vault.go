// Package backup moves a mirror tree out of the way before it is overwritten.
//
// Every sync session gets its own directory under the vault root, named
// <YYYYMMDD><three uppercase letters>. Evacuate copies the mirror's files into
// it under the same relative paths and deletes the originals, so after a
// session the previous mirror content lives only in the vault. Sessions are
// never reused or cleaned up by airsync.
package backup

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/openmined/airsync/internal/oplog"
	"github.com/openmined/airsync/internal/utils"
	"github.com/openmined/airsync/internal/walkguard"
)

const (
	DateLayout   = "20060102"
	suffixLength = 3
	maxAttempts  = 5
)

var ErrSessionCollision = errors.New("could not allocate a unique backup session")

// Session is one allocated backup directory.
type Session struct {
	Name      string
	Dir       string
	CreatedAt time.Time
}

type Vault struct {
	root   string
	clock  clockwork.Clock
	suffix func(n int) string
}

type Option func(*Vault)

func WithClock(clock clockwork.Clock) Option {
	return func(v *Vault) {
		v.clock = clock
	}
}

// WithSuffixGenerator replaces the random suffix source.
func WithSuffixGenerator(gen func(n int) string) Option {
	return func(v *Vault) {
		v.suffix = gen
	}
}

func New(root string, opts ...Option) *Vault {
	v := &Vault{
		root:   root,
		clock:  clockwork.NewRealClock(),
		suffix: utils.RandomUpper,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Vault) Root() string {
	return v.root
}

// NewSession creates a fresh session directory, including the vault root.
// A name that already exists on disk is retried with a new suffix.
func (v *Vault) NewSession() (*Session, error) {
	if err := utils.EnsureDir(v.root); err != nil {
		return nil, fmt.Errorf("create backup root %s: %w", v.root, err)
	}

	now := v.clock.Now()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		name := now.Format(DateLayout) + v.suffix(suffixLength)
		dir := filepath.Join(v.root, name)

		err := os.Mkdir(dir, 0o755)
		if errors.Is(err, os.ErrExist) {
			slog.Warn("backup session exists, retrying", "name", name, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create backup session %s: %w", dir, err)
		}

		slog.Debug("backup session", "name", name, "dir", dir)
		return &Session{Name: name, Dir: dir, CreatedAt: now}, nil
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrSessionCollision, maxAttempts)
}

// Evacuate moves everything under mirrorRoot into the session directory and
// removes mirrorRoot itself. A mirror root that does not exist is left alone
// and yields no operations. Symlinks are re-created in the backup, never followed.
//
// The first error stops the walk; whatever was already moved stays moved.
func (v *Vault) Evacuate(mirrorRoot string, session *Session) ([]oplog.Operation, error) {
	if session == nil {
		return nil, errors.New("evacuate: nil session")
	}

	info, err := os.Lstat(mirrorRoot)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("evacuate: mirror root absent", "path", mirrorRoot)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("evacuate: %w", err)
	}

	e := &evacuation{guard: walkguard.New()}

	target := session.Dir
	if !info.IsDir() {
		target = filepath.Join(session.Dir, filepath.Base(mirrorRoot))
	}
	if err := e.move(mirrorRoot, target, info); err != nil {
		return e.ops, err
	}

	slog.Debug("evacuate done", "mirror", mirrorRoot, "session", session.Name, "operations", len(e.ops))
	return e.ops, nil
}

type evacuation struct {
	guard *walkguard.Guard
	ops   []oplog.Operation
}

func (e *evacuation) move(path, backupPath string, info os.FileInfo) error {
	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return e.moveSymlink(path, backupPath)
	case mode.IsDir():
		return e.moveDir(path, backupPath, info)
	case mode.IsRegular():
		return e.moveFile(path, backupPath)
	default:
		return fmt.Errorf("evacuate %s: unsupported file type %s", path, mode.Type())
	}
}

func (e *evacuation) moveDir(path, backupPath string, info os.FileInfo) error {
	if err := e.guard.Enter(path, info); err != nil {
		return err
	}
	defer e.guard.Leave()

	if err := utils.EnsureDir(backupPath); err != nil {
		return fmt.Errorf("evacuate %s: %w", path, err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("evacuate %s: %w", path, err)
	}
	for _, entry := range entries {
		childInfo, err := entry.Info()
		if err != nil {
			return fmt.Errorf("evacuate %s: %w", path, err)
		}
		name := entry.Name()
		if err := e.move(filepath.Join(path, name), filepath.Join(backupPath, name), childInfo); err != nil {
			return err
		}
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("evacuate %s: %w", path, err)
	}
	return nil
}

func (e *evacuation) moveFile(path, backupPath string) error {
	n, err := utils.CopyFile(path, backupPath)
	if err != nil {
		return fmt.Errorf("back up %s: %w", path, err)
	}
	e.ops = append(e.ops, oplog.NewBackedUp(path, backupPath, n))

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (e *evacuation) moveSymlink(path, backupPath string) error {
	target, err := os.Readlink(path)
	if err != nil {
		return fmt.Errorf("back up %s: %w", path, err)
	}
	if err := utils.EnsureParent(backupPath); err != nil {
		return fmt.Errorf("back up %s: %w", path, err)
	}
	if err := os.Remove(backupPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("back up %s: %w", path, err)
	}
	if err := os.Symlink(target, backupPath); err != nil {
		return fmt.Errorf("back up %s: %w", path, err)
	}
	e.ops = append(e.ops, oplog.NewBackedUp(path, backupPath, 0))

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
