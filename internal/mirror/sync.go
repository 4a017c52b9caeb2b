package mirror

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/openmined/airsync/internal/backup"
	"github.com/openmined/airsync/internal/oplog"
	"github.com/openmined/airsync/internal/utils"
	"github.com/openmined/airsync/internal/walkguard"
)

// Result is what a completed sync session did.
type Result struct {
	Session    *backup.Session
	Operations []oplog.Operation
	StartedAt  time.Time
	FinishedAt time.Time
}

// Synchronizer replaces a mirror tree with a copy of the source tree, moving
// the old mirror into a fresh backup session first. The whole mirror is
// evacuated and recopied on every run, whether or not anything changed.
type Synchronizer struct {
	vault *backup.Vault
	clock clockwork.Clock
}

type SyncOption func(*Synchronizer)

func WithClock(clock clockwork.Clock) SyncOption {
	return func(s *Synchronizer) {
		s.clock = clock
	}
}

func NewSynchronizer(vault *backup.Vault, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		vault: vault,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync runs one session: allocate a backup session, evacuate mirrorRoot into
// it, then copy sourceRoot onto mirrorRoot. Operations are the evacuation
// records followed by the copy records.
//
// Any failure aborts the session immediately and nothing is rolled back.
func (s *Synchronizer) Sync(sourceRoot, mirrorRoot string) (*Result, error) {
	srcInfo, err := os.Stat(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("sync: source root: %w", err)
	}
	if err := checkSupported(sourceRoot, srcInfo); err != nil {
		return nil, fmt.Errorf("sync: source root %w", err)
	}

	started := s.clock.Now()
	session, err := s.vault.NewSession()
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	slog.Info("sync started", "session", session.Name, "source", sourceRoot, "mirror", mirrorRoot)

	ops, err := s.vault.Evacuate(mirrorRoot, session)
	if err != nil {
		return nil, fmt.Errorf("sync session %s: evacuate: %w", session.Name, err)
	}

	cp := &copier{guard: walkguard.New(), ops: ops}
	if err := cp.copy(sourceRoot, mirrorRoot, srcInfo); err != nil {
		return nil, fmt.Errorf("sync session %s: copy: %w", session.Name, err)
	}

	res := &Result{
		Session:    session,
		Operations: cp.ops,
		StartedAt:  started,
		FinishedAt: s.clock.Now(),
	}
	slog.Info("sync finished", "session", session.Name, "operations", len(res.Operations))
	return res, nil
}

type copier struct {
	guard *walkguard.Guard
	ops   []oplog.Operation
}

func (c *copier) copy(src, dst string, info os.FileInfo) error {
	if err := checkSupported(src, info); err != nil {
		return fmt.Errorf("copy %w", err)
	}
	if !info.IsDir() {
		n, err := utils.CopyFile(src, dst)
		if err != nil {
			return fmt.Errorf("copy %s: %w", src, err)
		}
		c.ops = append(c.ops, oplog.NewCopied(src, dst, n))
		return nil
	}

	if err := c.guard.Enter(src, info); err != nil {
		return err
	}
	defer c.guard.Leave()

	if err := os.MkdirAll(dst, info.Mode().Perm()|0o700); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	for _, entry := range entries {
		childSrc := filepath.Join(src, entry.Name())
		childInfo, err := os.Stat(childSrc)
		if err != nil {
			return fmt.Errorf("stat %s: %w", childSrc, err)
		}
		if err := c.copy(childSrc, filepath.Join(dst, entry.Name()), childInfo); err != nil {
			return err
		}
	}
	return nil
}
