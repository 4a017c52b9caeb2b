// Package airsync wires the comparator, synchronizer, backup vault, operation
// log and session catalog for one configured source/mirror pair.
package airsync

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/openmined/airsync/internal/backup"
	"github.com/openmined/airsync/internal/catalog"
	"github.com/openmined/airsync/internal/config"
	"github.com/openmined/airsync/internal/mirror"
	"github.com/openmined/airsync/internal/oplog"
	"github.com/openmined/airsync/internal/utils"
)

type App struct {
	cfg     *config.Config
	vault   *backup.Vault
	syncer  *mirror.Synchronizer
	log     *oplog.Log
	catalog *catalog.Catalog
}

type options struct {
	clock     clockwork.Clock
	suffixGen func(int) string
	tagGen    func(int) string
}

type Option func(*options)

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithRandom replaces the generators for backup session suffixes and log block tags.
func WithRandom(suffix, tag func(int) string) Option {
	return func(o *options) {
		o.suffixGen = suffix
		o.tagGen = tag
	}
}

// New builds an App from a validated config.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	o := &options{
		clock:     clockwork.NewRealClock(),
		suffixGen: utils.RandomUpper,
		tagGen:    utils.RandomUpper,
	}
	for _, opt := range opts {
		opt(o)
	}

	vault := backup.New(cfg.BackupDir, backup.WithClock(o.clock), backup.WithSuffixGenerator(o.suffixGen))
	return &App{
		cfg:     cfg,
		vault:   vault,
		syncer:  mirror.NewSynchronizer(vault, mirror.WithClock(o.clock)),
		log:     oplog.New(cfg.LogFile, oplog.WithClock(o.clock), oplog.WithTagGenerator(o.tagGen)),
		catalog: catalog.New(cfg.CatalogPath),
	}, nil
}

func (a *App) Config() *config.Config {
	return a.cfg
}

// Diff compares the configured roots without touching either of them.
func (a *App) Diff() ([]mirror.Difference, error) {
	return mirror.Compare(a.cfg.SourceRoot, a.cfg.MirrorRoot)
}

// SyncReport summarizes a completed session.
type SyncReport struct {
	*mirror.Result
	Block         *oplog.Block
	FilesBackedUp int
	BytesBackedUp int64
	FilesCopied   int
	BytesCopied   int64
}

// Sync runs a full session and then appends its operations to the log. A
// session that fails part way writes nothing to the log. The catalog entry is
// best effort and never fails a completed session.
func (a *App) Sync() (*SyncReport, error) {
	res, err := a.syncer.Sync(a.cfg.SourceRoot, a.cfg.MirrorRoot)
	if err != nil {
		return nil, err
	}

	block, err := a.log.Append(res.Operations)
	if err != nil {
		return nil, fmt.Errorf("session %s completed but the log append failed: %w", res.Session.Name, err)
	}

	report := &SyncReport{Result: res, Block: block}
	report.FilesBackedUp, report.BytesBackedUp = oplog.Totals(res.Operations, oplog.BackedUp)
	report.FilesCopied, report.BytesCopied = oplog.Totals(res.Operations, oplog.Copied)

	if err := a.recordSession(report); err != nil {
		slog.Warn("catalog update failed", "session", res.Session.Name, "error", err)
	}
	return report, nil
}

func (a *App) recordSession(r *SyncReport) error {
	if err := a.catalog.Open(); err != nil {
		return err
	}
	defer a.catalog.Close()

	return a.catalog.Record(&catalog.Session{
		Name:          r.Session.Name,
		BackupDir:     r.Session.Dir,
		SourceRoot:    a.cfg.SourceRoot,
		MirrorRoot:    a.cfg.MirrorRoot,
		FilesBackedUp: r.FilesBackedUp,
		BytesBackedUp: r.BytesBackedUp,
		FilesCopied:   r.FilesCopied,
		BytesCopied:   r.BytesCopied,
		LogBlock:      r.Block.ID(),
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
	})
}

// ReadLog returns the raw operation log lines; nil when nothing was recorded yet.
func (a *App) ReadLog() ([]string, error) {
	return a.log.ReadAll()
}

// LogBlocks returns the last n blocks of the log, oldest first. n <= 0 returns all.
func (a *App) LogBlocks(n int) ([]oplog.Block, error) {
	blocks, err := a.log.Blocks()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(blocks) > n {
		blocks = blocks[len(blocks)-n:]
	}
	return blocks, nil
}

// Backups lists cataloged sessions, newest first. Without a catalog file there are none.
func (a *App) Backups(limit int) ([]*catalog.Session, error) {
	if !utils.FileExists(a.cfg.CatalogPath) {
		return nil, nil
	}
	if err := a.catalog.Open(); err != nil {
		return nil, err
	}
	defer a.catalog.Close()

	return a.catalog.List(limit)
}
