// Package catalog keeps a SQLite index of completed backup sessions so the
// operator can find which backup directory holds which mirror generation.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/openmined/airsync/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    backup_dir TEXT NOT NULL,
    source_root TEXT NOT NULL,
    mirror_root TEXT NOT NULL,
    files_backed_up INTEGER NOT NULL,
    bytes_backed_up INTEGER NOT NULL,
    files_copied INTEGER NOT NULL,
    bytes_copied INTEGER NOT NULL,
    log_block TEXT NOT NULL,
    started_at TEXT NOT NULL, -- RFC3339
    finished_at TEXT NOT NULL -- RFC3339
);

CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
`

var ErrNotOpen = errors.New("catalog not open")

// Session is one completed sync session.
type Session struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	BackupDir     string    `json:"backupDir"`
	SourceRoot    string    `json:"sourceRoot"`
	MirrorRoot    string    `json:"mirrorRoot"`
	FilesBackedUp int       `json:"filesBackedUp"`
	BytesBackedUp int64     `json:"bytesBackedUp"`
	FilesCopied   int       `json:"filesCopied"`
	BytesCopied   int64     `json:"bytesCopied"`
	LogBlock      string    `json:"logBlock"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

type dbSession struct {
	ID            string `db:"id"`
	Name          string `db:"name"`
	BackupDir     string `db:"backup_dir"`
	SourceRoot    string `db:"source_root"`
	MirrorRoot    string `db:"mirror_root"`
	FilesBackedUp int    `db:"files_backed_up"`
	BytesBackedUp int64  `db:"bytes_backed_up"`
	FilesCopied   int    `db:"files_copied"`
	BytesCopied   int64  `db:"bytes_copied"`
	LogBlock      string `db:"log_block"`
	StartedAt     string `db:"started_at"`
	FinishedAt    string `db:"finished_at"`
}

type Catalog struct {
	db     *sqlx.DB
	dbPath string
}

func New(dbPath string) *Catalog {
	return &Catalog{dbPath: dbPath}
}

// Open the catalog database, creating it and its schema if needed.
func (c *Catalog) Open() error {
	if c.db != nil {
		return fmt.Errorf("catalog already open")
	}

	conn, err := db.NewSqliteDB(db.WithPath(c.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return fmt.Errorf("initialize catalog schema: %w", err)
	}

	c.db = conn
	return nil
}

func (c *Catalog) Close() error {
	if c.db == nil {
		return ErrNotOpen
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		slog.Error("failed to close catalog", "error", err)
		return err
	}
	return nil
}

// Record stores a session. An empty ID gets a new UUID, which is written back.
func (c *Catalog) Record(s *Session) error {
	if c.db == nil {
		return ErrNotOpen
	}
	if s == nil {
		return fmt.Errorf("cannot record nil session")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	row := dbSession{
		ID:            s.ID,
		Name:          s.Name,
		BackupDir:     s.BackupDir,
		SourceRoot:    s.SourceRoot,
		MirrorRoot:    s.MirrorRoot,
		FilesBackedUp: s.FilesBackedUp,
		BytesBackedUp: s.BytesBackedUp,
		FilesCopied:   s.FilesCopied,
		BytesCopied:   s.BytesCopied,
		LogBlock:      s.LogBlock,
		StartedAt:     s.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:    s.FinishedAt.UTC().Format(time.RFC3339),
	}

	query := `INSERT INTO sessions (id, name, backup_dir, source_root, mirror_root,
	              files_backed_up, bytes_backed_up, files_copied, bytes_copied, log_block, started_at, finished_at)
	          VALUES (:id, :name, :backup_dir, :source_root, :mirror_root,
	              :files_backed_up, :bytes_backed_up, :files_copied, :bytes_copied, :log_block, :started_at, :finished_at)`
	if _, err := c.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("record session %s: %w", s.Name, err)
	}
	slog.Debug("catalog record", "session", s.Name, "id", s.ID)
	return nil
}

// Get returns the session with the given name, or nil if there is none.
func (c *Catalog) Get(name string) (*Session, error) {
	if c.db == nil {
		return nil, ErrNotOpen
	}

	var row dbSession
	err := c.db.Get(&row, "SELECT * FROM sessions WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session %s: %w", name, err)
	}
	return row.toSession()
}

// List returns sessions newest first. A limit <= 0 returns all of them.
func (c *Catalog) List(limit int) ([]*Session, error) {
	if c.db == nil {
		return nil, ErrNotOpen
	}

	query := "SELECT * FROM sessions ORDER BY started_at DESC, name DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []dbSession
	if err := c.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSession()
		if err != nil {
			slog.Warn("skipping catalog row", "name", row.Name, "error", err)
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (c *Catalog) Count() (int, error) {
	if c.db == nil {
		return 0, ErrNotOpen
	}
	var count int
	if err := c.db.Get(&count, "SELECT COUNT(*) FROM sessions"); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

func (r dbSession) toSession() (*Session, error) {
	started, err := time.Parse(time.RFC3339, r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	finished, err := time.Parse(time.RFC3339, r.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	return &Session{
		ID:            r.ID,
		Name:          r.Name,
		BackupDir:     r.BackupDir,
		SourceRoot:    r.SourceRoot,
		MirrorRoot:    r.MirrorRoot,
		FilesBackedUp: r.FilesBackedUp,
		BytesBackedUp: r.BytesBackedUp,
		FilesCopied:   r.FilesCopied,
		BytesCopied:   r.BytesCopied,
		LogBlock:      r.LogBlock,
		StartedAt:     started,
		FinishedAt:    finished,
	}, nil
}
