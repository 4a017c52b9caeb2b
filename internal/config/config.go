package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openmined/airsync/internal/utils"
)

const (
	DefaultDeployFile  = "Deploy.txt"
	DefaultBackupDir   = "PreviousBackups"
	DefaultLogFile     = "operation_log.txt"
	DefaultCatalogFile = "catalog.db"
	DefaultToolLogFile = "logs/airsync.log"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	SourceRoot  string `json:"source_root"`
	MirrorRoot  string `json:"mirror_root"`
	BackupDir   string `json:"backup_dir"`
	LogFile     string `json:"log_file"`
	CatalogPath string `json:"catalog"`
	// ToolLog is the diagnostic log file; empty means stderr only
	ToolLog string `json:"tool_log,omitempty"`
	// Path is the deploy file the roots were read from
	Path string `json:"-"`
}

// LoadFromFile reads the deploy file at path: the first line is the source
// root, the second the mirror root. Remaining settings get their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: deploy file %s not found (run `airsync init`)", ErrInvalidConfig, path)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
	}

	lines := splitLines(data)
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: %s must contain at least two lines (source root, mirror root), found %d", ErrInvalidConfig, path, len(lines))
	}

	return &Config{
		SourceRoot: strings.TrimSpace(lines[0]),
		MirrorRoot: strings.TrimSpace(lines[1]),
		BackupDir:  DefaultBackupDir,
		LogFile:    DefaultLogFile,
		Path:       path,
	}, nil
}

func splitLines(data []byte) []string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// Validate resolves every path to an absolute one and rejects layouts where a
// sync would read or write inside its own output.
func (c *Config) Validate() error {
	var err error

	if c.SourceRoot, err = resolve("source root", c.SourceRoot); err != nil {
		return err
	}
	if c.MirrorRoot, err = resolve("mirror root", c.MirrorRoot); err != nil {
		return err
	}
	if c.BackupDir == "" {
		c.BackupDir = DefaultBackupDir
	}
	if c.BackupDir, err = resolve("backup dir", c.BackupDir); err != nil {
		return err
	}
	if c.LogFile == "" {
		c.LogFile = DefaultLogFile
	}
	if c.LogFile, err = resolve("log file", c.LogFile); err != nil {
		return err
	}
	if c.CatalogPath == "" {
		c.CatalogPath = filepath.Join(c.BackupDir, DefaultCatalogFile)
	}
	if c.CatalogPath, err = resolve("catalog", c.CatalogPath); err != nil {
		return err
	}
	if c.ToolLog != "" {
		if c.ToolLog, err = resolve("tool log", c.ToolLog); err != nil {
			return err
		}
	}
	if c.Path != "" {
		if c.Path, err = resolve("config path", c.Path); err != nil {
			return err
		}
	}

	if c.SourceRoot == c.MirrorRoot {
		return fmt.Errorf("%w: source and mirror are the same directory %s", ErrInvalidConfig, c.SourceRoot)
	}
	if utils.IsSubPath(c.SourceRoot, c.MirrorRoot) || utils.IsSubPath(c.MirrorRoot, c.SourceRoot) {
		return fmt.Errorf("%w: source %s and mirror %s must not be nested", ErrInvalidConfig, c.SourceRoot, c.MirrorRoot)
	}

	roots := []struct{ name, path string }{
		{"source", c.SourceRoot},
		{"mirror", c.MirrorRoot},
	}
	for _, r := range roots {
		name, root := r.name, r.path
		if utils.IsSubPath(root, c.BackupDir) {
			return fmt.Errorf("%w: backup dir %s is inside the %s root", ErrInvalidConfig, c.BackupDir, name)
		}
		if utils.IsSubPath(c.BackupDir, root) {
			return fmt.Errorf("%w: %s root is inside the backup dir %s", ErrInvalidConfig, name, c.BackupDir)
		}
		if utils.IsSubPath(root, c.LogFile) {
			return fmt.Errorf("%w: log file %s is inside the %s root", ErrInvalidConfig, c.LogFile, name)
		}
		if utils.IsSubPath(root, c.CatalogPath) {
			return fmt.Errorf("%w: catalog %s is inside the %s root", ErrInvalidConfig, c.CatalogPath, name)
		}
		if c.ToolLog != "" && utils.IsSubPath(root, c.ToolLog) {
			return fmt.Errorf("%w: tool log %s is inside the %s root", ErrInvalidConfig, c.ToolLog, name)
		}
	}

	return nil
}

func resolve(name, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrInvalidConfig, name)
	}
	resolved, err := utils.ResolvePath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s %q: %w", ErrInvalidConfig, name, path, err)
	}
	return resolved, nil
}

// Save writes the two root lines to path.
func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(c.SourceRoot+"\n"+c.MirrorRoot+"\n"), 0o644)
}

// Bootstrap creates the deploy file at path if it does not exist yet, seeded
// with the given roots when both are set and left empty otherwise. It reports
// whether a file was created; an existing file is never touched.
func Bootstrap(path, sourceRoot, mirrorRoot string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	if err := utils.EnsureParent(path); err != nil {
		return false, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if sourceRoot != "" && mirrorRoot != "" {
		if _, err := fmt.Fprintf(f, "%s\n%s\n", sourceRoot, mirrorRoot); err != nil {
			return false, err
		}
	}
	return true, f.Close()
}
