package oplog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"
	"github.com/openmined/airsync/internal/utils"
)

const (
	// TimestampLayout is the YYYYMMDDHHmmss stamp at the start of each block header.
	TimestampLayout = "20060102150405"
	headerSuffix    = "同步操作："
	tagLength       = 3
	maxLineSize     = 1024 * 1024
)

var headerRE = regexp.MustCompile(`^(\d{14})-([A-Z]{3})-` + headerSuffix + `$`)

// Block is one session's entry in the log.
type Block struct {
	Timestamp time.Time
	Tag       string
	Lines     []string
}

// Header renders the first line of the block.
func (b Block) Header() string {
	return fmt.Sprintf("%s-%s-%s", b.Timestamp.Format(TimestampLayout), b.Tag, headerSuffix)
}

// ID is the header without the trailing label, e.g. 20261018093000-QXZ.
func (b Block) ID() string {
	return fmt.Sprintf("%s-%s", b.Timestamp.Format(TimestampLayout), b.Tag)
}

// Log is the durable operation log file.
type Log struct {
	path  string
	clock clockwork.Clock
	tag   func(n int) string
}

// Option customizes a Log.
type Option func(*Log)

// WithClock sets the clock used for block timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(l *Log) {
		l.clock = clock
	}
}

// WithTagGenerator replaces the random tag source.
func WithTagGenerator(gen func(n int) string) Option {
	return func(l *Log) {
		l.tag = gen
	}
}

func New(path string, opts ...Option) *Log {
	l := &Log{
		path:  path,
		clock: clockwork.NewRealClock(),
		tag:   utils.RandomUpper,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Log) Path() string {
	return l.path
}

// Append writes one block for ops at the end of the log, creating the file if needed.
// Existing content is never rewritten.
func (l *Log) Append(ops []Operation) (*Block, error) {
	block := &Block{
		Timestamp: l.clock.Now(),
		Tag:       l.tag(tagLength),
		Lines:     make([]string, 0, len(ops)),
	}
	for _, op := range ops {
		block.Lines = append(block.Lines, op.String())
	}

	var buf bytes.Buffer
	buf.WriteString(block.Header())
	buf.WriteByte('\n')
	for _, line := range block.Lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	if err := utils.EnsureParent(l.path); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	lock := flock.New(l.path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock operation log: %w", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open operation log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("append operation log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync operation log: %w", err)
	}

	slog.Debug("oplog append", "path", l.path, "block", block.ID(), "operations", len(block.Lines))
	return block, nil
}

// ReadAll returns every line of the log in order. A missing or empty log yields no lines and no error.
func (l *Log) ReadAll() ([]string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open operation log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read operation log: %w", err)
	}
	return lines, nil
}

// Blocks groups the log lines back into blocks. Lines that appear before the
// first header are dropped.
func (l *Log) Blocks() ([]Block, error) {
	lines, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	return ParseBlocks(lines), nil
}

// ParseBlocks groups raw log lines by header.
func ParseBlocks(lines []string) []Block {
	var blocks []Block
	for _, line := range lines {
		if ts, tag, ok := parseHeader(line); ok {
			blocks = append(blocks, Block{Timestamp: ts, Tag: tag, Lines: []string{}})
			continue
		}
		if len(blocks) == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		last := &blocks[len(blocks)-1]
		last.Lines = append(last.Lines, line)
	}
	return blocks
}

func parseHeader(line string) (time.Time, string, bool) {
	m := headerRE.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, "", false
	}
	ts, err := time.ParseInLocation(TimestampLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, "", false
	}
	return ts, m[2], true
}
