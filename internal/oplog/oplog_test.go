package oplog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedTags(tags ...string) func(int) string {
	i := 0
	return func(int) string {
		tag := tags[i%len(tags)]
		i++
		return tag
	}
}

func newTestLog(t *testing.T, clock clockwork.Clock, tags ...string) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs", "operation_log.txt")
	return New(path, WithClock(clock), WithTagGenerator(fixedTags(tags...)))
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "backed up and deleted: /m/a.txt", NewBackedUp("/m/a.txt", "/b/a.txt", 1).String())
	assert.Equal(t, "copied: /s/a.txt to /m/a.txt", NewCopied("/s/a.txt", "/m/a.txt", 1).String())
	assert.Equal(t, "backup", BackedUp.String())
	assert.Equal(t, "copy", Copied.String())
}

func TestTotals(t *testing.T) {
	ops := []Operation{
		NewBackedUp("a", "b", 10),
		NewCopied("c", "d", 5),
		NewCopied("e", "f", 7),
	}

	n, size := Totals(ops, Copied)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(12), size)

	n, size = Totals(ops, BackedUp)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(10), size)
}

func TestLog_ReadAll_MissingFile(t *testing.T) {
	l := newTestLog(t, clockwork.NewFakeClock(), "AAA")

	lines, err := l.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, lines)

	blocks, err := l.Blocks()
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestLog_ReadAll_EmptyFile(t *testing.T) {
	l := newTestLog(t, clockwork.NewFakeClock(), "AAA")
	require.NoError(t, os.MkdirAll(filepath.Dir(l.Path()), 0o755))
	require.NoError(t, os.WriteFile(l.Path(), nil, 0o644))

	lines, err := l.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestLog_Append_WritesHeaderAndLines(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 9, 30, 5, 0, time.UTC))
	l := newTestLog(t, clock, "QXZ")

	block, err := l.Append([]Operation{
		NewBackedUp("/m/a.txt", "/b/a.txt", 1),
		NewCopied("/s/a.txt", "/m/a.txt", 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "20261018093005-QXZ", block.ID())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t,
		"20261018093005-QXZ-同步操作：\n"+
			"backed up and deleted: /m/a.txt\n"+
			"copied: /s/a.txt to /m/a.txt\n",
		string(data))
}

func TestLog_Append_EmptySessionStillWritesHeader(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	l := newTestLog(t, clock, "ABC")

	_, err := l.Append(nil)
	require.NoError(t, err)

	lines, err := l.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"20260102030405-ABC-同步操作："}, lines)
}

func TestLog_AppendOnly_AcrossSessions(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	l := newTestLog(t, clock, "AAA", "BBB", "CCC")

	sessions := [][]Operation{
		{NewCopied("/s/1", "/m/1", 1)},
		{NewBackedUp("/m/1", "/b/1", 1), NewCopied("/s/2", "/m/2", 1)},
		{},
	}

	var snapshots []string
	for _, ops := range sessions {
		_, err := l.Append(ops)
		require.NoError(t, err)
		data, err := os.ReadFile(l.Path())
		require.NoError(t, err)
		snapshots = append(snapshots, string(data))
		clock.Advance(time.Minute)
	}

	// every earlier snapshot is a prefix of every later one
	for i := 1; i < len(snapshots); i++ {
		assert.True(t, len(snapshots[i]) > len(snapshots[i-1]))
		assert.Equal(t, snapshots[i-1], snapshots[i][:len(snapshots[i-1])])
	}

	blocks, err := l.Blocks()
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	assert.Equal(t, "AAA", blocks[0].Tag)
	assert.Equal(t, []string{"copied: /s/1 to /m/1"}, blocks[0].Lines)
	assert.Equal(t, "BBB", blocks[1].Tag)
	assert.Equal(t, []string{"backed up and deleted: /m/1", "copied: /s/2 to /m/2"}, blocks[1].Lines)
	assert.Equal(t, "CCC", blocks[2].Tag)
	assert.Empty(t, blocks[2].Lines)
	assert.Equal(t, "20261018090100", blocks[1].Timestamp.Format(TimestampLayout))
}

func TestParseBlocks_IgnoresLeadingNoise(t *testing.T) {
	blocks := ParseBlocks([]string{
		"stray line",
		"20260101000000-XYZ-同步操作：",
		"copied: a to b",
		"",
		"20260101000001-xyz-同步操作：", // lowercase tag is not a header
	})

	require.Len(t, blocks, 1)
	assert.Equal(t, "XYZ", blocks[0].Tag)
	assert.Equal(t, []string{"copied: a to b", "20260101000001-xyz-同步操作："}, blocks[0].Lines)
}
