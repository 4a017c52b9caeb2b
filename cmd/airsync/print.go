package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/openmined/airsync/internal/airsync"
	"github.com/openmined/airsync/internal/catalog"
	"github.com/openmined/airsync/internal/mirror"
	"github.com/openmined/airsync/internal/oplog"
)

var (
	red   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cyan  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	bold  = lipgloss.NewStyle().Bold(true)
)

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, red.Render("Error: "+err.Error()))
}

func printDifferences(w io.Writer, diffs []mirror.Difference) {
	if len(diffs) == 0 {
		fmt.Fprintln(w, green.Render("The two folders are identical."))
		return
	}

	fmt.Fprintln(w, bold.Render(fmt.Sprintf("Folders differ (%d):", len(diffs))))
	for _, d := range diffs {
		switch d.Kind {
		case mirror.OnlyInSource:
			fmt.Fprintln(w, green.Render("  + "+d.String()))
		case mirror.OnlyInMirror:
			fmt.Fprintln(w, red.Render("  - "+d.String()))
		default:
			fmt.Fprintln(w, cyan.Render("  ~ "+d.String()))
		}
	}
}

func printReport(w io.Writer, r *airsync.SyncReport) {
	fmt.Fprintln(w, green.Render("Sync complete."))
	fmt.Fprintf(w, "  session:   %s (%s)\n", r.Session.Name, r.Session.Dir)
	fmt.Fprintf(w, "  backed up: %d files, %s\n", r.FilesBackedUp, humanize.Bytes(uint64(r.BytesBackedUp)))
	fmt.Fprintf(w, "  copied:    %d files, %s\n", r.FilesCopied, humanize.Bytes(uint64(r.BytesCopied)))
	fmt.Fprintf(w, "  took:      %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "  log block: %s\n", r.Block.ID())
}

func printLogLines(w io.Writer, lines []string) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "No operations recorded.")
		return
	}
	fmt.Fprintln(w, bold.Render("Recent operations:"))
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func printBlocks(w io.Writer, blocks []oplog.Block) {
	if len(blocks) == 0 {
		fmt.Fprintln(w, "No operations recorded.")
		return
	}
	for _, b := range blocks {
		fmt.Fprintln(w, cyan.Render(b.Header()))
		for _, line := range b.Lines {
			fmt.Fprintln(w, line)
		}
	}
}

func printSessions(w io.Writer, sessions []*catalog.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No backup sessions recorded.")
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %s  backed up %d files (%s), copied %d files (%s)\n",
			bold.Render(s.Name),
			gray.Render(humanize.Time(s.StartedAt)),
			s.FilesBackedUp, humanize.Bytes(uint64(s.BytesBackedUp)),
			s.FilesCopied, humanize.Bytes(uint64(s.BytesCopied)),
		)
		fmt.Fprintf(w, "    %s\n", s.BackupDir)
	}
}
