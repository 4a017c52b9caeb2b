package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/openmined/airsync/internal/airsync"
)

const (
	choiceViewLog = "1"
	choiceSync    = "2"
	choiceExit    = "3"
)

// console is the interactive operator session: view the log, sync, or exit.
// Nothing destructive happens without a "yes".
type console struct {
	app *airsync.App
	in  *bufio.Reader
	out io.Writer
}

func newConsole(app *airsync.App, in io.Reader, out io.Writer) *console {
	return &console{
		app: app,
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Run loops until the operator exits or input ends.
func (c *console) Run() error {
	cfg := c.app.Config()
	fmt.Fprintf(c.out, "%s %s\n", gray.Render("source:"), cfg.SourceRoot)
	fmt.Fprintf(c.out, "%s %s\n", gray.Render("mirror:"), cfg.MirrorRoot)

	for {
		choice, ok := c.prompt("Choose an action: 1 - view log, 2 - sync, 3 - exit: ")
		if !ok {
			return nil
		}

		switch choice {
		case choiceViewLog:
			c.showLog()
			if c.confirm("Sync now? (yes/no): ") {
				c.sync()
			}
		case choiceSync:
			c.sync()
			if c.confirm("View recent operations? (yes/no): ") {
				c.showLog()
			}
		case choiceExit:
			fmt.Fprintln(c.out, "Bye.")
			return nil
		default:
			fmt.Fprintln(c.out, red.Render("Invalid choice, try again."))
		}
	}
}

func (c *console) prompt(msg string) (string, bool) {
	fmt.Fprint(c.out, msg)
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		fmt.Fprintln(c.out)
		return "", false
	}
	return strings.TrimSpace(line), true
}

func (c *console) confirm(msg string) bool {
	answer, ok := c.prompt(msg)
	if !ok {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "yes" || answer == "y"
}

func (c *console) showLog() {
	lines, err := c.app.ReadLog()
	if err != nil {
		printError(c.out, err)
		return
	}
	printLogLines(c.out, lines)
}

// sync shows the differences and asks before touching the mirror.
func (c *console) sync() {
	diffs, err := c.app.Diff()
	if err != nil {
		printError(c.out, err)
		return
	}
	printDifferences(c.out, diffs)

	if !c.confirm("Proceed with sync? The current mirror will be moved to a backup. (yes/no): ") {
		fmt.Fprintln(c.out, "Sync cancelled.")
		return
	}

	report, err := c.app.Sync()
	if err != nil {
		slog.Error("sync failed", "error", err)
		printError(c.out, err)
		return
	}
	printReport(c.out, report)
}
