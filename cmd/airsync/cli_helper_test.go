package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// workspace is a throwaway source/mirror pair with its deploy file, backup
// dir and log file laid out next to each other.
type workspace struct {
	base    string
	source  string
	mirror  string
	backups string
	logFile string
	deploy  string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	base := t.TempDir()
	ws := &workspace{
		base:    base,
		source:  filepath.Join(base, "src"),
		mirror:  filepath.Join(base, "mirror"),
		backups: filepath.Join(base, "backups"),
		logFile: filepath.Join(base, "operation_log.txt"),
		deploy:  filepath.Join(base, "Deploy.txt"),
	}
	require.NoError(t, os.MkdirAll(ws.source, 0o755))
	require.NoError(t, os.MkdirAll(ws.mirror, 0o755))
	require.NoError(t, os.WriteFile(ws.deploy, []byte(ws.source+"\n"+ws.mirror+"\n"), 0o644))
	return ws
}

func (ws *workspace) write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (ws *workspace) args(args ...string) []string {
	return append(args,
		"--config", ws.deploy,
		"--backup-dir", ws.backups,
		"--log-file", ws.logFile,
		"--tool-log", filepath.Join(ws.base, "airsync.log"),
	)
}

// execute runs a fresh root command in-process with the given stdin.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	cmd.SilenceErrors = true

	err := cmd.Execute()
	if toolLog != nil {
		toolLog.Close()
		toolLog = nil
	}
	return stripANSI(out.String()), err
}

// runCLI executes this package's cobra CLI in a helper subprocess so we can
// assert on the exit code main() produces.
func runCLI(t *testing.T, args ...string) (stdoutStderr string, exitCode int) {
	t.Helper()

	cmd := exec.Command(os.Args[0], append([]string{"-test.run=TestHelperProcess", "--"}, args...)...)
	cmd.Env = append(os.Environ(),
		"GO_WANT_HELPER_PROCESS=1",
		"NO_COLOR=1",
		"TERM=dumb",
	)
	cmd.Stdin = strings.NewReader("")

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()

	if err == nil {
		return buf.String(), 0
	}

	if ee, ok := err.(*exec.ExitError); ok {
		return buf.String(), ee.ExitCode()
	}

	t.Fatalf("unexpected error running CLI: %v", err)
	return "", 0
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	// Args are: <testbin> -test.run=TestHelperProcess -- <cli args...>
	idx := -1
	for i, a := range os.Args {
		if a == "--" {
			idx = i
			break
		}
	}
	if idx == -1 {
		os.Exit(2)
	}

	rootCmd.SetArgs(os.Args[idx+1:])
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	if err := rootCmd.Execute(); err != nil {
		msg := strings.TrimSpace(stripANSI(err.Error()))
		if msg != "" {
			_, _ = os.Stderr.WriteString(msg + "\n")
		}
		os.Exit(1)
	}
	os.Exit(0)
}
