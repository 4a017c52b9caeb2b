package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/airsync/internal/airsync"
	"github.com/openmined/airsync/internal/config"
	"github.com/openmined/airsync/internal/utils"
	"github.com/openmined/airsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const settingsName = "airsync"

// closed after the command finishes
var toolLog io.Closer

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "airsync",
		Short: "Mirror a source folder onto a sync folder, keeping a backup of every overwritten mirror",
		Long: `airsync compares a source tree with its mirror, then replaces the mirror with a
fresh copy of the source. The previous mirror is moved into a dated backup
directory first and every file operation is appended to the operation log.

Without a subcommand airsync starts an interactive session.`,
		Version: version.Detailed(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadSettings(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(v)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			console := newConsole(app, cmd.InOrStdin(), cmd.OutOrStdout())
			return console.Run()
		},
	}

	flags := cmd.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("config", "c", config.DefaultDeployFile, "deploy file: line 1 source root, line 2 mirror root")
	flags.String("backup-dir", config.DefaultBackupDir, "directory holding one backup per sync session")
	flags.String("log-file", config.DefaultLogFile, "append-only operation log")
	flags.String("catalog", "", "session catalog database (default <backup-dir>/catalog.db)")
	flags.String("tool-log", config.DefaultToolLogFile, "diagnostic log file")
	flags.String("settings", "", "optional settings file (default ./airsync.{json,yaml,toml})")
	flags.BoolP("verbose", "v", false, "print debug logs to stderr")

	cmd.AddCommand(
		newDiffCmd(v),
		newSyncCmd(v),
		newLogCmd(v),
		newBackupsCmd(v),
		newInitCmd(v),
		newVersionCmd(),
	)
	return cmd
}

func main() {
	err := rootCmd.Execute()
	if toolLog != nil {
		toolLog.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

// loadSettings resolves flags, AIRSYNC_* environment variables and the
// optional settings file into v, then installs the logger.
func loadSettings(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"config":     "config",
		"backup_dir": "backup-dir",
		"log_file":   "log-file",
		"catalog":    "catalog",
		"tool_log":   "tool-log",
		"settings":   "settings",
		"verbose":    "verbose",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix("AIRSYNC")
	v.AutomaticEnv()

	if path := v.GetString("settings"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(settingsName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("settings read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	return setupLogging(v.GetString("tool_log"), v.GetBool("verbose"))
}

// setupLogging sends warnings (debug with verbose) to stderr and everything to the tool log file.
func setupLogging(logFile string, verbose bool) error {
	stderrLevel := slog.LevelWarn
	if verbose {
		stderrLevel = slog.LevelDebug
	}
	stderrHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      stderrLevel,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})

	if logFile == "" {
		slog.SetDefault(slog.New(stderrHandler))
		return nil
	}

	if err := utils.EnsureDir(filepath.Dir(logFile)); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	interceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(interceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// the interceptor stamps each line
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	if toolLog != nil {
		toolLog.Close()
	}
	toolLog = closerFunc(func() error {
		interceptor.Close()
		return file.Close()
	})

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stderrHandler, fileHandler)))
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// newApp loads the deploy file, applies the resolved settings and validates the result.
func newApp(v *viper.Viper) (*airsync.App, error) {
	cfg, err := config.LoadFromFile(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	cfg.BackupDir = v.GetString("backup_dir")
	cfg.LogFile = v.GetString("log_file")
	cfg.CatalogPath = v.GetString("catalog")
	cfg.ToolLog = v.GetString("tool_log")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("config", "path", cfg.Path, "source", cfg.SourceRoot, "mirror", cfg.MirrorRoot,
		"backups", cfg.BackupDir, "log", cfg.LogFile, "catalog", cfg.CatalogPath)
	return airsync.New(cfg)
}
