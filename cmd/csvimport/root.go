package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/JonMunkholm/csvimport/internal/config"
	"github.com/JonMunkholm/csvimport/internal/core"
	_ "github.com/JonMunkholm/csvimport/internal/core/entities" // Register built-in entities
	"github.com/JonMunkholm/csvimport/internal/logging"
	"github.com/JonMunkholm/csvimport/internal/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app carries state shared by all subcommands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	envFile   string
	logLevel  string
	schemaDir string

	cfg *config.Config
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:           "csvimport",
		Short:         "Preview and commit bulk CSV imports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file to load if present")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: LOG_LEVEL or warn)")
	cmd.PersistentFlags().StringVar(&a.schemaDir, "schema-dir", "", "Directory of *.yaml entity definitions (default: SCHEMA_DIR)")

	cmd.AddCommand(
		newEntitiesCmd(a),
		newTemplateCmd(a),
		newPreviewCmd(a),
		newCommitCmd(a),
		newBatchesCmd(a),
	)
	return cmd
}

// setup loads the env file, configuration, logger and entity catalog.
// Configuration is read without validation; commands that need a backend
// validate after applying their flags.
func (a *app) setup() error {
	if a.envFile != "" {
		// Load does not overwrite variables already set in the shell.
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return withCode(exitUsage, err)
		}
	}

	cfg, err := config.Read()
	if err != nil {
		return withCode(exitUsage, err)
	}
	a.cfg = cfg

	level := a.logLevel
	if level == "" {
		level = "warn"
		if os.Getenv("LOG_LEVEL") != "" {
			level = cfg.Logging.Level
		}
	}
	slog.SetDefault(logging.New(a.stderr, level, cfg.Logging.Format))

	dir := a.schemaDir
	if dir == "" {
		dir = cfg.Schema.Dir
	}
	if dir != "" {
		if _, err := schema.LoadDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// newService builds a Service around committer using the configured upload
// and commit settings.
func (a *app) newService(committer core.Committer) *core.Service {
	return core.NewService(committer, core.ServiceOptions{
		SessionTTL:    a.cfg.Upload.SessionTTL,
		CommitTimeout: a.cfg.Commit.Timeout,
		MaxUploadSize: a.cfg.Upload.MaxFileSize,
		ExtraFields:   a.cfg.ExtraFieldPolicy(),
		RowSamples:    a.cfg.Upload.RowSamples,
		ErrorSamples:  a.cfg.Upload.ErrorSamples,
		Limiter:       core.NewCommitLimiter(1, a.cfg.Commit.MaxWaitTime),
	})
}
