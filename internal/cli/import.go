package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fredkin/internal/logparse"
	"github.com/roach88/fredkin/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string

	// StoreOptions are passed to store.Open (tests fix ids and clock).
	StoreOptions []store.Option
}

// ImportResult is the archived run and its parse statistics.
type ImportResult struct {
	Run   store.Run      `json:"run"`
	Stats logparse.Stats `json:"stats"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return newImportCommand(&ImportOptions{RootOptions: rootOpts})
}

func newImportCommand(opts *ImportOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <log-file>",
		Short: "Archive a log file's statistics",
		Long: `Parse a log file and store its series as a new run in the SQLite archive.

The database is created if it does not exist. Each import is a new run,
even for a file imported before.

Examples:
  fredkin import --db fredkin.db logs_fredkin.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	dbPath, err := databasePath(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}

	f := formatter(opts.RootOptions, cmd)
	series, stats, err := logparse.ParseFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse log file", err)
	}
	f.VerboseLog("%s: %d parsed, %d skipped (%s)", path, stats.Parsed, stats.Skipped, stats.Encoding)

	st, err := store.Open(dbPath, opts.StoreOptions...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	run, err := st.SaveRun(ctx, path, stats, series)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to save run", err)
	}

	result := ImportResult{Run: run, Stats: stats}
	return f.Render(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "imported %d points from %s as run %s\n", run.Points, path, run.ID)
		return err
	})
}

// databasePath resolves --db, falling back to the config file's db.
func databasePath(opts *RootOptions, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return "", err
	}
	if cfg.Database == "" {
		return "", NewExitError(ExitCommandError, "no database: pass --db or set db in the config file")
	}
	return cfg.Database, nil
}
