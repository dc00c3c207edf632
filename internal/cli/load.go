package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/prequel/internal/harness"
	"github.com/roach88/prequel/internal/model"
	"github.com/roach88/prequel/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Database  string
	ModelsDir string
}

// LoadSummary reports what a load wrote.
type LoadSummary struct {
	Files   []string `json:"files"`
	Records int      `json:"records"`
	Keys    []string `json:"keys"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <fixtures.yaml>...",
		Short: "Load fixture records into a database",
		Long: `Load YAML fixture files into a SQLite database through the models
defined in a CUE directory. The database is created if it does not exist.
Records are upserted: loading the same fixtures twice leaves one copy.

Each fixture names its model and attributes, and optionally an explicit key:

  - model: Person
    attributes: {handle: moe, name: Moe Howard, born: 1897}

Example:
  prequel load --db ./people.db --models ./models fixtures/stooges.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.ModelsDir, "models", "", "directory of CUE model definitions (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("models")

	return cmd
}

func runLoad(opts *LoadOptions, files []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := commandContext(cmd)
	reg, st, err := openRegistry(ctx, opts.Database, opts.ModelsDir)
	if err != nil {
		return err
	}
	defer closeStore(st)

	summary := LoadSummary{Files: files, Keys: []string{}}
	for _, path := range files {
		fixtures, err := harness.LoadFixtures(path)
		if err != nil {
			_ = formatter.Error(ErrCodeFixture, err.Error(), path)
			return WrapExitError(ExitCommandError, fmt.Sprintf("invalid fixtures %s", path), err)
		}
		formatter.VerboseLog("Loading %d fixture(s) from %s", len(fixtures), path)

		keys, err := harness.Seed(ctx, reg, fixtures)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), path)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", path), err)
		}
		for _, k := range keys {
			summary.Keys = append(summary.Keys, string(k))
		}
		summary.Records += len(keys)
		slog.Info("fixtures loaded", "file", path, "records", len(keys))
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "✓ Loaded %d record(s) from %d file(s)\n", summary.Records, len(files))
	return nil
}

// openRegistry loads the models in modelsDir and binds them to the database
// at dbPath. The caller closes the returned store.
func openRegistry(ctx context.Context, dbPath, modelsDir string) (*model.Registry, *store.Store, error) {
	specs, err := LoadModels(modelsDir)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load models", err)
	}
	slog.Debug("models loaded", "dir", modelsDir, "models", len(specs))

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	slog.Debug("database ready", "path", dbPath)

	reg, err := model.NewRegistry(ctx, st, specs)
	if err != nil {
		closeStore(st)
		return nil, nil, WrapExitError(ExitCommandError, "failed to register models", err)
	}
	return reg, st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// commandContext returns the command's context, or Background when the
// command runs outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
