// Package cli implements the courseshelf command line: the API server plus
// one-shot commands that operate on the local library.
package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrlokans/courseshelf/internal/config"
	"github.com/mrlokans/courseshelf/internal/entrypoint"
	"github.com/mrlokans/courseshelf/internal/logging"
)

// env carries what PersistentPreRunE resolved to the subcommands.
type env struct {
	cfg *config.Config
	log *logrus.Logger
}

type envKey struct{}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	var (
		dbPath   string
		logLevel string
		envFile  string
	)

	root := &cobra.Command{
		Use:           "courseshelf",
		Short:         "Offline library of course PDFs synced from a Firebase catalog",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			cfg := config.NewConfig()
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			log, err := logging.NewWithOutput(cfg.Logging, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, &env{cfg: cfg, log: log}))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to the course database (overrides DATABASE_PATH)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		newServeCmd(version),
		newSyncCmd(),
		newCoursesCmd(),
		newShowCmd(),
		newSearchCmd(),
		newCategoriesCmd(),
		newStatsCmd(),
		newHistoryCmd(),
		newDownloadCmd(),
		newDeleteCmd(),
		newPrefsCmd(),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, version string, args []string) error {
	root := NewRootCommand(version)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func envFrom(cmd *cobra.Command) *env {
	if e, ok := cmd.Context().Value(envKey{}).(*env); ok {
		return e
	}
	cfg := config.NewConfig()
	return &env{cfg: cfg, log: logrus.StandardLogger()}
}

// withApp builds the application for a one-shot command and closes it after fn.
func withApp(cmd *cobra.Command, fn func(app *entrypoint.App) error) error {
	e := envFrom(cmd)
	app, err := entrypoint.Build(cmd.Context(), e.cfg, e.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			e.log.WithError(err).Warn("Error closing library")
		}
	}()
	return fn(app)
}

func newServeCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with scheduled catalog sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFrom(cmd)
			return entrypoint.Run(e.cfg, e.log, version)
		},
	}
}
