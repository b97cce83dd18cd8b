package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrlokans/courseshelf/internal/catalogsync"
	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/entrypoint"
)

func newSyncCmd() *cobra.Command {
	var (
		force    bool
		category string
		level    string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the local library with the remote catalog",
		Long: `Sync the local library with the remote catalog.

Without flags a full sync runs only when the last one is older than
SYNC_INTERVAL. --category and --level sync a single slice of the catalog and
always run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if category != "" && level != "" {
				return errors.New("--category and --level are mutually exclusive")
			}
			var parsedLevel entities.CourseLevel
			if level != "" {
				l, err := entities.ParseLevel(level)
				if err != nil {
					return err
				}
				parsedLevel = l
			}

			return withApp(cmd, func(app *entrypoint.App) error {
				var result catalogsync.Result
				switch {
				case category != "":
					result = app.Reconciler.SyncCategory(cmd.Context(), entities.ParseCategory(category))
				case parsedLevel != "":
					result = app.Reconciler.SyncLevel(cmd.Context(), parsedLevel)
				default:
					result = app.Reconciler.SyncCatalog(cmd.Context(), force)
				}
				printSyncResult(cmd.OutOrStdout(), result)
				return result.Err()
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "sync even if the last sync is recent")
	cmd.Flags().StringVar(&category, "category", "", "sync only this category")
	cmd.Flags().StringVar(&level, "level", "", "sync only this level")
	return cmd
}

func printSyncResult(w io.Writer, result catalogsync.Result) {
	switch {
	case result.Skipped:
		fmt.Fprintln(w, mutedStyle.Render(result.Message))
	case result.Success:
		fmt.Fprintln(w, okStyle.Render("✓ ")+result.Message)
		if result.CoursesAdded+result.CoursesUpdated+result.CoursesFailed > 0 {
			fmt.Fprintf(w, "  %d new, %d updated, %d failed\n", result.CoursesAdded, result.CoursesUpdated, result.CoursesFailed)
		}
	default:
		fmt.Fprintln(w, errStyle.Render("✗ ")+result.Message)
	}
}
