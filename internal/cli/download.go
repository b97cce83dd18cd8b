package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mrlokans/courseshelf/internal/downloads"
	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/entrypoint"
)

func newDownloadCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "download <course-code>...",
		Short: "Download course files and wait for them to finish",
		Long: `Download course files and wait for them to finish.

At most DOWNLOADS_MAX_CONCURRENT transfers run at once; the rest wait in the
queue. Interrupting the command cancels the transfers still running.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *entrypoint.App) error {
				return runDownloads(cmd.Context(), cmd.OutOrStdout(), app, args, quiet)
			})
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the final outcome of each course")
	return cmd
}

// runDownloads submits each course and waits for a terminal status on every
// accepted one.
func runDownloads(ctx context.Context, out io.Writer, app *entrypoint.App, codes []string, quiet bool) error {
	var (
		mu      sync.Mutex
		pending = map[string]string{} // course ID -> code
		shown   = map[string]int{}    // last printed tenth
		failed  int
		done    = make(chan struct{})
	)

	app.Engine.AddListener(func(p entities.DownloadProgress) {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := pending[p.CourseID]; !ok {
			return
		}
		switch {
		case p.Status == entities.DownloadStatusCompleted:
			fmt.Fprintf(out, "%s %s %s\n", okStyle.Render("✓"), p.CourseCode, formatBytes(p.DownloadedBytes))
		case p.Status.IsTerminal():
			failed++
			msg := string(p.Status)
			if p.ErrorMessage != nil {
				msg += ": " + *p.ErrorMessage
			}
			fmt.Fprintf(out, "%s %s %s\n", errStyle.Render("✗"), p.CourseCode, msg)
		default:
			if tenth := p.Percent() / 10; !quiet && tenth > shown[p.CourseID] {
				shown[p.CourseID] = tenth
				fmt.Fprintf(out, "  %s %s %3d%%\n", p.CourseCode, progressBar(p.Progress, 20), p.Percent())
			}
			return
		}
		delete(pending, p.CourseID)
		if len(pending) == 0 {
			close(done)
		}
	})

	var rejected int
	mu.Lock()
	for _, code := range codes {
		course, err := app.DB.GetCourseByCode(code)
		if err != nil {
			mu.Unlock()
			return err
		}
		if course == nil {
			fmt.Fprintf(out, "%s %s not found\n", errStyle.Render("✗"), entities.NormalizeCourseCode(code))
			rejected++
			continue
		}

		result := app.Engine.DownloadCourse(ctx, course)
		if !result.Accepted() {
			style := warnStyle
			if result.Status != downloads.RejectedDownloaded && result.Status != downloads.RejectedBundled {
				style = errStyle
				rejected++
			}
			fmt.Fprintf(out, "%s %s %s\n", style.Render("-"), course.CourseCode, result.Message)
			continue
		}
		pending[course.ID] = course.CourseCode
		if result.Status == downloads.Queued && !quiet {
			fmt.Fprintf(out, "  %s queued\n", course.CourseCode)
		}
	}
	if len(pending) == 0 {
		close(done)
	}
	mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	if n := failed + rejected; n > 0 {
		return fmt.Errorf("%d of %d downloads did not complete", n, len(codes))
	}
	return nil
}

func newDeleteCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "delete [course-code]...",
		Short: "Delete downloaded course files",
		Long: `Delete downloaded course files and reset their download state.

Bundled courses are never deleted. --all clears every download and the
download directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("pass course codes or --all")
			}
			return withApp(cmd, func(app *entrypoint.App) error {
				out := cmd.OutOrStdout()
				if all {
					if err := app.Engine.ClearAllDownloads(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(out, okStyle.Render("All downloads cleared."))
					return nil
				}
				for _, code := range args {
					course, err := app.DB.GetCourseByCode(code)
					if err != nil {
						return err
					}
					switch {
					case course == nil:
						fmt.Fprintf(out, "%s %s not found\n", errStyle.Render("✗"), entities.NormalizeCourseCode(code))
					case !course.CanDelete():
						fmt.Fprintf(out, "%s %s is %s; nothing to delete\n", warnStyle.Render("-"), course.CourseCode, courseState(*course))
					default:
						if err := app.Engine.DeleteDownload(cmd.Context(), course); err != nil {
							return err
						}
						fmt.Fprintf(out, "%s %s deleted\n", okStyle.Render("✓"), course.CourseCode)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "delete every downloaded course")
	return cmd
}
