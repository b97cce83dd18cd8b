package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/entrypoint"
	"github.com/mrlokans/courseshelf/internal/library"
)

func newCoursesCmd() *cobra.Command {
	var (
		category   string
		level      string
		sortOrder  string
		downloaded bool
		bundled    bool
	)

	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List courses in the local library",
		Long: `List courses in the local library.

Filters combine: --downloaded and --bundled narrow the list first, then
--category and --level.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := library.BrowseOptions{DownloadedOnly: downloaded, BundledOnly: bundled}
			if category != "" {
				opts.Category = entities.ParseCategory(category)
			}
			if level != "" {
				l, err := entities.ParseLevel(level)
				if err != nil {
					return err
				}
				opts.Level = l
			}
			order, err := library.ParseSortOrder(sortOrder)
			if err != nil {
				return err
			}
			opts.Sort = order

			return withApp(cmd, func(app *entrypoint.App) error {
				list, err := app.Library.Browse(cmd.Context(), opts)
				if err != nil {
					return fmt.Errorf("list courses: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No courses found.")
					return nil
				}
				fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("COURSES (%d)", len(list))))
				fmt.Fprintln(out, courseTable(list))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "only courses in this category")
	cmd.Flags().StringVarP(&level, "level", "l", "", "only courses of this level (100, 200L, \"300 Level\")")
	cmd.Flags().StringVarP(&sortOrder, "sort", "s", "code", "sort order: code, title, level or recent")
	cmd.Flags().BoolVar(&downloaded, "downloaded", false, "only downloaded courses")
	cmd.Flags().BoolVar(&bundled, "bundled", false, "only bundled courses")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <course-code>",
		Short: "Show one course and record the access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *entrypoint.App) error {
				course, err := app.Library.Course(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if course == nil {
					return fmt.Errorf("course %s not found", entities.NormalizeCourseCode(args[0]))
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, headerStyle.Render(course.CourseCode+"  "+course.Title))
				fmt.Fprintf(out, "  Category:  %s\n", course.Category)
				fmt.Fprintf(out, "  Level:     %s\n", course.Level)
				fmt.Fprintf(out, "  Size:      %s\n", formatBytes(course.FileSize))
				fmt.Fprintf(out, "  State:     %s\n", courseState(*course))
				if course.LocalPath != nil {
					fmt.Fprintf(out, "  File:      %s\n", *course.LocalPath)
				}
				if course.Description != "" {
					fmt.Fprintf(out, "\n%s\n", course.Description)
				}
				return nil
			})
		},
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search courses by code, title or description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withApp(cmd, func(app *entrypoint.App) error {
				results, err := app.Library.Search(cmd.Context(), query)
				if err != nil {
					return fmt.Errorf("search: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(results) == 0 {
					fmt.Fprintf(out, "No courses match %q.\n", query)
					return nil
				}
				fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("RESULTS for %q (%d)", query, len(results))))
				fmt.Fprintln(out, courseTable(results))
				return nil
			})
		},
	}
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories with their course counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *entrypoint.App) error {
				categories, err := app.Library.Categories(cmd.Context())
				if err != nil {
					return err
				}
				t := table.New().
					Border(lipgloss.NormalBorder()).
					Headers("CATEGORY", "COURSES", "DESCRIPTION")
				for _, c := range categories {
					t.Row(c.Name, fmt.Sprint(c.CourseCount), c.Description)
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.Render())
				return nil
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library and storage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *entrypoint.App) error {
				stats, err := app.Library.Stats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, headerStyle.Render("LIBRARY"))
				fmt.Fprintf(out, "  Courses:     %d\n", stats.TotalCourses)
				fmt.Fprintf(out, "  Downloaded:  %d\n", stats.DownloadedCourses)
				fmt.Fprintf(out, "  Bundled:     %d\n", stats.BundledCourses)
				fmt.Fprintf(out, "  Storage:     %s\n", formatBytes(stats.StorageBytes))
				fmt.Fprintf(out, "  On disk:     %s\n", formatBytes(stats.DirectoryBytes))

				if last, err := app.Reconciler.LastSync(cmd.Context()); err == nil {
					synced := "never"
					if !last.IsZero() {
						synced = formatTimeSince(last, time.Now())
					}
					fmt.Fprintf(out, "  Last sync:   %s\n", synced)
				}
				return nil
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		clear bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *entrypoint.App) error {
				out := cmd.OutOrStdout()
				if clear {
					if err := app.Library.ClearSearchHistory(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(out, okStyle.Render("Search history cleared."))
					return nil
				}

				searches, err := app.Library.RecentSearches(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(searches) == 0 {
					fmt.Fprintln(out, "No recent searches.")
					return nil
				}
				now := time.Now()
				for _, s := range searches {
					fmt.Fprintf(out, "  %-30s %s\n", s.Query,
						mutedStyle.Render(fmt.Sprintf("%s, %s", plural(s.ResultCount, "result"), formatTimeSince(s.LastSearchedAt, now))))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", library.DefaultRecentSearches, "number of searches to show")
	cmd.Flags().BoolVar(&clear, "clear", false, "delete the search history")
	return cmd
}
