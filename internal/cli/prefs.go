package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mrlokans/courseshelf/internal/entrypoint"
	"github.com/mrlokans/courseshelf/internal/settingsstore"
)

func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show and change user preferences",
		Long: `Show and change user preferences.

Values resolve from the database first, then the environment, then the
configured default. "reset" removes the database override.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every preference with its source",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(app *entrypoint.App) error {
					fmt.Fprintln(cmd.OutOrStdout(), preferencesTable(app.Settings.All()))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print the effective value of a preference",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(app *entrypoint.App) error {
					info, err := app.Settings.Get(args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", info.Value, mutedStyle.Render("("+info.Source+")"))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Store a preference override",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(app *entrypoint.App) error {
					if err := app.Settings.Set(args[0], args[1]); err != nil {
						return err
					}
					info, err := app.Settings.Get(args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", okStyle.Render("✓"), info.Key, info.Value)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "reset <key>",
			Short: "Remove a preference override",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, func(app *entrypoint.App) error {
					if err := app.Settings.Clear(args[0]); err != nil {
						return err
					}
					info, err := app.Settings.Get(args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s %s\n", okStyle.Render("✓"), info.Key, info.Value, mutedStyle.Render("("+info.Source+")"))
					return nil
				})
			},
		},
	)
	return cmd
}

func preferencesTable(prefs []settingsstore.PreferenceInfo) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("KEY", "VALUE", "SOURCE")
	for _, p := range prefs {
		value := p.Value
		if value == "" {
			value = "-"
		}
		t.Row(p.Key, value, p.Source)
	}
	return t.Render()
}
