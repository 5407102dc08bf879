package commands

import (
	"time"

	"github.com/spf13/cobra"

	"persona/internal/config"
	"persona/internal/seed"
	"persona/internal/ui"
)

// NewRootCmd creates the persona command. Without a subcommand it starts the TUI.
func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "persona",
		Short:         "Todo list and character roster",
		Long:          "Terminal todo manager with switchable storage backends and a character roster",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, configPath, func(app *App) error {
				deps := ui.Deps{Tasks: app.Tasks, Roster: app.Roster, Logger: app.Log.Named("ui")}
				if s := app.Config.Seed; s.Enabled {
					deps.Seeder = seed.NewClient(s.URL, time.Duration(s.TimeoutSeconds)*time.Second)
				}
				return ui.Run(cmd.Context(), app.Config, deps)
			})
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", config.ResolveConfigPath(), "path to config.toml")
	cmd.AddCommand(NewTasksCmd(&configPath))
	cmd.AddCommand(NewCharsCmd(&configPath))
	cmd.AddCommand(NewKeysCmd(&configPath))
	return cmd
}

func withApp(cmd *cobra.Command, configPath string, fn func(*App) error) error {
	app, err := Open(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
