package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewKeysCmd creates the keys command, which lists what the store holds.
func NewKeysCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List stored keys and their sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(app *App) error {
				ctx := cmd.Context()
				keys, err := app.Store.Keys(ctx)
				if err != nil {
					return fmt.Errorf("failed to list keys: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(keys) == 0 {
					fmt.Fprintln(out, "Store is empty")
					return nil
				}
				for _, k := range keys {
					v, err := app.Store.Get(ctx, k)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%-22s %6d bytes\n", k, len(v))
				}
				return nil
			})
		},
	}
}
