package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"persona/internal/roster"
)

// NewCharsCmd creates the chars command and its subcommands.
func NewCharsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chars",
		Aliases: []string{"characters"},
		Short:   "Manage the character roster",
	}

	cmd.AddCommand(
		newCharsListCmd(configPath),
		newCharsAddCmd(configPath),
		newCharsEditCmd(configPath),
		newCharsRmCmd(configPath),
	)
	return cmd
}

func newCharsListCmd(configPath *string) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List characters, heroes and allies first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(app *App) error {
				out := cmd.OutOrStdout()
				g := app.Roster.Groups(search)
				if len(g.Heroes)+len(g.Villains) == 0 {
					fmt.Fprintln(out, "No characters")
					return nil
				}
				printGroup(out, "Heroes & allies", g.Heroes)
				printGroup(out, "Villains", g.Villains)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "case-insensitive name or alias substring")
	return cmd
}

func printGroup(w io.Writer, title string, cs []roster.Character) {
	fmt.Fprintf(w, "%s (%d):\n", title, len(cs))
	for _, c := range cs {
		line := fmt.Sprintf("  %s  %s", c.ID, c.Name)
		if c.Alias != "" {
			line += " (" + c.Alias + ")"
		}
		fmt.Fprintf(w, "%s  %s\n", line, c.Role)
	}
}

type charFlags struct {
	name, alias, image, role string
}

func (f *charFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "character name")
	cmd.Flags().StringVar(&f.alias, "alias", "", "alias")
	cmd.Flags().StringVar(&f.image, "image", "", "image URL")
	cmd.Flags().StringVar(&f.role, "role", "", "Hero, Villain or Ally")
}

// apply overwrites the fields of d whose flags were given on the command line.
func (f *charFlags) apply(cmd *cobra.Command, d roster.Draft) (roster.Draft, error) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		d.Name = f.name
	}
	if flags.Changed("alias") {
		d.Alias = f.alias
	}
	if flags.Changed("image") {
		d.Image = f.image
	}
	if flags.Changed("role") {
		role, err := roster.ParseRole(f.role)
		if err != nil {
			return d, err
		}
		d.Role = role
	}
	return d, nil
}

func newCharsAddCmd(configPath *string) *cobra.Command {
	var f charFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a character",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := f.apply(cmd, roster.Draft{})
			if err != nil {
				return err
			}
			return withApp(cmd, *configPath, func(app *App) error {
				c, err := app.Roster.Add(cmd.Context(), d)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", c.ID, c.Name)
				return nil
			})
		},
	}

	f.register(cmd)
	return cmd
}

func newCharsEditCmd(configPath *string) *cobra.Command {
	var f charFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a character; omitted flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(app *App) error {
				c, ok := app.Roster.Get(args[0])
				if !ok {
					return fmt.Errorf("character %s: %w", args[0], roster.ErrNotFound)
				}
				d, err := f.apply(cmd, roster.FromCharacter(c))
				if err != nil {
					return err
				}
				if _, err := app.Roster.Update(cmd.Context(), c.ID, d); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", c.ID)
				return nil
			})
		},
	}

	f.register(cmd)
	return cmd
}

func newCharsRmCmd(configPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete a character without --yes")
			}
			return withApp(cmd, *configPath, func(app *App) error {
				if err := app.Roster.Delete(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("character %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the delete")
	return cmd
}
