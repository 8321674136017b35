package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/dungeon-master/internal/engine"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func newSessionsCommand(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect checkpointed sessions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored sessions, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, f, func(a *app) error {
					summaries, err := a.store.List(cmd.Context())
					if err != nil {
						return err
					}
					if len(summaries) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
						return nil
					}
					t := table.New().
						Border(lipgloss.NormalBorder()).
						StyleFunc(func(row, col int) lipgloss.Style {
							if row == table.HeaderRow {
								return headerStyle
							}
							return lipgloss.NewStyle().Padding(0, 1)
						}).
						Headers("SESSION", "TITLE", "TURN", "SAVED")
					for _, s := range summaries {
						t.Row(s.SessionID, s.Title, strconv.Itoa(s.Turn), s.SavedAt.Format("2006-01-02 15:04"))
					}
					fmt.Fprintln(cmd.OutOrStdout(), t.Render())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show <session-id>",
			Short: "Print a session's checkpoint as YAML",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, f, func(a *app) error {
					snap, err := a.store.Load(cmd.Context(), args[0])
					if err != nil {
						return fmt.Errorf("%s: %w", engine.Explain(err), err)
					}
					enc := yaml.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent(2)
					defer enc.Close()
					return enc.Encode(snap)
				})
			},
		},
		&cobra.Command{
			Use:   "delete <session-id>",
			Short: "Delete a session's checkpoint",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, f, func(a *app) error {
					if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
						return fmt.Errorf("%s: %w", engine.Explain(err), err)
					}
					a.machine.Forget(args[0])
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func withApp(cmd *cobra.Command, f *flags, fn func(*app) error) error {
	cfg, err := f.load(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())
	return fn(a)
}
