package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tatianab/dungeon-master/internal/checkpoint"
	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/narration"
)

type simulateOptions struct {
	turns     int
	hint      string
	modelPick bool
	verbose   bool
}

func newSimulateCommand(f *flags) *cobra.Command {
	opts := simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate [session-id]",
		Short: "Play unattended for a number of turns and print what happened",
		Long: `simulate drives a session without a player. Each turn it submits the
first suggestion from the previous narration, or with --model-player asks
the configured narration model to choose. Each turn prints one outcome line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			id := uuid.NewString()
			if len(args) == 1 {
				id = args[0]
			}
			var completer narration.Completer
			if opts.modelPick {
				completer = a.completer
			}
			return simulate(ctx, cmd.OutOrStdout(), a.machine, narration.NewAutoPlayer(completer), id, opts, a.cfg.ContextLookback)
		},
	}
	cmd.Flags().IntVarP(&opts.turns, "turns", "n", 10, "number of turns to play")
	cmd.Flags().StringVar(&opts.hint, "hint", "", "theme hint for a new session")
	cmd.Flags().BoolVar(&opts.modelPick, "model-player", false, "let the narration model choose actions")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print the narration of every turn")
	return cmd
}

// simulate runs turns until the count is reached or the session exits.
func simulate(ctx context.Context, out io.Writer, m *engine.Machine, player *narration.AutoPlayer, sessionID string, opts simulateOptions, lookback int) error {
	setting := models.DefaultSetting()
	setting.Hint = opts.hint
	res, err := m.Start(ctx, sessionID, setting)
	if err != nil && !engine.IsWarning(err) {
		return fmt.Errorf("%s: %w", engine.Explain(err), err)
	}
	warn(out, err)

	snap := res.Snapshot
	title := ""
	if snap.State.Narrative != nil {
		title = snap.State.Narrative.Title
	}
	fmt.Fprintf(out, "session %s: %s (turn %d)\n", sessionID, title, snap.State.Metadata.Turn)
	if opts.verbose {
		fmt.Fprintf(out, "%s\n\n", res.Metrics.Narrative)
	}

	suggestions := res.Metrics.Suggestions
	for i := 0; i < opts.turns; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		action := player.NextAction(ctx, narration.Summarize(&snap.State), snap.Memory.RecentEvents(lookback), suggestions)
		next, err := m.ExecuteTurn(ctx, sessionID, snap, action)
		if err != nil && !engine.IsWarning(err) {
			fmt.Fprintf(out, "turn failed: %s\n", engine.Explain(err))
			continue
		}
		warn(out, err)

		snap = next.Snapshot
		suggestions = next.Metrics.Suggestions
		fmt.Fprintln(out, outcomeLine(action, next.Metrics))
		if opts.verbose {
			fmt.Fprintf(out, "%s\n\n", next.Metrics.Narrative)
		}
		if next.Metrics.ExitRequested {
			break
		}
	}
	printSummary(out, snap)
	return nil
}

func warn(out io.Writer, err error) {
	if err != nil {
		fmt.Fprintf(out, "warning: %s\n", engine.Explain(err))
	}
}

// outcomeLine renders one turn as "turn 3 [action] attack the goblin: ...".
func outcomeLine(action string, tm engine.TurnMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "turn %d [%s] %s", tm.Turn, tm.Route, action)
	if tm.Outcome != nil {
		fmt.Fprintf(&b, " -> %s vs DC %d: %s", tm.Outcome.Intent, tm.Outcome.DC, tm.Outcome.Status)
		if tm.Outcome.Damage > 0 {
			fmt.Fprintf(&b, " (%d damage)", tm.Outcome.Damage)
		}
	}
	for _, c := range tm.Changes {
		fmt.Fprintf(&b, "; %s %s %s->%s", c.Type, c.TargetID, c.OldValue, c.NewValue)
	}
	if tm.Trigger.ConditionMet {
		fmt.Fprintf(&b, "; scene -> %s (%s)", tm.Trigger.NextSceneID, tm.Trigger.Type)
	}
	if tm.NarrationFallback {
		b.WriteString(" [fallback narration]")
	}
	return b.String()
}

func printSummary(out io.Writer, snap checkpoint.Snapshot) {
	state := snap.State
	fmt.Fprintf(out, "\nafter turn %d, scene %q, tension %.2f\n", state.Metadata.Turn, state.Metadata.SceneID, snap.Pacing.CurrentTension)
	for _, p := range state.Players {
		fmt.Fprintf(out, "  %s the %s: %d/%d HP\n", p.Name, p.Class, p.CurrentHP, p.MaxHP)
	}
}
