package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/tui"
)

func newPlayCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "play [session-id]",
		Short: "Play interactively, resuming the session when it has a checkpoint",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runPlay(cmd, f, id)
		},
	}
}

func runPlay(cmd *cobra.Command, f *flags, sessionID string) error {
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

	opts := tui.Options{
		SessionID: sessionID,
		Setting:   models.DefaultSetting(),
		Roller:    a.roller,
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	} else {
		res, err := a.machine.Continue(ctx, opts.SessionID)
		switch {
		case err == nil:
			opts.Resumed = &res
		case engine.NeedsInitialization(err):
			a.logger.Info("starting new session", zap.String("session_id", opts.SessionID), zap.Error(err))
		default:
			return fmt.Errorf("%s: %w", engine.Explain(err), err)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "session %s\n", opts.SessionID)
	return tui.Run(a.machine, opts)
}
