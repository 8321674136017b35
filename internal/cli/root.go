// Package cli wires configuration, storage and narration into the
// dungeon-master commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tatianab/dungeon-master/internal/config"
)

// flags are the persistent overrides shared by every command.
type flags struct {
	backend   string
	provider  string
	saveDir   string
	logLevel  string
	logOutput string
	policy    string
}

// apply overrides cfg with every flag the user set.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("backend", &cfg.CheckpointBackend, f.backend)
	set("provider", &cfg.NarrationProvider, f.provider)
	set("log-level", &cfg.LogLevel, f.logLevel)
	set("log-output", &cfg.LogOutput, f.logOutput)
	set("turn-policy", &cfg.TurnPolicy, f.policy)
	if cmd.Flags().Changed("save-dir") {
		cfg.SaveDir = f.saveDir
		if !cmd.Flags().Changed("log-output") && os.Getenv("LOG_OUTPUT") == "" {
			cfg.LogOutput = f.saveDir + "/game.log"
		}
		if os.Getenv("SQLITE_PATH") == "" {
			cfg.SQLitePath = f.saveDir + "/checkpoints.db"
		}
	}
}

// load reads the environment, applies flags and validates the result.
func (f *flags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	f.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "dungeon-master",
		Short: "A turn-based narrative adventure driven by dice and a narrator",
		Long: `dungeon-master runs a tabletop-style adventure: every action is
classified, resolved against the dice, applied to the world and narrated.
Sessions are checkpointed after each turn and can be resumed by id.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.backend, "backend", "", "checkpoint backend: memory, file, sqlite or redis")
	pf.StringVar(&f.provider, "provider", "", "narration provider: procedural, gemini or openai")
	pf.StringVar(&f.saveDir, "save-dir", "", "directory for file checkpoints and logs")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&f.logOutput, "log-output", "", "log destination: a file path, stdout or stderr")
	pf.StringVar(&f.policy, "turn-policy", "", "what to do with a turn submitted while another runs: reject or queue")

	root.AddCommand(
		newPlayCommand(f),
		newSimulateCommand(f),
		newSessionsCommand(f),
	)
	// Bare invocation starts a new game.
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd, f, "")
	}
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
