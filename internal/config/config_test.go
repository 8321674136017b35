package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/models"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ProviderProcedural, cfg.NarrationProvider)
	assert.Equal(t, "file", cfg.CheckpointBackend)
	assert.Equal(t, ".saves", cfg.SaveDir)
	assert.Equal(t, 20, cfg.MemoryWindow)
	assert.Equal(t, 5, cfg.ContextLookback)
	assert.Equal(t, 10, cfg.MaxTurnsPerScene)
	assert.InDelta(t, 0.2, cfg.LowTensionThreshold, 1e-9)
	assert.Equal(t, models.Dexterity, cfg.Ability())
	assert.Equal(t, engine.PolicyReject, cfg.Policy())
	assert.Equal(t, 3, cfg.RetryPolicy().MaxAttempts)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("NARRATION_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("CHECKPOINT_BACKEND", "sqlite")
	t.Setenv("MAX_TURNS_PER_SCENE", "4")
	t.Setenv("TURN_POLICY", "queue")
	t.Setenv("FALLBACK_ABILITY", "wis")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, "sqlite", cfg.CheckpointOptions().Backend)
	assert.Equal(t, 4, cfg.PacingConfig().MaxTurnsPerScene)
	assert.Equal(t, engine.PolicyQueue, cfg.Policy())
	assert.Equal(t, models.Wisdom, cfg.Ability())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			NarrationProvider:   ProviderProcedural,
			NarrationAttempts:   3,
			CheckpointBackend:   "memory",
			MemoryWindow:        20,
			ContextLookback:     5,
			MaxTurnsPerScene:    10,
			LowTensionThreshold: 0.2,
			FallbackAbility:     "DEX",
			TurnPolicy:          "reject",
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"gemini without key", func(c *Config) { c.NarrationProvider = ProviderGemini }, "GEMINI_API_KEY"},
		{"openai without key", func(c *Config) { c.NarrationProvider = ProviderOpenAI }, "OPENAI_API_KEY"},
		{"unknown provider", func(c *Config) { c.NarrationProvider = "oracle" }, "narration provider"},
		{"unknown backend", func(c *Config) { c.CheckpointBackend = "tape" }, "checkpoint backend"},
		{"unknown policy", func(c *Config) { c.TurnPolicy = "drop" }, "turn policy"},
		{"unknown ability", func(c *Config) { c.FallbackAbility = "LCK" }, "fallback ability"},
		{"zero window", func(c *Config) { c.MemoryWindow = 0 }, "MEMORY_WINDOW"},
		{"zero lookback", func(c *Config) { c.ContextLookback = 0 }, "CONTEXT_LOOKBACK"},
		{"zero max turns", func(c *Config) { c.MaxTurnsPerScene = 0 }, "MAX_TURNS_PER_SCENE"},
		{"threshold above one", func(c *Config) { c.LowTensionThreshold = 1.5 }, "LOW_TENSION_THRESHOLD"},
	}
	base := valid()
	require.NoError(t, base.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
