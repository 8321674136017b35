package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/tatianab/dungeon-master/internal/checkpoint"
	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/narration"
	"github.com/tatianab/dungeon-master/internal/pacing"
)

// Narration providers.
const (
	ProviderProcedural = "procedural"
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
)

// Config holds the application configuration.
type Config struct {
	// Narration
	NarrationProvider   string        `envconfig:"NARRATION_PROVIDER" default:"procedural"`
	GeminiAPIKey        string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel         string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	OpenAIAPIKey        string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel         string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	NarrationTimeout    time.Duration `envconfig:"NARRATION_TIMEOUT" default:"30s"`
	NarrationAttempts   int           `envconfig:"NARRATION_MAX_ATTEMPTS" default:"3"`
	NarrationRetryDelay time.Duration `envconfig:"NARRATION_RETRY_DELAY" default:"500ms"`

	// Checkpoints
	CheckpointBackend string        `envconfig:"CHECKPOINT_BACKEND" default:"file"`
	SaveDir           string        `envconfig:"SAVE_DIR" default:".saves"`
	SQLitePath        string        `envconfig:"SQLITE_PATH" default:".saves/checkpoints.db"`
	RedisAddr         string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	RedisDB           int           `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix    string        `envconfig:"REDIS_KEY_PREFIX" default:"dungeon-master"`
	RedisTTL          time.Duration `envconfig:"REDIS_TTL" default:"0s"`

	// Game tuning
	MemoryWindow        int     `envconfig:"MEMORY_WINDOW" default:"20"`
	ContextLookback     int     `envconfig:"CONTEXT_LOOKBACK" default:"5"`
	MaxTurnsPerScene    int     `envconfig:"MAX_TURNS_PER_SCENE" default:"10"`
	LowTensionThreshold float64 `envconfig:"LOW_TENSION_THRESHOLD" default:"0.2"`
	LowTensionTurns     int     `envconfig:"LOW_TENSION_TURNS" default:"3"`
	FallbackAbility     string  `envconfig:"FALLBACK_ABILITY" default:"DEX"`
	TurnPolicy          string  `envconfig:"TURN_POLICY" default:"reject"`

	// Logging, metrics and tracing
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding  string `envconfig:"LOG_ENCODING" default:"console"`
	LogOutput    string `envconfig:"LOG_OUTPUT" default:".saves/game.log"`
	MetricsAddr  string `envconfig:"METRICS_ADDR"`
	OTelEndpoint string `envconfig:"OTEL_ENDPOINT"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"dungeon-master"`
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads the environment without validating, so callers can apply
// overrides first.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.NarrationProvider {
	case ProviderProcedural:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY environment variable is not set"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY environment variable is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown narration provider %q", c.NarrationProvider))
	}

	switch c.CheckpointBackend {
	case checkpoint.BackendMemory, checkpoint.BackendFile, checkpoint.BackendSQLite, checkpoint.BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint backend %q", c.CheckpointBackend))
	}
	if _, err := engine.ParseTurnPolicy(c.TurnPolicy); err != nil {
		errs = append(errs, err)
	}
	if _, ok := models.ParseAbility(c.FallbackAbility); !ok {
		errs = append(errs, fmt.Errorf("unknown fallback ability %q", c.FallbackAbility))
	}
	if c.NarrationAttempts <= 0 {
		errs = append(errs, fmt.Errorf("NARRATION_MAX_ATTEMPTS must be positive, got %d", c.NarrationAttempts))
	}
	if c.MemoryWindow <= 0 {
		errs = append(errs, fmt.Errorf("MEMORY_WINDOW must be positive, got %d", c.MemoryWindow))
	}
	if c.ContextLookback <= 0 {
		errs = append(errs, fmt.Errorf("CONTEXT_LOOKBACK must be positive, got %d", c.ContextLookback))
	}
	if c.MaxTurnsPerScene <= 0 {
		errs = append(errs, fmt.Errorf("MAX_TURNS_PER_SCENE must be positive, got %d", c.MaxTurnsPerScene))
	}
	if c.LowTensionThreshold < 0 || c.LowTensionThreshold > 1 {
		errs = append(errs, fmt.Errorf("LOW_TENSION_THRESHOLD must be within [0,1], got %g", c.LowTensionThreshold))
	}
	return errors.Join(errs...)
}

// CheckpointOptions maps the checkpoint settings onto checkpoint.Open.
func (c *Config) CheckpointOptions() checkpoint.Options {
	return checkpoint.Options{
		Backend:        c.CheckpointBackend,
		SaveDir:        c.SaveDir,
		SQLitePath:     c.SQLitePath,
		RedisAddr:      c.RedisAddr,
		RedisPassword:  c.RedisPassword,
		RedisDB:        c.RedisDB,
		RedisKeyPrefix: c.RedisKeyPrefix,
		RedisTTL:       c.RedisTTL,
	}
}

// PacingConfig maps the tuning settings onto the pacing controller.
func (c *Config) PacingConfig() pacing.Config {
	cfg := pacing.DefaultConfig()
	cfg.MaxTurnsPerScene = c.MaxTurnsPerScene
	cfg.LowTensionThreshold = c.LowTensionThreshold
	cfg.LowTensionTurns = c.LowTensionTurns
	return cfg
}

// RetryPolicy maps the narration retry settings.
func (c *Config) RetryPolicy() narration.RetryPolicy {
	return narration.RetryPolicy{
		MaxAttempts: c.NarrationAttempts,
		Delay:       c.NarrationRetryDelay,
		Timeout:     c.NarrationTimeout,
	}
}

// Ability returns the parsed fallback ability.
func (c *Config) Ability() models.Ability {
	a, _ := models.ParseAbility(c.FallbackAbility)
	return a
}

// Policy returns the parsed turn policy.
func (c *Config) Policy() engine.TurnPolicy {
	p, _ := engine.ParseTurnPolicy(c.TurnPolicy)
	return p
}
