// Package config loads runtime settings.
//
// Settings come from three layers, later layers winning: built-in
// defaults, an optional YAML config file, and ARGUS_-prefixed
// environment variables. A .env file in the working directory is
// loaded first so local development keys end up in the environment.
//
// Information Hiding:
// - Layering and key binding hidden behind Load
// - Validation of tunables centralized here

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is the full runtime configuration.
type Settings struct {
	Provider     ProviderSettings     `mapstructure:"provider"`
	Conversation ConversationSettings `mapstructure:"conversation"`
	Engine       EngineSettings       `mapstructure:"engine"`
	Vision       VisionSettings       `mapstructure:"vision"`
	Surface      SurfaceSettings      `mapstructure:"surface"`
	Storage      StorageSettings      `mapstructure:"storage"`
	Log          LogSettings          `mapstructure:"log"`
}

// ProviderSettings selects the reasoning and vision model endpoints.
type ProviderSettings struct {
	Name          string  `mapstructure:"name"`            // openai, anthropic, gemini, compat
	Model         string  `mapstructure:"model"`           // reasoning model, empty means provider default
	BaseURL       string  `mapstructure:"base_url"`        // compat provider endpoint
	VisionModel   string  `mapstructure:"vision_model"`    // vision model for the sub-agent
	VisionBaseURL string  `mapstructure:"vision_base_url"` // OpenAI-compatible vision endpoint
	MaxTokens     uint32  `mapstructure:"max_tokens"`
	Temperature   float32 `mapstructure:"temperature"`
}

// ConversationSettings bounds per-session state.
type ConversationSettings struct {
	ImageRetention int `mapstructure:"image_retention"` // screenshots kept with bytes
	TokenBudget    int `mapstructure:"token_budget"`    // 0 disables trimming
}

// EngineSettings tunes the orchestration loop.
type EngineSettings struct {
	MaxIterations int           `mapstructure:"max_iterations"`
	ModelRetries  int           `mapstructure:"model_retries"`
	ParseRetries  int           `mapstructure:"parse_retries"`
	Deadline      time.Duration `mapstructure:"deadline"` // 0 means none
}

// VisionSettings tunes the vision sub-agent loop.
type VisionSettings struct {
	MaxSteps         int           `mapstructure:"max_steps"`
	ParseRetries     int           `mapstructure:"parse_retries"`
	TranscriptWindow int           `mapstructure:"transcript_window"`
	SettleDelay      time.Duration `mapstructure:"settle_delay"`
}

// SurfaceSettings configures the automation backends.
type SurfaceSettings struct {
	ADBPath      string `mapstructure:"adb_path"`
	DeviceSerial string `mapstructure:"device_serial"`
	CaptureBin   string `mapstructure:"capture_bin"` // desktop screenshot helper
	InputBin     string `mapstructure:"input_bin"`   // desktop input helper
}

// StorageSettings configures session persistence.
type StorageSettings struct {
	Backend string `mapstructure:"backend"` // memory or sqlite
	Path    string `mapstructure:"path"`    // sqlite database file
}

// LogSettings configures the zap logger.
type LogSettings struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // console or json
	File       string `mapstructure:"file"`   // empty disables the file sink
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SetDefaults installs the built-in defaults on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider.name", "openai")
	v.SetDefault("provider.model", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.vision_model", "Qwen/Qwen3-VL-8B-Instruct")
	v.SetDefault("provider.vision_base_url", "https://router.huggingface.co/v1")
	v.SetDefault("provider.max_tokens", 4096)
	v.SetDefault("provider.temperature", 0.7)

	v.SetDefault("conversation.image_retention", 3)
	v.SetDefault("conversation.token_budget", 0)

	v.SetDefault("engine.max_iterations", 15)
	v.SetDefault("engine.model_retries", 3)
	v.SetDefault("engine.parse_retries", 2)
	v.SetDefault("engine.deadline", time.Duration(0))

	v.SetDefault("vision.max_steps", 15)
	v.SetDefault("vision.parse_retries", 2)
	v.SetDefault("vision.transcript_window", 10)
	v.SetDefault("vision.settle_delay", 500*time.Millisecond)

	v.SetDefault("surface.adb_path", "adb")
	v.SetDefault("surface.device_serial", "")
	v.SetDefault("surface.capture_bin", "scrot")
	v.SetDefault("surface.input_bin", "xdotool")

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.path", "argus.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

// Load builds Settings from defaults, an optional config file, and
// ARGUS_-prefixed environment variables. configFile may be empty.
func Load(configFile string) (*Settings, error) {
	// Best-effort: a missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("ARGUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks tunables for sane values.
func (s *Settings) Validate() error {
	if s.Conversation.ImageRetention <= 0 {
		return fmt.Errorf("conversation.image_retention must be positive")
	}
	if s.Conversation.TokenBudget < 0 {
		return fmt.Errorf("conversation.token_budget must not be negative")
	}
	if s.Engine.MaxIterations <= 0 {
		return fmt.Errorf("engine.max_iterations must be positive")
	}
	if s.Vision.MaxSteps <= 0 {
		return fmt.Errorf("vision.max_steps must be positive")
	}
	switch s.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be 'memory' or 'sqlite', got %q", s.Storage.Backend)
	}
	return nil
}
