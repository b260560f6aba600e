package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for fieldvoice.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Assist     AssistConfig     `json:"assist"`
	Audio      AudioConfig      `json:"audio"`
	Archive    ArchiveConfig    `json:"archive"`
	Guides     GuidesConfig     `json:"guides"`
	WorkOrders WorkOrdersConfig `json:"workOrders"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

// AssistConfig points at the remote reasoning/transcription service.
type AssistConfig struct {
	APIBase        string `json:"apiBase"`
	APIKey         string `json:"apiKey,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds"` // per-exchange bound
	HistoryLimit   int    `json:"historyLimit"`   // turns sent as chat history
}

// AudioConfig configures the external capture and playback commands.
type AudioConfig struct {
	RecorderCommand string `json:"recorderCommand"` // writes WAV to stdout until SIGINT
	PlayerCommand   string `json:"playerCommand"`   // "-" as last token reads stdin
	Playback        bool   `json:"playback"`        // speak replies that carry audio
}

type ArchiveConfig struct {
	Enabled       bool   `json:"enabled"`
	DBPath        string `json:"dbPath"`
	RetentionDays int    `json:"retentionDays"`
}

type GuidesConfig struct {
	Dir string `json:"dir"`
}

// WorkOrdersConfig points at the job management service. Empty APIBase
// reuses the assist service base.
type WorkOrdersConfig struct {
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
}

// DefaultConfigDir returns the default config directory (~/.fieldvoice).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fieldvoice"
	}
	return filepath.Join(home, ".fieldvoice")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Archive.DBPath = ExpandPath(cfg.Archive.DBPath)
	cfg.Guides.Dir = ExpandPath(cfg.Guides.Dir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Assist.APIBase == "" {
		errs = append(errs, "assist.apiBase is required")
	}
	if cfg.Assist.TimeoutSeconds < 1 || cfg.Assist.TimeoutSeconds > 600 {
		errs = append(errs, "assist.timeoutSeconds must be between 1 and 600")
	}
	if cfg.Assist.HistoryLimit < 0 {
		errs = append(errs, "assist.historyLimit must be >= 0")
	}

	if cfg.Archive.Enabled {
		if cfg.Archive.DBPath == "" {
			errs = append(errs, "archive.dbPath is required when archive is enabled")
		}
		if cfg.Archive.RetentionDays < 1 {
			errs = append(errs, "archive.retentionDays must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
