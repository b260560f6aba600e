package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"fieldvoice/internal/config"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "fieldvoice",
		Short:   "fieldvoice: voice-first assistant for on-site HVAC work",
		Long:    "fieldvoice is a terminal assistant for air conditioning installation technicians. It answers questions by text or voice and keeps the conversation bound to the active work order.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.fieldvoice/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(ordersCmd())
	root.AddCommand(reportCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(modelsCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadOrDefaults loads the config, falling back to defaults when no
// config file exists yet.
func loadOrDefaults() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		cfg.Archive.DBPath = config.ExpandPath(cfg.Archive.DBPath)
		cfg.Guides.Dir = config.ExpandPath(cfg.Guides.Dir)
	}
	return cfg
}

// levelFromConfig maps the configured log level to slog.
func levelFromConfig(cfg *config.Config) slog.Level {
	switch cfg.General.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildLogger rebuilds the process logger per config: level from
// general.logLevel, output to general.logFile when set so log lines
// never interleave with the chat REPL.
func buildLogger(cfg *config.Config) *slog.Logger {
	out := os.Stderr
	if cfg.General.LogFile != "" {
		if f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			out = f
		} else {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.General.LogFile, "err", err)
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: levelFromConfig(cfg)}))
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and guides directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			guidesDir := config.ExpandPath(cfg.Guides.Dir)
			if err := os.MkdirAll(guidesDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "guides", guidesDir)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. assist.apiBase)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. assist.timeoutSeconds 60)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
