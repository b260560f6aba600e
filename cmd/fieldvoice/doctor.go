package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"fieldvoice/internal/assist"
	"fieldvoice/internal/config"
	"fieldvoice/internal/procedure"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your fieldvoice installation",
		Long: `Verifies that fieldvoice's configuration, assist service, archive
database, audio commands, and procedure guides are correctly set up.
Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("fieldvoice doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				failed++
				fmt.Printf("\nRun 'fieldvoice init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
			} else {
				printPass("Config validation", "valid")
				passed++
			}

			if cfg == nil {
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}

			// 3. Assist service reachable
			client := assist.NewClient(assist.Config{
				APIBase: cfg.Assist.APIBase,
				APIKey:  cfg.Assist.APIKey,
				Timeout: 5 * time.Second,
			})
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := client.Healthy(ctx); err != nil {
				printFail("Assist service", err.Error())
				failed++
			} else {
				printPass("Assist service", cfg.Assist.APIBase)
				passed++
			}
			cancel()

			// 4. Archive database writable
			if cfg.Archive.Enabled {
				if err := checkDatabase(cfg.Archive.DBPath); err != nil {
					printFail("Archive database", err.Error())
					failed++
				} else {
					printPass("Archive database", cfg.Archive.DBPath)
					passed++
				}
			} else {
				printWarn("Archive database", "disabled")
				warned++
			}

			// 5. Recorder command present
			if name := commandName(cfg.Audio.RecorderCommand); name == "" {
				printFail("Recorder command", "not configured")
				failed++
			} else if _, err := exec.LookPath(name); err != nil {
				printFail("Recorder command", fmt.Sprintf("%s not found in PATH", name))
				failed++
			} else {
				printPass("Recorder command", name)
				passed++
			}

			// 6. Player command present
			if !cfg.Audio.Playback {
				printWarn("Player command", "playback disabled")
				warned++
			} else if name := commandName(cfg.Audio.PlayerCommand); name == "" {
				printWarn("Player command", "not configured")
				warned++
			} else if _, err := exec.LookPath(name); err != nil {
				printWarn("Player command", fmt.Sprintf("%s not found in PATH", name))
				warned++
			} else {
				printPass("Player command", name)
				passed++
			}

			// 7. Procedure guides parse
			if _, err := os.Stat(cfg.Guides.Dir); err != nil {
				printWarn("Procedure guides", fmt.Sprintf("directory not found: %s", cfg.Guides.Dir))
				warned++
			} else {
				catalog, err := procedure.LoadFromDirectory(cfg.Guides.Dir, logger)
				if err != nil {
					printFail("Procedure guides", err.Error())
					failed++
				} else {
					printPass("Procedure guides", fmt.Sprintf("%d model(s)", len(catalog.Models())))
					passed++
				}
			}

			// 8. Log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running fieldvoice.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nfieldvoice should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! fieldvoice is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	// Try a write.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	return nil
}

// commandName returns the executable of a command line, or "".
func commandName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
