// Package playback renders spoken replies through an external audio
// player. Playback is best-effort: errors are returned for logging but
// never influence an exchange's outcome.
package playback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultFetchTimeout = 20 * time.Second
	maxClipBytes        = 16 << 20
)

// CommandPlayer downloads a clip and pipes it to a player command such
// as "mpg123 -" or "afplay" (file-based players get a temp file path
// appended instead of stdin).
type CommandPlayer struct {
	command string
	client  *http.Client
	logger  *slog.Logger
}

type Config struct {
	Command string // player command line; "-" as last token means read stdin
	Logger  *slog.Logger
}

func NewCommandPlayer(cfg Config) *CommandPlayer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CommandPlayer{
		command: cfg.Command,
		client:  &http.Client{Timeout: defaultFetchTimeout},
		logger:  cfg.Logger,
	}
}

// Play fetches audioURL and hands it to the configured player.
func (p *CommandPlayer) Play(ctx context.Context, audioURL string) error {
	fields := strings.Fields(p.command)
	if len(fields) == 0 {
		return fmt.Errorf("no player command configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch reply audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch reply audio: status %d", resp.StatusCode)
	}

	if fields[len(fields)-1] == "-" {
		cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
		cmd.Stdin = io.LimitReader(resp.Body, maxClipBytes)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("player %q: %w", fields[0], err)
		}
		return nil
	}

	// File-based player: spool to a temp file and append its path.
	tmp, err := os.CreateTemp("", "fieldvoice-reply-*.mp3")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, io.LimitReader(resp.Body, maxClipBytes)); err != nil {
		tmp.Close()
		return fmt.Errorf("spool reply audio: %w", err)
	}
	tmp.Close()

	args := append(fields[1:], tmp.Name())
	cmd := exec.CommandContext(ctx, fields[0], args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("player %q: %w", fields[0], err)
	}
	return nil
}
