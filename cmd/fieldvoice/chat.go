package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"fieldvoice/internal/archive"
	"fieldvoice/internal/assist"
	"fieldvoice/internal/capture"
	"fieldvoice/internal/config"
	"fieldvoice/internal/controller"
	"fieldvoice/internal/domain"
	"fieldvoice/internal/exchange"
	"fieldvoice/internal/playback"
	"fieldvoice/internal/procedure"
	"fieldvoice/internal/timeline"
	"fieldvoice/internal/workctx"
	"fieldvoice/internal/workorder"

	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat",
		Long:  "Interactive conversation with the assist service. Type a question, or use /voice to ask by microphone. /help lists commands.",
		RunE:  runChat,
	}
}

// resolvingPlayer turns service-relative audio paths into absolute
// URLs before handing them to the audio player.
type resolvingPlayer struct {
	assist *assist.Client
	player domain.Player
}

func (p *resolvingPlayer) Play(ctx context.Context, audioURL string) error {
	return p.player.Play(ctx, p.assist.ResolveAudioURL(audioURL))
}

// chatSession holds everything the REPL needs.
type chatSession struct {
	cfg    *config.Config
	ctrl   *controller.Controller
	binder *workctx.Binder
	orders *workorder.Client
	out    io.Writer

	mu        sync.Mutex
	printed   int // timeline turns already rendered
	thinking  bool
	thinkStop chan struct{}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadOrDefaults()
	log := buildLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	assistClient := assist.NewClient(assist.Config{
		APIBase: cfg.Assist.APIBase,
		APIKey:  cfg.Assist.APIKey,
		Timeout: time.Duration(cfg.Assist.TimeoutSeconds) * time.Second,
		Logger:  log,
	})

	guides, err := procedure.LoadFromDirectory(cfg.Guides.Dir, log)
	if err != nil {
		return fmt.Errorf("load guides: %w", err)
	}

	binder := workctx.NewBinder(workctx.Config{Guides: guides, Logger: log})

	var store domain.ArchiveStore
	if cfg.Archive.Enabled {
		s, err := archive.NewSQLiteStore(cfg.Archive.DBPath, log)
		if err != nil {
			return fmt.Errorf("archive store: %w", err)
		}
		defer s.Close()
		store = s

		cutoff := time.Now().AddDate(0, 0, -cfg.Archive.RetentionDays)
		if _, err := s.Prune(ctx, cutoff); err != nil {
			log.Warn("archive prune failed", "err", err)
		}
	}

	var player domain.Player
	if cfg.Audio.Playback && cfg.Audio.PlayerCommand != "" {
		player = &resolvingPlayer{
			assist: assistClient,
			player: playback.NewCommandPlayer(playback.Config{Command: cfg.Audio.PlayerCommand, Logger: log}),
		}
	}

	ctrl := controller.New(controller.Config{
		Timeline:     timeline.New(),
		Tracker:      exchange.NewTracker(log),
		Device:       capture.NewCommandDevice(capture.CommandDeviceConfig{Command: cfg.Audio.RecorderCommand, Logger: log}),
		Assist:       assistClient,
		Binder:       binder,
		Player:       player,
		Archive:      store,
		Logger:       log,
		Timeout:      time.Duration(cfg.Assist.TimeoutSeconds) * time.Second,
		HistoryLimit: cfg.Assist.HistoryLimit,
	})
	defer ctrl.AbortVoice()

	woBase := cfg.WorkOrders.APIBase
	if woBase == "" {
		woBase = cfg.Assist.APIBase
	}
	ordersClient := workorder.NewClient(workorder.Config{
		APIBase: woBase,
		APIKey:  cfg.WorkOrders.APIKey,
		Logger:  log,
	})

	session := &chatSession{
		cfg:    cfg,
		ctrl:   ctrl,
		binder: binder,
		orders: ordersClient,
		out:    os.Stdout,
	}
	ctrl.Timeline().Subscribe(session.render)

	return session.run(ctx)
}

func (s *chatSession) run(ctx context.Context) error {
	fmt.Fprintln(s.out, "fieldvoice chat. Type a question, /voice to speak, /help for commands.")
	s.prompt()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			s.prompt()
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := s.handleCommand(ctx, line, scanner); quit {
				return nil
			}
			s.prompt()
			continue
		}

		s.startThinking()
		err := s.ctrl.SendText(ctx, line)
		s.stopThinking()
		if err != nil {
			s.printError(err)
		}
		s.prompt()
	}
}

// handleCommand dispatches a /command line. Returns true on /quit.
func (s *chatSession) handleCommand(ctx context.Context, line string, scanner *bufio.Scanner) bool {
	fields := strings.Fields(line)
	cmd, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch cmd {
	case "/quit", "/exit", "/q":
		return true

	case "/help":
		fmt.Fprintln(s.out, "  /voice          record a question (Enter stops)")
		fmt.Fprintln(s.out, "  /order <id>     bind a work order (no arg: clear)")
		fmt.Fprintln(s.out, "  /step <label>   set the current procedure step (no arg: clear)")
		fmt.Fprintln(s.out, "  /steps          list guide steps for the active model")
		fmt.Fprintln(s.out, "  /clear          reset the conversation")
		fmt.Fprintln(s.out, "  /quit           exit")

	case "/voice":
		s.runVoice(ctx, scanner)

	case "/order":
		if rest == "" {
			s.binder.SetWorkOrder(nil)
			s.ctrl.Reset()
			s.resetPrinted()
			fmt.Fprintln(s.out, "work order cleared")
			break
		}
		order, err := s.orders.Get(ctx, rest)
		if err != nil {
			fmt.Fprintf(s.out, "cannot load work order: %v\n", err)
			break
		}
		s.binder.SetWorkOrder(order)
		s.ctrl.Reset()
		s.resetPrinted()
		fmt.Fprintf(s.out, "work order %s: %s / %s (model %s)\n",
			order.ID, order.CustomerName, order.Address, order.Model)

	case "/step":
		if err := s.binder.SetStep(rest); err != nil {
			fmt.Fprintf(s.out, "%v\n", err)
			if labels := s.binder.StepLabels(); len(labels) > 0 {
				fmt.Fprintf(s.out, "known steps: %s\n", strings.Join(labels, ", "))
			}
			break
		}
		if rest == "" {
			fmt.Fprintln(s.out, "step cleared")
		} else {
			fmt.Fprintf(s.out, "step: %s\n", rest)
		}

	case "/steps":
		labels := s.binder.StepLabels()
		if len(labels) == 0 {
			fmt.Fprintln(s.out, "no guide for the active model")
			break
		}
		for i, label := range labels {
			fmt.Fprintf(s.out, "  %d. %s\n", i+1, label)
		}

	case "/clear":
		s.ctrl.Reset()
		s.resetPrinted()
		fmt.Fprintln(s.out, "conversation cleared")

	default:
		fmt.Fprintf(s.out, "unknown command %s (try /help)\n", cmd)
	}
	return false
}

// runVoice drives one capture session: start, wait for Enter, stop,
// then wait for the exchange to settle so the transcript and reply are
// on screen before the next prompt.
func (s *chatSession) runVoice(ctx context.Context, scanner *bufio.Scanner) {
	if err := s.ctrl.StartVoice(ctx); err != nil {
		s.printError(err)
		return
	}
	fmt.Fprint(s.out, "recording... press Enter to stop ")
	if !scanner.Scan() {
		s.ctrl.AbortVoice()
		return
	}

	s.startThinking()
	s.ctrl.StopVoice()
	s.waitForExchange(ctx)
	s.stopThinking()

	if msg := s.ctrl.LastError(); msg != "" {
		fmt.Fprintf(s.out, "error: %s\n", msg)
		s.ctrl.ClearError()
	}
}

// waitForExchange blocks until the voice exchange triggered by a
// finished clip has settled. An empty capture emits no clip and never
// becomes pending, so a settle window bounds the wait.
func (s *chatSession) waitForExchange(ctx context.Context) {
	timeout := time.Duration(s.cfg.Assist.TimeoutSeconds)*time.Second + 10*time.Second
	deadline := time.Now().Add(timeout)
	sawPending := false
	settled := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.ctrl.IsPending() {
			sawPending = true
		} else if sawPending {
			return // exchange finished
		} else if s.ctrl.CaptureState() == capture.StateIdle && time.Now().After(settled) {
			return // no clip was emitted
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// render prints timeline turns that have not been shown yet. Runs
// synchronously from every timeline mutation.
func (s *chatSession) render(turns []domain.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(turns) < s.printed {
		s.printed = len(turns)
		return
	}
	s.clearSpinnerLine()
	for _, turn := range turns[s.printed:] {
		switch turn.Role {
		case domain.RoleUser:
			fmt.Fprintf(s.out, "You> %s\n", turn.Content)
		case domain.RoleAssistant:
			fmt.Fprintf(s.out, "--- assistant ---\n%s\n-----------------\n", turn.Content)
		}
	}
	s.printed = len(turns)
}

func (s *chatSession) resetPrinted() {
	s.mu.Lock()
	s.printed = 0
	s.mu.Unlock()
}

func (s *chatSession) prompt() {
	fmt.Fprint(s.out, "You> ")
}

func (s *chatSession) printError(err error) {
	switch {
	case errors.Is(err, controller.ErrEmptyInput):
		// nothing to do
	case errors.Is(err, exchange.ErrAlreadyPending):
		fmt.Fprintln(s.out, "still waiting for the previous answer")
	default:
		fmt.Fprintf(s.out, "error: %s\n", s.ctrl.LastError())
		s.ctrl.ClearError()
	}
}

func (s *chatSession) startThinking() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.thinking {
		return
	}
	s.thinking = true
	s.thinkStop = make(chan struct{})
	go func(stop chan struct{}) {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(s.out, "\r%s waiting...", frames[i%len(frames)])
				i++
			}
		}
	}(s.thinkStop)
}

func (s *chatSession) stopThinking() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.thinking {
		return
	}
	close(s.thinkStop)
	s.thinking = false
	fmt.Fprint(s.out, "\r\033[K")
}

// clearSpinnerLine wipes an in-progress spinner before printing turns.
// Caller holds s.mu.
func (s *chatSession) clearSpinnerLine() {
	if s.thinking {
		fmt.Fprint(s.out, "\r\033[K")
	}
}
