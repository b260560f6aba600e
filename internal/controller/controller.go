// Package controller owns the conversation: it mediates typed and
// spoken input, drives the request lifecycle, and appends turns to the
// timeline in conversational order.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldvoice/internal/capture"
	"fieldvoice/internal/domain"
	"fieldvoice/internal/exchange"
	"fieldvoice/internal/timeline"
)

const defaultExchangeTimeout = 30 * time.Second

// ErrEmptyInput is returned for empty or whitespace-only messages.
// Handled locally: it never reaches the service and mutates nothing.
var ErrEmptyInput = errors.New("message is empty")

// Controller composes the timeline store, the request lifecycle
// tracker, and the audio capture subsystem for one active
// conversation. All state is constructor-injected; a controller owns
// its timeline and tracker exclusively.
type Controller struct {
	tl       *timeline.Store
	tracker  *exchange.Tracker
	recorder *capture.Recorder
	assist   domain.AssistClient
	binder   domain.ContextBinder
	player   domain.Player
	archive  domain.ArchiveStore
	logger   *slog.Logger
	timeout  time.Duration
	histMax  int

	convMu sync.Mutex
	convID string // lazily created archive conversation
}

// workOrderBinder is an optional extension of domain.ContextBinder for
// binders that know the active work order, used to key the archive.
type workOrderBinder interface {
	WorkOrderID() string
}

type Config struct {
	Timeline *timeline.Store
	Tracker  *exchange.Tracker
	Device   domain.CaptureDevice
	Assist   domain.AssistClient
	Binder   domain.ContextBinder
	Player   domain.Player       // optional; nil disables playback
	Archive  domain.ArchiveStore // optional; nil disables archiving
	Logger   *slog.Logger
	Timeout  time.Duration // per-exchange bound, default 30s

	// HistoryLimit caps the prior turns sent with a text exchange.
	// Zero sends the full timeline.
	HistoryLimit int
}

func New(cfg Config) *Controller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultExchangeTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Controller{
		tl:      cfg.Timeline,
		tracker: cfg.Tracker,
		assist:  cfg.Assist,
		binder:  cfg.Binder,
		player:  cfg.Player,
		archive: cfg.Archive,
		logger:  cfg.Logger,
		timeout: cfg.Timeout,
		histMax: cfg.HistoryLimit,
	}
	c.recorder = capture.NewRecorder(capture.RecorderConfig{
		Device: cfg.Device,
		Logger: cfg.Logger,
		OnClip: c.onClip,
	})
	return c
}

// Timeline exposes the controller's timeline store for rendering.
func (c *Controller) Timeline() *timeline.Store { return c.tl }

// IsPending reports whether an exchange is in flight.
func (c *Controller) IsPending() bool { return c.tracker.IsPending() }

// LastError returns the visible error string, or "" when none.
func (c *Controller) LastError() string { return c.tracker.LastError() }

// CaptureState reports the audio capture phase for UI affordances.
func (c *Controller) CaptureState() capture.State { return c.recorder.State() }

// SendText runs one text exchange. Empty input and an already-pending
// exchange are rejected at the boundary without mutating the timeline.
// The user turn is appended optimistically and retained even if the
// exchange fails: the utterance is real regardless of the reply.
func (c *Controller) SendText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	h, err := c.tracker.Begin(domain.ExchangeText)
	if err != nil {
		return err
	}

	jctx := c.binder.Context()
	history := c.tl.Snapshot()
	if c.histMax > 0 && len(history) > c.histMax {
		history = history[len(history)-c.histMax:]
	}

	c.tl.Append(domain.Turn{Role: domain.RoleUser, Content: text, Timestamp: time.Now()})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.assist.Text(ctx, domain.TextExchangeRequest{
		Message:     text,
		Model:       jctx.Model,
		CurrentStep: jctx.Step,
		ChatHistory: history,
	})
	if err != nil {
		c.tracker.Fail(h, exchangeErrorMessage(err))
		return fmt.Errorf("text exchange: %w", err)
	}

	c.logWarnings(resp.SafetyWarnings)
	c.tl.Append(domain.Turn{Role: domain.RoleAssistant, Content: resp.Reply, Timestamp: time.Now()})
	c.tracker.Succeed(h)

	c.archiveTurns(jctx, text,
		domain.Turn{Role: domain.RoleUser, Content: text},
		domain.Turn{Role: domain.RoleAssistant, Content: resp.Reply},
	)
	return nil
}

// StartVoice begins a capture session. Rejected while an exchange is
// pending, mirroring the disabled send affordance. Capture failures
// (permission denied, no device) surface through the error banner and
// leave the recorder idle.
func (c *Controller) StartVoice(ctx context.Context) error {
	if c.tracker.IsPending() {
		return exchange.ErrAlreadyPending
	}
	if err := c.recorder.Start(ctx); err != nil {
		if !errors.Is(err, capture.ErrBusy) {
			c.tracker.ReportError("microphone unavailable: " + err.Error())
		}
		return err
	}
	return nil
}

// StopVoice finalizes the capture session. The resulting clip, if any,
// is sent through onClip once the device confirms completion. Stopping
// before any audio was captured transitions cleanly without a clip.
func (c *Controller) StopVoice() {
	c.recorder.Stop()
}

// AbortVoice cancels any capture session without emitting a clip.
// Used on component teardown.
func (c *Controller) AbortVoice() {
	c.recorder.Abort()
}

// onClip runs the voice exchange for a finished clip. Unlike SendText
// there is no optimistic append: the user turn's content is unknown
// until transcription completes, so on failure zero turns are added.
func (c *Controller) onClip(clip domain.Clip) {
	h, err := c.tracker.Begin(domain.ExchangeVoice)
	if err != nil {
		c.logger.Warn("dropping clip, exchange already pending")
		return
	}

	jctx := c.binder.Context()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.assist.Voice(ctx, clip, jctx)
	if err != nil {
		c.tracker.Fail(h, exchangeErrorMessage(err))
		return
	}

	c.logWarnings(resp.SafetyWarnings)

	// Transcribed user turn strictly before the assistant turn.
	now := time.Now()
	c.tl.Append(domain.Turn{Role: domain.RoleUser, Content: resp.Transcript, Timestamp: now})
	c.tl.Append(domain.Turn{Role: domain.RoleAssistant, Content: resp.Reply, Timestamp: time.Now()})
	c.tracker.Succeed(h)

	c.archiveTurns(jctx, resp.Transcript,
		domain.Turn{Role: domain.RoleUser, Content: resp.Transcript},
		domain.Turn{Role: domain.RoleAssistant, Content: resp.Reply},
	)

	if resp.AudioURL != "" && c.player != nil {
		go c.playReply(resp.AudioURL)
	}
}

// playReply renders the spoken reply. Fire-and-forget: a playback
// failure is logged and never surfaced as a conversation error.
func (c *Controller) playReply(audioURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.player.Play(ctx, audioURL); err != nil {
		c.logger.Warn("reply playback failed", "err", err)
	}
}

// ClearError dismisses the visible error banner.
func (c *Controller) ClearError() {
	c.tracker.ClearError()
}

// Reset clears the session for a new work order: timeline emptied,
// tracker returned to idle (stale responses become no-ops), any
// capture session aborted, and a fresh archive conversation started.
func (c *Controller) Reset() {
	c.recorder.Abort()
	c.tracker.Reset()
	c.tl.Clear()
	c.convMu.Lock()
	c.convID = ""
	c.convMu.Unlock()
}

func (c *Controller) logWarnings(warnings []string) {
	// Deliberately log-only: warnings never interrupt the conversation.
	for _, w := range warnings {
		c.logger.Warn("safety warning", "warning", w)
	}
}

// archiveTurns persists the exchange best-effort. Archive failures are
// logged, never surfaced.
func (c *Controller) archiveTurns(jctx domain.JobContext, title string, turns ...domain.Turn) {
	if c.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.convMu.Lock()
	if c.convID == "" {
		id := uuid.NewString()
		rec := domain.ConversationRecord{
			ID:    id,
			Model: jctx.Model,
			Title: title,
		}
		if wb, ok := c.binder.(workOrderBinder); ok {
			rec.WorkOrderID = wb.WorkOrderID()
		}
		if err := c.archive.CreateConversation(ctx, rec); err != nil {
			c.convMu.Unlock()
			c.logger.Warn("archive conversation create failed", "err", err)
			return
		}
		c.convID = id
	}
	convID := c.convID
	c.convMu.Unlock()

	for _, turn := range turns {
		if err := c.archive.AddTurn(ctx, convID, turn); err != nil {
			c.logger.Warn("archive turn write failed", "err", err)
		}
	}
}

// exchangeErrorMessage maps a transport failure to the user-facing
// banner string.
func exchangeErrorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "the assistant took too long to respond"
	}
	return err.Error()
}
