// Package exchange tracks the lifecycle of a single request/response
// round with the reasoning service and gates new submissions.
package exchange

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"fieldvoice/internal/domain"
)

// ErrAlreadyPending is returned by Begin while an exchange is in
// flight. New intents are rejected, never queued: silently serializing
// could apply a stale context to a newer intent, so the UI is expected
// to disable send controls instead.
var ErrAlreadyPending = errors.New("an exchange is already pending")

// Handle references one begun exchange. Succeed and Fail are no-ops on
// stale handles, guarding against a slow response completing after the
// user already reset the session.
type Handle struct {
	id   string
	kind domain.ExchangeKind
}

// Kind reports the input modality this handle was begun with.
func (h Handle) Kind() domain.ExchangeKind { return h.kind }

// Tracker is the exchange state machine: idle → pending → {succeeded,
// failed} → idle. At most one exchange is pending at a time.
type Tracker struct {
	mu        sync.Mutex
	pending   string // id of the in-flight exchange, empty when idle
	lastError string
	logger    *slog.Logger
}

func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger}
}

// Begin transitions to pending and returns a handle for the new
// exchange, or ErrAlreadyPending if one is in flight.
func (t *Tracker) Begin(kind domain.ExchangeKind) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending != "" {
		return Handle{}, ErrAlreadyPending
	}
	h := Handle{id: uuid.NewString(), kind: kind}
	t.pending = h.id
	t.logger.Debug("exchange begun", "kind", kind, "id", h.id)
	return h, nil
}

// Succeed completes the referenced exchange and clears any visible
// error. No-op on a stale or mismatched handle.
func (t *Tracker) Succeed(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == "" || t.pending != h.id {
		t.logger.Debug("ignoring succeed for stale exchange", "id", h.id)
		return
	}
	t.pending = ""
	t.lastError = ""
}

// Fail completes the referenced exchange with a user-facing error
// message, replacing any previous one. No-op on a stale handle.
func (t *Tracker) Fail(h Handle, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == "" || t.pending != h.id {
		t.logger.Debug("ignoring fail for stale exchange", "id", h.id)
		return
	}
	t.pending = ""
	t.lastError = reason
	t.logger.Warn("exchange failed", "kind", h.kind, "reason", reason)
}

// IsPending reports whether an exchange is in flight. Drives UI
// disablement of send controls.
func (t *Tracker) IsPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != ""
}

// LastError returns the most recent visible error message, or "" when
// none. Exactly one error is visible at a time.
func (t *Tracker) LastError() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastError
}

// ReportError records a visible error that did not come from an
// exchange (e.g. a capture failure). It shares the single error slot:
// the new message replaces any previous one.
func (t *Tracker) ReportError(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastError = reason
}

// ClearError dismisses the visible error banner.
func (t *Tracker) ClearError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastError = ""
}

// Reset returns the tracker to idle and invalidates any outstanding
// handle, so a response racing a session reset cannot complete a
// newer, distinct exchange.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = ""
	t.lastError = ""
}
