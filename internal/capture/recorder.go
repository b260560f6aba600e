// Package capture wraps microphone access into a small state machine
// producing a finished audio clip per start…stop cycle.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"fieldvoice/internal/domain"
)

// State is the capture session lifecycle phase.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
	StateEncoding  State = "encoding"
)

// ErrBusy is returned by Start while a capture session is already
// running.
var ErrBusy = errors.New("a capture session is already running")

// Recorder drives one capture session at a time: idle → recording →
// stopping → encoding → idle. The device is held exclusively between
// a successful Start and the next terminal transition, and is released
// exactly once on every exit path.
type Recorder struct {
	device   domain.CaptureDevice
	logger   *slog.Logger
	mimeType string
	filename string
	onClip   func(domain.Clip)

	mu     sync.Mutex
	state  State
	held   bool // device acquired and not yet released
	buffer [][]byte
	seq    uint64 // increments per session; fences late device callbacks
}

type RecorderConfig struct {
	Device   domain.CaptureDevice
	Logger   *slog.Logger
	MIMEType string // default "audio/wav"
	Filename string // default "recording.wav"
	OnClip   func(domain.Clip)
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.MIMEType == "" {
		cfg.MIMEType = "audio/wav"
	}
	if cfg.Filename == "" {
		cfg.Filename = "recording.wav"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Recorder{
		device:   cfg.Device,
		logger:   cfg.Logger,
		mimeType: cfg.MIMEType,
		filename: cfg.Filename,
		onClip:   cfg.OnClip,
		state:    StateIdle,
	}
}

// State returns the current lifecycle phase.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start acquires the microphone and begins collecting chunks. On
// acquisition failure the session aborts, the device is released, and
// the recorder returns to idle.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrBusy
	}
	r.seq++
	session := r.seq
	r.buffer = nil
	r.state = StateRecording
	r.mu.Unlock()

	// Register the receiver before acquiring so no early chunk is lost.
	r.device.OnData(func(chunk []byte) {
		r.appendChunk(session, chunk)
	})

	if err := r.device.Acquire(ctx); err != nil {
		r.device.Release()
		r.mu.Lock()
		r.state = StateIdle
		r.buffer = nil
		r.mu.Unlock()
		return fmt.Errorf("acquire capture device: %w", err)
	}

	r.mu.Lock()
	r.held = true
	r.mu.Unlock()

	r.logger.Info("recording started")
	return nil
}

// Stop signals the device to finalize. Chunks keep arriving until the
// device confirms completion; only then is the buffer sealed and the
// clip emitted. Stop outside of recording is a clean no-op.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return
	}
	r.state = StateStopping
	session := r.seq
	r.mu.Unlock()

	r.device.Finalize(func() {
		r.finalize(session)
	})
}

// Abort cancels the session from any state, releasing the microphone
// and discarding the buffer without emitting a clip.
func (r *Recorder) Abort() {
	r.mu.Lock()
	if r.state == StateIdle {
		r.mu.Unlock()
		return
	}
	r.seq++ // fence off pending device callbacks
	r.state = StateIdle
	r.buffer = nil
	release := r.held
	r.held = false
	r.mu.Unlock()

	if release {
		r.device.Release()
	}
	r.logger.Info("capture aborted")
}

// appendChunk stores a chunk in arrival order. Chunks from a stale
// session (after abort) are dropped.
func (r *Recorder) appendChunk(session uint64, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seq != session || (r.state != StateRecording && r.state != StateStopping) {
		return
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	r.buffer = append(r.buffer, c)
}

// finalize assembles the buffered chunks into a single clip, releases
// the device, and hands the clip to the caller. A session with zero
// captured chunks still transitions cleanly to idle without emitting.
func (r *Recorder) finalize(session uint64) {
	r.mu.Lock()
	if r.seq != session || r.state != StateStopping {
		r.mu.Unlock()
		return
	}
	r.state = StateEncoding
	chunks := r.buffer
	r.buffer = nil
	r.mu.Unlock()

	var size int
	for _, c := range chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c...)
	}

	r.mu.Lock()
	if r.seq != session {
		// Aborted while encoding; Abort already released the device.
		r.mu.Unlock()
		return
	}
	r.state = StateIdle
	release := r.held
	r.held = false
	r.mu.Unlock()

	if release {
		r.device.Release()
	}

	if len(data) == 0 {
		r.logger.Info("recording stopped with no audio, discarding")
		return
	}

	r.logger.Info("recording finalized", "bytes", len(data), "chunks", len(chunks))
	if r.onClip != nil {
		r.onClip(domain.Clip{Data: data, MIMEType: r.mimeType, Filename: r.filename})
	}
}
