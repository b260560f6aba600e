package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"fieldvoice/internal/domain"
)

// mockDevice scripts chunk timing and asserts the scoped-acquisition
// discipline: every acquire attempt must be matched by a release.
type mockDevice struct {
	mu         sync.Mutex
	acquireErr error
	onData     func([]byte)
	finalize   func()
	acquires   int
	releases   int
}

func (d *mockDevice) Acquire(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acquires++
	return d.acquireErr
}

func (d *mockDevice) OnData(fn func(chunk []byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onData = fn
}

func (d *mockDevice) Finalize(done func()) {
	d.mu.Lock()
	d.finalize = done
	d.mu.Unlock()
}

func (d *mockDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releases++
}

func (d *mockDevice) emit(chunk []byte) {
	d.mu.Lock()
	fn := d.onData
	d.mu.Unlock()
	if fn != nil {
		fn(chunk)
	}
}

// confirmFinalize simulates the device confirming that the last chunk
// has been delivered.
func (d *mockDevice) confirmFinalize() {
	d.mu.Lock()
	fn := d.finalize
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (d *mockDevice) assertBalanced(t *testing.T) {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.releases != d.acquires {
		t.Errorf("device leak: %d acquires, %d releases", d.acquires, d.releases)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRecorder(dev *mockDevice, onClip func(domain.Clip)) *Recorder {
	return NewRecorder(RecorderConfig{
		Device: dev,
		Logger: testLogger(),
		OnClip: onClip,
	})
}

func TestStartStop_EmitsOneClip(t *testing.T) {
	dev := &mockDevice{}
	var clips []domain.Clip
	r := newTestRecorder(dev, func(c domain.Clip) { clips = append(clips, c) })

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.State() != StateRecording {
		t.Fatalf("expected recording, got %s", r.State())
	}

	dev.emit([]byte("aaaa"))
	dev.emit([]byte("bbbb"))
	r.Stop()
	if r.State() != StateStopping {
		t.Fatalf("expected stopping, got %s", r.State())
	}

	// Chunks still arrive in a burst after stop was requested.
	dev.emit([]byte("cccc"))
	dev.confirmFinalize()

	if len(clips) != 1 {
		t.Fatalf("expected exactly one clip, got %d", len(clips))
	}
	if got := string(clips[0].Data); got != "aaaabbbbcccc" {
		t.Errorf("clip must preserve arrival order, got %q", got)
	}
	if clips[0].MIMEType != "audio/wav" {
		t.Errorf("expected default MIME type, got %s", clips[0].MIMEType)
	}
	if r.State() != StateIdle {
		t.Errorf("expected idle after finalize, got %s", r.State())
	}
	dev.assertBalanced(t)
}

func TestStop_NoChunks_NoClip(t *testing.T) {
	dev := &mockDevice{}
	var clips int
	r := newTestRecorder(dev, func(domain.Clip) { clips++ })

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop()
	dev.confirmFinalize()

	if clips != 0 {
		t.Errorf("zero captured chunks must emit no clip, got %d", clips)
	}
	if r.State() != StateIdle {
		t.Errorf("expected idle, got %s", r.State())
	}
	dev.assertBalanced(t)
}

func TestAcquireFailure_ReturnsToIdle(t *testing.T) {
	dev := &mockDevice{acquireErr: errors.New("permission denied")}
	r := newTestRecorder(dev, nil)

	err := r.Start(context.Background())
	if err == nil {
		t.Fatal("expected acquire error")
	}
	if r.State() != StateIdle {
		t.Errorf("expected idle after failed acquire, got %s", r.State())
	}
	dev.assertBalanced(t)
}

func TestAbort_FromRecording(t *testing.T) {
	dev := &mockDevice{}
	var clips int
	r := newTestRecorder(dev, func(domain.Clip) { clips++ })

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dev.emit([]byte("data"))
	r.Abort()

	if r.State() != StateIdle {
		t.Errorf("expected idle after abort, got %s", r.State())
	}
	if clips != 0 {
		t.Errorf("abort must not emit a clip")
	}
	dev.assertBalanced(t)
}

func TestAbort_FromStopping(t *testing.T) {
	dev := &mockDevice{}
	var clips int
	r := newTestRecorder(dev, func(domain.Clip) { clips++ })

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dev.emit([]byte("data"))
	r.Stop()
	r.Abort()

	// The device's finalize confirmation arrives after the abort.
	dev.confirmFinalize()

	if clips != 0 {
		t.Errorf("abort during stopping must not emit a clip")
	}
	if r.State() != StateIdle {
		t.Errorf("expected idle, got %s", r.State())
	}
	dev.assertBalanced(t)
}

func TestAbort_WhenIdle_NoOp(t *testing.T) {
	dev := &mockDevice{}
	r := newTestRecorder(dev, nil)
	r.Abort()
	if r.State() != StateIdle {
		t.Errorf("expected idle, got %s", r.State())
	}
	dev.assertBalanced(t)
}

func TestStart_WhileRecording_Rejected(t *testing.T) {
	dev := &mockDevice{}
	r := newTestRecorder(dev, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	r.Abort()
	dev.assertBalanced(t)
}

func TestLateChunks_AfterAbort_Dropped(t *testing.T) {
	dev := &mockDevice{}
	var clips []domain.Clip
	r := newTestRecorder(dev, func(c domain.Clip) { clips = append(clips, c) })

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Abort()
	dev.emit([]byte("late"))

	// A fresh session must not see the stale chunk.
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	dev.emit([]byte("fresh"))
	r.Stop()
	dev.confirmFinalize()

	if len(clips) != 1 || string(clips[0].Data) != "fresh" {
		t.Fatalf("stale chunk leaked into new session: %+v", clips)
	}
	dev.assertBalanced(t)
}
