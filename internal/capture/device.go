package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	defaultChunkSize    = 4096
	finalizeGracePeriod = 5 * time.Second
)

// CommandDevice implements domain.CaptureDevice on top of an external
// recorder process (e.g. "arecord -f cd -t wav -" or
// "sox -d -t wav -") that streams audio to stdout. Finalize sends an
// interrupt and waits for the pipe to drain, so trailing chunks are
// still delivered before the done callback fires.
type CommandDevice struct {
	command string
	logger  *slog.Logger

	mu      sync.Mutex
	onData  func([]byte)
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	drained chan struct{} // closed when the reader goroutine exits
}

type CommandDeviceConfig struct {
	Command string // recorder command line, split on whitespace
	Logger  *slog.Logger
}

func NewCommandDevice(cfg CommandDeviceConfig) *CommandDevice {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CommandDevice{
		command: cfg.Command,
		logger:  cfg.Logger,
	}
}

func (d *CommandDevice) OnData(fn func(chunk []byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onData = fn
}

func (d *CommandDevice) Acquire(ctx context.Context) error {
	fields := strings.Fields(d.command)
	if len(fields) == 0 {
		return fmt.Errorf("no recorder command configured")
	}

	cmd := exec.Command(fields[0], fields[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("recorder stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start recorder %q: %w", fields[0], err)
	}

	d.mu.Lock()
	d.cmd = cmd
	d.stdout = stdout
	d.drained = make(chan struct{})
	onData := d.onData
	drained := d.drained
	d.mu.Unlock()

	go func() {
		defer close(drained)
		buf := make([]byte, defaultChunkSize)
		for {
			n, err := stdout.Read(buf)
			if n > 0 && onData != nil {
				onData(buf[:n])
			}
			if err != nil {
				if err != io.EOF {
					d.logger.Debug("recorder stream ended", "err", err)
				}
				return
			}
		}
	}()

	d.logger.Info("capture device acquired", "command", fields[0])
	return nil
}

func (d *CommandDevice) Finalize(done func()) {
	d.mu.Lock()
	cmd := d.cmd
	drained := d.drained
	d.mu.Unlock()

	if cmd == nil {
		if done != nil {
			done()
		}
		return
	}

	// Ask the recorder to flush and exit; it keeps writing buffered
	// audio until then, which the reader goroutine still delivers.
	if err := cmd.Process.Signal(interruptSignal()); err != nil {
		d.logger.Warn("recorder interrupt failed, killing", "err", err)
		_ = cmd.Process.Kill()
	}

	go func() {
		select {
		case <-drained:
		case <-time.After(finalizeGracePeriod):
			d.logger.Warn("recorder did not drain in time, killing")
			_ = cmd.Process.Kill()
			<-drained
		}
		_ = cmd.Wait()
		if done != nil {
			done()
		}
	}()
}

func (d *CommandDevice) Release() {
	d.mu.Lock()
	cmd := d.cmd
	stdout := d.stdout
	d.cmd = nil
	d.stdout = nil
	d.mu.Unlock()

	if cmd != nil && cmd.ProcessState == nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	if stdout != nil {
		_ = stdout.Close()
	}
}
