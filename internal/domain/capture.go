package domain

import "context"

// CaptureDevice abstracts the microphone so chunk timing can be
// simulated in tests. The capture subsystem holds the device
// exclusively between Acquire and Release.
//
// Chunk delivery is event-driven: after Stop is requested chunks may
// still arrive in bursts until the device confirms finalization
// through the callback passed to Finalize.
type CaptureDevice interface {
	// Acquire opens the device. Failing here (permission denied, no
	// device) aborts the capture session.
	Acquire(ctx context.Context) error

	// OnData registers the receiver for raw audio chunks. Must be set
	// before Acquire so no early chunk is lost.
	OnData(fn func(chunk []byte))

	// Finalize asks the device to stop producing data and invoke done
	// once the last buffered chunk has been delivered.
	Finalize(done func())

	// Release closes the device. Safe to call on every exit path,
	// including after a failed Acquire.
	Release()
}

// Player renders an audio clip fetched from a URL. Playback is a
// best-effort side effect: failures are discarded and never affect an
// exchange's outcome.
type Player interface {
	Play(ctx context.Context, audioURL string) error
}
