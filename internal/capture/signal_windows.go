//go:build windows

package capture

import "os"

// Windows has no SIGINT delivery to child processes; fall back to Kill
// and rely on the drain timeout in Finalize.
func interruptSignal() os.Signal { return os.Kill }
