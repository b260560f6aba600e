//go:build !windows

package capture

import (
	"os"
	"syscall"
)

func interruptSignal() os.Signal { return syscall.SIGINT }
