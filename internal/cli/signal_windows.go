//go:build windows

package cli

import (
	"fmt"
	"os"
)

// notifyUSR1 returns a channel that never receives; Windows has no SIGUSR1.
func notifyUSR1() <-chan os.Signal {
	return make(chan os.Signal)
}

func sendUSR1(proc *os.Process) error {
	return fmt.Errorf("toggling debug logging via signal is not supported on Windows")
}
