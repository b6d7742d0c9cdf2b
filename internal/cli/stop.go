package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tripnest/tripnest/internal/cli/ui"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the TripNest server",
	Long:  `Stop a running TripNest relay gracefully.`,
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	jsonOut := jsonOutput(cmd)
	out := cmd.OutOrStdout()

	pid, port, err := readPIDFile()
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading PID file: %w", err)
		}
		// Without a PID file, check whether something still holds the port.
		if portInUse(defaultPort) {
			if jsonOut {
				return writeJSON(out, map[string]any{
					"status":  "orphan",
					"message": fmt.Sprintf("no PID file but port %d is in use", defaultPort),
					"port":    defaultPort,
				})
			}
			fmt.Fprintf(out, "No PID file found, but port %d is in use.\n\n", defaultPort)
			fmt.Fprintln(out, "  An orphan process may be holding the port. Try:")
			fmt.Fprintf(out, "    lsof -ti :%d | xargs kill   # find and kill the process\n", defaultPort)
			fmt.Fprintln(out, "    tripnest start                # then start fresh")
			return nil
		}
		if jsonOut {
			return writeJSON(out, map[string]any{"status": "not_running", "message": "no TripNest server is running"})
		}
		fmt.Fprintln(out, "No TripNest server is running (no PID file found).")
		return nil
	}

	notRunning := func() error {
		cleanupPIDFile()
		if jsonOut {
			return writeJSON(out, map[string]any{"status": "not_running", "message": "stale PID file cleaned up"})
		}
		fmt.Fprintln(out, "No TripNest server is running (stale PID file cleaned up).")
		return nil
	}
	stopped := func(status string) error {
		cleanupPIDFile()
		if jsonOut {
			return writeJSON(out, map[string]any{"status": status, "pid": pid, "port": port})
		}
		if status == "killed" {
			fmt.Fprintf(out, "TripNest server (PID %d) force-stopped (SIGKILL).\n", pid)
		} else {
			fmt.Fprintf(out, "TripNest server (PID %d) stopped.\n", pid)
		}
		return nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return notRunning()
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return notRunning()
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending SIGTERM to PID %d: %w", pid, err)
	}

	sp := ui.NewStepSpinner(os.Stderr, !colorEnabled())
	sp.Start("Stopping server...")

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(200 * time.Millisecond)
		if err := proc.Signal(syscall.Signal(0)); err != nil {
			sp.Done()
			return stopped("stopped")
		}
	}

	// Graceful shutdown timed out.
	sp.Fail()
	if err := proc.Signal(syscall.SIGKILL); err != nil {
		return stopped("stopped")
	}
	time.Sleep(1 * time.Second)
	return stopped("killed")
}
