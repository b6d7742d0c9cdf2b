package cli

import (
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const defaultPort = 8787

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show TripNest server status",
	Long: `Show the running state of the TripNest relay.

With --toggle-debug the running server switches its stderr log level
between the configured level and debug.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Int("port", 0, "Server port to check (default: read from PID file or 8787)")
	statusCmd.Flags().Bool("toggle-debug", false, "Toggle debug logging on the running server")
}

func runStatus(cmd *cobra.Command, args []string) error {
	jsonOut := jsonOutput(cmd)
	portFlag, _ := cmd.Flags().GetInt("port")
	toggle, _ := cmd.Flags().GetBool("toggle-debug")
	out := cmd.OutOrStdout()

	stopped := func(msg string) error {
		if jsonOut {
			return writeJSON(out, map[string]any{"status": "stopped"})
		}
		fmt.Fprintln(out, msg)
		return nil
	}

	pid, port, err := readPIDFile()
	if err != nil {
		if os.IsNotExist(err) {
			return stopped("TripNest server is not running.")
		}
		return fmt.Errorf("reading PID file: %w", err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		cleanupPIDFile()
		return stopped("TripNest server is not running (stale PID file cleaned up).")
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		cleanupPIDFile()
		return stopped("TripNest server is not running (stale PID file cleaned up).")
	}

	if toggle {
		if err := sendUSR1(proc); err != nil {
			return fmt.Errorf("toggling debug logging: %w", err)
		}
	}

	if portFlag != 0 {
		port = portFlag
	}
	if port == 0 {
		port = defaultPort
	}

	healthy := false
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err == nil {
		healthy = resp.StatusCode == http.StatusOK
		resp.Body.Close()
	}

	if jsonOut {
		return writeJSON(out, map[string]any{
			"status":  "running",
			"pid":     pid,
			"port":    port,
			"healthy": healthy,
		})
	}

	useColor := colorEnabled()
	fmt.Fprintln(out, "TripNest server is running.")
	fmt.Fprintf(out, "  PID:     %d\n", pid)
	fmt.Fprintf(out, "  Port:    %d\n", port)
	if healthy {
		fmt.Fprintf(out, "  Health:  %s\n", green("ok", useColor))
	} else {
		fmt.Fprintf(out, "  Health:  %s\n", red("unreachable", useColor))
	}
	if toggle {
		fmt.Fprintln(out, "  Debug logging toggled.")
	}
	return nil
}
