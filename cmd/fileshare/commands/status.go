package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/marmos91/fileshare/internal/bytesize"
	"github.com/marmos91/fileshare/internal/cli/health"
	"github.com/marmos91/fileshare/internal/cli/output"
	"github.com/marmos91/fileshare/internal/cli/timeutil"
	"github.com/spf13/cobra"
)

var (
	statusOutput  string
	statusPidFile string
	statusAPIPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the fileshare server.

This command queries the health API (api.enabled must be true on the
server) and shows uptime and the usage of each storage area. With
--pid-file the process is also checked directly.

Examples:
  # Check status using the api section of the configuration
  fileshare status

  # Check status with a custom API port
  fileshare status --api-port 9081

  # Output as JSON
  fileshare status --output json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "PID file written by fileshare start --pid-file")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 0, "Health API port (overrides api.port)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus is the combined process and health state.
type ServerStatus struct {
	Running   bool          `json:"running" yaml:"running"`
	PID       int           `json:"pid,omitempty" yaml:"pid,omitempty"`
	Healthy   bool          `json:"healthy" yaml:"healthy"`
	Message   string        `json:"message" yaml:"message"`
	StartedAt string        `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	UptimeSec int64         `json:"uptime_sec,omitempty" yaml:"uptime_sec,omitempty"`
	Areas     []health.Area `json:"areas,omitempty" yaml:"areas,omitempty"`
}

func (s ServerStatus) Headers() []string {
	return []string{"Area", "Status", "Files", "Size", "Path"}
}

func (s ServerStatus) Rows() [][]string {
	rows := make([][]string, 0, len(s.Areas))
	for _, a := range s.Areas {
		state := a.Status
		if a.Error != "" {
			state += " (" + a.Error + ")"
		}
		rows = append(rows, []string{a.Name, state, strconv.Itoa(a.Files), bytesize.ByteSize(a.Bytes).String(), a.Path})
	}
	return rows
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(GetConfigFile())
	if err != nil {
		return err
	}

	port := statusAPIPort
	if port == 0 {
		if !cfg.API.IsEnabled() {
			return fmt.Errorf("health API is disabled: set api.enabled or pass --api-port")
		}
		port = cfg.API.Port
	}

	status := ServerStatus{Message: "Server is not running"}
	if statusPidFile != "" {
		status.PID, status.Running = processRunning(statusPidFile)
		if status.Running {
			status.Message = "Server process exists but health check failed"
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
	defer cancel()
	queryHealth(ctx, fmt.Sprintf("http://localhost:%d", port), &status)

	out := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.NewPrinter(out, format, false).Print(status)
	}
	return printStatusTable(out, status)
}

// processRunning reads a PID file and probes the process with signal 0.
func processRunning(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}
	return pid, true
}

// queryHealth fills status from the liveness and areas endpoints. A
// server that does not answer leaves status untouched.
func queryHealth(ctx context.Context, baseURL string, status *ServerStatus) {
	var live health.Liveness
	if _, err := getJSON(ctx, baseURL+"/health", &live); err != nil {
		return
	}
	status.Running = true
	status.StartedAt = live.Data.StartedAt
	status.UptimeSec = live.Data.UptimeSec

	var areas health.Areas
	code, err := getJSON(ctx, baseURL+"/health/areas", &areas)
	if err != nil {
		status.Message = "Server is running but health response invalid"
		return
	}
	status.Areas = areas.Data.Areas
	status.Healthy = code == http.StatusOK && areas.Status == "healthy"
	if status.Healthy {
		status.Message = "Server is running and healthy"
		return
	}
	status.Message = "Server is running but unhealthy"
	if areas.Error != "" {
		status.Message += ": " + areas.Error
	}
}

func getJSON(ctx context.Context, url string, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("invalid response from %s: %w", url, err)
	}
	return resp.StatusCode, nil
}

func printStatusTable(w io.Writer, status ServerStatus) error {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "fileshare Server Status")
	_, _ = fmt.Fprintln(w, "=======================")
	_, _ = fmt.Fprintln(w)

	switch {
	case status.Running && status.Healthy:
		_, _ = fmt.Fprintf(w, "  Status:     \033[32m● Running\033[0m\n")
	case status.Running:
		_, _ = fmt.Fprintf(w, "  Status:     \033[33m● Running (unhealthy)\033[0m\n")
	default:
		_, _ = fmt.Fprintf(w, "  Status:     \033[31m○ Stopped\033[0m\n")
	}
	if status.PID != 0 {
		_, _ = fmt.Fprintf(w, "  PID:        %d\n", status.PID)
	}
	if status.StartedAt != "" {
		_, _ = fmt.Fprintf(w, "  Started:    %s\n", timeutil.FormatTime(status.StartedAt))
		_, _ = fmt.Fprintf(w, "  Uptime:     %s\n", timeutil.FormatUptime(status.UptimeSec))
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "  %s\n", status.Message)
	_, _ = fmt.Fprintln(w)

	if len(status.Areas) == 0 {
		return nil
	}
	return output.PrintTable(w, status)
}
