package config

import (
	"fmt"
	"strconv"

	"github.com/marmos91/fileshare/internal/cli/output"
	"github.com/marmos91/fileshare/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the fileshare configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  fileshare config validate

  # Validate specific config file
  fileshare config validate --config /etc/fileshare/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)

	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", path)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintln(out, "\nConfiguration summary:")
	return output.PrintKeyValues(out, [][2]string{
		{"File port", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)},
		{"Chunk size", cfg.Server.ChunkSize.String()},
		{"Uploads", cfg.Storage.UploadDir},
		{"Trash", cfg.Storage.TrashDir},
		{"Static", cfg.Storage.StaticDir},
		{"User", cfg.Auth.Username},
		{"Metrics", enabledOn(cfg.Metrics.Enabled, cfg.Metrics.Port)},
		{"Health API", enabledOn(cfg.API.IsEnabled(), cfg.API.Port)},
		{"Log level", cfg.Logging.Level},
	})
}

// configWarnings lists settings that are valid but probably unintended.
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.Auth.PasswordHash == "" && cfg.Auth.Password == config.DefaultPassword {
		warnings = append(warnings, "auth uses the default password; set auth.password_hash")
	}
	if cfg.Auth.PasswordHash != "" && cfg.Auth.Password != "" && cfg.Auth.Password != config.DefaultPassword {
		warnings = append(warnings, "auth.password is ignored because auth.password_hash is set")
	}
	if cfg.Server.EndUploadOnShortRead {
		warnings = append(warnings, "server.end_upload_on_short_read can truncate uploads from slow clients")
	}
	if cfg.Server.SniffBufferSize > cfg.Server.MaxHeaderBytes {
		warnings = append(warnings, "server.sniff_buffer_size exceeds server.max_header_bytes")
	}
	return warnings
}

func enabledOn(enabled bool, port int) string {
	if !enabled {
		return "disabled"
	}
	return "port " + strconv.Itoa(port)
}
