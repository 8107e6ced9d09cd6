package config

import (
	"github.com/marmos91/fileshare/internal/cli/output"
	"github.com/marmos91/fileshare/pkg/config"
	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration after defaults and FILESHARE_* overrides.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show default config as YAML
  fileshare config show

  # Show as JSON
  fileshare config show --output json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == output.FormatJSON {
		return output.PrintJSON(out, cfg)
	}
	return output.PrintYAML(out, cfg)
}
