package config

import (
	"fmt"
	"os"

	"github.com/marmos91/fileshare/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file holding every setting at its default value.

Examples:
  # Write to $XDG_CONFIG_HOME/fileshare/config.yaml
  fileshare config init

  # Write somewhere else, replacing an existing file
  fileshare config init --config ./fileshare.yaml --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Change auth.username and set auth.password_hash (fileshare hash-password)")
	_, _ = fmt.Fprintf(out, "  2. Start the server with: fileshare start --config %s\n", path)
	return nil
}
