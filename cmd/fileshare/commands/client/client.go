// Package client implements the file port client subcommands.
package client

import (
	"fmt"

	"github.com/marmos91/fileshare/internal/cli/output"
	"github.com/marmos91/fileshare/pkg/client"
	"github.com/marmos91/fileshare/pkg/config"
	"github.com/spf13/cobra"
)

// Flags holds the persistent client flags.
var Flags struct {
	Address  string
	Username string
	Password string
	Output   string
	NoColor  bool
}

// Cmd is the client subcommand.
var Cmd = &cobra.Command{
	Use:   "client",
	Short: "Transfer files with a fileshare server",
	Long: `Upload, download and manage files on a fileshare server over the
command protocol.

Connection settings come from the client section of the configuration
file; the flags below override them.

Examples:
  # Upload a file
  fileshare client upload ./report.pdf

  # List remote files as JSON
  fileshare client ls -o json

  # Interactive mode
  fileshare client shell`,
}

func init() {
	Cmd.PersistentFlags().StringVar(&Flags.Address, "address", "", "Server address host:port (overrides client.address)")
	Cmd.PersistentFlags().StringVarP(&Flags.Username, "user", "u", "", "Username (overrides client.username)")
	Cmd.PersistentFlags().StringVar(&Flags.Password, "password", "", "Password (overrides client.password)")
	Cmd.PersistentFlags().StringVarP(&Flags.Output, "output", "o", "table", "Output format (table|json|yaml)")
	Cmd.PersistentFlags().BoolVar(&Flags.NoColor, "no-color", false, "Disable colored output")

	Cmd.AddCommand(uploadCmd)
	Cmd.AddCommand(downloadCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(listTrashCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(restoreCmd)
	Cmd.AddCommand(shellCmd)
}

// session bundles what every client command needs.
type session struct {
	client      *client.Client
	printer     *output.Printer
	downloadDir string
}

func newSession(cmd *cobra.Command) (*session, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.MustLoad(path)
	} else {
		cfg, err = config.Load("")
	}
	if err != nil {
		return nil, err
	}

	format, err := output.ParseFormat(Flags.Output)
	if err != nil {
		return nil, err
	}

	cc := cfg.ClientConfig()
	if Flags.Address != "" {
		cc.Address = Flags.Address
	}
	if Flags.Username != "" {
		cc.Username = Flags.Username
	}
	if Flags.Password != "" {
		cc.Password = Flags.Password
	}
	if cc.Password == "" {
		return nil, fmt.Errorf("no client password configured: set client.password or use --password")
	}

	return &session{
		client:      client.New(cc),
		printer:     output.NewPrinter(cmd.OutOrStdout(), format, !Flags.NoColor),
		downloadDir: cfg.Client.DownloadDir,
	}, nil
}
