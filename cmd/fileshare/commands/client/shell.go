package client

import (
	"context"
	"fmt"

	"github.com/marmos91/fileshare/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive client",
	Long: `Start an interactive menu that repeats until you choose Exit or
press Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return s.shell(cmd.Context())
	},
}

var shellMenu = []prompt.MenuItem{
	{Label: "Upload", Value: "upload", Description: "Send a local file to the server"},
	{Label: "Download", Value: "download", Description: "Fetch a file into the download directory"},
	{Label: "List files", Value: "ls", Description: "Show uploaded files"},
	{Label: "List trash", Value: "ls-trash", Description: "Show deleted files"},
	{Label: "Delete", Value: "rm", Description: "Move a file to the trash"},
	{Label: "Restore", Value: "restore", Description: "Bring a file back from the trash"},
	{Label: "Exit", Value: "exit"},
}

func (s *session) shell(ctx context.Context) error {
	s.printer.Printf("Connected to %s\n", s.client.Address())
	for {
		choice, err := prompt.Select("Action", shellMenu)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		if choice == "exit" {
			return nil
		}

		if err := s.runAction(ctx, choice); err != nil {
			if prompt.IsAborted(err) {
				continue
			}
			s.printer.Error(fmt.Sprintf("Error: %v", err))
		}
	}
}

func (s *session) runAction(ctx context.Context, action string) error {
	switch action {
	case "ls":
		return s.list(ctx, false)
	case "ls-trash":
		return s.list(ctx, true)
	case "upload":
		path, err := prompt.InputRequired("Local file")
		if err != nil {
			return err
		}
		remote, err := prompt.Input("Remote name (empty for the file name)", "")
		if err != nil {
			return err
		}
		return s.upload(ctx, path, remote)
	case "download":
		name, err := prompt.InputRequired("Remote name")
		if err != nil {
			return err
		}
		return s.download(ctx, name, "", false)
	case "rm":
		name, err := prompt.InputRequired("File to delete")
		if err != nil {
			return err
		}
		return s.remove(ctx, name)
	case "restore":
		name, err := prompt.InputRequired("File to restore")
		if err != nil {
			return err
		}
		return s.restore(ctx, name)
	}
	return fmt.Errorf("unknown action: %s", action)
}
