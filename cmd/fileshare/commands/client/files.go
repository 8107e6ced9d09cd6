package client

import (
	"context"

	"github.com/marmos91/fileshare/internal/cli/output"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List uploaded files",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return s.list(cmd.Context(), false)
	},
}

var listTrashCmd = &cobra.Command{
	Use:   "ls-trash",
	Short: "List deleted files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return s.list(cmd.Context(), true)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"delete"},
	Short:   "Move a file to the trash",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return s.remove(cmd.Context(), args[0])
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Restore a file from the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return s.restore(cmd.Context(), args[0])
	},
}

func (s *session) list(ctx context.Context, trash bool) error {
	listing := output.Listing{Area: "uploads"}
	var err error
	if trash {
		listing.Area = "trash"
		listing.Files, err = s.client.ListTrash(ctx)
	} else {
		listing.Files, err = s.client.List(ctx)
	}
	if err != nil {
		return err
	}
	if listing.Files == nil {
		listing.Files = []string{}
	}
	return s.printer.PrintOrEmpty(listing, len(listing.Files) == 0, "No files in "+listing.Area+".")
}

func (s *session) remove(ctx context.Context, name string) error {
	reply, err := s.client.Delete(ctx, name)
	if err != nil {
		return err
	}
	s.printer.Success(reply)
	return nil
}

func (s *session) restore(ctx context.Context, name string) error {
	reply, err := s.client.Restore(ctx, name)
	if err != nil {
		return err
	}
	s.printer.Success(reply)
	return nil
}
