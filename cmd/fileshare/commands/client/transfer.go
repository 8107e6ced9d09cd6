package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marmos91/fileshare/internal/cli/output"
	"github.com/marmos91/fileshare/internal/cli/prompt"
	"github.com/marmos91/fileshare/pkg/client"
	"github.com/spf13/cobra"
)

var downloadForce bool

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path> [remote-name]",
	Short: "Upload a file",
	Long: `Upload a local file. The remote name defaults to the base name of
the local path.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		remote := ""
		if len(args) == 2 {
			remote = args[1]
		}
		return s.upload(cmd.Context(), args[0], remote)
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <remote-name> [local-path]",
	Short: "Download a file",
	Long: `Download a remote file. The local path defaults to the remote name
inside client.download_dir.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		dest := ""
		if len(args) == 2 {
			dest = args[1]
		}
		return s.download(cmd.Context(), args[0], dest, downloadForce)
	},
}

func init() {
	downloadCmd.Flags().BoolVarP(&downloadForce, "force", "f", false, "Overwrite an existing local file without asking")
}

func (s *session) upload(ctx context.Context, localPath, remote string) error {
	if remote == "" {
		remote = filepath.Base(localPath)
	}

	start := time.Now()
	n, err := s.client.Upload(ctx, localPath, remote)
	if err != nil {
		return fmt.Errorf("upload %s: %w", localPath, err)
	}

	return s.printer.Print(output.Transfer{
		Operation: "upload",
		Name:      remote,
		Path:      localPath,
		Bytes:     n,
		Duration:  time.Since(start),
	})
}

func (s *session) download(ctx context.Context, name, dest string, force bool) error {
	if dest == "" {
		dest = filepath.Join(s.downloadDir, filepath.Base(name))
	}

	if _, err := os.Stat(dest); err == nil {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("%s exists. Overwrite", dest), force)
		if err != nil {
			return err
		}
		if !ok {
			s.printer.Warning("Download cancelled.")
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fileshare-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	start := time.Now()
	n, err := s.client.Download(ctx, name, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if errors.Is(err, client.ErrRemoteNotFound) {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("download %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	return s.printer.Print(output.Transfer{
		Operation: "download",
		Name:      name,
		Path:      dest,
		Bytes:     n,
		Duration:  time.Since(start),
	})
}
