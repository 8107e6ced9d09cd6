package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/marmos91/fileshare/internal/cli/prompt"
	"github.com/marmos91/fileshare/pkg/session"
	"github.com/spf13/cobra"
)

var hashPasswordStdin bool

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Generate a bcrypt hash for auth.password_hash",
	Long: `Prompt for a password and print its bcrypt hash.

Put the hash in auth.password_hash; it then takes precedence over
auth.password.

Examples:
  # Interactive, masked prompt
  fileshare hash-password

  # Non-interactive
  echo -n 'correct horse' | fileshare hash-password --stdin`,
	Args: cobra.NoArgs,
	RunE: runHashPassword,
}

func init() {
	hashPasswordCmd.Flags().BoolVar(&hashPasswordStdin, "stdin", false, "Read the password from standard input")
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var (
		password string
		err      error
	)
	if hashPasswordStdin {
		password, err = readPassword(cmd.InOrStdin())
	} else {
		password, err = prompt.NewPassword(session.MinPasswordLength)
		if prompt.IsAborted(err) {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
			return nil
		}
	}
	if err != nil {
		return err
	}

	hash, err := session.HashPassword(password)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

// readPassword takes the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, session.MaxPasswordLength+2))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
