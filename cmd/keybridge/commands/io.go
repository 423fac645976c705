package commands

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"keybridge/internal/store"
)

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return b, errors.Wrap(err, "read stdin")
	}
	b, err := os.ReadFile(path)
	return b, errors.Wrapf(err, "read %s", path)
}

func writeOutput(cmd *cobra.Command, path string, b []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(b)
		return err
	}
	return store.WriteFile(path, b)
}
