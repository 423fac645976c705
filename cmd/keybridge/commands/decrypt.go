package commands

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"keybridge/internal/domain"
)

// decrypt: open base64 ciphertext from stdin (or --in).
func decryptCmd() *cobra.Command {
	var inPath, outPath string
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt data through the provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			armored, err := readInput(cmd, inPath)
			if err != nil {
				return err
			}
			ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(armored)))
			if err != nil {
				return errors.Wrap(err, "ciphertext is not base64")
			}
			ctx, cancel := runContext(cmd)
			defer cancel()

			req, err := wire.Run(ctx, domain.KindDecrypt, ciphertext)
			if err := outcome(req, err); err != nil {
				return err
			}
			return writeOutput(cmd, outPath, req.Payload())
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "read ciphertext from file instead of stdin")
	cmd.Flags().StringVar(&outPath, "out", "", "write plaintext to file instead of stdout")
	return cmd
}
