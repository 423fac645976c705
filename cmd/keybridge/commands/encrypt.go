package commands

import (
	"encoding/base64"

	"github.com/spf13/cobra"

	"keybridge/internal/domain"
)

// encrypt: seal stdin (or --in) for the configured identity, printing base64.
func encryptCmd() *cobra.Command {
	var inPath, outPath string
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt data through the provider",
		Long: "Encrypt data through the provider. When the plaintext comes from stdin\n" +
			"the passphrase cannot be prompted for and must be given with -p.",
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := readInput(cmd, inPath)
			if err != nil {
				return err
			}
			ctx, cancel := runContext(cmd)
			defer cancel()

			req, err := wire.Run(ctx, domain.KindEncrypt, plaintext)
			if err := outcome(req, err); err != nil {
				return err
			}
			armored := base64.StdEncoding.EncodeToString(req.Payload())
			return writeOutput(cmd, outPath, []byte(armored+"\n"))
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "read plaintext from file instead of stdin")
	cmd.Flags().StringVar(&outPath, "out", "", "write ciphertext to file instead of stdout")
	return cmd
}
