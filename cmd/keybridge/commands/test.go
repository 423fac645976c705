package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"keybridge/internal/domain"
)

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the configured provider is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := runContext(cmd)
			defer cancel()

			req, err := wire.Run(ctx, domain.KindConnectivityTest, nil)
			if err := outcome(req, err); err != nil {
				return err
			}
			cfg := wire.Delegation.Session().Config()
			ids := req.KeyIDs()
			if len(ids) == 0 {
				fmt.Printf("Connected to %s. No keys for %s.\n", cfg.ProviderID(), cfg.Identity())
				return nil
			}
			fmt.Printf("Connected to %s. Keys for %s:\n", cfg.ProviderID(), cfg.Identity())
			for _, id := range ids {
				fmt.Printf("  %016x\n", id)
			}
			return nil
		},
	}
}
