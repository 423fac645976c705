package commands

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"keybridge/internal/app"
)

// skipWire marks commands that run without a delegation context.
const skipWire = "skip-wire"

var (
	home       string
	passphrase string
	identity   string
	providerID string
	timeout    time.Duration

	wire     *app.Wire
	prompter *terminalInteractor
)

// Execute runs the CLI until ctx ends.
func Execute(ctx context.Context) error {
	return run(ctx, newRootCmd())
}

// run executes root and releases the provider binding on every exit path,
// including a failing or interrupted command.
func run(ctx context.Context, root *cobra.Command) (err error) {
	defer func() {
		if wire == nil {
			return
		}
		if cerr := wire.Close(); err == nil {
			err = cerr
		}
		wire = nil
	}()
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "keybridge",
		Short:        "Delegate encryption to an external crypto provider",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := cmd.Annotations[skipWire]; ok {
				return nil
			}
			prompter = newTerminalInteractor(os.Stdin, os.Stderr, passphrase)
			w, err := app.NewWire(app.Config{
				Home:       home,
				Identity:   identity,
				Provider:   providerID,
				Interactor: prompter,
			})
			if err != nil {
				return err
			}
			wire = w
			prompter.attach(cmd.Context(), w.Delegation)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.keybridge)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase for the provider key (prompted when empty)")
	root.PersistentFlags().StringVar(&identity, "identity", "", "identity to act as (overrides crypto.user_ids)")
	root.PersistentFlags().StringVar(&providerID, "provider", "", "provider id or URL (overrides crypto.provider)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "give up after this long")

	root.AddCommand(testCmd(), encryptCmd(), decryptCmd(), configCmd())
	return root
}

// runContext bounds a provider command by --timeout.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}
