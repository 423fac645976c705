package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"keybridge/internal/config"
	"keybridge/internal/crypto"
	"keybridge/internal/domain"
	"keybridge/internal/logger"
	"keybridge/internal/provider"
	"keybridge/internal/providerd"
	"keybridge/internal/store"
)

var (
	keyringPath string
	logLevel    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "keybridge-provider",
		Short:        "Reference crypto provider for keybridge",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&keyringPath, "keyring", "~/.keybridge/keyring.json", "keyring file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", config.LogLevelInfo, "debug, info, warning or error")
	root.AddCommand(serveCmd(), keygenCmd())
	return root
}

func openKeyring() (*providerd.Keyring, error) {
	path, err := homedir.Expand(keyringPath)
	if err != nil {
		return nil, errors.Wrap(err, "keyring path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create keyring dir")
	}
	return providerd.OpenKeyring(store.NewKeyringFileStore(path), crypto.DefaultScrypt)
}

func serveCmd() *cobra.Command {
	var id, socketDir, listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the provider API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewConsoleLogger(logLevel, os.Stderr)
			kr, err := openKeyring()
			if err != nil {
				return err
			}

			ln, addr, err := listener(id, socketDir, listen)
			if err != nil {
				return err
			}
			log.Info("provider listening", "id", id, "addr", addr)
			return providerd.NewServer(id, kr, log).Serve(cmd.Context(), ln)
		},
	}
	cmd.Flags().StringVar(&id, "id", domain.DefaultProviderID, "provider id")
	cmd.Flags().StringVar(&socketDir, "socket-dir", "~/.keybridge/providers", "directory holding provider sockets")
	cmd.Flags().StringVar(&listen, "listen", "", "serve on this TCP address instead of a socket")
	return cmd
}

// listener opens the TCP listener, or the <socketDir>/<id>.sock socket
// replacing a stale one.
func listener(id, socketDir, listen string) (net.Listener, string, error) {
	if listen != "" {
		ln, err := net.Listen("tcp", listen)
		if err != nil {
			return nil, "", errors.Wrap(err, "listen")
		}
		return ln, "http://" + ln.Addr().String(), nil
	}

	dir, err := homedir.Expand(socketDir)
	if err != nil {
		return nil, "", errors.Wrap(err, "socket dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", errors.Wrap(err, "create socket dir")
	}
	path, err := provider.SocketPath(dir, id)
	if err != nil {
		return nil, "", err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, "", errors.Wrap(err, "remove stale socket")
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, "", errors.Wrap(err, "listen")
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, "", errors.Wrap(err, "chmod socket")
	}
	return ln, path, nil
}

func keygenCmd() *cobra.Command {
	var identity, passphrase string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key for an identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				fmt.Fprint(os.Stderr, "Passphrase: ")
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				passphrase = strings.TrimRight(line, "\r\n")
				if passphrase == "" {
					return errors.New("passphrase required (-p)")
				}
			}
			kr, err := openKeyring()
			if err != nil {
				return err
			}
			rec, err := kr.Generate(identity, []byte(passphrase))
			if err != nil {
				return err
			}
			fmt.Printf("Key created for %s.\nKey id: %016x\n", rec.Identity, rec.KeyID)
			return nil
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "", "identity the key belongs to")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the key")
	_ = cmd.MarkFlagRequired("identity")
	return cmd
}
