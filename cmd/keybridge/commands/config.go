package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"keybridge/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Show or change preferences",
		Annotations: map[string]string{skipWire: ""},
	}
	cmd.AddCommand(configShowCmd(), configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the effective preferences",
		Annotations: map[string]string{skipWire: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ResolveHome(home)
			if err != nil {
				return err
			}
			s, err := config.Load(dir)
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(&s)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "set <key> <value>",
		Short:       "Change one preference",
		Long:        "Change one preference. Keys: " + strings.Join(config.Keys, ", "),
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{skipWire: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ResolveHome(home)
			if err != nil {
				return err
			}
			s, err := config.Load(dir)
			if err != nil {
				return err
			}
			if err := s.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(dir, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	}
}
