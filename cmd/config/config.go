// Package config implements the config export command.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siglab/siglab-go/internal/conf"
)

// Command creates the config command, which writes the effective
// configuration to a YAML file operators can edit and drop next to the
// binary.
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the effective configuration to a file",
		Long:  `Write the currently effective configuration, defaults merged with any loaded config file and environment overrides, to a YAML file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.SaveAs(settings, output); err != nil {
				return err
			}
			fmt.Printf("Configuration written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "config.yaml", "Path to write the configuration to")

	return cmd
}
