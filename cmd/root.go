package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/siglab/siglab-go/cmd/config"
	"github.com/siglab/siglab-go/cmd/file"
	"github.com/siglab/siglab-go/cmd/serve"
	"github.com/siglab/siglab-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "siglab",
		Short: "SigLab signal analysis CLI",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		file.Command(settings),
		config.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
}
