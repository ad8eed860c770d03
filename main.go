package main

import (
	"fmt"
	"os"

	"log/slog"

	"github.com/siglab/siglab-go/cmd"
	"github.com/siglab/siglab-go/internal/conf"
	"github.com/siglab/siglab-go/internal/logging"
)

// Populated by the linker at build time.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logging.Init(slog.LevelInfo)

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version
	settings.BuildDate = buildDate

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
