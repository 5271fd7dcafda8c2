package main

import (
	"fmt"
	"mime"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/config"
	"github.com/HSouheill/nestfire_backend/utils"
)

func main() {
	// Ensure correct MIME type for SVG files
	_ = mime.AddExtensionType(".svg", "image/svg+xml")

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand runs the server when no subcommand is given
func newRootCommand() *cobra.Command {
	serve := newServeCommand()
	cmd := &cobra.Command{
		Use:           "nestfire",
		Short:         "NestFire social backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.AddCommand(serve)
	cmd.AddCommand(newReconcileCommand())
	return cmd
}

// setup loads the configuration and builds the logger every command uses
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}
