package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/notes/internal/config"
	"github.com/vango-dev/notes/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "notes",
		Short: "Notes server and navigation tools",
		Long: `notes serves the notes API and the history-fallback shell, and
resolves locations against the client route table.

Configuration is read from notes.json (or --config) and NOTES_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to notes.json")

	load := func() (*config.Config, error) {
		return config.Resolve(configPath)
	}

	root.AddCommand(
		serveCmd(load),
		routesCmd(),
		resolveCmd(load),
		exportCmd(load),
		versionCmd(),
	)
	return root
}

// setupLogger installs the default slog logger at the configured level.
func setupLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, errors.New("N101").WithField("logLevel").WithDetail(err.Error()).Wrap(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, nil
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
