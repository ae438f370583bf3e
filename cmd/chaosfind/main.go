package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/chaosfind/internal/viz"
)

var (
	verbose bool
	theme   string
	dataDir string
)

// main registers the commands and exits with status 1 when one fails.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "chaosfind",
		Short:        "search quadratic maps for chaotic attractors",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)
			if theme != "" {
				t, ok := viz.GetTheme(theme)
				if !ok {
					return fmt.Errorf("unknown theme %q (available: %v)", theme, viz.ThemeNames())
				}
				viz.ApplyTheme(t)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "", "color theme")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "systems directory (default: output_path from config)")

	rootCmd.AddCommand(
		newSearchCmd(),
		newListCmd(),
		newShowCmd(),
		newExportCSVCmd(),
		newRenderCmd(),
		newConfigCmd(),
		newPresetsCmd(),
	)
	return rootCmd
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
