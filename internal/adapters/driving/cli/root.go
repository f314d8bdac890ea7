// Package cli provides the bookchat command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bookchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bookchat/internal/core/domain"
	"github.com/custodia-labs/bookchat/internal/logger"
)

var (
	version = "dev"

	configPath string
	verbose    bool

	// loadSettings and newApp are swapped out by tests.
	loadSettings = file.LoadSettings
	newApp       = NewApp
)

var rootCmd = &cobra.Command{
	Use:   "bookchat",
	Short: "Ask questions about books",
	Long: `Bookchat indexes the full text of catalogued books and answers questions
about them using only retrieved passages.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.bookchat/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string reported by `bookchat version`.
func SetVersion(v string) {
	version = v
}

// openApp loads settings and wires the application.
func openApp(ctx context.Context) (*App, error) {
	settings, err := loadSettings(configPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return newApp(ctx, settings)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// settingsOnly loads settings without wiring anything.
func settingsOnly() (domain.Settings, error) {
	settings, err := loadSettings(configPath)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}
