package cmd

import (
	"github.com/spf13/cobra"

	"github.com/waywardwm/wayward/internal/config"
	"github.com/waywardwm/wayward/internal/logger"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "wayward",
		Short: "Wayward - a headless Wayland compositor",
		Long: `Wayward is a Wayland compositor core with a headless backend.
It manages client surfaces, buffers and windows, routes keyboard,
pointer and touch input by spatial hit-testing, and composites frames
with a software renderer. A control socket exposes status, window and
input-injection commands for scripting and testing.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				config.SetConfigPath(configPath)
			}
			if err := config.Init(); err != nil {
				return err
			}
			if logLevel != "" {
				logger.SetLevel(logLevel)
			} else if lvl := config.Get().Logging.LogLevel; lvl != "" {
				logger.SetLevel(lvl)
			}
			return nil
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(windowsCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(injectCmd)
}
