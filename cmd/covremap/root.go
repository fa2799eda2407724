package main

import (
	"log/slog"

	"github.com/praetorian-inc/covremap/pkg/config"
	"github.com/praetorian-inc/covremap/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	quiet      bool
	configPath string
	envFile    string

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "covremap",
	Short: "covremap - remap istanbul coverage through source maps",
	Long: `covremap translates istanbul coverage collected against compiled, bundled
or transpiled JavaScript back onto the original sources, using the source maps
referenced by the generated files.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default .covremap.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load")

	rootCmd.AddCommand(remapCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and installs the logger before any subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	appConfig = cfg

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = level
	logCfg.Output = cmd.ErrOrStderr()
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	logger.New(logCfg)
	return nil
}

// currentConfig returns the loaded configuration, or defaults when commands
// run without the root command.
func currentConfig() *config.Config {
	if appConfig == nil {
		return config.Default()
	}
	return appConfig
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
