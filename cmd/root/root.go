// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fjacquet/finagent/internal/config"
	"fjacquet/finagent/internal/container"
	"fjacquet/finagent/internal/logging"
)

// CommonFlags represents the flags that are common to all commands
type CommonFlags struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
}

var (
	// Log is the shared logger instance for commands
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// AppConfig is the configuration loaded before any subcommand runs
	AppConfig *config.Config

	// AppContainer holds the wired application dependencies
	AppContainer *container.Container

	// SharedFlags holds the persistent flag values
	SharedFlags = CommonFlags{}

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "finagent",
		Short: "A personal-finance backend that links bank accounts and derives spending insights.",
		Long: `finagent links to a banking-data provider, pulls account balances and transactions,
moves early recurring payments back to the month they belong to, and derives
spending insights from the adjusted history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to finagent!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			Shutdown()
		},
	}
)

// init attaches PersistentPreRunE outside the Cmd initializer, which cannot
// refer to Cmd itself without an initialization cycle.
func init() {
	Cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd == Cmd || cmd.Name() == "help" {
			return nil
		}
		return Initialize(cmd.Context())
	}
}

// Init registers the persistent flags on the root command.
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.ConfigFile, "config", "c", "", "Config file (default: config.yaml in $HOME/.finagent, .finagent or .)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Override the configured log level")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogFormat, "log-format", "", "Override the configured log format (text or json)")
}

// Initialize loads the configuration and builds the container unless a container
// has already been provided.
func Initialize(ctx context.Context) error {
	if AppContainer != nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig(SharedFlags.ConfigFile)
	if err != nil {
		return err
	}
	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if SharedFlags.LogFormat != "" {
		cfg.Log.Format = SharedFlags.LogFormat
	}
	Log = config.ConfigureLoggingFromConfig(cfg)

	c, err := container.NewContainer(ctx, cfg, container.WithLogger(Log))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	AppConfig = cfg
	AppContainer = c
	return nil
}

// Shutdown closes the container, if any.
func Shutdown() {
	if AppContainer == nil {
		return
	}
	if err := AppContainer.Close(); err != nil {
		Log.WithError(err).Warn("Failed to close application container")
	}
	AppContainer = nil
}

// GetContainer returns the application container, or an error before Initialize.
func GetContainer() (*container.Container, error) {
	if AppContainer == nil {
		return nil, fmt.Errorf("container not initialized")
	}
	return AppContainer, nil
}

// GetConfig returns the loaded configuration, or nil before Initialize.
func GetConfig() *config.Config {
	if AppContainer != nil {
		return AppContainer.GetConfig()
	}
	return AppConfig
}

// GetLogger returns the shared logger.
func GetLogger() logging.Logger {
	return Log
}
