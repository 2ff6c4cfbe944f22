package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botdesk/botdesk/internal/client/config"
	"github.com/botdesk/botdesk/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config

	// Version info (set by main package).
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "botdesk",
	Short: "botdesk - chatbot platform dashboard in your terminal",
	Long: `botdesk manages chatbots, organizations and platform settings
from the command line, and lets you talk to any configured chatbot.

Example usage:
  botdesk config set-url https://api.example.com   # Point at a backend
  botdesk auth login --email me@example.com        # Sign in
  botdesk bot list                                 # List your chatbots
  botdesk bot browse                               # Interactive chatbot list
  botdesk chat --config-id <id>                    # Talk to a chatbot`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Skip config loading for config and version commands
		cmdName := cmd.Name()
		parentName := ""
		if cmd.Parent() != nil {
			parentName = cmd.Parent().Name()
		}

		if cmdName == "config" || cmdName == "version" || parentName == "config" {
			return nil
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if url, _ := cmd.Flags().GetString("api-url"); url != "" {
			cfg.API.URL = url
		}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			cfg.Logging.Level = "debug"
		}

		// Setup logger
		if err := logger.Setup(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
			File:   cfg.Logging.File,
		}); err != nil {
			return fmt.Errorf("failed to setup logger: %w", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		app, err := NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		cmd.SetContext(WithApp(ctx, app))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		if app := AppFromContext(cmd.Context()); app != nil {
			return app.Close()
		}
		return nil
	},
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext executes the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.botdesk/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "backend URL (overrides config)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}

// SetVersion sets the version information.
func SetVersion(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

// app returns the App built by the root command.
func app(cmd *cobra.Command) *App {
	a := AppFromContext(cmd.Context())
	if a == nil {
		// Only reachable when a command is run without the root pre-run.
		panic("botdesk: command run without app context")
	}
	return a
}
