package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/botdesk/botdesk/internal/client/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage botdesk configuration",
	Long:  `Manage botdesk client configuration such as the backend URL and view defaults.`,
}

// setURLCmd represents the set-url command
var setURLCmd = &cobra.Command{
	Use:   "set-url [url]",
	Short: "Set the backend URL",
	Long: `Set the base URL of the chatbot platform backend.

Example:
  botdesk config set-url https://api.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.TrimRight(args[0], "/")
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid URL %q: want http(s)://host[:port]", args[0])
		}

		if err := config.SaveAPIURL(raw); err != nil {
			return fmt.Errorf("failed to save URL: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Backend URL saved to config file\n")
		return nil
	},
}

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set any configuration key, e.g.

  botdesk config set view.page_size 20
  botdesk config set quota.organization_default 5
  botdesk config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(args[0], parseValue(args[1])); err != nil {
			return fmt.Errorf("failed to save %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s saved to config file\n", args[0])
		return nil
	},
}

// parseValue keeps numbers and booleans typed in the YAML file.
func parseValue(s string) interface{} {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(setURLCmd)
	configCmd.AddCommand(setCmd)
}
