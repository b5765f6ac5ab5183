// Command a11ywatch audits web pages for accessibility problems, from the
// command line or as a long-running HTTP and MCP service.
package main

import (
	"log/slog"
	"os"

	"github.com/hazyhaar/a11ywatch"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "a11ywatch",
	Short: "Accessibility audits for web pages",
	Long: `a11ywatch evaluates HTML documents against a set of accessibility rules
and reports errors, warnings and facts per element.

Examples:
  a11ywatch audit https://example.org        # audit a live page
  a11ywatch audit page.html --format table    # audit a local file
  a11ywatch rules                             # show rules and their options
  a11ywatch serve --config a11ywatch.yaml     # HTTP API, schedules, MCP`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		slog.SetDefault(newLogger(logLevel))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn or error")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rulesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// Logs go to stderr so report output on stdout stays parseable.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func loadConfig() (*a11ywatch.Config, error) {
	if configPath == "" {
		return a11ywatch.DefaultConfig(), nil
	}
	return a11ywatch.LoadConfigFile(configPath)
}
