// Command toolgate is the hook-side entrypoint for the guard engine. The
// host agent wires it into its lifecycle hooks; each subcommand reads one
// JSON payload from stdin and answers through its process exit code.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	projectDir string
)

var rootCmd = &cobra.Command{
	Use:   "toolgate",
	Short: "Deterministic tool-call guard for agent hooks",
	Long: `toolgate evaluates agent tool calls against configured guard rules.

Subcommands map to hook events:
  pretooluse    Evaluate a PreToolUse payload (exit 0 allow, exit 2 block)
  stop          Run configured stop hooks and drain queued block messages
  notification  Run configured notification hooks
  schema        Print the JSON schema for the settings file`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project-dir", "", "Project root (default: payload cwd, then working directory)")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveProjectDir picks the project root in priority order: explicit flag,
// the cwd the payload reports, then the process working directory.
func resolveProjectDir(payloadCwd string) string {
	if projectDir != "" {
		return projectDir
	}
	if payloadCwd != "" {
		return payloadCwd
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
