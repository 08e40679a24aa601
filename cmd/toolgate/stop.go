package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/armatrix/toolgate/hook"
	"github.com/armatrix/toolgate/internal/blockqueue"
	"github.com/armatrix/toolgate/internal/config"
	"github.com/armatrix/toolgate/internal/hookexec"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Handle a Stop payload from stdin",
	Long: `Reads one Stop JSON payload from stdin, runs the configured stop hooks,
and prints any block messages queued during the session. Hook failures are
logged but never fail the command; a Stop dispatch must not wedge the host.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop(cmd)
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command) error {
	logger := newLogger()

	payload, err := hook.Decode(cmd.InOrStdin())
	if err != nil {
		return err
	}

	root := resolveProjectDir(payload.Cwd)
	settings, err := config.Load(config.DefaultPaths(root)...)
	if err != nil {
		return err
	}

	runner := hookexec.New(settings.Env, logger)
	for _, res := range runner.RunAll(cmd.Context(), settings.StopHooks) {
		logger.Debug("stop hook finished",
			"command", res.Command, "exit", res.ExitCode, "duration", res.Duration)
	}

	if settings.QueuePath == "" {
		return nil
	}
	q, err := blockqueue.Open(settings.QueuePath)
	if err != nil {
		logger.Warn("opening block queue", "path", settings.QueuePath, "error", err)
		return nil
	}
	defer q.Close()

	messages, err := q.Drain(cmd.Context(), payload.SessionID)
	if err != nil {
		logger.Warn("draining block queue", "error", err)
		return nil
	}
	for _, m := range messages {
		fmt.Fprintln(cmd.OutOrStdout(), m.Message)
	}
	return nil
}
