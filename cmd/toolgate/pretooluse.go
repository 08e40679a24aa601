package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/armatrix/toolgate"
	"github.com/armatrix/toolgate/hook"
	"github.com/armatrix/toolgate/internal/blockqueue"
	"github.com/armatrix/toolgate/internal/config"
)

var pretoolUseCmd = &cobra.Command{
	Use:   "pretooluse",
	Short: "Evaluate a PreToolUse payload from stdin",
	Long: `Reads one PreToolUse JSON payload from stdin, evaluates it against the
configured guard rules, and exits 0 to allow or 2 to block. On a block the
reason is written to stderr, where the host surfaces it to the agent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPreToolUse(cmd)
	},
}

func init() {
	rootCmd.AddCommand(pretoolUseCmd)
}

func runPreToolUse(cmd *cobra.Command) error {
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
	rs, err := settings.RuleSet()
	if err != nil {
		return err
	}

	engine, err := toolgate.New(root, rs, toolgate.WithLogger(logger))
	if err != nil {
		return err
	}

	decision := engine.Evaluate(toolgate.Request{
		ToolName: payload.ToolName,
		Input:    payload.ToolInput,
	})
	if decision.Allowed() {
		return nil
	}

	fmt.Fprintln(cmd.ErrOrStderr(), decision.Reason)
	if settings.QueuePath != "" {
		enqueueBlock(cmd.Context(), logger, settings.QueuePath, payload.SessionID, decision.Reason)
	}
	os.Exit(hook.ExitBlock)
	return nil
}

// enqueueBlock records the block reason for the next prompt. Queue failures
// never mask the verdict; the exit code alone is authoritative.
func enqueueBlock(ctx context.Context, logger *slog.Logger, queuePath, sessionID, reason string) {
	q, err := blockqueue.Open(queuePath)
	if err != nil {
		logger.Warn("opening block queue", "path", queuePath, "error", err)
		return
	}
	defer q.Close()
	if err := q.Enqueue(ctx, sessionID, reason); err != nil {
		logger.Warn("enqueueing block message", "error", err)
	}
}
