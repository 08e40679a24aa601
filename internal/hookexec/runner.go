// Package hookexec runs configured shell commands on session lifecycle
// events: stop hooks, notification hooks. It is deliberately separate from
// the decision engine, which never executes anything.
package hookexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
	shellquote "github.com/kballard/go-shellquote"

	"github.com/armatrix/toolgate/internal/config"
)

const maxOutputBytes = 30_000

// Result captures one command's outcome.
type Result struct {
	Command  string
	Output   string
	ExitCode int
	Duration time.Duration
}

// Runner executes hook commands with the configured environment exported.
type Runner struct {
	env    map[string]string
	logger *slog.Logger
}

// New creates a Runner. env entries are exported into every child process.
func New(env map[string]string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{env: env, logger: logger}
}

// Run executes one command with its timeout and returns the captured output.
func (r *Runner) Run(ctx context.Context, hc config.HookCommand) (*Result, error) {
	argv, err := shellquote.Split(hc.Command)
	if err != nil {
		return nil, fmt.Errorf("hookexec: parsing %q: %w", hc.Command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("hookexec: empty command")
	}

	cctx, cancel := context.WithTimeout(ctx, hc.Timeout())
	defer cancel()

	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
	cmd.Env = r.environ()

	start := time.Now()
	output, exitCode, err := runWithPTY(cctx, cmd)
	if err != nil {
		return nil, err
	}
	if cctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("hookexec: %q timed out after %s", hc.Command, hc.Timeout())
	}

	if len(output) > maxOutputBytes {
		output = output[:maxOutputBytes] + "\n... [output truncated]"
	}

	return &Result{
		Command:  hc.Command,
		Output:   output,
		ExitCode: exitCode,
		Duration: time.Since(start),
	}, nil
}

// RunAll executes every command in order. Failures are logged and do not
// stop the remaining commands.
func (r *Runner) RunAll(ctx context.Context, hooks []config.HookCommand) []*Result {
	results := make([]*Result, 0, len(hooks))
	for _, hc := range hooks {
		res, err := r.Run(ctx, hc)
		if err != nil {
			r.logger.Warn("hook command failed", "command", hc.Command, "error", err)
			continue
		}
		if res.ExitCode != 0 {
			r.logger.Warn("hook command exited non-zero",
				"command", hc.Command, "exit_code", res.ExitCode)
		}
		results = append(results, res)
	}
	return results
}

func (r *Runner) environ() []string {
	env := os.Environ()
	for k, v := range r.env {
		env = append(env, k+"="+v)
	}
	return env
}

// runWithPTY captures output through a pseudo-terminal so commands that
// detect a TTY behave as they would interactively, falling back to plain
// execution when no PTY is available.
func runWithPTY(ctx context.Context, cmd *exec.Cmd) (string, int, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return runPlain(cmd)
	}
	defer ptmx.Close()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, ptmx) // PTY read returns EIO on process exit, ignore

	waitErr := cmd.Wait()
	return buf.String(), exitCode(ctx, waitErr), nil
}

func runPlain(cmd *exec.Cmd) (string, int, error) {
	output, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(output), exitErr.ExitCode(), nil
		}
		return "", -1, fmt.Errorf("hookexec: %w", err)
	}
	return string(output), 0, nil
}

func exitCode(ctx context.Context, waitErr error) int {
	if waitErr == nil {
		return 0
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		return -1
	}
	return -1
}
