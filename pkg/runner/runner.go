package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	sdkerrors "github.com/sdkforge/sdkforge-cli/internal/errors"
	"github.com/sdkforge/sdkforge-cli/pkg/utils"
)

// Command describes one external tool invocation
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Stdin   string
	Env     []string
	Timeout time.Duration
}

// String renders the command line for logs
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result captures the outcome of a completed invocation. A non-zero
// ExitCode is data, not an error: callers decide whether the exit status
// is fatal (some wrapped tools exit non-zero on benign warnings).
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Combined returns stdout followed by stderr
func (r *Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Runner executes external commands. The engine only ever talks to
// sdkmanager/avdmanager/hdiutil through this interface.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands through os/exec with a per-call timeout
type ExecRunner struct {
	log utils.Logger
}

// NewExecRunner creates a runner. A nil logger falls back to the no-op one.
func NewExecRunner(log utils.Logger) *ExecRunner {
	if log == nil {
		log = utils.NewNopLogger()
	}
	return &ExecRunner{log: log}
}

// Run executes the command and waits for completion. Errors are returned
// only for invocation-level failures: missing binary, timeout, I/O. A
// process that started and exited returns a Result with its exit code.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.Stdin != "" {
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	r.log.Debug("exec: %s", cmd.String())

	start := time.Now()
	err := execCmd.Run()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, sdkerrors.NewTimeoutError("COMMAND_TIMEOUT",
				fmt.Sprintf("%s did not finish within %s", cmd.Name, cmd.Timeout)).
				WithDetail("command", cmd.String())
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			r.log.Debug("exec: %s exited with status %d", cmd.Name, result.ExitCode)
			return result, nil
		}

		if errors.Is(err, exec.ErrNotFound) {
			return result, sdkerrors.NewDependencyError("TOOL_NOT_FOUND",
				fmt.Sprintf("required tool %q was not found on PATH", cmd.Name)).
				WithDetail("command", cmd.String())
		}

		return result, sdkerrors.WrapError(err, sdkerrors.ErrorTypeExternalTool, "COMMAND_FAILED",
			fmt.Sprintf("failed to run %s", cmd.Name)).
			WithDetail("command", cmd.String())
	}

	r.log.Debug("exec: %s finished in %s", cmd.Name, result.Duration.Round(time.Millisecond))
	return result, nil
}
