// Package sandbox executes generated source as an isolated subprocess.
// Isolation is limited to a separate OS process with a hard timeout; the
// temporary source artifact is always removed, regardless of outcome.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/reposmith-ai/reposmith/internal/domain"
)

// DefaultInterpreter runs generated code when no interpreter is configured.
const DefaultInterpreter = "python3"

// Logger defines the logging interface for the sandbox.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// Runner implements domain.Sandbox by writing the source to a throwaway file
// and running it under an interpreter subprocess.
type Runner struct {
	interpreter string
	suffix      string
	logger      Logger
}

// NewRunner creates a Runner for the default interpreter.
func NewRunner(log Logger) *Runner {
	return NewRunnerWithInterpreter(DefaultInterpreter, ".py", log)
}

// NewRunnerWithInterpreter creates a Runner for a specific interpreter binary
// and temp-file suffix. This is useful for testing with lighter interpreters.
func NewRunnerWithInterpreter(interpreter, suffix string, log Logger) *Runner {
	return &Runner{
		interpreter: interpreter,
		suffix:      suffix,
		logger:      log,
	}
}

// Execute writes source to a temporary file and runs it with a timeout,
// capturing stdout, stderr, and the exit code. A timeout yields a structured
// failure result rather than an error; the process never hangs the caller
// beyond the bound.
func (r *Runner) Execute(ctx context.Context, source string, timeoutSeconds int) domain.ExecutionResult {
	if timeoutSeconds <= 0 {
		timeoutSeconds = domain.DefaultExecTimeoutSeconds
	}

	tmp, err := os.CreateTemp("", "reposmith-exec-*"+r.suffix)
	if err != nil {
		return domain.ExecutionResult{
			ExitCode: -1,
			Stderr:   fmt.Sprintf("execution error: %v", err),
			Success:  false,
		}
	}
	tmpPath := tmp.Name()
	defer func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			r.logger.Warn(ctx, "failed to remove sandbox artifact", map[string]interface{}{
				"path":  tmpPath,
				"error": rmErr.Error(),
			})
		}
	}()

	if _, err := tmp.WriteString(source); err != nil {
		_ = tmp.Close()
		return domain.ExecutionResult{
			ExitCode: -1,
			Stderr:   fmt.Sprintf("execution error: %v", err),
			Success:  false,
		}
	}
	if err := tmp.Close(); err != nil {
		return domain.ExecutionResult{
			ExitCode: -1,
			Stderr:   fmt.Sprintf("execution error: %v", err),
			Success:  false,
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.interpreter, tmpPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug(ctx, "executing generated code", map[string]interface{}{
		"interpreter": r.interpreter,
		"timeout_s":   timeoutSeconds,
	})

	err = cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return domain.ExecutionResult{
			ExitCode: -1,
			Stdout:   "",
			Stderr:   fmt.Sprintf("execution timed out after %d seconds", timeoutSeconds),
			Success:  false,
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return domain.ExecutionResult{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				Success:  false,
			}
		}
		return domain.ExecutionResult{
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   fmt.Sprintf("execution error: %v", err),
			Success:  false,
		}
	}

	return domain.ExecutionResult{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Success:  true,
	}
}
