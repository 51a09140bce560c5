package usecases

import (
	"context"
	"fmt"

	"github.com/reposmith-ai/reposmith/internal/domain"
)

// codeGenPromptFmt instructs the model to emit standalone, executable code
// with no surrounding prose or markdown.
const codeGenPromptFmt = `You are a Python code generator. Given a problem statement, generate clean, executable Python code.

Problem: %s

Requirements:
1. Generate only Python code that solves the problem
2. Include necessary imports
3. Add a main function or execution block
4. Make the code self-contained and executable
5. Do not include explanations or markdown formatting
6. Ensure the code is safe and doesn't perform harmful operations

Generate the Python code:
`

// CodeSolver generates standalone code for a problem statement and optionally
// executes it in the sandbox.
type CodeSolver struct {
	client  domain.CompletionClient
	sandbox domain.Sandbox
	logger  Logger
}

// NewCodeSolver creates a CodeSolver with the given dependencies.
func NewCodeSolver(client domain.CompletionClient, sb domain.Sandbox, log Logger) *CodeSolver {
	return &CodeSolver{
		client:  client,
		sandbox: sb,
		logger:  log,
	}
}

// Solve generates code for the problem statement and, when requested, runs it
// in the sandbox. Generation failure is an error; execution failure is
// reported inside the result.
func (s *CodeSolver) Solve(ctx context.Context, input domain.SolveInput) (*domain.SolveResult, error) {
	s.logger.Info(ctx, "generating code", map[string]interface{}{
		"problem": input.Problem,
		"execute": input.Execute,
	})

	code, err := s.client.Complete(ctx, fmt.Sprintf(codeGenPromptFmt, input.Problem))
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	result := &domain.SolveResult{
		Problem:       input.Problem,
		GeneratedCode: code,
	}

	if input.Execute {
		timeout := input.TimeoutSeconds
		if timeout <= 0 {
			timeout = domain.DefaultExecTimeoutSeconds
		}

		execution := s.sandbox.Execute(ctx, code, timeout)
		result.Execution = &execution

		s.logger.Info(ctx, "executed generated code", map[string]interface{}{
			"success":   execution.Success,
			"exit_code": execution.ExitCode,
		})
	}

	return result, nil
}
