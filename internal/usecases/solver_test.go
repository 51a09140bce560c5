package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposmith-ai/reposmith/internal/domain"
)

func TestCodeSolver_Solve_GenerateAndExecute(t *testing.T) {
	client := &mockCompletionClient{response: "print('hello')"}
	sb := &mockSandbox{
		result: domain.ExecutionResult{ExitCode: 0, Stdout: "hello\n", Success: true},
	}
	solver := NewCodeSolver(client, sb, &mockLogger{})

	result, err := solver.Solve(context.Background(), domain.SolveInput{
		Problem:        "print hello",
		Execute:        true,
		TimeoutSeconds: 5,
	})

	require.NoError(t, err)
	assert.Equal(t, "print hello", result.Problem)
	assert.Equal(t, "print('hello')", result.GeneratedCode)
	require.NotNil(t, result.Execution)
	assert.True(t, result.Execution.Success)
	assert.Equal(t, "hello\n", result.Execution.Stdout)

	require.Len(t, sb.calls, 1)
	assert.Equal(t, "print('hello')", sb.calls[0].source)
	assert.Equal(t, 5, sb.calls[0].timeout)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Problem: print hello")
}

func TestCodeSolver_Solve_GenerateOnly(t *testing.T) {
	client := &mockCompletionClient{response: "x = 1"}
	sb := &mockSandbox{}
	solver := NewCodeSolver(client, sb, &mockLogger{})

	result, err := solver.Solve(context.Background(), domain.SolveInput{
		Problem: "assign one",
		Execute: false,
	})

	require.NoError(t, err)
	assert.Equal(t, "x = 1", result.GeneratedCode)
	assert.Nil(t, result.Execution)
	assert.Empty(t, sb.calls)
}

func TestCodeSolver_Solve_DefaultTimeout(t *testing.T) {
	client := &mockCompletionClient{response: "pass"}
	sb := &mockSandbox{result: domain.ExecutionResult{Success: true}}
	solver := NewCodeSolver(client, sb, &mockLogger{})

	_, err := solver.Solve(context.Background(), domain.SolveInput{
		Problem: "noop",
		Execute: true,
	})

	require.NoError(t, err)
	require.Len(t, sb.calls, 1)
	assert.Equal(t, domain.DefaultExecTimeoutSeconds, sb.calls[0].timeout)
}

func TestCodeSolver_Solve_GenerationFailure(t *testing.T) {
	client := &mockCompletionClient{err: domain.ErrCompletionFailed}
	sb := &mockSandbox{}
	solver := NewCodeSolver(client, sb, &mockLogger{})

	result, err := solver.Solve(context.Background(), domain.SolveInput{
		Problem: "anything",
		Execute: true,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrCompletionFailed)
	assert.Empty(t, sb.calls)
}
