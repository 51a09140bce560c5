package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// testLogger is a minimal logger for testing that doesn't output anything.
type testLogger struct{}

func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}
func (l *testLogger) Warn(_ context.Context, _ string, _ map[string]interface{})  {}

// newShellRunner returns a Runner that executes scripts with sh, which is
// available everywhere the tests run.
func newShellRunner() *Runner {
	return NewRunnerWithInterpreter("sh", ".sh", &testLogger{})
}

func TestRunner_Execute_Success(t *testing.T) {
	r := newShellRunner()

	result := r.Execute(context.Background(), "echo hello", 5)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Empty(t, result.Stderr)
}

func TestRunner_Execute_CapturesStderr(t *testing.T) {
	r := newShellRunner()

	result := r.Execute(context.Background(), "echo oops >&2", 5)

	assert.True(t, result.Success)
	assert.Equal(t, "oops\n", result.Stderr)
}

func TestRunner_Execute_NonZeroExit(t *testing.T) {
	r := newShellRunner()

	result := r.Execute(context.Background(), "echo partial; exit 3", 5)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "partial\n", result.Stdout)
}

func TestRunner_Execute_Timeout(t *testing.T) {
	r := newShellRunner()

	result := r.Execute(context.Background(), "sleep 10", 1)

	assert.False(t, result.Success)
	assert.Equal(t, -1, result.ExitCode)
	assert.Contains(t, result.Stderr, "timed out after 1 seconds")
}

func TestRunner_Execute_ZeroTimeoutUsesDefault(t *testing.T) {
	r := newShellRunner()

	result := r.Execute(context.Background(), "echo fast", 0)

	assert.True(t, result.Success)
	assert.Equal(t, "fast\n", result.Stdout)
}

func TestRunner_Execute_MissingInterpreter(t *testing.T) {
	r := NewRunnerWithInterpreter("definitely-not-a-real-interpreter", ".x", &testLogger{})

	result := r.Execute(context.Background(), "whatever", 5)

	assert.False(t, result.Success)
	assert.Equal(t, -1, result.ExitCode)
	assert.Contains(t, result.Stderr, "execution error")
}

func TestRunner_Execute_RemovesTempFile(t *testing.T) {
	r := newShellRunner()

	// The script records its own path so we can check it was cleaned up.
	result := r.Execute(context.Background(), "echo $0", 5)

	assert.True(t, result.Success)
	scriptPath := result.Stdout[:len(result.Stdout)-1]
	assert.NoFileExists(t, scriptPath)
}

func TestRunner_Execute_DefaultSuffix(t *testing.T) {
	r := NewRunner(&testLogger{})

	assert.Equal(t, DefaultInterpreter, r.interpreter)
	assert.Equal(t, ".py", r.suffix)
}
