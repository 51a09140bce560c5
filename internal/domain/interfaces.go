// Package domain defines the core business entities and interfaces for reposmith.
// This package contains no external dependencies and represents the innermost
// layer of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
)

// Domain errors for configuration, workspace, and model operations.
var (
	// ErrUnknownProfile indicates the requested model profile is not configured.
	ErrUnknownProfile = errors.New("model profile not found in configuration")

	// ErrMissingAPIKey indicates the resolved profile has no API key.
	ErrMissingAPIKey = errors.New("API key is required; add it to the configuration or pass it explicitly")

	// ErrNoWorkspace indicates an operation was attempted before a clone resolved
	// a working-copy path.
	ErrNoWorkspace = errors.New("no repository working copy available")

	// ErrCloneFailed indicates the repository could not be cloned.
	ErrCloneFailed = errors.New("failed to clone repository")

	// ErrCompletionFailed indicates the chat-completion request failed or
	// returned an unusable response.
	ErrCompletionFailed = errors.New("chat completion request failed")

	// ErrBranchCreateFailed indicates the task branch could not be created.
	ErrBranchCreateFailed = errors.New("failed to create task branch")

	// ErrCommitFailed indicates staging or committing applied changes failed.
	ErrCommitFailed = errors.New("failed to commit applied changes")
)

// Workspace owns a cloned repository's on-disk working copy. A single logical
// workflow owns a workspace at a time; there is no internal locking.
type Workspace interface {
	// Clone fetches the repository at the given branch into a fresh working
	// directory and returns its path. Wraps ErrCloneFailed on failure.
	Clone(ctx context.Context, url, branch string) (string, error)

	// Root returns the working-copy path, or ErrNoWorkspace before a clone.
	Root() (string, error)

	// Analyze walks the full working copy once, collecting file statistics
	// and best-effort git metadata.
	Analyze(ctx context.Context) (*RepositoryAnalysis, error)

	// FindFiles returns working-copy relative paths whose base name matches
	// the given glob pattern, excluding version-control metadata.
	FindFiles(pattern string) ([]string, error)

	// ReadFile reads a file relative to the root. Content that is not valid
	// UTF-8 is decoded with a permissive single-byte fallback that never fails.
	ReadFile(relPath string) (string, error)

	// WriteFile writes complete replacement content to a path relative to the
	// root, creating intermediate directories as needed.
	WriteFile(relPath, content string) error

	// CreateBranch creates and checks out a new branch.
	CreateBranch(name string) error

	// Commit stages all changes and commits them with the given message.
	Commit(message string) error

	// Push pushes the given branch (or the current one when empty) to origin.
	Push(ctx context.Context, branch string) error

	// Cleanup removes the temporary working directory.
	Cleanup() error
}

// CompletionClient sends a single prompt to a chat-completion endpoint and
// returns the response text with surrounding code fences stripped.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Sandbox executes a source text blob as a subprocess with a timeout.
// The temporary artifact is always removed, regardless of outcome.
type Sandbox interface {
	Execute(ctx context.Context, source string, timeoutSeconds int) ExecutionResult
}

// ContextBuilder produces a bounded, prioritized textual digest of a
// repository suitable for inclusion in a prompt.
type ContextBuilder interface {
	// BuildContext inlines at most maxFiles file excerpts after a summary
	// header. maxFiles must be >= 0.
	BuildContext(ctx context.Context, ws Workspace, maxFiles int) (string, error)
}

// TaskRunner interprets a natural-language task into a change-set via the
// model and applies it to the workspace.
type TaskRunner interface {
	// RunTask executes the feature or fix pipeline. A model response that
	// fails to parse is reported inside the ApplyResult, not as an error.
	RunTask(ctx context.Context, ws Workspace, input TaskInput) (*ApplyResult, error)

	// Summarize asks the model for a free-text summary of the repository.
	Summarize(ctx context.Context, ws Workspace) (string, error)

	// SuggestImprovements asks the model for improvement suggestions,
	// optionally focused on one area.
	SuggestImprovements(ctx context.Context, ws Workspace, focus string) (string, error)
}

// Solver generates standalone code for a problem statement and optionally
// executes it in the sandbox.
type Solver interface {
	Solve(ctx context.Context, input SolveInput) (*SolveResult, error)
}
