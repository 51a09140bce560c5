// Package cmd provides the CLI commands for reposmith.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/reposmith-ai/reposmith/internal/domain"
	"github.com/reposmith-ai/reposmith/internal/infrastructure/config"
)

// Logger defines the logging interface used by the commands.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Renderer renders results to the console and optional JSON files.
type Renderer interface {
	WriteAnalysis(analysis *domain.RepositoryAnalysis) error
	WriteText(title, text string) error
	WriteApplyResult(title string, result *domain.ApplyResult) error
	WriteSolveResult(result *domain.SolveResult) error
	SaveJSON(path string, value any) error
}

// Dependencies holds all injectable dependencies for the commands.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance.
	LoggerFactory func() Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func() (*config.Config, error)

	// WorkspaceFactory creates a fresh repository workspace.
	WorkspaceFactory func(log Logger) (domain.Workspace, error)

	// CompletionClientFactory creates a CompletionClient for the resolved profile.
	CompletionClientFactory func(profile *config.Profile, log Logger) (domain.CompletionClient, error)

	// ContextBuilderFactory creates the repository context builder.
	ContextBuilderFactory func(log Logger) domain.ContextBuilder

	// TaskRunnerFactory creates a TaskRunner with the given collaborators.
	TaskRunnerFactory func(
		client domain.CompletionClient,
		builder domain.ContextBuilder,
		log Logger,
	) domain.TaskRunner

	// SandboxFactory creates the code execution sandbox.
	SandboxFactory func(log Logger) domain.Sandbox

	// SolverFactory creates a Solver with the given collaborators.
	SolverFactory func(client domain.CompletionClient, sb domain.Sandbox, log Logger) domain.Solver

	// RendererFactory creates the console renderer.
	RendererFactory func() Renderer

	// Stdout is the writer for standard output.
	Stdout io.Writer

	// Stderr is the writer for standard error (for warnings/errors).
	Stderr io.Writer
}

// Command-line flags.
var (
	modelName  string
	apiKey     string
	verbose    bool
	branchName string
	createPR   bool
	focusArea  string
	noExecute  bool
	timeoutSec int
	outputPath string
)

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for reposmith.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "reposmith",
		Short: "LLM-powered code generation for problems and repositories",
		Long: `reposmith generates code with a chat-completion model.

It can solve a standalone problem statement and execute the generated code in
a subprocess sandbox, or clone a git repository, summarize it for the model,
and apply JSON-structured multi-file edits (features or fixes) back onto the
working tree, optionally committing them to a new branch.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&modelName, "model", "",
		"Model profile to use (defaults to the configured default)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "",
		"API key override for the selected profile")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringVar(&outputPath, "output", "",
		"Save results to a JSON file")

	rootCmd.AddCommand(
		newSolveCmd(deps),
		newAnalyzeCmd(deps),
		newSummaryCmd(deps),
		newImproveCmd(deps),
		newTaskCmd(deps, domain.TaskFeature),
		newTaskCmd(deps, domain.TaskFix),
		newModelsCmd(deps),
	)

	return rootCmd
}

func newSolveCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve <problem>",
		Short: "Generate and locally execute code for a problem statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, args, deps)
		},
	}
	cmd.Flags().BoolVar(&noExecute, "no-execute", false, "Generate code without executing")
	cmd.Flags().IntVar(&timeoutSec, "timeout", domain.DefaultExecTimeoutSeconds,
		"Execution timeout in seconds")
	return cmd
}

func newAnalyzeCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <repo-url>",
		Short: "Clone and analyze a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, deps)
		},
	}
	cmd.Flags().StringVar(&branchName, "branch", "main", "Branch to analyze")
	return cmd
}

func newSummaryCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <repo-url>",
		Short: "Generate a repository summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, args, deps)
		},
	}
	cmd.Flags().StringVar(&branchName, "branch", "main", "Branch to analyze")
	return cmd
}

func newImproveCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "improve <repo-url>",
		Short: "Suggest improvements for a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImprove(cmd, args, deps)
		},
	}
	cmd.Flags().StringVar(&branchName, "branch", "main", "Branch to analyze")
	cmd.Flags().StringVar(&focusArea, "focus", "", "Focus area (e.g. performance, security)")
	return cmd
}

func newTaskCmd(deps *Dependencies, kind domain.TaskKind) *cobra.Command {
	short := "Implement a new feature across repository files"
	if kind == domain.TaskFix {
		short = "Fix described issues across repository files"
	}

	cmd := &cobra.Command{
		Use:   string(kind) + " <repo-url> <description>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd, args, deps, kind)
		},
	}
	cmd.Flags().StringVar(&branchName, "branch", "main", "Base branch")
	cmd.Flags().BoolVar(&createPR, "create-pr", false,
		"Create a new branch and commit the applied changes")
	return cmd
}

func newModelsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured model profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd, deps)
		},
	}
}

// session bundles the collaborators shared by every command run.
type session struct {
	ctx    context.Context
	log    Logger
	cfg    *config.Config
	render Renderer
}

// newSession performs the setup common to all commands: context, logging,
// configuration, and the renderer.
func newSession(cmd *cobra.Command, deps *Dependencies) (*session, error) {
	if deps == nil {
		return nil, errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	// Set log level based on verbose flag (best-effort)
	if verbose {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			writeWarningf(stderr, "warning: could not set log level: %v\n", err)
		}
	}

	log := deps.LoggerFactory()

	cfg, err := deps.ConfigLoader()
	if err != nil {
		log.Error(ctx, "failed to load configuration", err, nil)
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return &session{
		ctx:    ctx,
		log:    log,
		cfg:    cfg,
		render: deps.RendererFactory(),
	}, nil
}

// completionClient resolves the selected profile and builds a client for it.
func (s *session) completionClient(deps *Dependencies) (domain.CompletionClient, error) {
	profile, err := s.cfg.ResolveProfile(modelName, apiKey)
	if err != nil {
		s.log.Error(s.ctx, "failed to resolve model profile", err, map[string]interface{}{
			"model": modelName,
		})
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	client, err := deps.CompletionClientFactory(profile, s.log)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return client, nil
}

// cloneWorkspace creates a workspace and clones the repository into it.
// The returned cleanup func removes the working directory.
func (s *session) cloneWorkspace(deps *Dependencies, url string) (domain.Workspace, func(), error) {
	ws, err := deps.WorkspaceFactory(s.log)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := ws.Cleanup(); err != nil {
			s.log.Warn(s.ctx, "failed to clean up workspace", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	s.log.Info(s.ctx, "cloning repository", map[string]interface{}{
		"url":    url,
		"branch": branchName,
	})

	if _, err := ws.Clone(s.ctx, url, branchName); err != nil {
		cleanup()
		if errors.Is(err, domain.ErrCloneFailed) {
			return nil, nil, fmt.Errorf("could not clone %s: %w", url, err)
		}
		return nil, nil, err
	}

	return ws, cleanup, nil
}

func runSolve(cmd *cobra.Command, args []string, deps *Dependencies) error {
	s, err := newSession(cmd, deps)
	if err != nil {
		return err
	}

	client, err := s.completionClient(deps)
	if err != nil {
		return err
	}

	solver := deps.SolverFactory(client, deps.SandboxFactory(s.log), s.log)
	result, err := solver.Solve(s.ctx, domain.SolveInput{
		Problem:        args[0],
		Execute:        !noExecute,
		TimeoutSeconds: timeoutSec,
	})
	if err != nil {
		s.log.Error(s.ctx, "failed to solve problem", err, nil)
		return err
	}

	if err := s.render.WriteSolveResult(result); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return s.saveResults(result)
}

func runAnalyze(cmd *cobra.Command, args []string, deps *Dependencies) error {
	s, err := newSession(cmd, deps)
	if err != nil {
		return err
	}

	ws, cleanup, err := s.cloneWorkspace(deps, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	analysis, err := ws.Analyze(s.ctx)
	if err != nil {
		s.log.Error(s.ctx, "failed to analyze repository", err, nil)
		return err
	}

	if err := s.render.WriteAnalysis(analysis); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return s.saveResults(analysis)
}

func runSummary(cmd *cobra.Command, args []string, deps *Dependencies) error {
	s, err := newSession(cmd, deps)
	if err != nil {
		return err
	}

	client, err := s.completionClient(deps)
	if err != nil {
		return err
	}

	ws, cleanup, err := s.cloneWorkspace(deps, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	runner := deps.TaskRunnerFactory(client, deps.ContextBuilderFactory(s.log), s.log)
	summary, err := runner.Summarize(s.ctx, ws)
	if err != nil {
		s.log.Error(s.ctx, "failed to generate summary", err, nil)
		return err
	}

	if err := s.render.WriteText("REPOSITORY SUMMARY", summary); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return nil
}

func runImprove(cmd *cobra.Command, args []string, deps *Dependencies) error {
	s, err := newSession(cmd, deps)
	if err != nil {
		return err
	}

	client, err := s.completionClient(deps)
	if err != nil {
		return err
	}

	ws, cleanup, err := s.cloneWorkspace(deps, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	runner := deps.TaskRunnerFactory(client, deps.ContextBuilderFactory(s.log), s.log)
	suggestions, err := runner.SuggestImprovements(s.ctx, ws, focusArea)
	if err != nil {
		s.log.Error(s.ctx, "failed to generate improvements", err, nil)
		return err
	}

	if err := s.render.WriteText("IMPROVEMENT SUGGESTIONS", suggestions); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return nil
}

func runTask(cmd *cobra.Command, args []string, deps *Dependencies, kind domain.TaskKind) error {
	s, err := newSession(cmd, deps)
	if err != nil {
		return err
	}

	client, err := s.completionClient(deps)
	if err != nil {
		return err
	}

	ws, cleanup, err := s.cloneWorkspace(deps, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	runner := deps.TaskRunnerFactory(client, deps.ContextBuilderFactory(s.log), s.log)
	result, err := runner.RunTask(s.ctx, ws, domain.TaskInput{
		Kind:         kind,
		Description:  args[1],
		BaseBranch:   branchName,
		CreateBranch: createPR,
	})
	if err != nil {
		s.log.Error(s.ctx, "task failed", err, map[string]interface{}{
			"kind": string(kind),
		})
		if errors.Is(err, domain.ErrBranchCreateFailed) {
			return fmt.Errorf("could not create task branch: %w", err)
		}
		return err
	}

	title := "FEATURE IMPLEMENTATION"
	if kind == domain.TaskFix {
		title = "ISSUE FIXES"
	}
	if err := s.render.WriteApplyResult(title, result); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return s.saveResults(result)
}

func runModels(cmd *cobra.Command, deps *Dependencies) error {
	s, err := newSession(cmd, deps)
	if err != nil {
		return err
	}

	var sb string
	sb += fmt.Sprintf("Default model: %s\n", s.cfg.DefaultModel())
	for _, name := range s.cfg.ListModels() {
		state := "not set"
		if s.cfg.HasKey(name) {
			state = "configured"
		}
		sb += fmt.Sprintf("%s: API key %s\n", name, state)
	}

	return s.render.WriteText("MODEL PROFILES", sb)
}

// saveResults writes the result to the --output JSON file when requested.
func (s *session) saveResults(value any) error {
	if outputPath == "" {
		return nil
	}
	if err := s.render.SaveJSON(outputPath, value); err != nil {
		return err
	}
	s.log.Info(s.ctx, "results saved", map[string]interface{}{
		"path": outputPath,
	})
	return nil
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// writeWarningf writes a warning message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		return
	}
}
