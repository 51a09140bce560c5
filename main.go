// Package main is the entry point for the reposmith CLI application.
// reposmith generates code with a chat-completion model, either for a
// standalone problem statement or as structured multi-file edits applied to a
// cloned git repository.
package main

import (
	"os"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"

	"github.com/reposmith-ai/reposmith/cmd"
	gitws "github.com/reposmith-ai/reposmith/internal/adapters/git"
	"github.com/reposmith-ai/reposmith/internal/adapters/llm"
	logadapter "github.com/reposmith-ai/reposmith/internal/adapters/logger"
	"github.com/reposmith-ai/reposmith/internal/adapters/output"
	"github.com/reposmith-ai/reposmith/internal/adapters/sandbox"
	"github.com/reposmith-ai/reposmith/internal/domain"
	"github.com/reposmith-ai/reposmith/internal/infrastructure/config"
	"github.com/reposmith-ai/reposmith/internal/usecases"
)

func main() {
	// Create a single shared logger instance for the application
	zapLog := logger.NewZapLoggerFromConfig()
	adapter := logadapter.NewZapAdapter(zapLog)

	// Wire up production dependencies
	deps := &cmd.Dependencies{
		LoggerFactory: func() cmd.Logger {
			return adapter
		},

		ConfigLoader: config.Load,

		WorkspaceFactory: func(_ cmd.Logger) (domain.Workspace, error) {
			return gitws.NewGoGitWorkspace(adapter)
		},

		CompletionClientFactory: func(profile *config.Profile, _ cmd.Logger) (domain.CompletionClient, error) {
			return llm.NewClient(profile.APIKey, profile.ModelName, profile.APIURL, adapter, llm.Options{})
		},

		ContextBuilderFactory: func(_ cmd.Logger) domain.ContextBuilder {
			return usecases.NewContextBuilder(adapter)
		},

		TaskRunnerFactory: func(
			client domain.CompletionClient,
			builder domain.ContextBuilder,
			_ cmd.Logger,
		) domain.TaskRunner {
			return usecases.NewLLMTaskRunner(client, builder, adapter)
		},

		SandboxFactory: func(_ cmd.Logger) domain.Sandbox {
			return sandbox.NewRunner(adapter)
		},

		SolverFactory: func(client domain.CompletionClient, sb domain.Sandbox, _ cmd.Logger) domain.Solver {
			return usecases.NewCodeSolver(client, sb, adapter)
		},

		RendererFactory: func() cmd.Renderer {
			return output.NewWriter()
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}
