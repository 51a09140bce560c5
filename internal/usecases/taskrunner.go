package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/reposmith-ai/reposmith/internal/domain"
)

// changeSetValidate checks parsed change-sets against their schema tags.
// The model is only instructed, never constrained, so every parsed response
// is validated and any violation folds into the parse-failure path.
var changeSetValidate = validator.New()

// implementationPromptFmt instructs the model to return an Implementation
// change-set as JSON. The field names are the wire contract.
const implementationPromptFmt = `Based on this repository structure, implement the following feature:

FEATURE: %s

REPOSITORY CONTEXT:
%s

Please provide a detailed implementation plan with:
1. List of files to modify/create
2. Specific code changes for each file
3. Any new dependencies or configurations needed
4. Testing considerations

Format your response as JSON with this structure:
{
    "plan": "Overall implementation strategy",
    "files": [
        {
            "path": "relative/path/to/file",
            "action": "create|modify",
            "content": "complete file content",
            "description": "what this file does"
        }
    ],
    "dependencies": ["list", "of", "new", "dependencies"],
    "tests": ["list", "of", "test", "files", "to", "create"],
    "notes": "additional implementation notes"
}
`

// fixPromptFmt instructs the model to return a FixSet change-set as JSON.
const fixPromptFmt = `Analyze this repository and fix the following issues:

ISSUES: %s

REPOSITORY CONTEXT:
%s

Please provide specific fixes with:
1. Identification of the problems
2. Root cause analysis
3. Specific code changes needed
4. Files to modify

Format your response as JSON with this structure:
{
    "analysis": "problem analysis and root causes",
    "fixes": [
        {
            "file": "path/to/file",
            "issue": "description of issue in this file",
            "solution": "description of fix",
            "content": "complete fixed file content"
        }
    ],
    "tests": ["suggested test changes"],
    "notes": "additional notes about the fixes"
}
`

const summaryPromptFmt = `Analyze this repository and provide a comprehensive summary:

%s

Please provide:
1. Project overview and purpose
2. Main technologies and frameworks used
3. Architecture and structure analysis
4. Key components and their relationships
5. Potential improvements or issues
6. Development recommendations

Make your analysis detailed but concise.
`

const improvementsPromptFmt = `Analyze this repository and suggest specific improvements:

%s

%s

Please provide:
1. Code quality improvements
2. Architecture enhancements
3. Performance optimizations
4. Security considerations
5. Testing improvements
6. Documentation suggestions
7. Specific code changes with examples

Provide actionable recommendations with code examples where applicable.
`

// LLMTaskRunner interprets natural-language repository tasks into structured
// change-sets via the completion client and applies them to the workspace.
type LLMTaskRunner struct {
	client  domain.CompletionClient
	builder domain.ContextBuilder
	logger  Logger
}

// NewLLMTaskRunner creates an LLMTaskRunner with the given dependencies.
func NewLLMTaskRunner(
	client domain.CompletionClient,
	builder domain.ContextBuilder,
	log Logger,
) *LLMTaskRunner {
	return &LLMTaskRunner{
		client:  client,
		builder: builder,
		logger:  log,
	}
}

// RunTask executes the feature or fix pipeline against the workspace.
//
// A model response that fails to parse or validate is reported inside the
// ApplyResult with the raw response attached; it is never returned as an
// error. Branch creation failure, by contrast, is fatal to the task.
// Re-running the same task is not idempotent because the model response is
// non-deterministic; only the mechanical apply step is.
func (r *LLMTaskRunner) RunTask(
	ctx context.Context,
	ws domain.Workspace,
	input domain.TaskInput,
) (*domain.ApplyResult, error) {
	digest, err := r.builder.BuildContext(ctx, ws, domain.DefaultMaxContextFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository context: %w", err)
	}

	branch := input.BaseBranch
	if input.CreateBranch {
		branch = DeriveBranchName(input.Kind, input.Description)
		if err := ws.CreateBranch(branch); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrBranchCreateFailed, err)
		}
		r.logger.Info(ctx, "created task branch", map[string]interface{}{
			"branch": branch,
		})
	}

	var prompt string
	switch input.Kind {
	case domain.TaskFix:
		prompt = fmt.Sprintf(fixPromptFmt, input.Description, digest)
	default:
		prompt = fmt.Sprintf(implementationPromptFmt, input.Description, digest)
	}

	raw, err := r.client.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result := &domain.ApplyResult{Branch: branch}

	entries, parseErr := r.parseChangeSet(input.Kind, raw, result)
	if parseErr != nil {
		result.Success = false
		result.Error = fmt.Sprintf("failed to parse %s response: %v", input.Kind, parseErr)
		result.RawResponse = raw
		r.logger.Warn(ctx, "model response failed to parse", map[string]interface{}{
			"kind":  string(input.Kind),
			"error": parseErr.Error(),
		})
		return result, nil
	}

	for _, entry := range entries {
		r.logger.Info(ctx, "applying file change", map[string]interface{}{
			"path":   entry.path,
			"action": entry.action,
		})
		if err := ws.WriteFile(entry.path, entry.content); err != nil {
			// Partial application: TouchedFiles keeps only the successes.
			result.Success = false
			result.Error = fmt.Sprintf("failed to write %s: %v", entry.path, err)
			return result, nil
		}
		result.TouchedFiles = append(result.TouchedFiles, entry.path)
	}

	if input.CreateBranch {
		message := r.commitMessage(input, result)
		if err := ws.Commit(message); err != nil {
			result.Success = false
			result.Error = fmt.Sprintf("changes applied but commit failed: %v", err)
			return result, nil
		}
		r.logger.Info(ctx, "committed applied changes", map[string]interface{}{
			"branch":        branch,
			"touched_files": len(result.TouchedFiles),
		})
	}

	result.Success = true
	return result, nil
}

// changeEntry is the variant-neutral view of one file operation.
type changeEntry struct {
	path    string
	action  string
	content string
}

// parseChangeSet decodes and validates the raw model response for the given
// task kind, storing the typed change-set on the result and returning the
// ordered file operations.
func (r *LLMTaskRunner) parseChangeSet(
	kind domain.TaskKind,
	raw string,
	result *domain.ApplyResult,
) ([]changeEntry, error) {
	if kind == domain.TaskFix {
		var fixes domain.FixSet
		if err := json.Unmarshal([]byte(raw), &fixes); err != nil {
			return nil, err
		}
		if err := changeSetValidate.Struct(&fixes); err != nil {
			return nil, fmt.Errorf("schema validation failed: %w", err)
		}
		result.FixSet = &fixes

		entries := make([]changeEntry, 0, len(fixes.Fixes))
		for _, fix := range fixes.Fixes {
			entries = append(entries, changeEntry{
				path:    fix.File,
				action:  domain.ActionModify,
				content: fix.Content,
			})
		}
		return entries, nil
	}

	var impl domain.Implementation
	if err := json.Unmarshal([]byte(raw), &impl); err != nil {
		return nil, err
	}
	if err := changeSetValidate.Struct(&impl); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	result.Implementation = &impl

	entries := make([]changeEntry, 0, len(impl.Files))
	for _, file := range impl.Files {
		entries = append(entries, changeEntry{
			path:    file.Path,
			action:  file.Action,
			content: file.Content,
		})
	}
	return entries, nil
}

// commitMessage summarizes the task and the applied file operations.
func (r *LLMTaskRunner) commitMessage(input domain.TaskInput, result *domain.ApplyResult) string {
	var sb strings.Builder

	if input.Kind == domain.TaskFix {
		fmt.Fprintf(&sb, "Fix: %s\n\n", input.Description)
		if result.FixSet != nil {
			if result.FixSet.Analysis != "" {
				sb.WriteString(result.FixSet.Analysis)
				sb.WriteString("\n\n")
			}
			for _, fix := range result.FixSet.Fixes {
				fmt.Fprintf(&sb, "- %s: %s\n", fix.File, fix.Solution)
			}
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "Implement %s\n\nGenerated implementation including:\n", input.Description)
	if result.Implementation != nil {
		for _, file := range result.Implementation.Files {
			fmt.Fprintf(&sb, "- %s %s\n", titleAction(file.Action), file.Path)
		}
	}
	return sb.String()
}

// titleAction renders a change action for commit messages.
func titleAction(action string) string {
	switch action {
	case domain.ActionCreate:
		return "Create"
	case domain.ActionModify:
		return "Modify"
	default:
		return action
	}
}

// Summarize asks the model for a free-text summary of the repository.
func (r *LLMTaskRunner) Summarize(ctx context.Context, ws domain.Workspace) (string, error) {
	digest, err := r.builder.BuildContext(ctx, ws, domain.DefaultMaxContextFiles)
	if err != nil {
		return "", fmt.Errorf("failed to build repository context: %w", err)
	}
	return r.client.Complete(ctx, fmt.Sprintf(summaryPromptFmt, digest))
}

// SuggestImprovements asks the model for improvement suggestions, optionally
// focused on one area such as performance or security.
func (r *LLMTaskRunner) SuggestImprovements(
	ctx context.Context,
	ws domain.Workspace,
	focus string,
) (string, error) {
	digest, err := r.builder.BuildContext(ctx, ws, domain.DefaultMaxContextFiles)
	if err != nil {
		return "", fmt.Errorf("failed to build repository context: %w", err)
	}

	focusText := "Consider all aspects"
	if focus != "" {
		focusText = "Focus specifically on: " + focus
	}

	return r.client.Complete(ctx, fmt.Sprintf(improvementsPromptFmt, digest, focusText))
}

// DeriveBranchName derives a branch name from a task description: lower-case,
// spaces replaced with hyphens, truncated to domain.MaxBranchSlugLen
// characters, then prefixed with feature/ or fix/ per the task kind.
func DeriveBranchName(kind domain.TaskKind, description string) string {
	slug := strings.ReplaceAll(strings.ToLower(description), " ", "-")
	runes := []rune(slug)
	if len(runes) > domain.MaxBranchSlugLen {
		slug = string(runes[:domain.MaxBranchSlugLen])
	}

	prefix := "feature/"
	if kind == domain.TaskFix {
		prefix = "fix/"
	}
	return prefix + slug
}
