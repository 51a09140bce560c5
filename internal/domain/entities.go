// Package domain defines the core business entities and interfaces for reposmith.
package domain

// FileInfo describes a single file discovered during a repository walk.
type FileInfo struct {
	// RelativePath is the file path relative to the working-copy root.
	RelativePath string

	// SizeBytes is the file size in bytes.
	SizeBytes int64

	// Extension is the lowercased file extension including the leading dot,
	// or empty if the file has none.
	Extension string
}

// GitInfo holds best-effort git metadata for a working copy.
// Empty fields mean the metadata could not be determined; that is not an error.
type GitInfo struct {
	// CurrentBranch is the checked-out branch name (empty if detached or unknown).
	CurrentBranch string

	// RemoteURL is the URL of the 'origin' remote (empty if not configured).
	RemoteURL string
}

// RepositoryAnalysis is a snapshot of a cloned repository's shape.
// It is built fresh on every context build and never cached, so a later
// analysis reflects whatever a prior apply step wrote to disk.
type RepositoryAnalysis struct {
	// RootPath is the absolute location of the working copy.
	RootPath string

	// Files lists every file under the root, in filesystem walk order,
	// excluding anything under the version-control metadata directory.
	// Walk order is not canonical; callers must not depend on it.
	Files []FileInfo

	// LanguageCounts maps extension to file count.
	LanguageCounts map[string]int

	// TotalSizeBytes is the sum of all file sizes.
	TotalSizeBytes int64

	// Git holds best-effort git metadata.
	Git GitInfo
}

// TaskKind selects the change-set variant requested from the model.
type TaskKind string

const (
	// TaskFeature asks the model for an Implementation change-set.
	TaskFeature TaskKind = "feature"

	// TaskFix asks the model for a FixSet change-set.
	TaskFix TaskKind = "fix"
)

// File actions the model is instructed to emit, bit-exact.
const (
	ActionCreate = "create"
	ActionModify = "modify"
)

// FileChange is one file operation inside an Implementation change-set.
// Content is always the complete replacement content, never a diff fragment.
type FileChange struct {
	Path        string `json:"path" validate:"required"`
	Action      string `json:"action" validate:"required,oneof=create modify"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// Implementation is the parsed model response for a feature task.
type Implementation struct {
	Plan         string       `json:"plan"`
	Files        []FileChange `json:"files" validate:"required,min=1,dive"`
	Dependencies []string     `json:"dependencies"`
	Tests        []string     `json:"tests"`
	Notes        string       `json:"notes"`
}

// FileFix is one file operation inside a FixSet change-set.
type FileFix struct {
	File     string `json:"file" validate:"required"`
	Issue    string `json:"issue"`
	Solution string `json:"solution"`
	Content  string `json:"content"`
}

// FixSet is the parsed model response for a fix task.
type FixSet struct {
	Analysis string    `json:"analysis"`
	Fixes    []FileFix `json:"fixes" validate:"required,min=1,dive"`
	Tests    []string  `json:"tests"`
	Notes    string    `json:"notes"`
}

// ApplyResult reports the outcome of interpreting and applying one change-set.
type ApplyResult struct {
	// Success is true only when the response parsed and every file was written.
	Success bool `json:"success"`

	// TouchedFiles lists the paths written, in write order. On a partial
	// failure it contains exactly the files written before the failure.
	TouchedFiles []string `json:"touched_files"`

	// Branch is the branch the changes live on (the created branch when one
	// was requested, otherwise the base branch).
	Branch string `json:"branch,omitempty"`

	// Error holds the failure detail when Success is false.
	Error string `json:"error,omitempty"`

	// RawResponse holds the unparsed model output, populated only on a
	// parse failure to aid diagnosis.
	RawResponse string `json:"raw_response,omitempty"`

	// Implementation is the parsed change-set for feature tasks.
	Implementation *Implementation `json:"implementation,omitempty"`

	// FixSet is the parsed change-set for fix tasks.
	FixSet *FixSet `json:"fix_set,omitempty"`
}

// TaskInput carries the parameters for a repository task.
type TaskInput struct {
	// Kind selects the feature or fix pipeline.
	Kind TaskKind

	// Description is the natural-language feature or issue description.
	Description string

	// BaseBranch is the branch the workspace was cloned at.
	BaseBranch string

	// CreateBranch creates and commits to a derived feature/fix branch.
	CreateBranch bool
}

// ExecutionResult reports a sandboxed subprocess run.
type ExecutionResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Success  bool   `json:"success"`
}

// SolveInput carries the parameters for a standalone code-generation task.
type SolveInput struct {
	// Problem is the natural-language problem statement.
	Problem string

	// Execute runs the generated code in the sandbox when true.
	Execute bool

	// TimeoutSeconds bounds the sandbox execution.
	TimeoutSeconds int
}

// SolveResult holds the generated code and, when requested, its execution.
type SolveResult struct {
	Problem       string           `json:"problem"`
	GeneratedCode string           `json:"generated_code"`
	Execution     *ExecutionResult `json:"execution,omitempty"`
}

// Defaults shared by the use cases.
const (
	// DefaultMaxContextFiles bounds how many file excerpts a context digest inlines.
	DefaultMaxContextFiles = 20

	// MaxExcerptChars bounds each inlined file excerpt so the digest fits a
	// model's input-token budget.
	MaxExcerptChars = 2000

	// MaxMatchesPerPattern bounds how many files a single priority pattern
	// may contribute to the digest.
	MaxMatchesPerPattern = 5

	// MaxBranchSlugLen bounds the transformed description used in derived
	// branch names, before the feature/ or fix/ prefix is added.
	MaxBranchSlugLen = 30

	// DefaultExecTimeoutSeconds bounds sandbox execution.
	DefaultExecTimeoutSeconds = 30
)
