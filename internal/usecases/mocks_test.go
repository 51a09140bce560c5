package usecases

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/reposmith-ai/reposmith/internal/domain"
)

// mockLogger implements the Logger interface for testing.
type mockLogger struct{}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]interface{})          {}
func (m *mockLogger) Warn(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Error(_ context.Context, _ string, _ error, _ map[string]interface{}) {}

// mockWorkspace implements domain.Workspace over an in-memory file map.
type mockWorkspace struct {
	root       string
	files      map[string]string
	unreadable map[string]bool
	analysis   *domain.RepositoryAnalysis
	analyzeErr error

	writeErrs      map[string]error
	written        []string
	createdBranch  string
	createBranchEr error
	commits        []string
	commitErr      error
}

func newMockWorkspace(root string, files map[string]string) *mockWorkspace {
	return &mockWorkspace{
		root:       root,
		files:      files,
		unreadable: make(map[string]bool),
		writeErrs:  make(map[string]error),
	}
}

func (m *mockWorkspace) Clone(_ context.Context, _, _ string) (string, error) {
	return m.root, nil
}

func (m *mockWorkspace) Root() (string, error) {
	if m.root == "" {
		return "", domain.ErrNoWorkspace
	}
	return m.root, nil
}

func (m *mockWorkspace) Analyze(_ context.Context) (*domain.RepositoryAnalysis, error) {
	if m.analyzeErr != nil {
		return nil, m.analyzeErr
	}
	if m.analysis != nil {
		return m.analysis, nil
	}

	analysis := &domain.RepositoryAnalysis{
		RootPath:       m.root,
		LanguageCounts: make(map[string]int),
	}
	for _, path := range m.sortedPaths() {
		info := domain.FileInfo{
			RelativePath: path,
			SizeBytes:    int64(len(m.files[path])),
			Extension:    filepath.Ext(path),
		}
		analysis.Files = append(analysis.Files, info)
		analysis.TotalSizeBytes += info.SizeBytes
		if info.Extension != "" {
			analysis.LanguageCounts[info.Extension]++
		}
	}
	return analysis, nil
}

func (m *mockWorkspace) FindFiles(pattern string) ([]string, error) {
	var matches []string
	for _, path := range m.sortedPaths() {
		ok, err := filepath.Match(pattern, filepath.Base(path))
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, path)
		}
	}
	return matches, nil
}

func (m *mockWorkspace) ReadFile(relPath string) (string, error) {
	if m.unreadable[relPath] {
		return "", &readError{path: relPath}
	}
	content, ok := m.files[relPath]
	if !ok {
		return "", &readError{path: relPath}
	}
	return content, nil
}

func (m *mockWorkspace) WriteFile(relPath, content string) error {
	if err := m.writeErrs[relPath]; err != nil {
		return err
	}
	m.files[relPath] = content
	m.written = append(m.written, relPath)
	return nil
}

func (m *mockWorkspace) CreateBranch(name string) error {
	if m.createBranchEr != nil {
		return m.createBranchEr
	}
	m.createdBranch = name
	return nil
}

func (m *mockWorkspace) Commit(message string) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.commits = append(m.commits, message)
	return nil
}

func (m *mockWorkspace) Push(_ context.Context, _ string) error { return nil }
func (m *mockWorkspace) Cleanup() error                         { return nil }

func (m *mockWorkspace) sortedPaths() []string {
	paths := make([]string, 0, len(m.files))
	for path := range m.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

type readError struct {
	path string
}

func (e *readError) Error() string {
	return "cannot read " + e.path
}

// mockCompletionClient implements domain.CompletionClient for testing.
type mockCompletionClient struct {
	response string
	err      error
	prompts  []string
}

func (m *mockCompletionClient) Complete(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// mockContextBuilder implements domain.ContextBuilder for testing.
type mockContextBuilder struct {
	digest string
	err    error
}

func (m *mockContextBuilder) BuildContext(_ context.Context, _ domain.Workspace, _ int) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.digest, nil
}

// mockSandbox implements domain.Sandbox for testing.
type mockSandbox struct {
	result domain.ExecutionResult
	calls  []sandboxCall
}

type sandboxCall struct {
	source  string
	timeout int
}

func (m *mockSandbox) Execute(_ context.Context, source string, timeoutSeconds int) domain.ExecutionResult {
	m.calls = append(m.calls, sandboxCall{source: source, timeout: timeoutSeconds})
	return m.result
}
