package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposmith-ai/reposmith/internal/domain"
)

// testLogger is a minimal logger for testing that doesn't output anything.
type testLogger struct{}

func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}
func (l *testLogger) Warn(_ context.Context, _ string, _ map[string]interface{})  {}

// runGit executes a git command in the given directory.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test User",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test User",
		"GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, out)
	return strings.TrimSpace(string(out))
}

// setupTestRepo creates a temporary git repository with one commit and an
// origin remote configured.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test repo\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.py"), []byte("print('hi')\n"), 0o644))

	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "Initial commit")
	runGit(t, dir, "remote", "add", "origin", "https://github.com/TestOrg/test-repo.git")

	return dir
}

// openWorkspace attaches a workspace to an existing repository path.
func openWorkspace(t *testing.T, path string) *GoGitWorkspace {
	t.Helper()

	ws := NewGoGitWorkspaceAt(t.TempDir(), &testLogger{})
	require.NoError(t, ws.Open(path))
	return ws
}

func TestGoGitWorkspace_Root_BeforeClone(t *testing.T) {
	ws := NewGoGitWorkspaceAt(t.TempDir(), &testLogger{})

	_, err := ws.Root()

	assert.ErrorIs(t, err, domain.ErrNoWorkspace)
}

func TestGoGitWorkspace_Clone_LocalRepository(t *testing.T) {
	src := setupTestRepo(t)
	ws, err := NewGoGitWorkspace(&testLogger{})
	require.NoError(t, err)
	defer func() { require.NoError(t, ws.Cleanup()) }()

	path, err := ws.Clone(context.Background(), src, "main")

	require.NoError(t, err)
	assert.DirExists(t, path)
	assert.FileExists(t, filepath.Join(path, "README.md"))

	root, err := ws.Root()
	require.NoError(t, err)
	assert.Equal(t, path, root)
}

func TestGoGitWorkspace_Clone_Failure(t *testing.T) {
	ws, err := NewGoGitWorkspace(&testLogger{})
	require.NoError(t, err)
	defer func() { require.NoError(t, ws.Cleanup()) }()

	_, err = ws.Clone(context.Background(), filepath.Join(t.TempDir(), "missing"), "main")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCloneFailed)

	// No repository state exists after a failed clone.
	_, err = ws.Root()
	assert.ErrorIs(t, err, domain.ErrNoWorkspace)
}

func TestGoGitWorkspace_Analyze(t *testing.T) {
	dir := setupTestRepo(t)
	ws := openWorkspace(t, dir)

	analysis, err := ws.Analyze(context.Background())

	require.NoError(t, err)
	assert.Equal(t, dir, analysis.RootPath)

	var total int64
	for _, f := range analysis.Files {
		total += f.SizeBytes
		for _, part := range strings.Split(f.RelativePath, string(filepath.Separator)) {
			assert.NotEqual(t, ".git", part, "analysis must exclude git metadata: %s", f.RelativePath)
		}
	}
	assert.Equal(t, total, analysis.TotalSizeBytes)
	assert.Equal(t, 1, analysis.LanguageCounts[".md"])
	assert.Equal(t, 1, analysis.LanguageCounts[".py"])

	assert.Equal(t, "main", analysis.Git.CurrentBranch)
	assert.Equal(t, "https://github.com/TestOrg/test-repo.git", analysis.Git.RemoteURL)
}

func TestGoGitWorkspace_Analyze_LowercasesExtensions(t *testing.T) {
	dir := setupTestRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "NOTES.TXT"), []byte("x"), 0o644))
	ws := openWorkspace(t, dir)

	analysis, err := ws.Analyze(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, analysis.LanguageCounts[".txt"])
	assert.Zero(t, analysis.LanguageCounts[".TXT"])
}

func TestGoGitWorkspace_FindFiles(t *testing.T) {
	dir := setupTestRepo(t)
	ws := openWorkspace(t, dir)

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{
			name:    "readme glob",
			pattern: "README*",
			want:    []string{"README.md"},
		},
		{
			name:    "python sources in subdirectories",
			pattern: "*.py",
			want:    []string{filepath.Join("src", "main.py")},
		},
		{
			name:    "no matches",
			pattern: "*.rs",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ws.FindFiles(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGoGitWorkspace_ReadFile_UTF8(t *testing.T) {
	dir := setupTestRepo(t)
	ws := openWorkspace(t, dir)

	content, err := ws.ReadFile("README.md")

	require.NoError(t, err)
	assert.Equal(t, "# test repo\n", content)
}

func TestGoGitWorkspace_ReadFile_InvalidUTF8FallsBack(t *testing.T) {
	dir := setupTestRepo(t)
	// 0xE9 is 'é' in Latin-1 but invalid as a standalone UTF-8 byte.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.txt"), []byte{'c', 'a', 'f', 0xE9}, 0o644))
	ws := openWorkspace(t, dir)

	content, err := ws.ReadFile("legacy.txt")

	require.NoError(t, err)
	assert.Equal(t, "café", content)
}

func TestGoGitWorkspace_ReadFile_Missing(t *testing.T) {
	dir := setupTestRepo(t)
	ws := openWorkspace(t, dir)

	_, err := ws.ReadFile("does-not-exist.txt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist.txt")
}

func TestGoGitWorkspace_WriteFile_CreatesDirectories(t *testing.T) {
	dir := setupTestRepo(t)
	ws := openWorkspace(t, dir)

	err := ws.WriteFile(filepath.Join("a", "b.txt"), "X")

	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "X", string(data))
	assert.DirExists(t, filepath.Join(dir, "a"))
}

func TestGoGitWorkspace_WriteFile_OverwritesExisting(t *testing.T) {
	dir := setupTestRepo(t)
	ws := openWorkspace(t, dir)

	require.NoError(t, ws.WriteFile("README.md", "replaced"))

	content, err := ws.ReadFile("README.md")
	require.NoError(t, err)
	assert.Equal(t, "replaced", content)
}

func TestGoGitWorkspace_CreateBranch(t *testing.T) {
	dir := setupTestRepo(t)
	ws := openWorkspace(t, dir)

	require.NoError(t, ws.CreateBranch("feature/add-dark-mode"))

	branch := runGit(t, dir, "branch", "--show-current")
	assert.Equal(t, "feature/add-dark-mode", branch)
}

func TestGoGitWorkspace_CreateBranch_DuplicateFails(t *testing.T) {
	dir := setupTestRepo(t)
	ws := openWorkspace(t, dir)

	require.NoError(t, ws.CreateBranch("feature/x"))
	err := ws.CreateBranch("feature/x")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBranchCreateFailed)
}

func TestGoGitWorkspace_Commit(t *testing.T) {
	dir := setupTestRepo(t)
	ws := openWorkspace(t, dir)

	require.NoError(t, ws.WriteFile("new.txt", "content"))
	require.NoError(t, ws.Commit("Implement new file\n\n- Create new.txt\n"))

	subject := runGit(t, dir, "log", "-1", "--format=%s")
	assert.Equal(t, "Implement new file", subject)

	status := runGit(t, dir, "status", "--porcelain")
	assert.Empty(t, status, "working tree should be clean after commit")
}

func TestGoGitWorkspace_Cleanup(t *testing.T) {
	ws, err := NewGoGitWorkspace(&testLogger{})
	require.NoError(t, err)

	src := setupTestRepo(t)
	path, err := ws.Clone(context.Background(), src, "main")
	require.NoError(t, err)

	require.NoError(t, ws.Cleanup())
	assert.NoDirExists(t, path)
}

func TestRepoNameFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"https with suffix", "https://github.com/acme/widgets.git", "widgets"},
		{"https without suffix", "https://github.com/acme/widgets", "widgets"},
		{"trailing slash", "https://github.com/acme/widgets/", "widgets"},
		{"local path", "/tmp/src/widgets", "widgets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repoNameFromURL(tt.url))
		})
	}
}
