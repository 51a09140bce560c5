// Package git provides the workspace adapter for cloned Git repositories.
// This package implements the domain.Workspace interface using go-git/v5.
package git

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/text/encoding/charmap"

	"github.com/reposmith-ai/reposmith/internal/domain"
)

// gitMetaDir is the version-control metadata directory excluded from every walk.
const gitMetaDir = ".git"

// Commit identity used when committing applied change-sets.
const (
	commitAuthorName  = "reposmith"
	commitAuthorEmail = "reposmith@localhost"
)

// Logger defines the logging interface for the git adapter.
// This interface enables dependency injection and testability.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// GoGitWorkspace implements domain.Workspace using go-git/v5.
// It owns a temporary working directory into which repositories are cloned,
// and mutates that directory in place on writes and git operations.
type GoGitWorkspace struct {
	workDir  string
	repoPath string
	repo     *gogit.Repository
	logger   Logger
}

// NewGoGitWorkspace creates a workspace backed by a fresh, uniquely named
// temporary directory. Callers must Cleanup when done.
func NewGoGitWorkspace(log Logger) (*GoGitWorkspace, error) {
	workDir, err := os.MkdirTemp("", "reposmith-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}

	return &GoGitWorkspace{
		workDir: workDir,
		logger:  log,
	}, nil
}

// NewGoGitWorkspaceAt creates a workspace rooted at an existing directory.
// This is useful for testing against pre-built repositories.
func NewGoGitWorkspaceAt(workDir string, log Logger) *GoGitWorkspace {
	return &GoGitWorkspace{
		workDir: workDir,
		logger:  log,
	}
}

// Clone fetches the repository at the given branch into the working directory.
// An existing clone of the same repository name is replaced.
// Wraps domain.ErrCloneFailed on failure; no repository state exists afterwards.
func (w *GoGitWorkspace) Clone(ctx context.Context, url, branch string) (string, error) {
	clonePath := filepath.Join(w.workDir, repoNameFromURL(url))

	if _, err := os.Stat(clonePath); err == nil {
		if err := os.RemoveAll(clonePath); err != nil {
			return "", fmt.Errorf("%w: could not replace existing clone: %w", domain.ErrCloneFailed, err)
		}
	}

	opts := &gogit.CloneOptions{
		URL: url,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}

	repo, err := gogit.PlainCloneContext(ctx, clonePath, false, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrCloneFailed, url, err)
	}

	w.repo = repo
	w.repoPath = clonePath

	w.logger.Debug(ctx, "cloned repository", map[string]interface{}{
		"url":    url,
		"branch": branch,
		"path":   clonePath,
	})

	return clonePath, nil
}

// Open attaches the workspace to an already-cloned repository at path.
func (w *GoGitWorkspace) Open(path string) error {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrNoWorkspace, path)
	}
	w.repo = repo
	w.repoPath = path
	return nil
}

// Root returns the working-copy path, or domain.ErrNoWorkspace before a clone.
func (w *GoGitWorkspace) Root() (string, error) {
	if w.repoPath == "" {
		return "", domain.ErrNoWorkspace
	}
	return w.repoPath, nil
}

// Analyze walks the full working copy once, collecting per-file size and
// lowercased extension, language counts, and best-effort git metadata.
// The .git directory is excluded at any depth.
func (w *GoGitWorkspace) Analyze(ctx context.Context) (*domain.RepositoryAnalysis, error) {
	root, err := w.Root()
	if err != nil {
		return nil, err
	}

	analysis := &domain.RepositoryAnalysis{
		RootPath:       root,
		LanguageCounts: make(map[string]int),
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// Check context for cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if d.Name() == gitMetaDir {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		fileInfo := domain.FileInfo{
			RelativePath: relPath,
			SizeBytes:    info.Size(),
			Extension:    strings.ToLower(filepath.Ext(d.Name())),
		}

		analysis.Files = append(analysis.Files, fileInfo)
		analysis.TotalSizeBytes += fileInfo.SizeBytes
		if fileInfo.Extension != "" {
			analysis.LanguageCounts[fileInfo.Extension]++
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk working copy: %w", err)
	}

	// Git metadata is best-effort: absent fields are not an error.
	analysis.Git = w.gitInfo(ctx)

	return analysis, nil
}

// gitInfo queries the current branch and origin remote URL, degrading to
// empty fields on any failure.
func (w *GoGitWorkspace) gitInfo(ctx context.Context) domain.GitInfo {
	var info domain.GitInfo
	if w.repo == nil {
		return info
	}

	head, err := w.repo.Head()
	if err != nil {
		w.logger.Warn(ctx, "could not resolve HEAD; git metadata unavailable", map[string]interface{}{
			"path":  w.repoPath,
			"error": err.Error(),
		})
		return info
	}
	if head.Name().IsBranch() {
		info.CurrentBranch = head.Name().Short()
	}

	remote, err := w.repo.Remote("origin")
	if err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.RemoteURL = urls[0]
		}
	}

	return info
}

// FindFiles returns working-copy relative paths whose base name matches the
// given glob pattern. Matching is case-sensitive against the base name only.
func (w *GoGitWorkspace) FindFiles(pattern string) ([]string, error) {
	root, err := w.Root()
	if err != nil {
		return nil, err
	}

	var matches []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == gitMetaDir {
				return filepath.SkipDir
			}
			return nil
		}

		ok, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if ok {
			relPath, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			matches = append(matches, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return matches, nil
}

// ReadFile reads a file relative to the working-copy root. Content that is
// not valid UTF-8 falls back to a permissive Latin-1 decode that never fails.
func (w *GoGitWorkspace) ReadFile(relPath string) (string, error) {
	root, err := w.Root()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(root, relPath))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", relPath, err)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	// Every byte maps to a rune under ISO 8859-1, so this decode cannot fail.
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data), nil
	}
	return string(decoded), nil
}

// WriteFile writes complete replacement content to a path relative to the
// working-copy root, creating intermediate directories as needed.
func (w *GoGitWorkspace) WriteFile(relPath, content string) error {
	root, err := w.Root()
	if err != nil {
		return err
	}

	fullPath := filepath.Join(root, relPath)
	if dir := filepath.Dir(fullPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directories for %s: %w", relPath, err)
		}
	}

	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", relPath, err)
	}
	return nil
}

// CreateBranch creates and checks out a new branch in the working copy.
func (w *GoGitWorkspace) CreateBranch(name string) error {
	if w.repo == nil {
		return domain.ErrNoWorkspace
	}

	wt, err := w.repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrBranchCreateFailed, err)
	}

	err = wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrBranchCreateFailed, name, err)
	}
	return nil
}

// Commit stages all changes in the working copy and commits them.
func (w *GoGitWorkspace) Commit(message string) error {
	if w.repo == nil {
		return domain.ErrNoWorkspace
	}

	wt, err := w.repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCommitFailed, err)
	}

	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return fmt.Errorf("%w: staging failed: %w", domain.ErrCommitFailed, err)
	}

	_, err = wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  commitAuthorName,
			Email: commitAuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCommitFailed, err)
	}
	return nil
}

// Push pushes the given branch (or everything matching the default refspecs
// when empty) to the origin remote.
func (w *GoGitWorkspace) Push(ctx context.Context, branch string) error {
	if w.repo == nil {
		return domain.ErrNoWorkspace
	}

	opts := &gogit.PushOptions{RemoteName: "origin"}
	if branch != "" {
		ref := plumbing.NewBranchReferenceName(branch)
		opts.RefSpecs = []config.RefSpec{
			config.RefSpec(ref + ":" + ref),
		}
	}

	if err := w.repo.PushContext(ctx, opts); err != nil {
		return fmt.Errorf("failed to push to origin: %w", err)
	}
	return nil
}

// Cleanup removes the temporary working directory and everything under it.
func (w *GoGitWorkspace) Cleanup() error {
	if w.workDir == "" {
		return nil
	}
	return os.RemoveAll(w.workDir)
}

// repoNameFromURL derives the clone directory name from a repository URL:
// the last path segment with any .git suffix removed.
func repoNameFromURL(url string) string {
	name := path.Base(strings.TrimSuffix(strings.TrimSpace(url), "/"))
	return strings.TrimSuffix(name, ".git")
}
