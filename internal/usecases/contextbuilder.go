// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill the
// context-building, task-running, and code-generation use cases.
package usecases

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/reposmith-ai/reposmith/internal/domain"
)

// Logger defines the logging interface required by the use cases.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// priorityPatterns is the ordered list of base-name globs used to select file
// excerpts. Documentation and manifests first, then source files by common
// extensions.
var priorityPatterns = []string{
	"README*", "*.md", "package.json", "requirements.txt",
	"Cargo.toml", "pom.xml", "build.gradle", "Makefile",
	"*.py", "*.js", "*.ts", "*.go", "*.rs", "*.java",
}

// ContextBuilder produces a bounded, prioritized textual digest of a
// repository for inclusion in a model prompt. Total excerpt size is bounded
// by maxFiles * MaxExcerptChars plus header overhead, which is what keeps the
// digest inside a model's input-token budget.
type ContextBuilder struct {
	logger Logger
}

// NewContextBuilder creates a ContextBuilder with the given logger.
func NewContextBuilder(log Logger) *ContextBuilder {
	return &ContextBuilder{logger: log}
}

// BuildContext runs a fresh repository analysis and combines a summary header
// with up to maxFiles inlined file excerpts, each truncated to
// domain.MaxExcerptChars characters. Files that cannot be read are silently
// skipped. maxFiles must be >= 0; zero yields the header alone.
func (b *ContextBuilder) BuildContext(ctx context.Context, ws domain.Workspace, maxFiles int) (string, error) {
	if maxFiles < 0 {
		return "", fmt.Errorf("maxFiles must be >= 0, got %d", maxFiles)
	}

	analysis, err := ws.Analyze(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to analyze repository: %w", err)
	}

	var sb strings.Builder
	writeHeader(&sb, analysis)

	included := make(map[string]bool)
	filesAdded := 0

	for _, pattern := range priorityPatterns {
		if filesAdded >= maxFiles {
			break
		}

		matches, err := ws.FindFiles(pattern)
		if err != nil {
			b.logger.Warn(ctx, "pattern scan failed; skipping", map[string]interface{}{
				"pattern": pattern,
				"error":   err.Error(),
			})
			continue
		}

		if len(matches) > domain.MaxMatchesPerPattern {
			matches = matches[:domain.MaxMatchesPerPattern]
		}

		for _, relPath := range matches {
			if included[relPath] || filesAdded >= maxFiles {
				continue
			}

			content, err := ws.ReadFile(relPath)
			if err != nil {
				// Best-effort: unreadable files are skipped, not retried.
				b.logger.Debug(ctx, "skipping unreadable file", map[string]interface{}{
					"path":  relPath,
					"error": err.Error(),
				})
				continue
			}

			sb.WriteString("\n--- ")
			sb.WriteString(relPath)
			sb.WriteString(" ---\n")
			sb.WriteString(truncateChars(content, domain.MaxExcerptChars))
			sb.WriteString("\n")

			included[relPath] = true
			filesAdded++
		}
	}

	b.logger.Debug(ctx, "built repository context digest", map[string]interface{}{
		"files_included": filesAdded,
		"max_files":      maxFiles,
		"digest_length":  sb.Len(),
	})

	return sb.String(), nil
}

// writeHeader emits the fixed-format summary block for the analysis.
func writeHeader(sb *strings.Builder, analysis *domain.RepositoryAnalysis) {
	sb.WriteString("=== REPOSITORY ANALYSIS ===\n")
	fmt.Fprintf(sb, "Path: %s\n", analysis.RootPath)
	fmt.Fprintf(sb, "Total files: %d\n", len(analysis.Files))
	fmt.Fprintf(sb, "Size: %d bytes\n", analysis.TotalSizeBytes)
	fmt.Fprintf(sb, "Languages: %s\n", strings.Join(sortedExtensions(analysis.LanguageCounts), ", "))

	if analysis.Git.CurrentBranch != "" {
		fmt.Fprintf(sb, "Current branch: %s\n", analysis.Git.CurrentBranch)
	}
	if analysis.Git.RemoteURL != "" {
		fmt.Fprintf(sb, "Remote: %s\n", analysis.Git.RemoteURL)
	}

	sb.WriteString("\n=== FILE STRUCTURE ===\n")
}

// sortedExtensions returns the distinct extensions in sorted order so the
// header is deterministic regardless of map iteration order.
func sortedExtensions(counts map[string]int) []string {
	exts := make([]string, 0, len(counts))
	for ext := range counts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// truncateChars truncates s to at most n characters (runes, not bytes, so a
// multi-byte character is never split).
func truncateChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
