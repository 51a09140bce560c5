// Package output provides adapters for rendering application results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/reposmith-ai/reposmith/internal/domain"
)

// sectionRule separates console sections.
const sectionRule = "============================================================"

// Writer renders analysis, task, and solve results to the configured
// destination. By default, it writes to stdout.
type Writer struct {
	out io.Writer
}

// NewWriter creates a new Writer that writes to stdout.
func NewWriter() *Writer {
	return &Writer{out: os.Stdout}
}

// NewWriterWithOutput creates a new Writer with a custom output destination.
// This is useful for testing.
func NewWriterWithOutput(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteAnalysis renders a repository analysis summary, including the five
// most common file extensions.
func (w *Writer) WriteAnalysis(analysis *domain.RepositoryAnalysis) error {
	var sb strings.Builder

	sb.WriteString(sectionRule + "\n")
	sb.WriteString("REPOSITORY ANALYSIS\n")
	sb.WriteString(sectionRule + "\n")
	fmt.Fprintf(&sb, "Path: %s\n", analysis.RootPath)
	fmt.Fprintf(&sb, "Files: %d\n", len(analysis.Files))
	fmt.Fprintf(&sb, "Size: %d bytes\n", analysis.TotalSizeBytes)

	if analysis.Git.CurrentBranch != "" {
		fmt.Fprintf(&sb, "Branch: %s\n", analysis.Git.CurrentBranch)
	}
	if analysis.Git.RemoteURL != "" {
		fmt.Fprintf(&sb, "Remote: %s\n", analysis.Git.RemoteURL)
	}

	sb.WriteString("\nTop file types:\n")
	for _, ext := range topExtensions(analysis.LanguageCounts, 5) {
		fmt.Fprintf(&sb, "  %s: %d files\n", ext, analysis.LanguageCounts[ext])
	}

	_, err := io.WriteString(w.out, sb.String())
	return err
}

// WriteText renders a titled free-text section (summary, improvements).
func (w *Writer) WriteText(title, text string) error {
	_, err := fmt.Fprintf(w.out, "%s\n%s\n%s\n%s\n", sectionRule, title, sectionRule, text)
	return err
}

// WriteApplyResult renders the outcome of a repository task.
func (w *Writer) WriteApplyResult(title string, result *domain.ApplyResult) error {
	var sb strings.Builder

	sb.WriteString(sectionRule + "\n")
	sb.WriteString(title + "\n")
	sb.WriteString(sectionRule + "\n")

	if !result.Success {
		fmt.Fprintf(&sb, "Failed: %s\n", result.Error)
		if len(result.TouchedFiles) > 0 {
			fmt.Fprintf(&sb, "Files written before failure: %s\n", strings.Join(result.TouchedFiles, ", "))
		}
		if result.RawResponse != "" {
			fmt.Fprintf(&sb, "Raw response:\n%s\n", result.RawResponse)
		}
		_, err := io.WriteString(w.out, sb.String())
		return err
	}

	fmt.Fprintf(&sb, "Modified files: %s\n", strings.Join(result.TouchedFiles, ", "))
	if result.Branch != "" {
		fmt.Fprintf(&sb, "Branch: %s\n", result.Branch)
	}

	if result.Implementation != nil {
		if result.Implementation.Plan != "" {
			fmt.Fprintf(&sb, "\nImplementation plan:\n%s\n", result.Implementation.Plan)
		}
		if len(result.Implementation.Dependencies) > 0 {
			fmt.Fprintf(&sb, "\nNew dependencies: %s\n", strings.Join(result.Implementation.Dependencies, ", "))
		}
	}

	if result.FixSet != nil {
		if result.FixSet.Analysis != "" {
			fmt.Fprintf(&sb, "\nProblem analysis:\n%s\n", result.FixSet.Analysis)
		}
		sb.WriteString("\nFixes applied:\n")
		for _, fix := range result.FixSet.Fixes {
			fmt.Fprintf(&sb, "- %s: %s\n", fix.File, fix.Solution)
		}
	}

	_, err := io.WriteString(w.out, sb.String())
	return err
}

// WriteSolveResult renders generated code and its optional execution.
func (w *Writer) WriteSolveResult(result *domain.SolveResult) error {
	var sb strings.Builder

	sb.WriteString(sectionRule + "\n")
	sb.WriteString("GENERATED CODE\n")
	sb.WriteString(sectionRule + "\n")
	sb.WriteString(result.GeneratedCode + "\n")

	if result.Execution != nil {
		sb.WriteString("\n" + sectionRule + "\n")
		sb.WriteString("EXECUTION RESULTS\n")
		sb.WriteString(sectionRule + "\n")
		if result.Execution.Success {
			sb.WriteString("Execution successful\n")
			if result.Execution.Stdout != "" {
				fmt.Fprintf(&sb, "Output:\n%s", result.Execution.Stdout)
			}
		} else {
			sb.WriteString("Execution failed\n")
			if result.Execution.Stderr != "" {
				fmt.Fprintf(&sb, "Error:\n%s", result.Execution.Stderr)
			}
		}
	}

	_, err := io.WriteString(w.out, sb.String())
	return err
}

// SaveJSON writes a result value as indented JSON to the given file path.
func (w *Writer) SaveJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save results to %s: %w", path, err)
	}
	return nil
}

// topExtensions returns up to n extensions ordered by descending count, with
// ties broken alphabetically for stable output.
func topExtensions(counts map[string]int, n int) []string {
	exts := make([]string, 0, len(counts))
	for ext := range counts {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool {
		if counts[exts[i]] != counts[exts[j]] {
			return counts[exts[i]] > counts[exts[j]]
		}
		return exts[i] < exts[j]
	})
	if len(exts) > n {
		exts = exts[:n]
	}
	return exts
}
