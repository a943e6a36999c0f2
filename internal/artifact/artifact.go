// Package artifact serializes a pipeline.Result into the single JSON
// document spec.md §6 describes: a fixed top-level key order, ISO-8601
// UTC timestamps, forward-slash repo-relative paths, and lowercase
// no-dot language tags. This package is a thin, mechanical collaborator
// by design (spec.md §1 names serialization external to the engineering
// judgment in C1-C9) — grounded on the teacher's own pattern of keeping
// a build result's shape separate from how it gets written out
// (services/trace/graph/build_result.go's BuildStats alongside
// Builder.Build, never itself doing I/O).
package artifact

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/pipeline"
)

const schemaVersion = "1.0"

// Metadata describes the run that produced the artifact.
type Metadata struct {
	Version     string `json:"version"`
	GeneratedAt string `json:"generated_at"`
	RepoRoot    string `json:"repo_root"`
	CommitHash  string `json:"commit_hash,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

// Stats is the top-level count summary, present even for an empty repo
// (spec.md §8's boundary behaviour: `stats.files = 0`).
type Stats struct {
	Files       int `json:"files"`
	Folders     int `json:"folders"`
	Symbols     int `json:"symbols"`
	Imports     int `json:"imports"`
	Calls       int `json:"calls"`
	Communities int `json:"communities"`
	Processes   int `json:"processes"`
}

// Structure is the file/folder topology from Phase 1.
type Structure struct {
	Files   []*kgraph.FileNode   `json:"files"`
	Folders []*kgraph.FolderNode `json:"folders"`
}

// Artifact is the full output document. Field declaration order fixes
// the JSON key order spec.md §6 requires (`version`, `metadata`,
// `stats`, `structure`, `symbols`, `imports`, `calls`, `communities`,
// `processes`); encoding/json marshals struct fields in declaration
// order, so no custom MarshalJSON is needed to pin it.
type Artifact struct {
	Version     string                   `json:"version"`
	Metadata    Metadata                 `json:"metadata"`
	Stats       Stats                    `json:"stats"`
	Structure   Structure                `json:"structure"`
	Symbols     []*kgraph.SymbolNode     `json:"symbols"`
	Imports     []*kgraph.ImportEdge     `json:"imports"`
	Calls       []*kgraph.CallEdge       `json:"calls"`
	Communities []*kgraph.Community      `json:"communities"`
	Processes   []*kgraph.Process        `json:"processes"`
}

// Build assembles an Artifact from a completed pipeline run. It never
// fails: an empty or error-laden Result still produces a well-formed,
// zero-count document per spec.md §7's "Empty-repo" and
// "Internal-invariant-violation" policies (the latter is caught by the
// pipeline itself, which returns no Result on a fatal error).
func Build(result *pipeline.Result, repoRoot string, generatedAt time.Time) *Artifact {
	g := result.Graph

	files := g.Files()
	folders := g.Folders()
	symbols := g.Symbols()
	importEdges := g.ImportEdges()
	callEdges := g.CallEdges()
	communities := g.Communities()
	processes := g.Processes()

	return &Artifact{
		Version: schemaVersion,
		Metadata: Metadata{
			Version:     schemaVersion,
			GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
			RepoRoot:    normalizeSlashes(repoRoot),
			CommitHash:  resolveCommitHash(repoRoot),
			DurationMS:  result.Duration.Milliseconds(),
		},
		Stats: Stats{
			Files:       len(files),
			Folders:     len(folders),
			Symbols:     len(symbols),
			Imports:     len(importEdges),
			Calls:       len(callEdges),
			Communities: len(communities),
			Processes:   len(processes),
		},
		Structure:   Structure{Files: files, Folders: folders},
		Symbols:     symbols,
		Imports:     importEdges,
		Calls:       callEdges,
		Communities: communities,
		Processes:   processes,
	}
}

// Write encodes the artifact as indented UTF-8 JSON to w.
func Write(w io.Writer, a *Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(a)
}

// WriteFile writes the artifact to path, creating parent directories as
// needed.
func WriteFile(path string, a *Artifact) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Write(f, a)
}

func normalizeSlashes(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// resolveCommitHash follows spec.md §6's "consulted opportunistically"
// contract: GIT_COMMIT first (CI environments set this directly, no
// filesystem walk needed), then a direct .git/HEAD read, resolving one
// level of symbolic ref indirection. Any failure is silent and non-fatal,
// mirroring the teacher's own getGitCommitHash (logs at debug, returns
// empty rather than failing the caller).
func resolveCommitHash(repoRoot string) string {
	if v := os.Getenv("GIT_COMMIT"); v != "" {
		return strings.TrimSpace(v)
	}

	headPath := filepath.Join(repoRoot, ".git", "HEAD")
	head, err := os.ReadFile(headPath)
	if err != nil {
		slog.Debug("commit hash unavailable", slog.String("repo_root", repoRoot), slog.String("error", err.Error()))
		return ""
	}
	content := strings.TrimSpace(string(head))

	const refPrefix = "ref: "
	if !strings.HasPrefix(content, refPrefix) {
		return content
	}

	refPath := filepath.Join(repoRoot, ".git", filepath.FromSlash(strings.TrimPrefix(content, refPrefix)))
	sha, err := os.ReadFile(refPath)
	if err != nil {
		slog.Debug("commit hash ref unresolved", slog.String("ref_path", refPath), slog.String("error", err.Error()))
		return ""
	}
	return strings.TrimSpace(string(sha))
}
