// Package walker implements the structure walker (C4, Phase 1): a
// recursive directory traversal producing FileNode/FolderNode entries,
// skipping a fixed ignore set plus caller-supplied globs, and collecting
// .NET project/solution files into side lists for Phase 3.
package walker

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/lang"
)

// DefaultIgnoreSet is skipped regardless of caller-supplied excludes.
var DefaultIgnoreSet = map[string]struct{}{
	".git": {}, "bin": {}, "obj": {}, "node_modules": {}, "packages": {},
	".vs": {}, ".idea": {}, "TestResults": {}, "dist": {}, "build": {},
	"target": {}, ".venv": {}, "__pycache__": {}, ".mypy_cache": {}, ".pytest_cache": {},
}

// DefaultMaxFileSize is the non-parseable threshold (1 MiB).
const DefaultMaxFileSize = 1 << 20

type Options struct {
	Root          string
	ExcludeGlobs  []string
	MaxFileSize   int64
	Registry      *lang.Registry // used only to map extension -> language tag
}

func DefaultOptions(root string, registry *lang.Registry) Options {
	return Options{Root: root, MaxFileSize: DefaultMaxFileSize, Registry: registry}
}

// Result is Phase 1's total output.
type Result struct {
	Graph         *kgraph.Graph
	SlnFiles      []string
	CsprojFiles   []string
	VbprojFiles   []string
	ParseableFiles []string // repo-relative paths, sorted by the caller before Phase 2 id assignment
}

// Walk recursively enumerates opts.Root. A single entry's I/O error is
// logged and skipped; the walk continues (spec.md §4.1 failure
// semantics). An empty repository produces an empty-but-well-formed
// Result.
func Walk(opts Options, g *kgraph.Graph) (*Result, error) {
	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "walk", Path: opts.Root, Err: fs.ErrInvalid}
	}

	result := &Result{Graph: g}
	folderFileCounts := make(map[string]int)

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	walkErr := filepath.WalkDir(opts.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("walker: skipping entry after I/O error", slog.String("path", p), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(opts.Root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if shouldIgnore(d.Name(), opts.ExcludeGlobs) {
				return fs.SkipDir
			}
			return nil
		}

		if shouldIgnoreFile(rel, opts.ExcludeGlobs) {
			return nil
		}

		fi, statErr := d.Info()
		if statErr != nil {
			slog.Warn("walker: stat failed, skipping", slog.String("path", p), slog.Any("error", statErr))
			return nil
		}

		ext := strings.ToLower(filepath.Ext(rel))
		switch ext {
		case ".sln":
			result.SlnFiles = append(result.SlnFiles, rel)
		case ".csproj":
			result.CsprojFiles = append(result.CsprojFiles, rel)
		case ".vbproj":
			result.VbprojFiles = append(result.VbprojFiles, rel)
		}

		language := ""
		if opts.Registry != nil {
			if a, ok := opts.Registry.GetByExtension(ext); ok {
				language = a.Language()
			}
		}

		parseable := fi.Size() <= maxSize
		node := &kgraph.FileNode{
			Path:      rel,
			Language:  language,
			ByteSize:  fi.Size(),
			LineCount: 0,
			Parseable: parseable,
		}
		if parseable && language != "" {
			if content, readErr := os.ReadFile(p); readErr == nil {
				node.LineCount = countLines(content)
				result.ParseableFiles = append(result.ParseableFiles, rel)
			} else {
				slog.Warn("walker: read failed, recording file-node only", slog.String("path", p), slog.Any("error", readErr))
				node.Parseable = false
			}
		}
		g.AddFile(node)

		folderFileCounts[folderOf(rel)]++
		return nil
	})
	if walkErr != nil {
		return result, walkErr
	}

	for folder, count := range folderFileCounts {
		g.AddFolder(&kgraph.FolderNode{Path: folder, FileCount: count})
	}

	return result, nil
}

func folderOf(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." {
		return "/"
	}
	return dir + "/"
}

func shouldIgnore(segment string, excludeGlobs []string) bool {
	if _, ok := DefaultIgnoreSet[segment]; ok {
		return true
	}
	for _, glob := range excludeGlobs {
		if ok, _ := filepath.Match(glob, segment); ok {
			return true
		}
	}
	return false
}

func shouldIgnoreFile(relPath string, excludeGlobs []string) bool {
	segments := strings.Split(relPath, "/")
	for _, seg := range segments[:len(segments)-1] {
		if shouldIgnore(seg, excludeGlobs) {
			return true
		}
	}
	base := segments[len(segments)-1]
	for _, glob := range excludeGlobs {
		if ok, _ := filepath.Match(glob, base); ok {
			return true
		}
		if ok, _ := filepath.Match(glob, relPath); ok {
			return true
		}
	}
	return false
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	return n
}
