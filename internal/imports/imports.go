// Package imports implements the import resolver (C5, Phase 3): a
// per-language strategy matrix that turns raw lang.Import records into
// file-to-file ImportEdges, plus .NET project/solution parsing that feeds
// the namespace index and ProjectReference/PackageReference lists.
package imports

import (
	"path"
	"sort"
	"strings"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/lang"
	"github.com/aleutian-oss/mycelium/internal/symtab"
)

// FileImports is a file's raw parse-phase import list, keyed by its
// repo-relative path and language tag.
type FileImports struct {
	Path     string
	Language string
	Imports  []lang.Import
}

// Unresolved records an import that no strategy could map to a file, kept
// for diagnostics without failing the phase (spec.md §4.4).
type Unresolved struct {
	FromFile string
	RawText  string
	Reason   string
}

// Resolver resolves FileImports into Graph ImportEdges. ModulePrefix is
// the Go module path (from go.mod) stripped from import paths before
// directory resolution; AllFiles maps every known repo-relative file
// path to a boolean true, used for existence probes.
type Resolver struct {
	ModulePrefix string
	AllFiles     map[string]bool // repo-relative path -> exists
	Symtab       *symtab.Table   // namespace index, populated during Phase 2 for C#/VB.NET

	Unresolved []Unresolved
}

func NewResolver(allFiles []string, modulePrefix string, tbl *symtab.Table) *Resolver {
	set := make(map[string]bool, len(allFiles))
	for _, f := range allFiles {
		set[f] = true
	}
	return &Resolver{ModulePrefix: modulePrefix, AllFiles: set, Symtab: tbl}
}

// Resolve dispatches fi to the strategy for its language and appends any
// resulting edges to g.
func (r *Resolver) Resolve(g *kgraph.Graph, fi FileImports) {
	switch fi.Language {
	case "cs", "vb":
		r.resolveDotNet(g, fi)
	case "py":
		r.resolvePython(g, fi)
	case "ts", "js":
		r.resolveJSFamily(g, fi)
	case "java":
		r.resolveJava(g, fi)
	case "go":
		r.resolveGo(g, fi)
	case "rs":
		r.resolveRust(g, fi)
	case "c", "cpp":
		r.resolveCFamily(g, fi)
	default:
		for _, imp := range fi.Imports {
			r.markUnresolved(fi.Path, imp.RawText, "unknown language")
		}
	}
}

func (r *Resolver) markUnresolved(fromFile, raw, reason string) {
	r.Unresolved = append(r.Unresolved, Unresolved{FromFile: fromFile, RawText: raw, Reason: reason})
}

func (r *Resolver) addEdge(g *kgraph.Graph, from, to, raw string) {
	g.AddImportEdge(&kgraph.ImportEdge{FromFile: from, ToFile: to, RawText: raw})
}

// resolveDotNet looks up the using/Imports namespace in the namespace
// index; every file registered under that namespace gets an edge.
func (r *Resolver) resolveDotNet(g *kgraph.Graph, fi FileImports) {
	if r.Symtab == nil {
		return
	}
	for _, imp := range fi.Imports {
		ns := imp.Path
		if ns == "" {
			ns = imp.RawText
		}
		files := r.Symtab.FilesForNamespace(ns)
		if len(files) == 0 {
			r.markUnresolved(fi.Path, imp.RawText, "namespace not indexed")
			continue
		}
		for _, f := range files {
			if f == fi.Path {
				continue
			}
			r.addEdge(g, fi.Path, f, imp.RawText)
		}
	}
}

// resolvePython turns a dotted module path into a directory path and
// resolves it against every inferred source root (the parent of any
// directory containing __init__.py, plus the repo root).
func (r *Resolver) resolvePython(g *kgraph.Graph, fi FileImports) {
	roots := r.pythonSourceRoots()
	for _, imp := range fi.Imports {
		dotted := imp.Path
		if imp.IsRelative {
			if resolved, ok := r.resolvePythonRelative(fi.Path, imp); ok {
				r.addEdge(g, fi.Path, resolved, imp.RawText)
				continue
			}
			r.markUnresolved(fi.Path, imp.RawText, "relative import not found")
			continue
		}
		resolved := false
		for _, root := range roots {
			rel := path.Join(root, strings.ReplaceAll(dotted, ".", "/"))
			if target, ok := r.firstExisting(rel+".py", rel+"/__init__.py"); ok {
				r.addEdge(g, fi.Path, target, imp.RawText)
				resolved = true
				break
			}
		}
		if !resolved {
			r.markUnresolved(fi.Path, imp.RawText, "module not found under any source root")
		}
	}
}

func (r *Resolver) pythonSourceRoots() []string {
	roots := map[string]bool{".": true}
	for f := range r.AllFiles {
		if path.Base(f) == "__init__.py" {
			roots[path.Dir(path.Dir(f))] = true
		}
	}
	out := make([]string, 0, len(roots))
	for root := range roots {
		out = append(out, root)
	}
	sort.Strings(out)
	return out
}

func (r *Resolver) resolvePythonRelative(fromFile string, imp lang.Import) (string, bool) {
	dir := path.Dir(fromFile)
	segments := strings.TrimLeft(imp.Path, ".")
	upLevels := len(imp.Path) - len(segments)
	for i := 1; i < upLevels; i++ {
		dir = path.Dir(dir)
	}
	if segments == "" {
		return r.firstExisting(dir + "/__init__.py")
	}
	rel := path.Join(dir, strings.ReplaceAll(segments, ".", "/"))
	return r.firstExisting(rel+".py", rel+"/__init__.py")
}

// resolveJSFamily resolves relative specifiers against the importing
// file's directory, probing extensions in the order spec.md §4.4 lists.
var jsExtensionProbeOrder = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

func (r *Resolver) resolveJSFamily(g *kgraph.Graph, fi FileImports) {
	dir := path.Dir(fi.Path)
	for _, imp := range fi.Imports {
		if !imp.IsRelative {
			r.markUnresolved(fi.Path, imp.RawText, "bare specifier left unresolved")
			continue
		}
		base := path.Join(dir, imp.Path)
		if target, ok := r.probeJSExtensions(base); ok {
			r.addEdge(g, fi.Path, target, imp.RawText)
			continue
		}
		if target, ok := r.probeJSExtensions(base + "/index"); ok {
			r.addEdge(g, fi.Path, target, imp.RawText)
			continue
		}
		r.markUnresolved(fi.Path, imp.RawText, "no extension probe matched")
	}
}

func (r *Resolver) probeJSExtensions(base string) (string, bool) {
	if r.AllFiles[base] {
		return base, true
	}
	for _, ext := range jsExtensionProbeOrder {
		if r.AllFiles[base+ext] {
			return base + ext, true
		}
	}
	return "", false
}

// resolveJava maps com.x.Y to com/x/Y.java, falling back to a basename
// search across the whole repository if the direct path lookup fails.
func (r *Resolver) resolveJava(g *kgraph.Graph, fi FileImports) {
	for _, imp := range fi.Imports {
		if imp.IsWildcard {
			pkgDir := strings.ReplaceAll(imp.Path, ".", "/")
			if files := r.filesUnderDir(pkgDir); len(files) > 0 {
				for _, f := range files {
					r.addEdge(g, fi.Path, f, imp.RawText)
				}
				continue
			}
			r.markUnresolved(fi.Path, imp.RawText, "wildcard package has no files")
			continue
		}
		rel := strings.ReplaceAll(imp.Path, ".", "/") + ".java"
		if r.AllFiles[rel] {
			r.addEdge(g, fi.Path, rel, imp.RawText)
			continue
		}
		base := path.Base(rel)
		if target, ok := r.basenameSearch(base); ok {
			r.addEdge(g, fi.Path, target, imp.RawText)
			continue
		}
		r.markUnresolved(fi.Path, imp.RawText, "class file not found by path or basename")
	}
}

func (r *Resolver) basenameSearch(base string) (string, bool) {
	for f := range r.AllFiles {
		if path.Base(f) == base {
			return f, true
		}
	}
	return "", false
}

func (r *Resolver) filesUnderDir(dir string) []string {
	var out []string
	prefix := dir + "/"
	for f := range r.AllFiles {
		if strings.HasPrefix(f, prefix) && path.Dir(f) == dir {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// resolveGo strips the go.mod module prefix from the import path and
// resolves the remainder to a directory, mapping every .go file in it.
func (r *Resolver) resolveGo(g *kgraph.Graph, fi FileImports) {
	for _, imp := range fi.Imports {
		importPath := imp.Path
		if r.ModulePrefix == "" || !strings.HasPrefix(importPath, r.ModulePrefix) {
			r.markUnresolved(fi.Path, imp.RawText, "external module, outside repo")
			continue
		}
		dir := strings.TrimPrefix(importPath, r.ModulePrefix)
		dir = strings.TrimPrefix(dir, "/")
		if dir == "" {
			dir = "."
		}
		files := r.filesUnderDirWithExt(dir, ".go")
		if len(files) == 0 {
			r.markUnresolved(fi.Path, imp.RawText, "package directory has no go files")
			continue
		}
		for _, f := range files {
			if f == fi.Path {
				continue
			}
			r.addEdge(g, fi.Path, f, imp.RawText)
		}
	}
}

func (r *Resolver) filesUnderDirWithExt(dir, ext string) []string {
	var out []string
	for f := range r.AllFiles {
		if path.Dir(f) == dir && path.Ext(f) == ext {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// resolveRust resolves crate::/super::/self:: paths against the module
// tree inferred from file layout, shortening progressively if the exact
// path is not indexed. `crate` maps to the conventional `src` root;
// `super` walks up one module directory per occurrence; `self` is the
// current file's own module directory.
func (r *Resolver) resolveRust(g *kgraph.Graph, fi FileImports) {
	currentModDir := rustModDir(fi.Path)
	for _, imp := range fi.Imports {
		segments := strings.Split(imp.Path, "::")
		baseDir := currentModDir
		if len(segments) > 0 {
			switch segments[0] {
			case "crate":
				baseDir = "src"
				segments = segments[1:]
			case "self":
				segments = segments[1:]
			case "super":
				for len(segments) > 0 && segments[0] == "super" {
					baseDir = path.Dir(baseDir)
					segments = segments[1:]
				}
			}
		}
		resolved := false
		for n := len(segments); n >= 1; n-- {
			candidate := path.Join(baseDir, strings.Join(segments[:n], "/"))
			if target, ok := r.firstExisting(candidate+".rs", candidate+"/mod.rs"); ok {
				r.addEdge(g, fi.Path, target, imp.RawText)
				resolved = true
				break
			}
		}
		if !resolved {
			r.markUnresolved(fi.Path, imp.RawText, "module path not indexed at any segment length")
		}
	}
}

// rustModDir is the directory a file's own module tree hangs off:
// mod.rs/lib.rs/main.rs declare their siblings' directory as their module
// dir, while a plain foo.rs's siblings live alongside it.
func rustModDir(filePath string) string {
	return path.Dir(filePath)
}

// resolveCFamily resolves #include "..." relative to the including file,
// then to each known source directory (heuristically: every directory
// that contains at least one C/C++ file). Angle-bracket includes arrive
// with IsRelative false and are skipped.
func (r *Resolver) resolveCFamily(g *kgraph.Graph, fi FileImports) {
	dir := path.Dir(fi.Path)
	srcDirs := r.cSourceDirs()
	for _, imp := range fi.Imports {
		if !imp.IsRelative {
			continue // system header, ignored per spec.md §4.4
		}
		if target, ok := r.firstExisting(path.Join(dir, imp.Path)); ok {
			r.addEdge(g, fi.Path, target, imp.RawText)
			r.addCorrespondingSourceEdge(g, fi.Path, target, imp.RawText)
			continue
		}
		resolved := false
		for _, sd := range srcDirs {
			if target, ok := r.firstExisting(path.Join(sd, imp.Path)); ok {
				r.addEdge(g, fi.Path, target, imp.RawText)
				r.addCorrespondingSourceEdge(g, fi.Path, target, imp.RawText)
				resolved = true
				break
			}
		}
		if !resolved {
			r.markUnresolved(fi.Path, imp.RawText, "header not found relative to file or any source dir")
		}
	}
}

// addCorrespondingSourceEdge covers the common "service.h declares,
// service.c defines" split: a function prototype in a header produces no
// symbol (only function_definition nodes do), so the call resolver's
// imported-files scan needs an edge straight to the defining .c/.cpp file,
// not just the included header, or every call through a header never
// resolves past Tier A at all.
func (r *Resolver) addCorrespondingSourceEdge(g *kgraph.Graph, fromFile, headerTarget, rawText string) {
	if path.Ext(headerTarget) != ".h" && path.Ext(headerTarget) != ".hpp" {
		return
	}
	base := strings.TrimSuffix(headerTarget, path.Ext(headerTarget))
	for _, ext := range []string{".c", ".cpp", ".cc", ".cxx"} {
		if source, ok := r.firstExisting(base + ext); ok {
			r.addEdge(g, fromFile, source, rawText)
			return
		}
	}
}

func (r *Resolver) cSourceDirs() []string {
	set := map[string]bool{}
	for f := range r.AllFiles {
		switch path.Ext(f) {
		case ".c", ".h", ".cpp", ".hpp", ".cc", ".cxx":
			set[path.Dir(f)] = true
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (r *Resolver) firstExisting(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if r.AllFiles[c] {
			return c, true
		}
	}
	return "", false
}
