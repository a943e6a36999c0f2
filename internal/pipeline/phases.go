package pipeline

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/mod/modfile"
	"golang.org/x/sync/errgroup"

	"github.com/aleutian-oss/mycelium/internal/callres"
	"github.com/aleutian-oss/mycelium/internal/imports"
	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/lang"
	"github.com/aleutian-oss/mycelium/internal/symtab"
	"github.com/aleutian-oss/mycelium/internal/walker"
)

const maxExtractionWorkers = 8

// extractPhase runs every analyser concurrently, bounded by
// maxExtractionWorkers, collecting one ParseResult per file. A single
// file's parse failure is recorded as a FileError and does not abort the
// phase.
func extractPhase(ctx context.Context, repoRoot string, files []string, registry *lang.Registry, progress ProgressFunc) ([]*lang.ParseResult, []FileError) {
	results := make([]*lang.ParseResult, len(files))
	var fileErrs []FileError
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxExtractionWorkers)
	var processed int

	for i, relPath := range files {
		i, relPath := i, relPath
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			a, ok := registry.GetByExtension(strings.ToLower(filepath.Ext(relPath)))
			if !ok {
				return nil
			}
			content, err := os.ReadFile(filepath.Join(repoRoot, relPath))
			if err != nil {
				mu.Lock()
				fileErrs = append(fileErrs, FileError{FilePath: relPath, Err: err})
				mu.Unlock()
				return nil
			}
			pr, err := a.Parse(gctx, relPath, content)
			if err != nil {
				mu.Lock()
				fileErrs = append(fileErrs, FileError{FilePath: relPath, Err: err})
				mu.Unlock()
				return nil
			}
			results[i] = pr

			mu.Lock()
			processed++
			n := processed
			mu.Unlock()
			if progress != nil {
				progress(Progress{Phase: ProgressPhaseExtracting, FilesTotal: len(files), FilesProcessed: n})
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*lang.ParseResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, fileErrs
}

// declSite pairs a parsed symbol with the final id assigned to it and
// the file it came from, kept around for the second resolution pass.
type declSite struct {
	sym      *lang.Symbol
	id       string
	filePath string
}

// assignIDs is the deterministic serial pass spec.md §5 requires: files
// sorted by path, symbols within a file assigned ids in declaration
// order (each file's top-level symbols are stably sorted by StartLine
// first, since some analysers group them by kind). Each
// symbol is recorded into the graph and symbol table as it's numbered;
// a second pass then resolves ParentName/Implements/Extends into graph
// relationships and edges, since a base type may be declared after its
// user within the same file or in another file entirely. It returns the
// set of final ids that carry a framework marker (ASP.NET attribute,
// controller base, hosted-service impl), for the process tracer's
// FrameworkSignal.
func assignIDs(g *kgraph.Graph, tbl *symtab.Table, callresResolver *callres.Resolver, results []*lang.ParseResult) map[string]bool {
	sort.Slice(results, func(i, j int) bool { return results[i].FilePath < results[j].FilePath })

	var sites []declSite
	frameworkIDs := make(map[string]bool)
	n := 0

	var walkSymbols func(sym *lang.Symbol, filePath, language string)
	walkSymbols = func(sym *lang.Symbol, filePath, language string) {
		n++
		id := symbolID(n)
		sym.FinalID = id
		sites = append(sites, declSite{sym: sym, id: id, filePath: filePath})

		tbl.Insert(filePath, sym.Name, id)
		if sym.Metadata.Namespace != "" {
			tbl.IndexNamespace(sym.Metadata.Namespace, filePath)
		}
		if len(sym.Metadata.ConstructorParamTypes) > 0 {
			callresResolver.RegisterConstructorParams(filePath, sym.Metadata.ConstructorParamTypes)
		}
		isFramework := len(sym.Metadata.FrameworkAttributes) > 0 || strings.HasSuffix(sym.Metadata.Extends, "Controller")
		for _, base := range sym.Metadata.Implements {
			if base == "IHostedService" || strings.HasSuffix(base, "Controller") {
				isFramework = true
			}
		}
		if isFramework {
			frameworkIDs[id] = true
		}

		g.AddSymbol(&kgraph.SymbolNode{
			ID:         id,
			Name:       sym.Name,
			Kind:       sym.Kind.String(),
			FilePath:   filePath,
			Line:       sym.StartLine,
			Language:   language,
			Visibility: sym.Visibility.String(),
			Exported:   sym.Exported,
		})

		for _, child := range sym.Children {
			walkSymbols(child, filePath, language)
		}
	}

	for _, pr := range results {
		syms := pr.Symbols
		sort.SliceStable(syms, func(i, j int) bool { return syms[i].StartLine < syms[j].StartLine })
		for _, sym := range syms {
			walkSymbols(sym, pr.FilePath, pr.Language)
		}
	}

	// Name indices for the second pass: same-file first (the common
	// case — a nested type referencing its own outer type, or two
	// classes in one file), falling back to a repo-wide first match
	// since base types are frequently declared in another file.
	byFileName := make(map[string]map[string]string)
	byName := make(map[string]string)
	for _, s := range sites {
		if byFileName[s.filePath] == nil {
			byFileName[s.filePath] = make(map[string]string)
		}
		byFileName[s.filePath][s.sym.Name] = s.id
		if _, exists := byName[s.sym.Name]; !exists {
			byName[s.sym.Name] = s.id
		}
	}
	lookup := func(filePath, name string) (string, bool) {
		if id, ok := byFileName[filePath][name]; ok {
			return id, true
		}
		id, ok := byName[name]
		return id, ok
	}

	for _, s := range sites {
		if s.sym.ParentName != "" {
			if parentID, ok := byFileName[s.filePath][s.sym.ParentName]; ok {
				if node, ok := g.Symbol(s.id); ok {
					node.ParentID = parentID
				}
			}
		}
		for _, ifaceName := range s.sym.Metadata.Implements {
			if ifaceID, ok := lookup(s.filePath, ifaceName); ok {
				g.AddImplements(ifaceID, s.id)
			}
		}
		if s.sym.Metadata.Extends != "" {
			if baseID, ok := lookup(s.filePath, s.sym.Metadata.Extends); ok {
				g.AddEmbeds(baseID, s.id)
			}
		}
	}

	return frameworkIDs
}

func symbolID(n int) string {
	return "sym_" + itoa(n)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

// resolveCalls runs Phase 4 over every file's raw call sites, attributing
// each to the innermost enclosing symbol (CallSite.CallerLocalID, set by
// the analyser). Calls with no enclosing symbol — top-level statements
// outside any declaration — are dropped, since spec.md's call graph is
// symbol-to-symbol, not file-to-symbol.
func resolveCalls(resolver *callres.Resolver, results []*lang.ParseResult) {
	for _, pr := range results {
		enclosing := buildEnclosingIndex(pr)
		for _, call := range pr.Calls {
			callerID, ok := enclosing[call.CallerLocalID]
			if !ok {
				continue
			}
			resolver.Resolve(callres.RawCall{
				CallerID:   callerID,
				CallerFile: pr.FilePath,
				CallSite:   call,
			}, pr.Language)
		}
	}
}

// buildEnclosingIndex maps a symbol's LocalID (as used by CallSite's
// CallerLocalID) to its final sym_<n> id for one parsed file.
func buildEnclosingIndex(pr *lang.ParseResult) map[string]string {
	index := make(map[string]string)
	var walk func(sym *lang.Symbol)
	walk = func(sym *lang.Symbol) {
		index[sym.LocalID()] = sym.FinalID
		for _, c := range sym.Children {
			walk(c)
		}
	}
	for _, sym := range pr.Symbols {
		walk(sym)
	}
	return index
}

func detectGoModulePrefix(repoRoot string) string {
	content, err := os.ReadFile(filepath.Join(repoRoot, "go.mod"))
	if err != nil {
		return ""
	}
	f, err := modfile.Parse("go.mod", content, nil)
	if err != nil || f.Module == nil {
		return ""
	}
	return f.Module.Mod.Path
}

// applyDotNetProjects parses every discovered .sln/.csproj/.vbproj and
// feeds RootNamespace/ProjectReference/PackageReference into the graph
// and namespace index (spec.md §4.4's C#/VB.NET strategy row). Solution
// files are parsed only to validate project membership; csproj/vbproj
// carry the data the namespace index actually needs.
func applyDotNetProjects(repoRoot string, wr *walker.Result, g *kgraph.Graph, tbl *symtab.Table) {
	for _, slnRel := range wr.SlnFiles {
		if _, err := imports.ParseSlnFile(filepath.Join(repoRoot, slnRel), slnRel); err != nil {
			continue
		}
	}

	projFiles := append(append([]string{}, wr.CsprojFiles...), wr.VbprojFiles...)
	for _, projRel := range projFiles {
		content, err := os.ReadFile(filepath.Join(repoRoot, projRel))
		if err != nil {
			continue
		}
		info, err := imports.ParseCsproj(projRel, content)
		if err != nil {
			continue
		}
		sourceFiles := sourceFilesUnderProject(path.Dir(projRel), wr)
		imports.ApplyProjectInfo(g, tbl, info, sourceFiles)
	}
}

func sourceFilesUnderProject(projectDir string, wr *walker.Result) []string {
	var out []string
	for _, f := range wr.ParseableFiles {
		if !strings.HasPrefix(f, projectDir+"/") {
			continue
		}
		switch path.Ext(f) {
		case ".cs", ".vb":
			out = append(out, f)
		}
	}
	return out
}
