// Package callres implements the call resolver (C6, Phase 4): turns raw
// per-file call sites into confidence-scored CallEdges using the
// three-tier model (import-resolved/DI-resolved/impl-resolved, same-file,
// fuzzy), generalizing the teacher's ad hoc same-file/same-package/fuzzy
// priority chain into fixed tiers and confidences.
package callres

import (
	"context"
	"sort"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/lang"
	"github.com/aleutian-oss/mycelium/internal/telemetry"
	"github.com/aleutian-oss/mycelium/internal/symtab"
)

const (
	confidenceImportResolved = 0.9
	confidenceDIResolved     = 0.85
	confidenceImplResolved   = 0.85
	confidenceSameFile       = 0.85
	confidenceFuzzySingle    = 0.5
	confidenceFuzzyMultiple  = 0.3

	reasonImportResolved = "import-resolved"
	reasonDIResolved     = "di-resolved"
	reasonImplResolved   = "impl-resolved"
	reasonSameFile       = "same-file"
	reasonFuzzy          = "fuzzy"
)

// RawCall is a call site plus the caller's already-resolved symbol id
// (Phase 2 attributes it to the innermost enclosing symbol; top-level
// calls with no enclosing symbol are dropped before reaching the resolver).
type RawCall struct {
	CallerID   string
	CallerFile string
	lang.CallSite
}

// Resolver holds the read-only indices Phase 4 consults: the symbol
// table, the import edges from Phase 3, and the knowledge graph's
// implementer/embedder maps and symbol kind lookups.
type Resolver struct {
	Symtab *symtab.Table
	Graph  *kgraph.Graph

	// importedFiles[fromFile] = set of files that fromFile imports,
	// rebuilt from the graph's ImportEdges by every SyncImportEdges call.
	importedFiles map[string]map[string]bool

	// constructorParamTypes[callerFile][qualifier] = type name, the C#
	// DI-resolution slot populated from Symbol.Metadata.ConstructorParamTypes.
	constructorParamTypes map[string]map[string]string

	// registry supplies each language's builtin exclusion set; isBuiltin
	// looks it up by the language argument passed to Resolve.
	registry *lang.Registry
}

// NewResolver constructs a resolver against tbl and g. The caller must
// call SyncImportEdges once Phase 3 (import resolution) has finished
// populating g's ImportEdges — the resolver is ordinarily constructed
// earlier, during Phase 2, so constructor params can be registered as
// symbols are assigned ids.
func NewResolver(tbl *symtab.Table, g *kgraph.Graph, registry *lang.Registry) *Resolver {
	r := &Resolver{
		Symtab:                tbl,
		Graph:                 g,
		importedFiles:         make(map[string]map[string]bool),
		constructorParamTypes: make(map[string]map[string]string),
		registry:              registry,
	}
	r.SyncImportEdges()
	return r
}

// SyncImportEdges rebuilds the caller-file -> imported-files index from
// the graph's current ImportEdges. Phase 4 (call resolution) depends on
// this index for Tier A, so it must be called after Phase 3 has added
// every ImportEdge and before any Resolve call.
func (r *Resolver) SyncImportEdges() {
	imported := make(map[string]map[string]bool, len(r.importedFiles))
	for _, e := range r.Graph.ImportEdges() {
		if imported[e.FromFile] == nil {
			imported[e.FromFile] = make(map[string]bool)
		}
		imported[e.FromFile][e.ToFile] = true
	}
	r.importedFiles = imported
}

// RegisterConstructorParams records a symbol's constructor parameter
// types (C# DI), keyed by the declaring file so Tier A's DI special case
// can look up "qualifier -> type -> symbol" within that file's scope.
func (r *Resolver) RegisterConstructorParams(file string, params map[string]string) {
	if len(params) == 0 {
		return
	}
	if r.constructorParamTypes[file] == nil {
		r.constructorParamTypes[file] = make(map[string]string)
	}
	for name, typ := range params {
		r.constructorParamTypes[file][name] = typ
	}
}

// Resolve applies the three-tier model to one raw call, appending every
// resulting edge to the graph and returning them. language is the
// caller's language tag, used to look up the builtin exclusion set.
func (r *Resolver) Resolve(call RawCall, language string) []*kgraph.CallEdge {
	if r.isBuiltin(language, call.Qualifier, call.CalleeName) {
		return nil
	}

	if edges := r.tierA(call); len(edges) > 0 {
		for _, e := range edges {
			r.Graph.AddCallEdge(e)
		}
		telemetry.RecordCallResolution(context.Background(), "A")
		return edges
	}

	if e := r.tierB(call); e != nil {
		r.Graph.AddCallEdge(e)
		telemetry.RecordCallResolution(context.Background(), "B")
		return []*kgraph.CallEdge{e}
	}

	edges := r.tierC(call)
	for _, e := range edges {
		r.Graph.AddCallEdge(e)
	}
	if len(edges) > 0 {
		telemetry.RecordCallResolution(context.Background(), "C")
	} else {
		telemetry.RecordCallResolution(context.Background(), "")
	}
	return edges
}

func (r *Resolver) isBuiltin(language, qualifier, name string) bool {
	if r.registry == nil {
		return false
	}
	a, ok := r.registry.GetByLanguage(language)
	if !ok {
		return false
	}
	excl := a.BuiltinExclusions()
	full := name
	if qualifier != "" {
		full = qualifier + "." + name
	}
	if _, ok := excl[full]; ok {
		return true
	}
	_, ok = excl[name]
	return ok
}

// tierA covers import-resolved, DI-resolved, and impl-resolved (0.9/0.85).
// Unqualified calls (C's "get_item()", Python's "from m import f; f()", a
// bare JS "import {foo} from './bar'; foo()") carry no qualifier at all,
// so they skip straight to the imported-files scan below.
func (r *Resolver) tierA(call RawCall) []*kgraph.CallEdge {
	if call.Qualifier != "" {
		if resolvedFile, ok := r.resolveQualifierToFile(call); ok {
			if id, ok := r.Symtab.ExactLookup(resolvedFile, call.CalleeName); ok {
				edges := []*kgraph.CallEdge{r.edge(call, id, confidenceImportResolved, "A", reasonImportResolved)}
				edges = append(edges, r.implResolvedFanout(call, id)...)
				return edges
			}
		}
		if typeName, ok := r.constructorParamTypes[call.CallerFile][call.Qualifier]; ok {
			if id, ok := r.resolveTypeMember(typeName, call.CalleeName); ok {
				edges := []*kgraph.CallEdge{r.edge(call, id, confidenceDIResolved, "A", reasonDIResolved)}
				edges = append(edges, r.implResolvedFanout(call, id)...)
				return edges
			}
		}
		return nil
	}
	if id, ok := r.resolveUnqualifiedImport(call); ok {
		edges := []*kgraph.CallEdge{r.edge(call, id, confidenceImportResolved, "A", reasonImportResolved)}
		edges = append(edges, r.implResolvedFanout(call, id)...)
		return edges
	}
	return nil
}

// resolveUnqualifiedImport looks for call.CalleeName's definition among
// every file the caller imports, for call shapes that carry no qualifier
// at all (C's plain function calls, Python/JS named imports used bare).
func (r *Resolver) resolveUnqualifiedImport(call RawCall) (string, bool) {
	imported := r.importedFiles[call.CallerFile]
	if len(imported) == 0 {
		return "", false
	}
	files := make([]string, 0, len(imported))
	for file := range imported {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		if id, ok := r.Symtab.ExactLookup(file, call.CalleeName); ok {
			return id, true
		}
	}
	return "", false
}

// resolveQualifierToFile maps a call's qualifier to one of the caller's
// imported files by matching the qualifier against each imported file's
// base name (without extension) — the common "pkg.Func()"/"svc.Method()"
// shape where the qualifier names the imported package/module/instance.
func (r *Resolver) resolveQualifierToFile(call RawCall) (string, bool) {
	imported := r.importedFiles[call.CallerFile]
	if len(imported) == 0 {
		return "", false
	}
	for file := range imported {
		if fileMatchesQualifier(file, call.Qualifier) {
			return file, true
		}
	}
	return "", false
}

func fileMatchesQualifier(file, qualifier string) bool {
	base := baseNameNoExt(file)
	return base == qualifier || base == lowerFirst(qualifier)
}

// implResolvedFanout emits additional Tier A edges to every Class/Struct
// that declares resolvedID's owning interface as a base, when resolvedID
// names an Interface-kind symbol or a member whose parent is one
// (spec.md §4.5).
func (r *Resolver) implResolvedFanout(call RawCall, resolvedID string) []*kgraph.CallEdge {
	isInterface := func(kind string) bool { return kind == "Interface" || kind == lang.KindInterface.String() }
	sym, ok := r.Graph.Symbol(resolvedID)
	if !ok {
		return nil
	}
	ifaceID := resolvedID
	if !isInterface(sym.Kind) {
		parent, ok := r.Graph.Symbol(sym.ParentID)
		if !ok || !isInterface(parent.Kind) {
			return nil
		}
		ifaceID = parent.ID
	}
	var edges []*kgraph.CallEdge
	for _, implID := range r.Graph.Implementers(ifaceID) {
		if implSym, ok := r.Graph.Symbol(implID); ok {
			memberID, ok := r.Symtab.ExactLookup(implSym.FilePath, call.CalleeName)
			if !ok {
				continue
			}
			edges = append(edges, r.edge(call, memberID, confidenceImplResolved, "A", reasonImplResolved))
		}
	}
	return edges
}

// resolveTypeMember finds the member named memberName on the type named
// typeName, by fuzzy-looking-up the type then the member within its file.
func (r *Resolver) resolveTypeMember(typeName, memberName string) (string, bool) {
	for _, typeID := range r.Symtab.FuzzyLookup(typeName) {
		sym, ok := r.Graph.Symbol(typeID)
		if !ok {
			continue
		}
		if id, ok := r.Symtab.ExactLookup(sym.FilePath, memberName); ok {
			return id, true
		}
	}
	return "", false
}

// tierB is the same-file fallback (0.85), skipped entirely when Tier A matched.
func (r *Resolver) tierB(call RawCall) *kgraph.CallEdge {
	id, ok := r.Symtab.ExactLookup(call.CallerFile, call.CalleeName)
	if !ok {
		return nil
	}
	return r.edge(call, id, confidenceSameFile, "B", reasonSameFile)
}

// tierC is the global fuzzy fallback: 0.5 for a single candidate, 0.3 per
// candidate when ambiguous (every candidate kept, not collapsed).
func (r *Resolver) tierC(call RawCall) []*kgraph.CallEdge {
	candidates := r.Symtab.FuzzyLookup(call.CalleeName)
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		return []*kgraph.CallEdge{r.edge(call, candidates[0], confidenceFuzzySingle, "C", reasonFuzzy)}
	}
	edges := make([]*kgraph.CallEdge, 0, len(candidates))
	for _, id := range candidates {
		edges = append(edges, r.edge(call, id, confidenceFuzzyMultiple, "C", reasonFuzzy))
	}
	return edges
}

func (r *Resolver) edge(call RawCall, toID string, confidence float64, tier, reason string) *kgraph.CallEdge {
	return &kgraph.CallEdge{
		From:       call.CallerID,
		To:         toID,
		Confidence: confidence,
		Tier:       tier,
		Reason:     reason,
		Line:       call.Line,
	}
}

func baseNameNoExt(p string) string {
	slash := -1
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			slash = i
			break
		}
	}
	name := p[slash+1:]
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
