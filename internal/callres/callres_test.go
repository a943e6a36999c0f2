package callres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/lang"
	"github.com/aleutian-oss/mycelium/internal/symtab"
)

func TestTierA_ImportResolved(t *testing.T) {
	g := kgraph.New()
	g.AddImportEdge(&kgraph.ImportEdge{FromFile: "main.go", ToFile: "service/service.go"})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_2", Name: "CreateItem", Kind: "Method", FilePath: "service/service.go"})

	tbl := symtab.New()
	tbl.Insert("service/service.go", "CreateItem", "sym_2")

	r := NewResolver(tbl, g, lang.NewDefaultRegistry())
	call := RawCall{
		CallerID: "sym_1", CallerFile: "main.go",
		CallSite: lang.CallSite{CalleeName: "CreateItem", Qualifier: "service", Line: 10},
	}

	edges := r.Resolve(call, "go")
	require.Len(t, edges, 1)
	assert.Equal(t, "A", edges[0].Tier)
	assert.Equal(t, "import-resolved", edges[0].Reason)
	assert.Equal(t, 0.9, edges[0].Confidence)
	assert.Equal(t, "sym_2", edges[0].To)
}

func TestTierA_ImplResolvedFanout(t *testing.T) {
	g := kgraph.New()
	g.AddImportEdge(&kgraph.ImportEdge{FromFile: "main.go", ToFile: "repo/repo.go"})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_iface", Name: "Repository", Kind: "Interface", FilePath: "repo/repo.go"})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_iface_save", Name: "Save", Kind: "Method", FilePath: "repo/repo.go", ParentID: "sym_iface"})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_impl", Name: "SqlRepository", Kind: "Class", FilePath: "repo/sql_repo.go"})
	g.AddImplements("sym_iface", "sym_impl")

	tbl := symtab.New()
	tbl.Insert("repo/repo.go", "Save", "sym_iface_save")
	tbl.Insert("repo/sql_repo.go", "Save", "sym_impl_save")

	r := NewResolver(tbl, g, lang.NewDefaultRegistry())
	// qualifier "repo" resolves to repo/repo.go whose Save entry is found first (interface method)
	call := RawCall{
		CallerID: "sym_caller", CallerFile: "main.go",
		CallSite: lang.CallSite{CalleeName: "Save", Qualifier: "repo", Line: 5},
	}

	edges := r.Resolve(call, "go")
	require.Len(t, edges, 2)
	var reasons []string
	for _, e := range edges {
		reasons = append(reasons, e.Reason)
	}
	assert.Contains(t, reasons, "import-resolved")
	assert.Contains(t, reasons, "impl-resolved")
}

func TestTierB_SameFileFallback(t *testing.T) {
	g := kgraph.New()
	tbl := symtab.New()
	tbl.Insert("main.go", "helper", "sym_helper")

	r := NewResolver(tbl, g, lang.NewDefaultRegistry())
	call := RawCall{
		CallerID: "sym_caller", CallerFile: "main.go",
		CallSite: lang.CallSite{CalleeName: "helper", Line: 3},
	}

	edges := r.Resolve(call, "go")
	require.Len(t, edges, 1)
	assert.Equal(t, "B", edges[0].Tier)
	assert.Equal(t, 0.85, edges[0].Confidence)
}

func TestTierC_SingleFuzzyCandidate(t *testing.T) {
	g := kgraph.New()
	tbl := symtab.New()
	tbl.Insert("other/file.go", "Process", "sym_process")

	r := NewResolver(tbl, g, lang.NewDefaultRegistry())
	call := RawCall{
		CallerID: "sym_caller", CallerFile: "main.go",
		CallSite: lang.CallSite{CalleeName: "Process", Line: 7},
	}

	edges := r.Resolve(call, "go")
	require.Len(t, edges, 1)
	assert.Equal(t, "C", edges[0].Tier)
	assert.Equal(t, 0.5, edges[0].Confidence)
}

func TestTierC_MultipleFuzzyCandidatesPreserveAmbiguity(t *testing.T) {
	g := kgraph.New()
	tbl := symtab.New()
	tbl.Insert("a.go", "Run", "sym_a")
	tbl.Insert("b.go", "Run", "sym_b")

	r := NewResolver(tbl, g, lang.NewDefaultRegistry())
	call := RawCall{
		CallerID: "sym_caller", CallerFile: "main.go",
		CallSite: lang.CallSite{CalleeName: "Run", Line: 9},
	}

	edges := r.Resolve(call, "go")
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, "C", e.Tier)
		assert.Equal(t, 0.3, e.Confidence)
	}
}

func TestBuiltinExclusion_DiscardsCall(t *testing.T) {
	g := kgraph.New()
	tbl := symtab.New()
	tbl.Insert("other.go", "Println", "sym_println")

	r := NewResolver(tbl, g, lang.NewDefaultRegistry())
	call := RawCall{
		CallerID: "sym_caller", CallerFile: "main.go",
		CallSite: lang.CallSite{CalleeName: "Println", Qualifier: "fmt", Line: 2},
	}

	edges := r.Resolve(call, "go")
	assert.Empty(t, edges)
}

func TestNoTierMatches_CallDiscarded(t *testing.T) {
	g := kgraph.New()
	tbl := symtab.New()

	r := NewResolver(tbl, g, lang.NewDefaultRegistry())
	call := RawCall{
		CallerID: "sym_caller", CallerFile: "main.go",
		CallSite: lang.CallSite{CalleeName: "NoSuchFunction", Line: 1},
	}

	edges := r.Resolve(call, "go")
	assert.Empty(t, edges)
}
