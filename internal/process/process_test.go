package process

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
)

func chainGraph() *kgraph.Graph {
	g := kgraph.New()
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_controller", Name: "OrderController", FilePath: "api/order_controller.go", Exported: true})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_service", Name: "CreateOrder", FilePath: "service/order.go", Exported: true})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_repo", Name: "Save", FilePath: "repo/order_repo.go", Exported: true})
	g.AddCallEdge(&kgraph.CallEdge{From: "sym_controller", To: "sym_service", Confidence: 0.9, Tier: "A", Reason: "import-resolved"})
	g.AddCallEdge(&kgraph.CallEdge{From: "sym_service", To: "sym_repo", Confidence: 0.85, Tier: "B", Reason: "same-file"})
	g.BuildCallIndex()
	return g
}

func TestScore_ExportedEntryPatternBoostsScore(t *testing.T) {
	g := chainGraph()
	scorer := NewScorer(g, nil)

	controllerSym, _ := g.Symbol("sym_controller")
	repoSym, _ := g.Symbol("sym_repo")

	controllerScore := scorer.Score(controllerSym)
	repoScore := scorer.Score(repoSym)

	assert.Greater(t, controllerScore, repoScore)
}

func TestScore_UtilityPathDampensScore(t *testing.T) {
	g := kgraph.New()
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_util", Name: "FormatDate", FilePath: "Utils/format.go", Exported: true})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_normal", Name: "FormatDate2", FilePath: "app/format.go", Exported: true})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_callee", Name: "Callee", FilePath: "app/callee.go"})
	g.AddCallEdge(&kgraph.CallEdge{From: "sym_util", To: "sym_callee", Confidence: 0.9, Tier: "B", Reason: "same-file"})
	g.AddCallEdge(&kgraph.CallEdge{From: "sym_normal", To: "sym_callee", Confidence: 0.9, Tier: "B", Reason: "same-file"})
	g.BuildCallIndex()
	scorer := NewScorer(g, nil)

	utilSym, _ := g.Symbol("sym_util")
	normalSym, _ := g.Symbol("sym_normal")

	assert.Less(t, scorer.Score(utilSym), scorer.Score(normalSym))
}

func TestTrace_ProducesChainProcess(t *testing.T) {
	g := chainGraph()
	scorer := NewScorer(g, nil)
	opts := DefaultOptions()

	processes := Trace(context.Background(), g, scorer, opts)
	require.NotEmpty(t, processes)

	found := false
	for _, p := range processes {
		if p.Entry == "sym_controller" && len(p.Steps) == 3 {
			found = true
			assert.Equal(t, "sym_repo", p.Terminal)
		}
	}
	assert.True(t, found)
}

func TestDedupSubsequences_RemovesShorterContainedPaths(t *testing.T) {
	candidates := []candidate{
		{steps: []string{"a", "b"}, confidence: 0.9},
		{steps: []string{"a", "b", "c"}, confidence: 0.8},
		{steps: []string{"x", "y"}, confidence: 0.95},
	}
	deduped := dedupSubsequences(candidates)

	var stepLists [][]string
	for _, c := range deduped {
		stepLists = append(stepLists, c.steps)
	}
	assert.Contains(t, stepLists, []string{"a", "b", "c"})
	assert.Contains(t, stepLists, []string{"x", "y"})
	assert.NotContains(t, stepLists, []string{"a", "b"})
}

func TestClassify_IntraVsCrossCommunity(t *testing.T) {
	membership := map[string]string{"a": "community_0", "b": "community_0", "c": "community_1"}
	assert.Equal(t, "intra_community", classify([]string{"a", "b"}, membership))
	assert.Equal(t, "cross_community", classify([]string{"a", "c"}, membership))
	assert.Equal(t, "cross_community", classify([]string{"a", "unknown"}, membership))
}

func TestEntryCandidates_ExcludesTestFiles(t *testing.T) {
	g := kgraph.New()
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_prod", Name: "Handler", FilePath: "app/handler.go", Exported: true})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_test", Name: "TestHandler", FilePath: "app/handler_test.go", Exported: true})
	g.BuildCallIndex()
	scorer := NewScorer(g, nil)

	candidates := scorer.EntryCandidates()
	require.Len(t, candidates, 1)
	assert.Equal(t, "sym_prod", candidates[0].ID)
}
