package community

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
)

func twoClusterGraph() *kgraph.Graph {
	g := kgraph.New()
	members := []string{"sym_a1", "sym_a2", "sym_a3", "sym_b1", "sym_b2", "sym_b3"}
	for _, id := range members {
		file := "a/file.go"
		if id[4] == 'b' {
			file = "b/file.go"
		}
		g.AddSymbol(&kgraph.SymbolNode{ID: id, Name: id, Kind: "Function", FilePath: file, Language: "go"})
	}
	dense := [][2]string{
		{"sym_a1", "sym_a2"}, {"sym_a2", "sym_a3"}, {"sym_a1", "sym_a3"},
		{"sym_b1", "sym_b2"}, {"sym_b2", "sym_b3"}, {"sym_b1", "sym_b3"},
	}
	for _, pair := range dense {
		g.AddCallEdge(&kgraph.CallEdge{From: pair[0], To: pair[1], Confidence: 0.9, Tier: "B", Reason: "same-file"})
	}
	// single weak bridge between the two clusters
	g.AddCallEdge(&kgraph.CallEdge{From: "sym_a1", To: "sym_b1", Confidence: 0.3, Tier: "C", Reason: "fuzzy"})
	return g
}

func TestDetect_SeparatesTwoDenseClusters(t *testing.T) {
	g := twoClusterGraph()
	communities := Detect(context.Background(), g, DefaultOptions())

	require.Len(t, communities, 2)
	sizes := []int{len(communities[0].Members), len(communities[1].Members)}
	assert.ElementsMatch(t, []int{3, 3}, sizes)
}

func TestDetect_EmptyGraphProducesNoCommunities(t *testing.T) {
	g := kgraph.New()
	communities := Detect(context.Background(), g, DefaultOptions())
	assert.Empty(t, communities)
}

func TestDetect_SingletonsDiscarded(t *testing.T) {
	g := kgraph.New()
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_lonely", Name: "Lonely", Kind: "Function", FilePath: "x.go", Language: "go"})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_a", Name: "A", Kind: "Function", FilePath: "a.go", Language: "go"})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_b", Name: "B", Kind: "Function", FilePath: "a.go", Language: "go"})
	g.AddCallEdge(&kgraph.CallEdge{From: "sym_a", To: "sym_b", Confidence: 0.85, Tier: "B", Reason: "same-file"})

	communities := Detect(context.Background(), g, DefaultOptions())
	for _, c := range communities {
		assert.Greater(t, len(c.Members), 1)
	}
}

func TestCohesion_FullyConnectedTriadIsOne(t *testing.T) {
	g := kgraph.New()
	for _, id := range []string{"sym_1", "sym_2", "sym_3"} {
		g.AddSymbol(&kgraph.SymbolNode{ID: id, Name: id, Kind: "Function", FilePath: "f.go", Language: "go"})
	}
	g.AddCallEdge(&kgraph.CallEdge{From: "sym_1", To: "sym_2", Confidence: 1.0, Tier: "B", Reason: "same-file"})
	g.AddCallEdge(&kgraph.CallEdge{From: "sym_2", To: "sym_3", Confidence: 1.0, Tier: "B", Reason: "same-file"})
	g.AddCallEdge(&kgraph.CallEdge{From: "sym_1", To: "sym_3", Confidence: 1.0, Tier: "B", Reason: "same-file"})

	c := cohesion(g, []string{"sym_1", "sym_2", "sym_3"}, 1.0)
	assert.InDelta(t, 1.0, c, 1e-9)
}

func TestPrimaryLanguage_ModeWithLexicographicTiebreak(t *testing.T) {
	g := kgraph.New()
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_1", Language: "go"})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_2", Language: "ts"})

	lang := primaryLanguage(g, []string{"sym_1", "sym_2"})
	assert.Equal(t, "go", lang)
}
