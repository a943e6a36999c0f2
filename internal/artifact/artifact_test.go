package artifact

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/pipeline"
)

func TestBuild_EmptyGraphProducesZeroCountArtifact(t *testing.T) {
	g := kgraph.New()
	g.BuildCallIndex()
	result := &pipeline.Result{Graph: g, Duration: 5 * time.Millisecond}

	a := Build(result, "/repo", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	assert.Equal(t, "1.0", a.Version)
	assert.Equal(t, 0, a.Stats.Files)
	assert.Equal(t, 0, a.Stats.Symbols)
	assert.Empty(t, a.Symbols)
	assert.Empty(t, a.Communities)
	assert.Equal(t, "2026-01-02T03:04:05Z", a.Metadata.GeneratedAt)
}

func TestBuild_CountsReflectGraphContents(t *testing.T) {
	g := kgraph.New()
	g.AddFile(&kgraph.FileNode{Path: "main.go", Language: "go", Parseable: true})
	g.AddSymbol(&kgraph.SymbolNode{ID: "sym_1", Name: "Main", FilePath: "main.go", Kind: "function"})
	g.AddCallEdge(&kgraph.CallEdge{From: "sym_1", To: "sym_1", Confidence: 0.9, Tier: "A", Reason: "import-resolved"})
	g.BuildCallIndex()
	result := &pipeline.Result{Graph: g}

	a := Build(result, "/repo", time.Now())

	assert.Equal(t, 1, a.Stats.Files)
	assert.Equal(t, 1, a.Stats.Symbols)
	assert.Equal(t, 1, a.Stats.Calls)
}

func TestWrite_ProducesFixedTopLevelKeyOrder(t *testing.T) {
	g := kgraph.New()
	g.BuildCallIndex()
	result := &pipeline.Result{Graph: g}
	a := Build(result, "/repo", time.Now())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, a))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))

	for _, key := range []string{"version", "metadata", "stats", "structure", "symbols", "imports", "calls", "communities", "processes"} {
		_, ok := raw[key]
		assert.True(t, ok, "missing top-level key %q", key)
	}

	// Declaration order in the struct must match the textual order keys
	// appear in the encoded document.
	text := buf.String()
	order := []string{`"version"`, `"metadata"`, `"stats"`, `"structure"`, `"symbols"`, `"imports"`, `"calls"`, `"communities"`, `"processes"`}
	lastIdx := -1
	for _, key := range order {
		idx := bytes.Index([]byte(text), []byte(key))
		require.Greater(t, idx, lastIdx, "key %s out of order", key)
		lastIdx = idx
	}
}

func TestResolveCommitHash_EnvVarTakesPrecedence(t *testing.T) {
	t.Setenv("GIT_COMMIT", "abc123")
	assert.Equal(t, "abc123", resolveCommitHash("/nonexistent"))
}

func TestResolveCommitHash_MissingGitDirIsNonFatal(t *testing.T) {
	assert.Equal(t, "", resolveCommitHash(t.TempDir()))
}
