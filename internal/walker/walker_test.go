package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/lang"
)

func TestWalk_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	g := kgraph.New()

	result, err := Walk(DefaultOptions(dir, lang.NewDefaultRegistry()), g)
	require.NoError(t, err)

	assert.Empty(t, g.Files())
	assert.Empty(t, result.ParseableFiles)
	assert.Empty(t, result.SlnFiles)
}

func TestWalk_SkipsDefaultIgnoreSegments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "left-pad"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "left-pad", "index.js"), []byte("module.exports = {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))

	g := kgraph.New()
	result, err := Walk(DefaultOptions(dir, lang.NewDefaultRegistry()), g)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"main.go"}, result.ParseableFiles)
	_, ok := g.File("node_modules/left-pad/index.js")
	assert.False(t, ok)
}

func TestWalk_CallerExcludeGlobApplies(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor", "thirdparty.go"), []byte("package vendor\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.go"), []byte("package main\n"), 0o644))

	opts := DefaultOptions(dir, lang.NewDefaultRegistry())
	opts.ExcludeGlobs = []string{"vendor"}
	g := kgraph.New()
	result, err := Walk(opts, g)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"app.go"}, result.ParseableFiles)
}

func TestWalk_CollectsDotNetProjectFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "App.csproj"), []byte("<Project></Project>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "App.sln"), []byte("Microsoft Visual Studio Solution File"), 0o644))

	g := kgraph.New()
	result, err := Walk(DefaultOptions(dir, lang.NewDefaultRegistry()), g)
	require.NoError(t, err)

	assert.Equal(t, []string{"App.csproj"}, result.CsprojFiles)
	assert.Equal(t, []string{"App.sln"}, result.SlnFiles)
}

func TestWalk_OversizedFileMarkedNonParseable(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 64)
	for i := range big {
		big[i] = 'a'
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.go"), big, 0o644))

	opts := DefaultOptions(dir, lang.NewDefaultRegistry())
	opts.MaxFileSize = 8
	g := kgraph.New()
	_, err := Walk(opts, g)
	require.NoError(t, err)

	node, ok := g.File("big.go")
	require.True(t, ok)
	assert.False(t, node.Parseable)
}
