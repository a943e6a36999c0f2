package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPath_DefaultsToRepoNameDotMyceliumJSON(t *testing.T) {
	c := Default()
	c.RepoRoot = "/home/user/projects/widgets"
	assert.Equal(t, "widgets.mycelium.json", c.OutputPath())
}

func TestOutputPath_ExplicitOutputWins(t *testing.T) {
	c := Default()
	c.RepoRoot = "/home/user/projects/widgets"
	c.Output = "custom.json"
	assert.Equal(t, "custom.json", c.OutputPath())
}

func TestValidate_RejectsMissingRoot(t *testing.T) {
	c := Default()
	c.RepoRoot = filepath.Join(t.TempDir(), "does-not-exist")
	c.Resolution = 1.0
	c.MaxProcesses = 75
	c.MaxDepth = 10
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsNonPositiveResolution(t *testing.T) {
	c := Default()
	c.RepoRoot = t.TempDir()
	c.Resolution = 0
	c.MaxProcesses = 75
	c.MaxDepth = 10
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsVerboseAndQuietTogether(t *testing.T) {
	c := Default()
	c.RepoRoot = t.TempDir()
	c.Resolution = 1.0
	c.MaxProcesses = 75
	c.MaxDepth = 10
	c.Verbose = true
	c.Quiet = true
	assert.Error(t, c.Validate())
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	c := Default()
	c.RepoRoot = t.TempDir()
	require.NoError(t, c.Validate())
}

func TestParseLanguages_SplitsTrimsLowercases(t *testing.T) {
	assert.Equal(t, []string{"go", "py", "ts"}, ParseLanguages("Go, py ,TS"))
	assert.Nil(t, ParseLanguages(""))
	assert.Nil(t, ParseLanguages("   "))
}

func TestParseGlobs_SplitsAndTrims(t *testing.T) {
	assert.Equal(t, []string{"vendor/**", "*.gen.go"}, ParseGlobs("vendor/** , *.gen.go"))
	assert.Nil(t, ParseGlobs(""))
}

func TestLoadFile_ParsesYAMLIntoFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".mycelium.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output: custom.json
languages: [go, python]
resolution: 1.5
max_processes: 50
max_depth: 6
exclude: ["vendor/**"]
`), 0o644))

	fc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom.json", fc.Output)
	assert.Equal(t, []string{"go", "python"}, fc.Languages)
	assert.Equal(t, 1.5, fc.Resolution)
	assert.Equal(t, 50, fc.MaxProcesses)
	assert.Equal(t, 6, fc.MaxDepth)
	assert.Equal(t, []string{"vendor/**"}, fc.Exclude)
}

func TestLoadFile_MissingFileReturnsError(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestApplyFile_OnlyOverwritesSetFields(t *testing.T) {
	c := Default()
	c.MaxDepth = 10
	c = c.ApplyFile(FileConfig{Resolution: 2.0})

	assert.Equal(t, 2.0, c.Resolution)
	assert.Equal(t, 10, c.MaxDepth, "unset file fields must not clobber existing values")
}

func TestToPipelineOptions_AppliesOverridesOnDefaults(t *testing.T) {
	c := Default()
	c.RepoRoot = t.TempDir()
	c.Resolution = 2.5
	c.MaxProcesses = 10
	c.MaxDepth = 3

	opts := c.ToPipelineOptions(nil)
	assert.Equal(t, 2.5, opts.Community.Resolution)
	assert.Equal(t, 10, opts.Process.MaxProcesses)
	assert.Equal(t, 3, opts.Process.MaxDepth)
	assert.Equal(t, c.RepoRoot, opts.RepoRoot)
}
