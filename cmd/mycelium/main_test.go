package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/mycelium/internal/config"
)

func TestExitCodeFor_MapsErrorKindsToSpecCodes(t *testing.T) {
	assert.Equal(t, exitInvalidArgs, exitCodeFor(&configError{errors.New("bad flag")}))
	assert.Equal(t, exitIOFailure, exitCodeFor(&ioError{errors.New("disk full")}))
	assert.Equal(t, exitInternalError, exitCodeFor(errors.New("unexpected")))
}

func TestApplyFileConfig_AutoDiscoversRepoRootConfigFile(t *testing.T) {
	repoRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, ".mycelium.yaml"), []byte("max_depth: 3\n"), 0o644))

	prevConfig := flagConfig
	flagConfig = ""
	defer func() { flagConfig = prevConfig }()

	cfg := config.Default()
	cfg.RepoRoot = repoRoot
	require.NoError(t, applyFileConfig(rootCmd, &cfg))
	assert.Equal(t, 3, cfg.MaxDepth)
}

func TestApplyFileConfig_MissingAutoDiscoveredFileIsNotAnError(t *testing.T) {
	prevConfig := flagConfig
	flagConfig = ""
	defer func() { flagConfig = prevConfig }()

	cfg := config.Default()
	cfg.RepoRoot = t.TempDir()
	assert.NoError(t, applyFileConfig(rootCmd, &cfg))
}

func TestApplyFlagOverrides_ExplicitFlagWinsOverFileValue(t *testing.T) {
	prevMaxDepth := flagMaxDepth
	flagMaxDepth = 99
	defer func() { flagMaxDepth = prevMaxDepth }()

	require.NoError(t, rootCmd.Flags().Set("max-depth", "99"))
	defer rootCmd.Flags().Set("max-depth", "10")

	cfg := config.Default()
	cfg.MaxDepth = 3 // as if a file config had set it
	applyFlagOverrides(rootCmd, &cfg)
	assert.Equal(t, 99, cfg.MaxDepth)
}
