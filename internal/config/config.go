// Package config holds the CLI-facing option set for a mycelium run
// (spec.md §6's flag table) and its translation into pipeline.Options,
// grounded on the teacher's risk.Config / buildRiskConfig split
// (cmd/aleutian/cmd_risk.go: DefaultConfig() plus a buildXConfig
// function assembling it from parsed flags) — a plain struct the CLI
// layer populates, validates, and hands to the engine, instead of the
// engine reading flags itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aleutian-oss/mycelium/internal/community"
	"github.com/aleutian-oss/mycelium/internal/pipeline"
	"github.com/aleutian-oss/mycelium/internal/process"
)

// Config mirrors spec.md §6's CLI flag table one field per flag.
type Config struct {
	RepoRoot     string
	Output       string
	Languages    []string
	Resolution   float64
	MaxProcesses int
	MaxDepth     int
	Exclude      []string
	Verbose      bool
	Quiet        bool
}

// Default returns a Config with every flag at its spec.md §6 default,
// RepoRoot left for the caller to fill in.
func Default() Config {
	return Config{
		Output:       "",
		Resolution:   community.DefaultOptions().Resolution,
		MaxProcesses: process.DefaultOptions().MaxProcesses,
		MaxDepth:     process.DefaultOptions().MaxDepth,
	}
}

// OutputPath resolves the `-o/--output` default: `<repo_name>.mycelium.json`
// in the current working directory when unset.
func (c Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	repoName := filepath.Base(filepath.Clean(c.RepoRoot))
	if repoName == "." || repoName == string(filepath.Separator) {
		repoName = "repo"
	}
	return repoName + ".mycelium.json"
}

// Validate checks the invariants the CLI must enforce before running the
// pipeline (spec.md §6 exit code 1: invalid arguments).
func (c Config) Validate() error {
	info, err := os.Stat(c.RepoRoot)
	if err != nil {
		return fmt.Errorf("repo root %q: %w", c.RepoRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("repo root %q is not a directory", c.RepoRoot)
	}
	if c.Resolution <= 0 {
		return fmt.Errorf("--resolution must be positive, got %g", c.Resolution)
	}
	if c.MaxProcesses <= 0 {
		return fmt.Errorf("--max-processes must be positive, got %d", c.MaxProcesses)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("--max-depth must be positive, got %d", c.MaxDepth)
	}
	if c.Verbose && c.Quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}
	return nil
}

// ParseLanguages splits the comma list from `-l/--languages` into
// trimmed, lowercase tags; an empty input means "auto" (no restriction).
func ParseLanguages(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ToPipelineOptions builds a pipeline.Options from the resolved flags,
// applying `--resolution`/`--max-processes`/`--max-depth` on top of each
// phase's own defaults.
func (c Config) ToPipelineOptions(progress pipeline.ProgressFunc) pipeline.Options {
	communityOpts := community.DefaultOptions()
	communityOpts.Resolution = c.Resolution

	processOpts := process.DefaultOptions()
	processOpts.MaxProcesses = c.MaxProcesses
	processOpts.MaxDepth = c.MaxDepth

	return pipeline.Options{
		RepoRoot:     c.RepoRoot,
		Languages:    c.Languages,
		ExcludeGlobs: c.Exclude,
		MaxFileSize:  0, // 0 -> walker.DefaultOptions' 1 MiB threshold applies
		Community:    communityOpts,
		Process:      processOpts,
		Progress:     progress,
	}
}

// ParseGlobs splits the comma list from `--exclude` into trimmed glob
// patterns.
func ParseGlobs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FileConfig is the optional on-disk config file's shape (default path
// "<repo-root>/.mycelium.yaml"), grounded on
// cmd/aleutian/config/loader.go's yaml.Unmarshal-into-a-plain-struct
// pattern. It covers the same tunables as the CLI flags, minus RepoRoot
// (always the positional argument, never file-configured).
type FileConfig struct {
	Output       string   `yaml:"output"`
	Languages    []string `yaml:"languages"`
	Resolution   float64  `yaml:"resolution"`
	MaxProcesses int      `yaml:"max_processes"`
	MaxDepth     int      `yaml:"max_depth"`
	Exclude      []string `yaml:"exclude"`
}

// LoadFile reads and parses a FileConfig from path. A missing file is
// reported via the returned error so callers can treat "no config file"
// as a non-fatal, expected case at the call site.
func LoadFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return fc, nil
}

// ApplyFile overlays fc's explicitly-set fields onto c. Precedence is
// defaults < file < CLI flags: callers apply ApplyFile to a Default()
// base, then let explicit flag values overwrite the result.
func (c Config) ApplyFile(fc FileConfig) Config {
	if fc.Output != "" {
		c.Output = fc.Output
	}
	if len(fc.Languages) > 0 {
		c.Languages = fc.Languages
	}
	if fc.Resolution > 0 {
		c.Resolution = fc.Resolution
	}
	if fc.MaxProcesses > 0 {
		c.MaxProcesses = fc.MaxProcesses
	}
	if fc.MaxDepth > 0 {
		c.MaxDepth = fc.MaxDepth
	}
	if len(fc.Exclude) > 0 {
		c.Exclude = fc.Exclude
	}
	return c
}
