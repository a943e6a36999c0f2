// Package pipeline implements the orchestrator (C9): the six-phase
// sequential build (structure walk, parallel language extraction with
// serial id assignment, import resolution, call resolution, community
// detection, process tracing), grounded on the teacher's Builder.Build
// phase sequencing (services/trace/graph/builder.go: collectPhase ->
// extractEdgesPhase -> finalize) generalized to the full pipeline.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aleutian-oss/mycelium/internal/callres"
	"github.com/aleutian-oss/mycelium/internal/community"
	"github.com/aleutian-oss/mycelium/internal/imports"
	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/lang"
	"github.com/aleutian-oss/mycelium/internal/process"
	"github.com/aleutian-oss/mycelium/internal/symtab"
	"github.com/aleutian-oss/mycelium/internal/walker"
)

var tracer = otel.Tracer("pipeline")

// ProgressPhase names the six build phases plus a final finalizing
// step, mirroring the teacher's ProgressPhase enum.
type ProgressPhase int

const (
	ProgressPhaseWalking ProgressPhase = iota
	ProgressPhaseExtracting
	ProgressPhaseResolvingImports
	ProgressPhaseResolvingCalls
	ProgressPhaseDetectingCommunities
	ProgressPhaseTracingProcesses
	ProgressPhaseFinalizing
)

func (p ProgressPhase) String() string {
	switch p {
	case ProgressPhaseWalking:
		return "walking"
	case ProgressPhaseExtracting:
		return "extracting"
	case ProgressPhaseResolvingImports:
		return "resolving_imports"
	case ProgressPhaseResolvingCalls:
		return "resolving_calls"
	case ProgressPhaseDetectingCommunities:
		return "detecting_communities"
	case ProgressPhaseTracingProcesses:
		return "tracing_processes"
	case ProgressPhaseFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Progress is reported to an optional ProgressFunc after each phase.
type Progress struct {
	Phase          ProgressPhase
	FilesTotal     int
	FilesProcessed int
}

type ProgressFunc func(Progress)

// FileError records a non-fatal per-file failure (I/O or parse error);
// the pipeline continues past it.
type FileError struct {
	FilePath string
	Err      error
}

// EdgeError records a non-fatal edge-resolution failure.
type EdgeError struct {
	Context string
	Err     error
}

// InvariantError is fatal: the pipeline aborts and discards partial
// results (spec.md §5's cancellation/partial-result policy extends to
// any detected invariant violation).
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated (%s): %s", e.Invariant, e.Detail)
}

// Options configures a pipeline run.
type Options struct {
	RepoRoot     string
	Languages    []string // empty = all registered languages
	ExcludeGlobs []string
	MaxFileSize  int64

	Community community.Options
	Process   process.Options

	Progress ProgressFunc
}

// Result is everything a run produces: the populated graph plus
// diagnostics that didn't abort the build.
type Result struct {
	Graph           *kgraph.Graph
	FileErrors      []FileError
	EdgeErrors      []EdgeError
	UnresolvedImports []imports.Unresolved
	Duration        time.Duration
}

// Run executes all six phases against opts.RepoRoot. It returns an error
// only when Phase 1 cannot walk opts.RepoRoot or ctx is cancelled;
// individual file failures are collected into the Result instead. Run
// performs no invariant checks and never returns an InvariantError.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("repo_root", opts.RepoRoot),
	))
	defer span.End()

	registry := lang.NewDefaultRegistry()
	g := kgraph.New()
	result := &Result{Graph: g}

	// Phase 1: structure walk.
	walkOpts := walker.Options{Root: opts.RepoRoot, ExcludeGlobs: opts.ExcludeGlobs, MaxFileSize: opts.MaxFileSize, Registry: registry}
	walkResult, err := walker.Walk(walkOpts, g)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (structure walk): %w", err)
	}
	g.Freeze()
	opts.reportProgress(Progress{Phase: ProgressPhaseWalking, FilesTotal: len(walkResult.ParseableFiles), FilesProcessed: len(walkResult.ParseableFiles)})

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Phase 2: parallel per-file language extraction, then serial id
	// assignment over files sorted by path (spec.md §5's determinism
	// contract).
	parseable := walkResult.ParseableFiles
	if len(opts.Languages) > 0 {
		allowed := make(map[string]bool, len(opts.Languages))
		for _, l := range opts.Languages {
			allowed[l] = true
		}
		parseable = nil
		for _, f := range walkResult.ParseableFiles {
			if node, ok := g.File(f); ok && allowed[node.Language] {
				parseable = append(parseable, f)
			}
		}
	}
	parseResults, fileErrs := extractPhase(ctx, opts.RepoRoot, parseable, registry, opts.Progress)
	result.FileErrors = append(result.FileErrors, fileErrs...)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	tbl := symtab.New()
	callresResolver := callres.NewResolver(tbl, g, registry)
	frameworkIDs := assignIDs(g, tbl, callresResolver, parseResults)

	// .NET project/solution parsing feeds the namespace index used by
	// Phase 3's C#/VB.NET strategy; it belongs to the same mutation
	// window as id assignment since both populate the symbol table
	// before Phase 3 reads it.
	applyDotNetProjects(opts.RepoRoot, walkResult, g, tbl)
	g.Freeze()

	// Phase 3: import resolution.
	allFiles := make([]string, 0, len(parseResults))
	for _, pr := range parseResults {
		allFiles = append(allFiles, pr.FilePath)
	}
	modulePrefix := detectGoModulePrefix(opts.RepoRoot)
	importResolver := imports.NewResolver(allFiles, modulePrefix, tbl)
	for _, pr := range parseResults {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		importResolver.Resolve(g, imports.FileImports{Path: pr.FilePath, Language: pr.Language, Imports: pr.Imports})
	}
	result.UnresolvedImports = importResolver.Unresolved
	g.Freeze()
	opts.reportProgress(Progress{Phase: ProgressPhaseResolvingImports, FilesTotal: len(parseResults), FilesProcessed: len(parseResults)})

	// Phase 4: call resolution. callresResolver was built during Phase 2,
	// before Phase 3 populated the graph's ImportEdges, so Tier A's
	// imported-files index needs a refresh now that those edges exist.
	callresResolver.SyncImportEdges()
	resolveCalls(callresResolver, parseResults)
	g.BuildCallIndex()
	g.Freeze()
	opts.reportProgress(Progress{Phase: ProgressPhaseResolvingCalls, FilesTotal: len(parseResults), FilesProcessed: len(parseResults)})

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Phase 5: community detection.
	communityOpts := opts.Community
	if communityOpts == (community.Options{}) {
		communityOpts = community.DefaultOptions()
	}
	communities := community.Detect(ctx, g, communityOpts)
	g.SetCommunities(communities)
	opts.reportProgress(Progress{Phase: ProgressPhaseDetectingCommunities})

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Phase 6: process tracing.
	processOpts := opts.Process
	if processOpts == (process.Options{}) {
		processOpts = process.DefaultOptions()
	}
	scorer := process.NewScorer(g, func(id string) bool { return frameworkIDs[id] })
	processes := process.Trace(ctx, g, scorer, processOpts)
	g.SetProcesses(processes)
	opts.reportProgress(Progress{Phase: ProgressPhaseTracingProcesses})

	result.Duration = time.Since(start)
	opts.reportProgress(Progress{Phase: ProgressPhaseFinalizing})

	slog.Info("pipeline run complete",
		slog.Int("files", len(parseResults)),
		slog.Int("symbols", len(g.Symbols())),
		slog.Int("communities", len(communities)),
		slog.Int("processes", len(processes)),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

func (o Options) reportProgress(p Progress) {
	if o.Progress != nil {
		o.Progress(p)
	}
}
