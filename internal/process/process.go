// Package process implements the process tracer (C8, Phase 6):
// entry-point scoring followed by a bounded multi-branch BFS along CALLS
// edges, generalizing the teacher's index-first callee lookup
// (services/trace/cli/tools/tool_find_callees.go) and bounded traversal
// idiom into spec.md §4.7's exact scoring formula and candidate pipeline.
package process

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/telemetry"
)

type Options struct {
	MaxProcesses int
	MaxBranching int
	MaxDepth     int
	MinSteps     int
}

func DefaultOptions() Options {
	return Options{MaxProcesses: 75, MaxBranching: 4, MaxDepth: 10, MinSteps: 2}
}

var entryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^.*Controller$`),
	regexp.MustCompile(`^.*Handler$`),
	regexp.MustCompile(`^.*Endpoint$`),
	regexp.MustCompile(`^.*Middleware$`),
	regexp.MustCompile(`^Main$`),
	regexp.MustCompile(`^Startup$`),
	regexp.MustCompile(`^Configure.*$`),
	regexp.MustCompile(`^Map.*Endpoints$`),
	regexp.MustCompile(`^.*Route$`),
	regexp.MustCompile(`^.*Listener$`),
	regexp.MustCompile(`^handle.*$`),
	regexp.MustCompile(`^on.*$`),
	regexp.MustCompile(`^process.*$`),
}

func matchesEntryPattern(name string) bool {
	for _, p := range entryPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

var utilityPathSegments = map[string]bool{
	"Utils": true, "Helpers": true, "Extensions": true, "Common": true,
}

func isUtilityPath(filePath string) bool {
	lower := strings.ToLower(filePath)
	if strings.Contains(lower, "test") || strings.Contains(lower, "spec") ||
		strings.Contains(lower, "__tests__") || strings.Contains(lower, "tests") {
		return true
	}
	for _, seg := range strings.Split(filePath, "/") {
		if utilityPathSegments[seg] {
			return true
		}
	}
	return false
}

func isTestFile(filePath string) bool {
	lower := strings.ToLower(filePath)
	return strings.Contains(lower, "test") || strings.Contains(lower, "spec") ||
		strings.Contains(lower, "__tests__") || strings.Contains(lower, "tests")
}

// FrameworkSignal reports whether a symbol carries a framework marker
// (ASP.NET attribute, *Controller base, IHostedService impl) recorded by
// Phase 2 into SymbolMetadata — the pipeline passes this in per symbol
// since kgraph.SymbolNode itself doesn't carry the raw metadata.
type FrameworkSignal func(symbolID string) bool

// Scorer computes entry-point scores per spec.md §4.7.
type Scorer struct {
	Graph          *kgraph.Graph
	HasFramework   FrameworkSignal
	depthMemo      map[string]int
	depthVisiting  map[string]bool
}

func NewScorer(g *kgraph.Graph, hasFramework FrameworkSignal) *Scorer {
	if hasFramework == nil {
		hasFramework = func(string) bool { return false }
	}
	return &Scorer{Graph: g, HasFramework: hasFramework, depthMemo: make(map[string]int), depthVisiting: make(map[string]bool)}
}

// Score computes the full spec.md §4.7 formula for one symbol.
func (s *Scorer) Score(sym *kgraph.SymbolNode) float64 {
	outDeg := float64(s.Graph.OutDegree(sym.ID))
	inDeg := float64(s.Graph.InDegree(sym.ID))
	score := outDeg / (inDeg + 1)

	if sym.Exported {
		score *= 2.0
	}
	if matchesEntryPattern(sym.Name) {
		score *= 1.5
	}
	if s.HasFramework(sym.ID) {
		score *= 1.8
	}
	if isUtilityPath(sym.FilePath) {
		score *= 0.3
	}
	depth := s.subtreeDepth(sym.ID)
	if depth > 5 {
		depth = 5
	}
	score *= 1 + float64(depth)*0.1

	return score
}

// subtreeDepth is the length of the longest outgoing call chain from id,
// computed by a single bounded DFS and memoized per symbol. A cycle
// (detected via depthVisiting) contributes 0 additional depth at the
// point of re-entry rather than recursing forever.
func (s *Scorer) subtreeDepth(id string) int {
	if d, ok := s.depthMemo[id]; ok {
		return d
	}
	if s.depthVisiting[id] {
		return 0
	}
	s.depthVisiting[id] = true
	defer delete(s.depthVisiting, id)

	best := 0
	for _, edge := range s.Graph.CallsFrom(id) {
		d := 1 + s.subtreeDepth(edge.To)
		if d > best {
			best = d
		}
	}
	s.depthMemo[id] = best
	return best
}

// EntryCandidates returns every non-test-file symbol sorted by score
// descending, ties broken by id for determinism.
func (s *Scorer) EntryCandidates() []*kgraph.SymbolNode {
	var candidates []*kgraph.SymbolNode
	for _, sym := range s.Graph.Symbols() {
		if isTestFile(sym.FilePath) {
			continue
		}
		candidates = append(candidates, sym)
	}
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := s.Score(candidates[i]), s.Score(candidates[j])
		if si != sj {
			return si > sj
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates
}

// candidate is one BFS-discovered path before dedup/ranking.
type candidate struct {
	steps      []string
	confidence float64
}

// Trace runs the full spec.md §4.7 pipeline: top 2*max_processes entries
// by score, bounded multi-branch BFS from each, candidate filtering,
// subsequence dedup, confidence ranking, and community classification.
func Trace(ctx context.Context, g *kgraph.Graph, scorer *Scorer, opts Options) []*kgraph.Process {
	entries := scorer.EntryCandidates()
	topN := 2 * opts.MaxProcesses
	if topN > len(entries) {
		topN = len(entries)
	}

	var all []candidate
	for _, entry := range entries[:topN] {
		if ctx.Err() != nil {
			break
		}
		all = append(all, bfsFrom(g, entry.ID, opts)...)
	}

	filtered := filterByMinSteps(all, opts.MinSteps)
	deduped := dedupSubsequences(filtered)
	ranked := rankAndCap(deduped, opts.MaxProcesses)

	membership := communityMembership(g)
	out := make([]*kgraph.Process, 0, len(ranked))
	for i, c := range ranked {
		out = append(out, &kgraph.Process{
			ID:             processID(i),
			Entry:          c.steps[0],
			Terminal:       c.steps[len(c.steps)-1],
			Steps:          c.steps,
			Classification: classify(c.steps, membership),
			Confidence:     c.confidence,
		})
	}
	telemetry.RecordProcessesTraced(ctx, len(out))
	return out
}

// bfsFrom performs the bounded multi-branch BFS from entry: at each node,
// follow the top MaxBranching outgoing edges by confidence descending,
// stopping at MaxDepth or when a node has no unexplored callees, emitting
// every path from entry as a candidate each time a branch exits a node.
func bfsFrom(g *kgraph.Graph, entry string, opts Options) []candidate {
	var results []candidate
	visited := map[string]bool{entry: true}
	walk(g, entry, []string{entry}, 1.0, visited, opts, &results)
	return results
}

func walk(g *kgraph.Graph, node string, path []string, confidence float64, visited map[string]bool, opts Options, out *[]candidate) {
	*out = append(*out, candidate{steps: append([]string(nil), path...), confidence: confidence})

	if len(path) >= opts.MaxDepth {
		return
	}

	edges := append([]*kgraph.CallEdge(nil), g.CallsFrom(node)...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Confidence != edges[j].Confidence {
			return edges[i].Confidence > edges[j].Confidence
		}
		return edges[i].To < edges[j].To
	})

	branches := 0
	for _, e := range edges {
		if branches >= opts.MaxBranching {
			break
		}
		if visited[e.To] {
			continue
		}
		branches++
		visited[e.To] = true
		walk(g, e.To, append(path, e.To), confidence*e.Confidence, visited, opts, out)
		delete(visited, e.To)
	}
}

func filterByMinSteps(candidates []candidate, minSteps int) []candidate {
	var out []candidate
	for _, c := range candidates {
		if len(c.steps) >= minSteps {
			out = append(out, c)
		}
	}
	return out
}

// dedupSubsequences removes any candidate whose step list is a strict
// contiguous subsequence of a longer candidate's step list.
func dedupSubsequences(candidates []candidate) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].steps) > len(candidates[j].steps)
	})
	var kept []candidate
	for _, c := range candidates {
		subsumed := false
		for _, k := range kept {
			if len(c.steps) < len(k.steps) && isContiguousSubsequence(c.steps, k.steps) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			kept = append(kept, c)
		}
	}
	return kept
}

func isContiguousSubsequence(shorter, longer []string) bool {
	if len(shorter) == 0 || len(shorter) > len(longer) {
		return false
	}
	for start := 0; start+len(shorter) <= len(longer); start++ {
		match := true
		for i, s := range shorter {
			if longer[start+i] != s {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func rankAndCap(candidates []candidate, maxProcesses int) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].confidence != candidates[j].confidence {
			return candidates[i].confidence > candidates[j].confidence
		}
		return strings.Join(candidates[i].steps, ">") < strings.Join(candidates[j].steps, ">")
	})
	if len(candidates) > maxProcesses {
		candidates = candidates[:maxProcesses]
	}
	return candidates
}

func communityMembership(g *kgraph.Graph) map[string]string {
	m := make(map[string]string)
	for _, c := range g.Communities() {
		for _, member := range c.Members {
			m[member] = c.ID
		}
	}
	return m
}

func classify(steps []string, membership map[string]string) string {
	first, ok := membership[steps[0]]
	if !ok {
		return "cross_community"
	}
	for _, s := range steps[1:] {
		c, ok := membership[s]
		if !ok || c != first {
			return "cross_community"
		}
	}
	return "intra_community"
}

func processID(i int) string {
	return "process_" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
