// Package community implements the community detector (C7, Phase 5): a
// weighted-modularity Louvain local-move optimizer over the undirected
// graph induced by CALLS edges and inheritance relationships, with the
// auto-tune/recursive-split/singleton-discard refinements spec.md §4.6
// adds on top of the teacher's single-level local-move loop
// (services/trace/graph/community.go's DetectCommunities).
package community

import (
	"context"
	"math"
	"path"
	"sort"
	"strings"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/telemetry"
)

// Options configures the detector. Detect uses the fields exactly as
// given; pipeline.Run substitutes DefaultOptions for a zero value.
type Options struct {
	Resolution          float64
	MaxIterations       int
	ConvergenceThreshold float64
	SplitThreshold      int // recursive-split trigger (default 150)
	AutoTuneAttempts    int // max auto-tune re-runs (default 3)
	AutoTuneFactor      float64
	InheritanceWeight   float64 // edge weight for IMPLEMENTS/EMBEDS relationships
}

func DefaultOptions() Options {
	return Options{
		Resolution:           1.0,
		MaxIterations:        100,
		ConvergenceThreshold: 1e-6,
		SplitThreshold:       150,
		AutoTuneAttempts:     3,
		AutoTuneFactor:       1.5,
		InheritanceWeight:    1.0,
	}
}

// weightedGraph is the undirected weighted adjacency this package
// optimizes over: node IDs are symbol IDs, edge weight is the summed,
// 1.0-capped confidence of every directed edge between the pair.
type weightedGraph struct {
	nodes     []string
	neighbors map[string]map[string]float64 // node -> neighbor -> weight
}

func newWeightedGraph() *weightedGraph {
	return &weightedGraph{neighbors: make(map[string]map[string]float64)}
}

func (g *weightedGraph) addNode(id string) {
	if _, ok := g.neighbors[id]; !ok {
		g.neighbors[id] = make(map[string]float64)
		g.nodes = append(g.nodes, id)
	}
}

func (g *weightedGraph) addEdge(a, b string, weight float64) {
	if a == b || weight <= 0 {
		return
	}
	g.addNode(a)
	g.addNode(b)
	g.neighbors[a][b] = math.Min(1.0, g.neighbors[a][b]+weight)
	g.neighbors[b][a] = math.Min(1.0, g.neighbors[b][a]+weight)
}

// BuildWeightedGraph constructs the undirected weighted graph from the
// knowledge graph's CALLS edges plus IMPLEMENTS/EMBEDS relationships,
// restricted to symbols that participate in at least one such edge.
func BuildWeightedGraph(g *kgraph.Graph, inheritanceWeight float64) *weightedGraph {
	wg := newWeightedGraph()
	for _, e := range g.CallEdges() {
		wg.addEdge(e.From, e.To, e.Confidence)
	}
	for _, sym := range g.Symbols() {
		for _, implID := range g.Implementers(sym.ID) {
			wg.addEdge(sym.ID, implID, inheritanceWeight)
		}
		for _, embID := range g.Embedders(sym.ID) {
			wg.addEdge(sym.ID, embID, inheritanceWeight)
		}
	}
	sort.Strings(wg.nodes)
	return wg
}

// Detect runs the full spec.md §4.6 pipeline: initial Louvain run,
// auto-tune if degenerate, recursive split of oversized communities, and
// singleton discard, returning the surviving communities with id/label/
// cohesion/primary-language populated.
func Detect(ctx context.Context, g *kgraph.Graph, opts Options) []*kgraph.Community {
	wg := BuildWeightedGraph(g, opts.InheritanceWeight)
	if len(wg.nodes) == 0 {
		return nil
	}

	assignment := runWithAutoTune(ctx, wg, opts)
	groups := groupByCommunity(assignment, wg.nodes)
	groups = splitOversized(ctx, wg, groups, opts, 0)
	groups = discardSingletons(groups)

	communities := buildCommunities(g, groups, opts.InheritanceWeight)
	telemetry.RecordCommunitiesDetected(ctx, len(communities))
	return communities
}

// runWithAutoTune runs louvain once, then re-runs with an escalated
// resolution up to opts.AutoTuneAttempts times if a single community
// holds more than half of all nodes (spec.md §4.6 step 1).
func runWithAutoTune(ctx context.Context, wg *weightedGraph, opts Options) map[string]int {
	resolution := opts.Resolution
	assignment := louvain(ctx, wg, resolution, opts)
	for attempt := 0; attempt < opts.AutoTuneAttempts; attempt++ {
		if !isDegenerate(assignment, len(wg.nodes)) {
			break
		}
		resolution *= opts.AutoTuneFactor
		assignment = louvain(ctx, wg, resolution, opts)
	}
	return assignment
}

func isDegenerate(assignment map[string]int, totalNodes int) bool {
	counts := make(map[int]int)
	for _, c := range assignment {
		counts[c]++
	}
	for _, n := range counts {
		if float64(n) > 0.5*float64(totalNodes) {
			return true
		}
	}
	return false
}

// louvain is a single-level local-move modularity optimizer (no
// multi-level coarsening, matching the sequential determinism priority
// of the teacher's own DetectCommunities): each node starts in its own
// community and repeatedly moves to whichever neighboring community most
// improves weighted modularity, until no move improves or MaxIterations
// is reached.
func louvain(ctx context.Context, wg *weightedGraph, resolution float64, opts Options) map[string]int {
	nodeToComm := make(map[string]int, len(wg.nodes))
	for i, id := range wg.nodes {
		nodeToComm[id] = i
	}

	degree := make(map[string]float64, len(wg.nodes))
	totalWeight := 0.0
	for _, id := range wg.nodes {
		var d float64
		for _, w := range wg.neighbors[id] {
			d += w
		}
		degree[id] = d
		totalWeight += d
	}
	m := totalWeight / 2.0
	if m == 0 {
		return nodeToComm
	}

	commDegreeSum := make(map[int]float64, len(wg.nodes))
	for _, id := range wg.nodes {
		commDegreeSum[nodeToComm[id]] = degree[id]
	}

	previousQ := -1.0
	for iter := 0; iter < opts.MaxIterations; iter++ {
		if ctx.Err() != nil {
			break
		}
		improved := false

		for _, id := range wg.nodes {
			currentComm := nodeToComm[id]
			weightToComm := make(map[int]float64)
			for neighbor, w := range wg.neighbors[id] {
				weightToComm[nodeToComm[neighbor]] += w
			}

			ki := degree[id]
			commDegreeSum[currentComm] -= ki
			bestComm := currentComm
			bestDelta := weightToComm[currentComm]/m - resolution*ki*commDegreeSum[currentComm]/(2*m*m)

			for comm, wInComm := range weightToComm {
				if comm == currentComm {
					continue
				}
				sigmaTot := commDegreeSum[comm]
				delta := wInComm/m - resolution*ki*sigmaTot/(2*m*m)
				if delta > bestDelta || (delta == bestDelta && bestComm != currentComm && comm < bestComm) {
					bestDelta = delta
					bestComm = comm
				}
			}

			commDegreeSum[bestComm] += ki
			if bestComm != currentComm {
				nodeToComm[id] = bestComm
				improved = true
			}
		}

		currentQ := weightedModularity(wg, nodeToComm, degree, m, resolution)
		if !improved || (previousQ >= 0 && currentQ-previousQ < opts.ConvergenceThreshold) {
			break
		}
		previousQ = currentQ
	}

	return nodeToComm
}

func weightedModularity(wg *weightedGraph, nodeToComm map[string]int, degree map[string]float64, m float64, resolution float64) float64 {
	if m == 0 {
		return 0
	}
	internal := make(map[int]float64)
	total := make(map[int]float64)
	for _, id := range wg.nodes {
		comm := nodeToComm[id]
		total[comm] += degree[id]
		for neighbor, w := range wg.neighbors[id] {
			if nodeToComm[neighbor] == comm {
				internal[comm] += w / 2
			}
		}
	}
	q := 0.0
	for comm, in := range internal {
		sigmaTot := total[comm]
		q += in/m - resolution*(sigmaTot/(2*m))*(sigmaTot/(2*m))
	}
	return q
}

func groupByCommunity(assignment map[string]int, nodes []string) [][]string {
	byComm := make(map[int][]string)
	for _, id := range nodes {
		c := assignment[id]
		byComm[c] = append(byComm[c], id)
	}
	var groups [][]string
	var ids []int
	for c := range byComm {
		ids = append(ids, c)
	}
	sort.Ints(ids)
	for _, c := range ids {
		members := byComm[c]
		sort.Strings(members)
		groups = append(groups, members)
	}
	return groups
}

// splitOversized recursively runs Louvain on the induced subgraph of any
// community whose size exceeds opts.SplitThreshold, replacing it with
// its children when that produces at least two non-singleton
// subcommunities (spec.md §4.6 step 2). Recursion stops once depth
// exceeds 8.
func splitOversized(ctx context.Context, wg *weightedGraph, groups [][]string, opts Options, depth int) [][]string {
	if depth > 8 {
		return groups
	}
	var out [][]string
	anySplit := false
	for _, members := range groups {
		if len(members) <= opts.SplitThreshold {
			out = append(out, members)
			continue
		}
		sub := inducedSubgraph(wg, members)
		assignment := runWithAutoTune(ctx, sub, opts)
		children := groupByCommunity(assignment, sub.nodes)
		nonSingleton := 0
		for _, c := range children {
			if len(c) > 1 {
				nonSingleton++
			}
		}
		if nonSingleton >= 2 {
			out = append(out, children...)
			anySplit = true
		} else {
			out = append(out, members)
		}
	}
	if anySplit {
		return splitOversized(ctx, wg, out, opts, depth+1)
	}
	return out
}

func inducedSubgraph(wg *weightedGraph, members []string) *weightedGraph {
	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	sub := newWeightedGraph()
	for _, m := range members {
		sub.addNode(m)
	}
	for _, m := range members {
		for n, w := range wg.neighbors[m] {
			if set[n] {
				sub.addEdge(m, n, w)
			}
		}
	}
	sort.Strings(sub.nodes)
	return sub
}

func discardSingletons(groups [][]string) [][]string {
	var out [][]string
	for _, g := range groups {
		if len(g) > 1 {
			out = append(out, g)
		}
	}
	return out
}

// buildCommunities computes label/cohesion/primary-language for each
// surviving group and assigns final community ids.
func buildCommunities(g *kgraph.Graph, groups [][]string, inheritanceWeight float64) []*kgraph.Community {
	labels := computeLabels(g, groups)
	communities := make([]*kgraph.Community, 0, len(groups))
	for i, members := range groups {
		id := communityID(i)
		communities = append(communities, &kgraph.Community{
			ID:              id,
			Label:           labels[i],
			Members:         members,
			Cohesion:        cohesion(g, members, inheritanceWeight),
			PrimaryLanguage: primaryLanguage(g, members),
		})
	}
	return communities
}

func communityID(i int) string {
	return "community_" + itoa(i)
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

// cohesion = internal_edge_weight_sum / (n*(n-1)/2), clamped to [0,1].
func cohesion(g *kgraph.Graph, members []string, inheritanceWeight float64) float64 {
	n := len(members)
	if n < 2 {
		return 0
	}
	set := make(map[string]bool, n)
	for _, m := range members {
		set[m] = true
	}
	seen := make(map[[2]string]bool)
	var sum float64
	for _, e := range g.CallEdges() {
		if !set[e.From] || !set[e.To] || e.From == e.To {
			continue
		}
		key := pairKey(e.From, e.To)
		if seen[key] {
			continue
		}
		seen[key] = true
		sum += math.Min(1.0, e.Confidence)
	}
	for _, id := range members {
		for _, implID := range g.Implementers(id) {
			if set[implID] && implID != id {
				key := pairKey(id, implID)
				if !seen[key] {
					seen[key] = true
					sum += inheritanceWeight
				}
			}
		}
		for _, embID := range g.Embedders(id) {
			if set[embID] && embID != id {
				key := pairKey(id, embID)
				if !seen[key] {
					seen[key] = true
					sum += inheritanceWeight
				}
			}
		}
	}
	maxPairs := float64(n*(n-1)) / 2.0
	if maxPairs == 0 {
		return 0
	}
	c := sum / maxPairs
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// primaryLanguage is the mode of member languages, ties broken by
// largest member count then lexicographic language tag.
func primaryLanguage(g *kgraph.Graph, members []string) string {
	counts := make(map[string]int)
	for _, id := range members {
		if sym, ok := g.Symbol(id); ok {
			counts[sym.Language]++
		}
	}
	best := ""
	bestCount := -1
	var langs []string
	for l := range counts {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	for _, l := range langs {
		if counts[l] > bestCount {
			bestCount = counts[l]
			best = l
		}
	}
	return best
}

// computeLabels derives the longest-common-path-prefix (falling back to
// longest-common-name-prefix, then "Community N") for every group, then
// disambiguates collisions by appending the next distinguishing path
// segment (spec.md §4.6).
func computeLabels(g *kgraph.Graph, groups [][]string) []string {
	raw := make([]string, len(groups))
	for i, members := range groups {
		raw[i] = labelFor(g, members, i)
	}
	return disambiguate(raw, g, groups)
}

func labelFor(g *kgraph.Graph, members []string, index int) string {
	var filePaths []string
	for _, id := range members {
		if sym, ok := g.Symbol(id); ok {
			filePaths = append(filePaths, sym.FilePath)
		}
	}
	if prefix := longestCommonPathPrefix(filePaths); prefix != "" {
		return prefix
	}
	var names []string
	for _, id := range members {
		if sym, ok := g.Symbol(id); ok {
			names = append(names, sym.Name)
		}
	}
	if prefix := longestCommonStringPrefix(names); len(prefix) >= 3 {
		return prefix
	}
	return "Community " + itoa(index)
}

func longestCommonPathPrefix(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	split := make([][]string, len(paths))
	minLen := -1
	for i, p := range paths {
		segs := strings.Split(path.Dir(p), "/")
		split[i] = segs
		if minLen == -1 || len(segs) < minLen {
			minLen = len(segs)
		}
	}
	var common []string
	for i := 0; i < minLen; i++ {
		seg := split[0][i]
		for _, s := range split[1:] {
			if s[i] != seg {
				return strings.Join(common, "/")
			}
		}
		common = append(common, seg)
	}
	return strings.Join(common, "/")
}

func longestCommonStringPrefix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	prefix := names[0]
	for _, n := range names[1:] {
		for !strings.HasPrefix(n, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

func disambiguate(labels []string, g *kgraph.Graph, groups [][]string) []string {
	seen := make(map[string][]int)
	for i, l := range labels {
		seen[l] = append(seen[l], i)
	}
	out := make([]string, len(labels))
	copy(out, labels)
	for label, indices := range seen {
		if len(indices) < 2 {
			continue
		}
		for _, idx := range indices {
			var filePaths []string
			for _, id := range groups[idx] {
				if sym, ok := g.Symbol(id); ok {
					filePaths = append(filePaths, sym.FilePath)
				}
			}
			extra := nextPathSegment(filePaths, label)
			if extra != "" {
				out[idx] = label + "/" + extra
			}
		}
	}
	return out
}

func nextPathSegment(paths []string, prefix string) string {
	for _, p := range paths {
		dir := path.Dir(p)
		if !strings.HasPrefix(dir, prefix) {
			continue
		}
		rest := strings.TrimPrefix(strings.TrimPrefix(dir, prefix), "/")
		if rest == "" {
			continue
		}
		segs := strings.SplitN(rest, "/", 2)
		return segs[0]
	}
	return ""
}
