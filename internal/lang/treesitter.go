package lang

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// parseTree runs a single tree-sitter parse of content under the given
// grammar. Each call gets its own *sitter.Parser so analysers stay safe
// for the pipeline's concurrent per-file fan-out (Phase 2 parallelism,
// per the concurrency contract).
func parseTree(ctx context.Context, grammar *sitter.Language, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(grammar)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	return tree, nil
}

func nodeText(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func startLine(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }
func endLine(n *sitter.Node) int   { return int(n.EndPoint().Row) + 1 }
func startCol(n *sitter.Node) int  { return int(n.StartPoint().Column) }
func endCol(n *sitter.Node) int    { return int(n.EndPoint().Column) }

// childrenOfType returns the immediate children of n whose Type() is in
// types, preserving source order.
func childrenOfType(n *sitter.Node, types ...string) []*sitter.Node {
	want := make(map[string]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if _, ok := want[c.Type()]; ok {
			out = append(out, c)
		}
	}
	return out
}

func firstChildOfType(n *sitter.Node, types ...string) *sitter.Node {
	cs := childrenOfType(n, types...)
	if len(cs) == 0 {
		return nil
	}
	return cs[0]
}

// walk performs a preorder traversal over the whole tree, invoking visit
// for every node. Returning false from visit skips that node's children
// (used to avoid descending into nested function bodies twice, etc).
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}

// enclosingSymbol finds, among localIDs sorted by StartLine ascending,
// the innermost symbol whose [StartLine, EndLine] contains line. Analysers
// use this to attribute a raw call site to its caller.
func enclosingSymbol(symbols []*Symbol, line int) string {
	best := ""
	bestSpan := -1
	for _, s := range symbols {
		if s.StartLine <= line && line <= s.EndLine {
			span := s.EndLine - s.StartLine
			if bestSpan == -1 || span < bestSpan {
				bestSpan = span
				best = s.LocalID()
			}
		}
	}
	return best
}

func firstUpper(s string) bool {
	return len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z'
}
