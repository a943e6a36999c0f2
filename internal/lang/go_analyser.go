package lang

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

type goAnalyser struct{}

func newGoAnalyser() Analyser { return &goAnalyser{} }

func (a *goAnalyser) Language() string      { return "go" }
func (a *goAnalyser) Extensions() []string  { return []string{".go"} }
func (a *goAnalyser) IsAvailable() bool     { return true }
func (a *goAnalyser) BuiltinExclusions() map[string]struct{} { return goBuiltins }

func (a *goAnalyser) Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{FilePath: filePath, Language: "go"}

	tree, err := parseTree(ctx, golang.GetLanguage(), content)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		result.Errors = append(result.Errors, "nil root node")
		return result, nil
	}
	if root.HasError() {
		result.Errors = append(result.Errors, "source contains syntax errors")
	}

	if pkg := firstChildOfType(root, "package_clause"); pkg != nil {
		if id := firstChildOfType(pkg, "package_identifier"); id != nil {
			result.Package = nodeText(id, content)
		}
	}

	for _, decl := range childrenOfType(root, "import_declaration") {
		a.extractImportDecl(decl, content, result)
	}

	for _, fn := range childrenOfType(root, "function_declaration") {
		a.extractFunction(fn, content, filePath, result)
	}
	for _, m := range childrenOfType(root, "method_declaration") {
		a.extractMethod(m, content, filePath, result)
	}
	for _, td := range childrenOfType(root, "type_declaration") {
		a.extractTypeDecl(td, content, filePath, result)
	}
	for _, vd := range childrenOfType(root, "const_declaration") {
		a.extractVarDecl(vd, content, filePath, result, KindConstant)
	}
	for _, vd := range childrenOfType(root, "var_declaration") {
		a.extractVarDecl(vd, content, filePath, result, KindVariable)
	}

	a.extractCalls(root, content, result)

	return result, nil
}

func (a *goAnalyser) extractImportDecl(node *sitter.Node, content []byte, result *ParseResult) {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "import_spec":
			a.extractImportSpec(c, content, result)
		case "import_spec_list":
			for _, spec := range childrenOfType(c, "import_spec") {
				a.extractImportSpec(spec, content, result)
			}
		}
	}
}

func (a *goAnalyser) extractImportSpec(node *sitter.Node, content []byte, result *ParseResult) {
	var alias, path string
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "package_identifier", "blank_identifier", "dot":
			alias = nodeText(c, content)
		case "interpreted_string_literal":
			path = strings.Trim(nodeText(c, content), `"`)
		}
	}
	if path == "" {
		return
	}
	result.Imports = append(result.Imports, Import{
		RawText: nodeText(node, content),
		Path:    path,
		Alias:   alias,
		Line:    startLine(node),
	})
}

func (a *goAnalyser) extractFunction(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	name := ""
	var params string
	if id := firstChildOfType(node, "identifier"); id != nil {
		name = nodeText(id, content)
	}
	if name == "" {
		return
	}
	if pl := firstChildOfType(node, "parameter_list"); pl != nil {
		params = nodeText(pl, content)
	}
	sym := &Symbol{
		Name: name, Kind: KindFunction, FilePath: filePath, Language: "go",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported:  firstUpper(name),
		Signature: fmt.Sprintf("func %s%s", name, params),
	}
	if sym.Exported {
		sym.Visibility = VisibilityPublic
	} else {
		sym.Visibility = VisibilityPrivate
	}
	result.Symbols = append(result.Symbols, sym)
}

func (a *goAnalyser) extractMethod(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	name := ""
	receiver := ""
	plists := childrenOfType(node, "parameter_list")
	if len(plists) > 0 {
		receiver = a.receiverTypeName(plists[0], content)
	}
	if id := firstChildOfType(node, "field_identifier"); id != nil {
		name = nodeText(id, content)
	}
	if name == "" {
		return
	}
	sym := &Symbol{
		Name: name, Kind: KindMethod, FilePath: filePath, Language: "go",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported:   firstUpper(name),
		Receiver:   receiver,
		ParentName: receiver,
	}
	if sym.Exported {
		sym.Visibility = VisibilityPublic
	} else {
		sym.Visibility = VisibilityPrivate
	}
	result.Symbols = append(result.Symbols, sym)
}

// receiverTypeName strips pointer/generic decoration from a method receiver
// parameter_list, e.g. "(s *Server)" -> "Server".
func (a *goAnalyser) receiverTypeName(plist *sitter.Node, content []byte) string {
	text := nodeText(plist, content)
	text = strings.Trim(text, "()")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	t := fields[len(fields)-1]
	t = strings.TrimPrefix(t, "*")
	if idx := strings.Index(t, "["); idx >= 0 {
		t = t[:idx]
	}
	return t
}

func (a *goAnalyser) extractTypeDecl(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	for _, spec := range childrenOfType(node, "type_spec") {
		a.extractTypeSpec(spec, content, filePath, result)
	}
}

func (a *goAnalyser) extractTypeSpec(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	name := ""
	kind := KindTypeAlias
	var embeds []string
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "type_identifier":
			if name == "" {
				name = nodeText(c, content)
			}
		case "struct_type":
			kind = KindStruct
			embeds = append(embeds, a.structEmbeds(c, content)...)
		case "interface_type":
			kind = KindInterface
		}
	}
	if name == "" {
		return
	}
	sym := &Symbol{
		Name: name, Kind: kind, FilePath: filePath, Language: "go",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported: firstUpper(name),
	}
	if sym.Exported {
		sym.Visibility = VisibilityPublic
	} else {
		sym.Visibility = VisibilityPrivate
	}
	if len(embeds) > 0 {
		sym.Metadata.Implements = embeds // Go embedding, consulted by the call resolver's impl fan-out
	}
	result.Symbols = append(result.Symbols, sym)
}

// structEmbeds returns field names with no identifier — Go's embedded-field
// idiom — which the call resolver treats like a base-type relation.
func (a *goAnalyser) structEmbeds(structType *sitter.Node, content []byte) []string {
	var out []string
	fl := firstChildOfType(structType, "field_declaration_list")
	if fl == nil {
		return out
	}
	for _, fd := range childrenOfType(fl, "field_declaration") {
		if len(childrenOfType(fd, "field_identifier")) == 0 {
			if tid := firstChildOfType(fd, "type_identifier"); tid != nil {
				out = append(out, nodeText(tid, content))
			}
		}
	}
	return out
}

func (a *goAnalyser) extractVarDecl(node *sitter.Node, content []byte, filePath string, result *ParseResult, kind SymbolKind) {
	specType := "var_spec"
	if kind == KindConstant {
		specType = "const_spec"
	}
	specs := childrenOfType(node, specType)
	for _, c := range node_children(node) {
		if c.Type() == specType+"_list" {
			specs = append(specs, childrenOfType(c, specType)...)
		}
	}
	for _, spec := range specs {
		for _, id := range childrenOfType(spec, "identifier") {
			name := nodeText(id, content)
			sym := &Symbol{
				Name: name, Kind: kind, FilePath: filePath, Language: "go",
				StartLine: startLine(spec), EndLine: endLine(spec),
				StartCol: startCol(spec), EndCol: endCol(spec),
				Exported: firstUpper(name),
			}
			if sym.Exported {
				sym.Visibility = VisibilityPublic
			} else {
				sym.Visibility = VisibilityPrivate
			}
			result.Symbols = append(result.Symbols, sym)
		}
	}
}

func node_children(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, n.Child(i))
	}
	return out
}

func (a *goAnalyser) extractCalls(root *sitter.Node, content []byte, result *ParseResult) {
	walk(root, func(n *sitter.Node) bool {
		if n.Type() != "call_expression" {
			return true
		}
		fn := n.Child(0)
		if fn == nil {
			return true
		}
		qualifier, name := "", ""
		switch fn.Type() {
		case "identifier":
			name = nodeText(fn, content)
		case "selector_expression":
			if op := firstChildOfType(fn, "identifier", "call_expression"); op != nil {
				qualifier = nodeText(op, content)
			}
			if field := firstChildOfType(fn, "field_identifier"); field != nil {
				name = nodeText(field, content)
			}
		}
		if name == "" {
			return true
		}
		result.Calls = append(result.Calls, CallSite{
			CalleeName: name,
			Qualifier:  qualifier,
			Line:       startLine(n),
		})
		return true
	})
	for i := range result.Calls {
		result.Calls[i].CallerLocalID = enclosingSymbol(result.Symbols, result.Calls[i].Line)
	}
}
