package lang

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

type rustAnalyser struct{}

func newRustAnalyser() Analyser { return &rustAnalyser{} }

func (a *rustAnalyser) Language() string     { return "rs" }
func (a *rustAnalyser) Extensions() []string { return []string{".rs"} }
func (a *rustAnalyser) IsAvailable() bool    { return true }
func (a *rustAnalyser) BuiltinExclusions() map[string]struct{} { return rustBuiltins }

func (a *rustAnalyser) Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{FilePath: filePath, Language: "rs"}

	tree, err := parseTree(ctx, rust.GetLanguage(), content)
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

	a.walk(root, content, filePath, result, "", "")
	a.extractCalls(root, content, result)

	return result, nil
}

// walk recurses into impl/mod bodies per spec.md §4.2's explicit
// obligation ("Analyser recurses into impl and inline mod bodies").
func (a *rustAnalyser) walk(node *sitter.Node, content []byte, filePath string, result *ParseResult, modPath, implTarget string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "use_declaration":
			a.extractUse(c, content, result)
		case "mod_item":
			name := ""
			if id := firstChildOfType(c, "identifier"); id != nil {
				name = nodeText(id, content)
			}
			result.Symbols = append(result.Symbols, a.declSymbol(c, content, filePath, name, KindModule, ""))
			if body := firstChildOfType(c, "declaration_list"); body != nil {
				a.walk(body, content, filePath, result, joinModPath(modPath, name), implTarget)
			}
		case "function_item":
			a.extractFunction(c, content, filePath, result, implTarget)
		case "struct_item":
			a.extractNamed(c, content, filePath, result, KindStruct, "")
		case "enum_item":
			a.extractNamed(c, content, filePath, result, KindEnum, "")
		case "trait_item":
			a.extractNamed(c, content, filePath, result, KindTrait, "")
			if body := firstChildOfType(c, "declaration_list"); body != nil {
				typeName := ""
				if id := firstChildOfType(c, "type_identifier"); id != nil {
					typeName = nodeText(id, content)
				}
				a.walk(body, content, filePath, result, modPath, typeName)
			}
		case "type_item":
			a.extractNamed(c, content, filePath, result, KindTypeAlias, "")
		case "const_item":
			a.extractNamed(c, content, filePath, result, KindConstant, "")
		case "static_item":
			a.extractNamed(c, content, filePath, result, KindStatic, "")
		case "macro_definition":
			a.extractNamed(c, content, filePath, result, KindMacro, "")
		case "impl_item":
			target := ""
			if types := childrenOfType(c, "type_identifier", "generic_type"); len(types) > 0 {
				target = nodeText(types[len(types)-1], content)
			}
			sym := a.declSymbol(c, content, filePath, target, KindImpl, "")
			if trait := firstChildOfType(c, "type_identifier"); trait != nil && len(childrenOfType(c, "type_identifier")) > 1 {
				sym.Metadata.Implements = []string{nodeText(trait, content)}
			}
			result.Symbols = append(result.Symbols, sym)
			if body := firstChildOfType(c, "declaration_list"); body != nil {
				a.walk(body, content, filePath, result, modPath, target)
			}
		default:
			if c.ChildCount() > 0 {
				a.walk(c, content, filePath, result, modPath, implTarget)
			}
		}
	}
}

func joinModPath(base, seg string) string {
	if base == "" {
		return seg
	}
	return base + "::" + seg
}

func (a *rustAnalyser) extractUse(node *sitter.Node, content []byte, result *ParseResult) {
	if arg := firstChildOfType(node, "use_as_clause", "scoped_identifier", "scoped_use_list", "identifier"); arg != nil {
		result.Imports = append(result.Imports, Import{RawText: nodeText(node, content), Path: nodeText(arg, content), Line: startLine(node)})
	}
}

func (a *rustAnalyser) extractFunction(node *sitter.Node, content []byte, filePath string, result *ParseResult, receiver string) {
	nameNode := firstChildOfType(node, "identifier")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	kind := KindFunction
	if receiver != "" {
		kind = KindMethod
	}
	vis, exported := a.visibilityOf(node, content)
	result.Symbols = append(result.Symbols, &Symbol{
		Name: name, Kind: kind, FilePath: filePath, Language: "rs",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Visibility: vis, Exported: exported, Receiver: receiver, ParentName: receiver,
	})
}

func (a *rustAnalyser) extractNamed(node *sitter.Node, content []byte, filePath string, result *ParseResult, kind SymbolKind, receiver string) {
	result.Symbols = append(result.Symbols, a.declSymbol(node, content, filePath, "", kind, receiver))
}

func (a *rustAnalyser) declSymbol(node *sitter.Node, content []byte, filePath, fallbackName string, kind SymbolKind, receiver string) *Symbol {
	name := fallbackName
	if nameNode := firstChildOfType(node, "type_identifier", "identifier"); nameNode != nil {
		name = nodeText(nameNode, content)
	}
	vis, exported := a.visibilityOf(node, content)
	return &Symbol{
		Name: name, Kind: kind, FilePath: filePath, Language: "rs",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Visibility: vis, Exported: exported, Receiver: receiver, ParentName: receiver,
	}
}

func (a *rustAnalyser) visibilityOf(node *sitter.Node, content []byte) (Visibility, bool) {
	if vm := firstChildOfType(node, "visibility_modifier"); vm != nil {
		return VisibilityPublic, true
	}
	return VisibilityPrivate, false
}

func (a *rustAnalyser) extractCalls(root *sitter.Node, content []byte, result *ParseResult) {
	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "call_expression":
			fn := n.Child(0)
			if fn == nil {
				return true
			}
			qualifier, name := "", ""
			switch fn.Type() {
			case "identifier":
				name = nodeText(fn, content)
			case "scoped_identifier":
				if id := lastChildOfType(fn, "identifier"); id != nil {
					name = nodeText(id, content)
				}
				if path := firstChildOfType(fn, "identifier", "scoped_identifier"); path != nil && path != fn {
					qualifier = nodeText(path, content)
				}
			case "field_expression":
				if obj := fn.Child(0); obj != nil {
					qualifier = nodeText(obj, content)
				}
				if id := lastChildOfType(fn, "field_identifier"); id != nil {
					name = nodeText(id, content)
				}
			}
			if name == "" {
				return true
			}
			result.Calls = append(result.Calls, CallSite{CalleeName: name, Qualifier: qualifier, Line: startLine(n)})
		case "macro_invocation":
			if id := firstChildOfType(n, "identifier"); id != nil {
				result.Calls = append(result.Calls, CallSite{CalleeName: nodeText(id, content), Line: startLine(n)})
			}
		}
		return true
	})
	for i := range result.Calls {
		result.Calls[i].CallerLocalID = enclosingSymbol(result.Symbols, result.Calls[i].Line)
	}
}
