package lang

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

type cppAnalyser struct{}

func newCppAnalyser() Analyser { return &cppAnalyser{} }

func (a *cppAnalyser) Language() string     { return "cpp" }
func (a *cppAnalyser) Extensions() []string { return []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx"} }
func (a *cppAnalyser) IsAvailable() bool    { return true }
func (a *cppAnalyser) BuiltinExclusions() map[string]struct{} { return cppBuiltins }

func (a *cppAnalyser) Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{FilePath: filePath, Language: "cpp"}

	tree, err := parseTree(ctx, cpp.GetLanguage(), content)
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

	cExtractTopLevel(root, content, filePath, result, "cpp") // shared C-family obligations (functions, structs, enums, includes)
	a.extractCppOnly(root, content, filePath, result, "")
	cExtractCalls(root, content, result)
	a.extractConstructorCalls(root, content, result)

	return result, nil
}

// extractCppOnly adds the C++-only node types the C grammar doesn't have:
// class_specifier, namespace_definition, template_declaration.
func (a *cppAnalyser) extractCppOnly(node *sitter.Node, content []byte, filePath string, result *ParseResult, enclosingNamespace string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "namespace_definition":
			ns := enclosingNamespace
			if nameNode := firstChildOfType(c, "identifier", "namespace_identifier"); nameNode != nil {
				ns = nodeText(nameNode, content)
				result.Symbols = append(result.Symbols, &Symbol{
					Name: ns, Kind: KindNamespace, FilePath: filePath, Language: "cpp",
					StartLine: startLine(c), EndLine: endLine(c),
					StartCol: startCol(c), EndCol: endCol(c), Exported: true, Visibility: VisibilityPublic,
				})
			}
			a.extractCppOnly(c, content, filePath, result, ns)
		case "class_specifier":
			a.extractClass(c, content, filePath, result)
		case "template_declaration":
			if inner := firstChildOfType(c, "class_specifier", "function_definition"); inner != nil {
				result.Symbols = append(result.Symbols, &Symbol{
					Name: "template", Kind: KindTemplate, FilePath: filePath, Language: "cpp",
					StartLine: startLine(c), EndLine: endLine(c),
					StartCol: startCol(c), EndCol: endCol(c), Exported: true, Visibility: VisibilityPublic,
				})
				a.extractCppOnly(c, content, filePath, result, enclosingNamespace)
			}
		default:
			a.extractCppOnly(c, content, filePath, result, enclosingNamespace)
		}
	}
}

func (a *cppAnalyser) extractClass(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	nameNode := firstChildOfType(node, "type_identifier")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	sym := &Symbol{
		Name: name, Kind: KindClass, FilePath: filePath, Language: "cpp",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported: true, Visibility: VisibilityPublic,
	}
	if base := firstChildOfType(node, "base_class_clause"); base != nil {
		for _, id := range childrenOfType(base, "type_identifier") {
			sym.Metadata.Implements = append(sym.Metadata.Implements, nodeText(id, content))
		}
		if len(sym.Metadata.Implements) > 0 {
			sym.Metadata.Extends = sym.Metadata.Implements[0]
		}
	}
	result.Symbols = append(result.Symbols, sym)

	if body := firstChildOfType(node, "field_declaration_list"); body != nil {
		for _, fd := range childrenOfType(body, "function_definition", "field_declaration") {
			if fd.Type() == "function_definition" {
				declarator := firstChildOfType(fd, "function_declarator", "pointer_declarator")
				if declarator == nil {
					continue
				}
				mname := cFunctionName(declarator, content)
				if mname == "" {
					continue
				}
				kind := KindMethod
				if mname == name {
					kind = KindConstructor
				}
				result.Symbols = append(result.Symbols, &Symbol{
					Name: mname, Kind: kind, FilePath: filePath, Language: "cpp",
					StartLine: startLine(fd), EndLine: endLine(fd),
					StartCol: startCol(fd), EndCol: endCol(fd),
					Exported: true, Visibility: VisibilityPublic, Receiver: name, ParentName: name,
				})
			}
		}
	}
}

func (a *cppAnalyser) extractConstructorCalls(root *sitter.Node, content []byte, result *ParseResult) {
	walk(root, func(n *sitter.Node) bool {
		if n.Type() != "new_expression" {
			return true
		}
		if t := firstChildOfType(n, "type_identifier"); t != nil {
			call := CallSite{CalleeName: nodeText(t, content), Line: startLine(n)}
			call.CallerLocalID = enclosingSymbol(result.Symbols, call.Line)
			result.Calls = append(result.Calls, call)
		}
		return true
	})
}
