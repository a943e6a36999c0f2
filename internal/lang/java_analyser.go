package lang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

type javaAnalyser struct{}

func newJavaAnalyser() Analyser { return &javaAnalyser{} }

func (a *javaAnalyser) Language() string     { return "java" }
func (a *javaAnalyser) Extensions() []string { return []string{".java"} }
func (a *javaAnalyser) IsAvailable() bool    { return true }
func (a *javaAnalyser) BuiltinExclusions() map[string]struct{} { return javaBuiltins }

func (a *javaAnalyser) Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{FilePath: filePath, Language: "java"}

	tree, err := parseTree(ctx, java.GetLanguage(), content)
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

	if pkg := firstChildOfType(root, "package_declaration"); pkg != nil {
		if id := firstChildOfType(pkg, "scoped_identifier", "identifier"); id != nil {
			result.Package = nodeText(id, content)
		}
	}

	for _, imp := range childrenOfType(root, "import_declaration") {
		a.extractImport(imp, content, result)
	}

	a.walkTypeBody(root, content, filePath, result, "")
	a.extractCalls(root, content, result)

	return result, nil
}

func (a *javaAnalyser) extractImport(node *sitter.Node, content []byte, result *ParseResult) {
	if id := firstChildOfType(node, "scoped_identifier", "identifier"); id != nil {
		path := nodeText(id, content)
		result.Imports = append(result.Imports, Import{RawText: nodeText(node, content), Path: path, Line: startLine(node)})
	}
}

var javaTypeDeclTypes = []string{"class_declaration", "interface_declaration", "enum_declaration", "record_declaration", "annotation_type_declaration"}

func (a *javaAnalyser) walkTypeBody(node *sitter.Node, content []byte, filePath string, result *ParseResult, enclosing string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration", "annotation_type_declaration":
			a.extractType(c, content, filePath, result)
		case "method_declaration", "constructor_declaration":
			a.extractMethod(c, content, filePath, result, enclosing)
		default:
			a.walkTypeBody(c, content, filePath, result, enclosing)
		}
	}
}

func (a *javaAnalyser) extractType(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	nameNode := firstChildOfType(node, "identifier")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	kind := KindClass
	switch node.Type() {
	case "interface_declaration":
		kind = KindInterface
	case "enum_declaration":
		kind = KindEnum
	case "record_declaration":
		kind = KindRecord
	case "annotation_type_declaration":
		kind = KindAnnotation
	}
	vis, exported := a.visibilityOf(node, content)
	sym := &Symbol{
		Name: name, Kind: kind, FilePath: filePath, Language: "java",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Visibility: vis, Exported: exported,
	}
	if sc := firstChildOfType(node, "superclass"); sc != nil {
		if id := firstChildOfType(sc, "type_identifier"); id != nil {
			sym.Metadata.Extends = nodeText(id, content)
		}
	}
	if si := firstChildOfType(node, "super_interfaces"); si != nil {
		walk(si, func(n *sitter.Node) bool {
			if n.Type() == "type_identifier" {
				sym.Metadata.Implements = append(sym.Metadata.Implements, nodeText(n, content))
			}
			return true
		})
	}
	result.Symbols = append(result.Symbols, sym)

	if body := firstChildOfType(node, "class_body", "interface_body", "enum_body", "record_body", "annotation_type_body"); body != nil {
		a.walkTypeBody(body, content, filePath, result, name)
	}
}

func (a *javaAnalyser) extractMethod(node *sitter.Node, content []byte, filePath string, result *ParseResult, enclosing string) {
	nameNode := firstChildOfType(node, "identifier")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	kind := KindMethod
	if node.Type() == "constructor_declaration" {
		kind = KindConstructor
	}
	vis, exported := a.visibilityOf(node, content)
	result.Symbols = append(result.Symbols, &Symbol{
		Name: name, Kind: kind, FilePath: filePath, Language: "java",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Visibility: vis, Exported: exported, Receiver: enclosing, ParentName: enclosing,
	})
}

func (a *javaAnalyser) visibilityOf(node *sitter.Node, content []byte) (Visibility, bool) {
	mods := firstChildOfType(node, "modifiers")
	if mods == nil {
		return VisibilityInternal, true // package-private defaults to internal-ish, still cross-file within package
	}
	text := nodeText(mods, content)
	switch {
	case strings.Contains(text, "public"):
		return VisibilityPublic, true
	case strings.Contains(text, "private"):
		return VisibilityPrivate, false
	case strings.Contains(text, "protected"):
		return VisibilityProtected, true
	default:
		return VisibilityInternal, true
	}
}

func (a *javaAnalyser) extractCalls(root *sitter.Node, content []byte, result *ParseResult) {
	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "method_invocation":
			nameNode := firstChildOfType(n, "identifier")
			qualifier := ""
			if obj := firstChildOfType(n, "field_access", "identifier"); obj != nil && obj != nameNode {
				qualifier = nodeText(obj, content)
			}
			if nameNode == nil {
				return true
			}
			result.Calls = append(result.Calls, CallSite{CalleeName: nodeText(nameNode, content), Qualifier: qualifier, Line: startLine(n)})
		case "object_creation_expression":
			if t := firstChildOfType(n, "type_identifier"); t != nil {
				result.Calls = append(result.Calls, CallSite{CalleeName: nodeText(t, content), Line: startLine(n)})
			}
		}
		return true
	})
	for i := range result.Calls {
		result.Calls[i].CallerLocalID = enclosingSymbol(result.Symbols, result.Calls[i].Line)
	}
}
