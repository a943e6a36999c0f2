package lang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

type csharpAnalyser struct{}

func newCSharpAnalyser() Analyser { return &csharpAnalyser{} }

func (a *csharpAnalyser) Language() string     { return "cs" }
func (a *csharpAnalyser) Extensions() []string { return []string{".cs"} }
func (a *csharpAnalyser) IsAvailable() bool    { return true }
func (a *csharpAnalyser) BuiltinExclusions() map[string]struct{} { return csharpBuiltins }

func (a *csharpAnalyser) Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{FilePath: filePath, Language: "cs"}

	tree, err := parseTree(ctx, csharp.GetLanguage(), content)
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

var csharpTypeKinds = map[string]SymbolKind{
	"class_declaration":     KindClass,
	"interface_declaration": KindInterface,
	"struct_declaration":    KindStruct,
	"enum_declaration":      KindEnum,
	"record_declaration":    KindRecord,
	"delegate_declaration":  KindDelegate,
}

// walk recurses the whole file tracking the current namespace (for the
// namespace index) and the current enclosing type (for Receiver/parent).
func (a *csharpAnalyser) walk(node *sitter.Node, content []byte, filePath string, result *ParseResult, namespace, enclosingType string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "using_directive":
			a.extractUsing(c, content, result)
		case "file_scoped_namespace_declaration", "namespace_declaration":
			ns := namespace
			if nameNode := firstChildOfType(c, "qualified_name", "identifier"); nameNode != nil {
				ns = nodeText(nameNode, content)
				if result.Package == "" {
					result.Package = ns
				}
			}
			a.walk(c, content, filePath, result, ns, enclosingType)
		case "class_declaration", "interface_declaration", "struct_declaration", "enum_declaration", "record_declaration", "delegate_declaration":
			a.extractType(c, content, filePath, result, namespace, enclosingType)
		case "method_declaration", "constructor_declaration":
			a.extractMethod(c, content, filePath, result, enclosingType)
		case "property_declaration":
			a.extractProperty(c, content, filePath, result, enclosingType)
		default:
			a.walk(c, content, filePath, result, namespace, enclosingType)
		}
	}
}

func (a *csharpAnalyser) extractUsing(node *sitter.Node, content []byte, result *ParseResult) {
	if nameNode := firstChildOfType(node, "qualified_name", "identifier"); nameNode != nil {
		path := nodeText(nameNode, content)
		result.Imports = append(result.Imports, Import{RawText: nodeText(node, content), Path: path, Line: startLine(node)})
	}
}

func (a *csharpAnalyser) extractType(node *sitter.Node, content []byte, filePath string, result *ParseResult, namespace, parentType string) {
	nameNode := firstChildOfType(node, "identifier")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	kind := csharpTypeKinds[node.Type()]
	vis, exported := a.visibilityOf(node, content, parentType == "")
	sym := &Symbol{
		Name: name, Kind: kind, FilePath: filePath, Language: "cs",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Visibility: vis, Exported: exported,
	}
	sym.Metadata.Namespace = namespace
	if base := firstChildOfType(node, "base_list"); base != nil {
		for _, id := range childrenOfType(base, "identifier", "generic_name") {
			sym.Metadata.Implements = append(sym.Metadata.Implements, nodeText(id, content))
		}
		if len(sym.Metadata.Implements) > 0 {
			sym.Metadata.Extends = sym.Metadata.Implements[0]
		}
	}
	result.Symbols = append(result.Symbols, sym)

	// Constructor-parameter-type recording for DI resolution (Tier A
	// "di-resolved"): scan constructors of this type for
	// `(IFoo foo, IBar bar)`-shaped parameter lists.
	if body := firstChildOfType(node, "declaration_list"); body != nil {
		for _, ctor := range childrenOfType(body, "constructor_declaration") {
			a.recordConstructorParams(ctor, content, sym)
		}
		a.walk(body, content, filePath, result, namespace, name)
	}
}

func (a *csharpAnalyser) recordConstructorParams(ctor *sitter.Node, content []byte, owner *Symbol) {
	plist := firstChildOfType(ctor, "parameter_list")
	if plist == nil {
		return
	}
	if owner.Metadata.ConstructorParamTypes == nil {
		owner.Metadata.ConstructorParamTypes = make(map[string]string)
	}
	for _, param := range childrenOfType(plist, "parameter") {
		typeNode := firstChildOfType(param, "identifier", "generic_name", "predefined_type")
		nameNode := lastChildOfType(param, "identifier")
		if typeNode == nil || nameNode == nil || typeNode == nameNode {
			continue
		}
		owner.Metadata.ConstructorParamTypes[nodeText(nameNode, content)] = nodeText(typeNode, content)
	}
}

func lastChildOfType(n *sitter.Node, t string) *sitter.Node {
	cs := childrenOfType(n, t)
	if len(cs) == 0 {
		return nil
	}
	return cs[len(cs)-1]
}

func (a *csharpAnalyser) extractMethod(node *sitter.Node, content []byte, filePath string, result *ParseResult, enclosingType string) {
	nameNode := firstChildOfType(node, "identifier")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	kind := KindMethod
	if node.Type() == "constructor_declaration" {
		kind = KindConstructor
	}
	vis, exported := a.visibilityOf(node, content, false)
	sym := &Symbol{
		Name: name, Kind: kind, FilePath: filePath, Language: "cs",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Visibility: vis, Exported: exported, Receiver: enclosingType, ParentName: enclosingType,
	}
	if attrs := a.attributeNames(node, content); len(attrs) > 0 {
		sym.Metadata.FrameworkAttributes = attrs
	}
	result.Symbols = append(result.Symbols, sym)
}

func (a *csharpAnalyser) extractProperty(node *sitter.Node, content []byte, filePath string, result *ParseResult, enclosingType string) {
	nameNode := firstChildOfType(node, "identifier")
	if nameNode == nil {
		return
	}
	vis, exported := a.visibilityOf(node, content, false)
	result.Symbols = append(result.Symbols, &Symbol{
		Name: nodeText(nameNode, content), Kind: KindProperty, FilePath: filePath, Language: "cs",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Visibility: vis, Exported: exported, Receiver: enclosingType, ParentName: enclosingType,
	})
}

// attributeNames collects [HttpGet]-shaped attribute lists preceding a
// declaration, feeding the process tracer's framework multiplier.
func (a *csharpAnalyser) attributeNames(node *sitter.Node, content []byte) []string {
	var out []string
	for _, al := range childrenOfType(node, "attribute_list") {
		walk(al, func(n *sitter.Node) bool {
			if n.Type() == "attribute" {
				if id := firstChildOfType(n, "identifier"); id != nil {
					out = append(out, nodeText(id, content))
				}
			}
			return true
		})
	}
	return out
}

func (a *csharpAnalyser) visibilityOf(node *sitter.Node, content []byte, topLevel bool) (Visibility, bool) {
	var modText strings.Builder
	for _, m := range childrenOfType(node, "modifier") {
		modText.WriteString(nodeText(m, content))
		modText.WriteByte(' ')
	}
	text := modText.String()
	switch {
	case strings.Contains(text, "public"):
		return VisibilityPublic, true
	case strings.Contains(text, "private"):
		return VisibilityPrivate, false
	case strings.Contains(text, "internal"):
		return VisibilityInternal, topLevel
	case strings.Contains(text, "protected"):
		return VisibilityProtected, true
	default:
		if topLevel {
			return VisibilityInternal, true // C# default for top-level types is internal
		}
		return VisibilityPrivate, false
	}
}

func (a *csharpAnalyser) extractCalls(root *sitter.Node, content []byte, result *ParseResult) {
	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "invocation_expression":
			fn := n.Child(0)
			if fn == nil {
				return true
			}
			qualifier, name := "", ""
			switch fn.Type() {
			case "identifier":
				name = nodeText(fn, content)
			case "member_access_expression":
				if obj := fn.Child(0); obj != nil {
					qualifier = nodeText(obj, content)
				}
				if id := lastChildOfType(fn, "identifier"); id != nil {
					name = nodeText(id, content)
				}
			}
			if name == "" {
				return true
			}
			result.Calls = append(result.Calls, CallSite{CalleeName: name, Qualifier: qualifier, Line: startLine(n)})
		case "object_creation_expression":
			if t := firstChildOfType(n, "identifier", "generic_name"); t != nil {
				result.Calls = append(result.Calls, CallSite{CalleeName: nodeText(t, content), Line: startLine(n)})
			}
		}
		return true
	})
	for i := range result.Calls {
		result.Calls[i].CallerLocalID = enclosingSymbol(result.Symbols, result.Calls[i].Line)
	}
}
