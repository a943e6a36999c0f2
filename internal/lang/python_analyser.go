package lang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

type pythonAnalyser struct{}

func newPythonAnalyser() Analyser { return &pythonAnalyser{} }

func (a *pythonAnalyser) Language() string     { return "py" }
func (a *pythonAnalyser) Extensions() []string { return []string{".py"} }
func (a *pythonAnalyser) IsAvailable() bool    { return true }
func (a *pythonAnalyser) BuiltinExclusions() map[string]struct{} { return pythonBuiltins }

func (a *pythonAnalyser) Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{FilePath: filePath, Language: "py"}

	tree, err := parseTree(ctx, python.GetLanguage(), content)
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

	a.extractImports(root, content, result)
	a.walkBody(root, content, filePath, result, "")
	a.extractCalls(root, content, result)

	return result, nil
}

func (a *pythonAnalyser) extractImports(root *sitter.Node, content []byte, result *ParseResult) {
	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			for _, name := range childrenOfType(n, "dotted_name", "aliased_import") {
				a.addImport(name, content, result, false)
			}
			return false
		case "import_from_statement":
			var modPath string
			isRelative := false
			for i := 0; i < int(n.ChildCount()); i++ {
				c := n.Child(i)
				switch c.Type() {
				case "relative_import":
					isRelative = true
					modPath = nodeText(c, content)
				case "dotted_name":
					if modPath == "" {
						modPath = nodeText(c, content)
					}
				}
			}
			if modPath != "" {
				result.Imports = append(result.Imports, Import{
					RawText: nodeText(n, content), Path: modPath,
					IsRelative: isRelative, Line: startLine(n),
				})
			}
			return false
		}
		return true
	})
}

func (a *pythonAnalyser) addImport(n *sitter.Node, content []byte, result *ParseResult, relative bool) {
	path := nodeText(n, content)
	alias := ""
	if n.Type() == "aliased_import" {
		if dn := firstChildOfType(n, "dotted_name"); dn != nil {
			path = nodeText(dn, content)
		}
		if id := firstChildOfType(n, "identifier"); id != nil {
			alias = nodeText(id, content)
		}
	}
	result.Imports = append(result.Imports, Import{RawText: path, Path: path, Alias: alias, IsRelative: relative, Line: startLine(n)})
}

// walkBody recurses through class/function suites, tracking the enclosing
// class name so nested defs become Method symbols with a Receiver.
func (a *pythonAnalyser) walkBody(node *sitter.Node, content []byte, filePath string, result *ParseResult, enclosingClass string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "class_definition":
			a.extractClass(c, content, filePath, result)
		case "function_definition", "decorated_definition":
			a.extractFunction(c, content, filePath, result, enclosingClass)
		default:
			a.walkBody(c, content, filePath, result, enclosingClass)
		}
	}
}

func (a *pythonAnalyser) extractClass(node *sitter.Node, content []byte, filePath string, result *ParseResult) {
	nameNode := firstChildOfType(node, "identifier")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	var bases []string
	if arglist := firstChildOfType(node, "argument_list"); arglist != nil {
		for _, id := range childrenOfType(arglist, "identifier") {
			bases = append(bases, nodeText(id, content))
		}
	}
	sym := &Symbol{
		Name: name, Kind: KindClass, FilePath: filePath, Language: "py",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported:   !strings.HasPrefix(name, "_"),
		Visibility: visibilityFromUnderscore(name),
	}
	if len(bases) > 0 {
		sym.Metadata.Extends = bases[0]
		sym.Metadata.Implements = bases
	}
	result.Symbols = append(result.Symbols, sym)

	if body := firstChildOfType(node, "block"); body != nil {
		a.walkBody(body, content, filePath, result, name)
	}
}

func (a *pythonAnalyser) extractFunction(node *sitter.Node, content []byte, filePath string, result *ParseResult, enclosingClass string) {
	fn := node
	var decorators []string
	if node.Type() == "decorated_definition" {
		for _, d := range childrenOfType(node, "decorator") {
			decorators = append(decorators, strings.TrimPrefix(nodeText(d, content), "@"))
		}
		if inner := firstChildOfType(node, "function_definition", "class_definition"); inner != nil {
			if inner.Type() == "class_definition" {
				a.extractClass(inner, content, filePath, result)
				return
			}
			fn = inner
		}
	}
	nameNode := firstChildOfType(fn, "identifier")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	kind := KindFunction
	receiver := ""
	if enclosingClass != "" {
		kind = KindMethod
		receiver = enclosingClass
	}
	sym := &Symbol{
		Name: name, Kind: kind, FilePath: filePath, Language: "py",
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported:   !strings.HasPrefix(name, "_"),
		Visibility: visibilityFromUnderscore(name),
		Receiver:   receiver,
		ParentName: receiver,
	}
	if len(decorators) > 0 {
		sym.Metadata.FrameworkAttributes = decorators
	}
	result.Symbols = append(result.Symbols, sym)
}

func visibilityFromUnderscore(name string) Visibility {
	if strings.HasPrefix(name, "_") {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

func (a *pythonAnalyser) extractCalls(root *sitter.Node, content []byte, result *ParseResult) {
	walk(root, func(n *sitter.Node) bool {
		if n.Type() != "call" {
			return true
		}
		fn := firstChildOfType(n, "identifier", "attribute")
		if fn == nil {
			return true
		}
		qualifier, name := "", ""
		if fn.Type() == "identifier" {
			name = nodeText(fn, content)
		} else {
			if obj := fn.Child(0); obj != nil {
				qualifier = nodeText(obj, content)
			}
			if attr := firstChildOfType(fn, "identifier"); attr != nil {
				name = nodeText(attr, content)
			}
		}
		if name == "" {
			return true
		}
		result.Calls = append(result.Calls, CallSite{CalleeName: name, Qualifier: qualifier, Line: startLine(n)})
		return true
	})
	for i := range result.Calls {
		result.Calls[i].CallerLocalID = enclosingSymbol(result.Symbols, result.Calls[i].Line)
	}
}
