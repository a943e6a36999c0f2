package lang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// jsFamilyParse implements the shared TypeScript/JavaScript extraction the
// two language-tagged analysers below both call — the two grammars share
// almost every node type, they only diverge on interface/type-alias/enum
// declarations, which tsOnly gates.
func jsFamilyParse(ctx context.Context, grammar *sitter.Language, language string, tsOnly bool, filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{FilePath: filePath, Language: language}

	tree, err := parseTree(ctx, grammar, content)
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

	jsExtractImports(root, content, result)
	jsWalkBody(root, content, filePath, result, language, tsOnly, "", false)
	jsExtractCalls(root, content, result)

	return result, nil
}

func jsExtractImports(root *sitter.Node, content []byte, result *ParseResult) {
	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			if src := firstChildOfType(n, "string"); src != nil {
				path := strings.Trim(nodeText(src, content), `"'`)
				result.Imports = append(result.Imports, Import{
					RawText: nodeText(n, content), Path: path,
					IsRelative: strings.HasPrefix(path, "."), Line: startLine(n),
				})
			}
			return false
		case "export_statement":
			if src := firstChildOfType(n, "string"); src != nil {
				path := strings.Trim(nodeText(src, content), `"'`)
				result.Imports = append(result.Imports, Import{
					RawText: nodeText(n, content), Path: path,
					IsRelative: strings.HasPrefix(path, "."), Line: startLine(n),
				})
				return false
			}
		case "call_expression":
			if fn := n.Child(0); fn != nil && fn.Type() == "identifier" && nodeText(fn, content) == "require" {
				if args := firstChildOfType(n, "arguments"); args != nil {
					if str := firstChildOfType(args, "string"); str != nil {
						path := strings.Trim(nodeText(str, content), `"'`)
						result.Imports = append(result.Imports, Import{
							RawText: nodeText(n, content), Path: path,
							IsRelative: strings.HasPrefix(path, "."), Line: startLine(n),
						})
					}
				}
			}
		}
		return true
	})
}

func jsWalkBody(node *sitter.Node, content []byte, filePath string, result *ParseResult, language string, tsOnly bool, enclosingClass string, exportedDefault bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "class_declaration":
			jsExtractClass(c, content, filePath, result, language)
		case "function_declaration", "generator_function_declaration":
			jsExtractFunction(c, content, filePath, result, language, enclosingClass, false)
		case "method_definition":
			jsExtractFunction(c, content, filePath, result, language, enclosingClass, false)
		case "interface_declaration":
			if tsOnly {
				jsExtractInterface(c, content, filePath, result, language)
			}
		case "type_alias_declaration":
			if tsOnly {
				jsExtractNamed(c, content, filePath, result, language, KindTypeAlias)
			}
		case "enum_declaration":
			if tsOnly {
				jsExtractNamed(c, content, filePath, result, language, KindEnum)
			}
		case "export_statement":
			isDefault := false
			for j := 0; j < int(c.ChildCount()); j++ {
				if c.Child(j).Type() == "default" {
					isDefault = true
				}
			}
			jsWalkBody(c, content, filePath, result, language, tsOnly, enclosingClass, isDefault)
		case "lexical_declaration", "variable_declaration":
			jsExtractVariableDeclarators(c, content, filePath, result, language, exportedDefault)
		default:
			if c.ChildCount() > 0 {
				jsWalkBody(c, content, filePath, result, language, tsOnly, enclosingClass, false)
			}
		}
	}
}

func jsExtractClass(node *sitter.Node, content []byte, filePath string, result *ParseResult, language string) {
	nameNode := firstChildOfType(node, "type_identifier", "identifier")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	sym := &Symbol{
		Name: name, Kind: KindClass, FilePath: filePath, Language: language,
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported: true, Visibility: VisibilityPublic,
	}
	if heritage := firstChildOfType(node, "class_heritage"); heritage != nil {
		for _, id := range childrenOfType(heritage, "identifier", "type_identifier") {
			if sym.Metadata.Extends == "" {
				sym.Metadata.Extends = nodeText(id, content)
			}
			sym.Metadata.Implements = append(sym.Metadata.Implements, nodeText(id, content))
		}
	}
	result.Symbols = append(result.Symbols, sym)

	if body := firstChildOfType(node, "class_body"); body != nil {
		for _, m := range childrenOfType(body, "method_definition") {
			jsExtractFunction(m, content, filePath, result, language, name, false)
		}
	}
}

func jsExtractFunction(node *sitter.Node, content []byte, filePath string, result *ParseResult, language, enclosingClass string, exported bool) {
	nameNode := firstChildOfType(node, "property_identifier", "identifier")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	kind := KindFunction
	if enclosingClass != "" {
		kind = KindMethod
	}
	if name == "constructor" {
		kind = KindConstructor
	}
	sym := &Symbol{
		Name: name, Kind: kind, FilePath: filePath, Language: language,
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported: true, Visibility: VisibilityPublic,
		Receiver: enclosingClass, ParentName: enclosingClass,
	}
	result.Symbols = append(result.Symbols, sym)
}

func jsExtractInterface(node *sitter.Node, content []byte, filePath string, result *ParseResult, language string) {
	jsExtractNamed(node, content, filePath, result, language, KindInterface)
}

func jsExtractNamed(node *sitter.Node, content []byte, filePath string, result *ParseResult, language string, kind SymbolKind) {
	nameNode := firstChildOfType(node, "type_identifier", "identifier")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, content)
	result.Symbols = append(result.Symbols, &Symbol{
		Name: name, Kind: kind, FilePath: filePath, Language: language,
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported: true, Visibility: VisibilityPublic,
	})
}

// jsExtractVariableDeclarators surfaces `const handler = () => {}`-shaped
// arrow functions as Function symbols bound to their declarator name, per
// the TS/JS analyser obligation in the component design.
func jsExtractVariableDeclarators(node *sitter.Node, content []byte, filePath string, result *ParseResult, language string, exported bool) {
	for _, decl := range childrenOfType(node, "variable_declarator") {
		nameNode := firstChildOfType(decl, "identifier")
		if nameNode == nil {
			continue
		}
		value := decl
		for i := 0; i < int(decl.ChildCount()); i++ {
			c := decl.Child(i)
			if c.Type() == "arrow_function" || c.Type() == "function" || c.Type() == "function_expression" {
				value = c
				break
			}
		}
		if value == decl {
			continue
		}
		result.Symbols = append(result.Symbols, &Symbol{
			Name: nodeText(nameNode, content), Kind: KindFunction, FilePath: filePath, Language: language,
			StartLine: startLine(decl), EndLine: endLine(value),
			StartCol: startCol(decl), EndCol: endCol(value),
			Exported: exported, Visibility: VisibilityPublic,
		})
	}
}

func jsExtractCalls(root *sitter.Node, content []byte, result *ParseResult) {
	walk(root, func(n *sitter.Node) bool {
		if n.Type() != "call_expression" && n.Type() != "new_expression" {
			return true
		}
		fn := n.Child(0)
		if n.Type() == "new_expression" {
			fn = firstChildOfType(n, "identifier", "member_expression")
		}
		if fn == nil {
			return true
		}
		qualifier, name := "", ""
		switch fn.Type() {
		case "identifier":
			name = nodeText(fn, content)
		case "member_expression":
			if obj := fn.Child(0); obj != nil {
				qualifier = nodeText(obj, content)
			}
			if prop := firstChildOfType(fn, "property_identifier"); prop != nil {
				name = nodeText(prop, content)
			}
		}
		if name == "" || name == "require" {
			return true
		}
		result.Calls = append(result.Calls, CallSite{CalleeName: name, Qualifier: qualifier, Line: startLine(n)})
		return true
	})
	for i := range result.Calls {
		result.Calls[i].CallerLocalID = enclosingSymbol(result.Symbols, result.Calls[i].Line)
	}
}
