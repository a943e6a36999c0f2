package lang

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

type cAnalyser struct{}

func newCAnalyser() Analyser { return &cAnalyser{} }

func (a *cAnalyser) Language() string     { return "c" }
func (a *cAnalyser) Extensions() []string { return []string{".c", ".h"} }
func (a *cAnalyser) IsAvailable() bool    { return true }
func (a *cAnalyser) BuiltinExclusions() map[string]struct{} { return cBuiltins }

func (a *cAnalyser) Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{FilePath: filePath, Language: "c"}

	tree, err := parseTree(ctx, c.GetLanguage(), content)
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

	cExtractTopLevel(root, content, filePath, result, "c")
	cExtractCalls(root, content, result)

	return result, nil
}

// cExtractTopLevel is shared with the C++ analyser: the two grammars agree
// on function_definition/struct_specifier/union_specifier/enum_specifier
// and on preproc_include/preproc_ifdef, which is everything spec.md §4.2
// asks of the C/C++ obligation short of C++-only class/namespace/template
// nodes the cpp analyser adds on top.
func cExtractTopLevel(node *sitter.Node, content []byte, filePath string, result *ParseResult, language string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		switch c.Type() {
		case "preproc_include":
			cExtractInclude(c, content, result)
		case "preproc_ifdef", "preproc_if":
			// Recurse into conditional-compilation branches per spec.md §4.2.
			cExtractTopLevel(c, content, filePath, result, language)
		case "function_definition":
			cExtractFunction(c, content, filePath, result, language)
		case "struct_specifier":
			cExtractRecord(c, content, filePath, result, language, KindStruct)
		case "union_specifier":
			cExtractRecord(c, content, filePath, result, language, KindStruct)
		case "enum_specifier":
			cExtractRecord(c, content, filePath, result, language, KindEnum)
		case "type_definition":
			cExtractTypedef(c, content, filePath, result, language)
		case "declaration_list", "translation_unit", "compound_statement":
			cExtractTopLevel(c, content, filePath, result, language)
		}
	}
}

func cExtractInclude(node *sitter.Node, content []byte, result *ParseResult) {
	if sl := firstChildOfType(node, "string_literal"); sl != nil {
		path := strings.Trim(nodeText(sl, content), `"`)
		result.Imports = append(result.Imports, Import{RawText: nodeText(node, content), Path: path, IsRelative: true, Line: startLine(node)})
		return
	}
	// system_lib_string (angle-bracket include) is recorded but marked
	// non-relative; the import resolver ignores these per spec.md §4.4.
	if sys := firstChildOfType(node, "system_lib_string"); sys != nil {
		path := strings.Trim(strings.Trim(nodeText(sys, content), "<"), ">")
		result.Imports = append(result.Imports, Import{RawText: nodeText(node, content), Path: path, IsRelative: false, Line: startLine(node)})
	}
}

func cFunctionName(declarator *sitter.Node, content []byte) string {
	n := declarator
	for n != nil {
		switch n.Type() {
		case "function_declarator":
			inner := n.Child(0)
			if inner != nil && inner.Type() == "identifier" {
				return nodeText(inner, content)
			}
			n = inner
		case "pointer_declarator":
			n = firstChildOfType(n, "function_declarator", "pointer_declarator", "identifier")
		case "identifier":
			return nodeText(n, content)
		default:
			return ""
		}
	}
	return ""
}

func cExtractFunction(node *sitter.Node, content []byte, filePath string, result *ParseResult, language string) {
	declarator := firstChildOfType(node, "function_declarator", "pointer_declarator")
	if declarator == nil {
		return
	}
	name := cFunctionName(declarator, content)
	if name == "" {
		return
	}
	result.Symbols = append(result.Symbols, &Symbol{
		Name: name, Kind: KindFunction, FilePath: filePath, Language: language,
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported: true, Visibility: VisibilityPublic, // C has no access modifiers; `static` linkage is not inspected, so every function is exported
	})
}

func cExtractRecord(node *sitter.Node, content []byte, filePath string, result *ParseResult, language string, kind SymbolKind) {
	nameNode := firstChildOfType(node, "type_identifier")
	if nameNode == nil {
		return // anonymous struct/enum; tracked only via its typedef, if any
	}
	result.Symbols = append(result.Symbols, &Symbol{
		Name: nodeText(nameNode, content), Kind: kind, FilePath: filePath, Language: language,
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported: true, Visibility: VisibilityPublic,
	})
}

func cExtractTypedef(node *sitter.Node, content []byte, filePath string, result *ParseResult, language string) {
	nameNode := lastChildOfType(node, "type_identifier")
	if nameNode == nil {
		return
	}
	result.Symbols = append(result.Symbols, &Symbol{
		Name: nodeText(nameNode, content), Kind: KindTypedef, FilePath: filePath, Language: language,
		StartLine: startLine(node), EndLine: endLine(node),
		StartCol: startCol(node), EndCol: endCol(node),
		Exported: true, Visibility: VisibilityPublic,
	})
}

func cExtractCalls(root *sitter.Node, content []byte, result *ParseResult) {
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
		case "field_expression":
			if obj := fn.Child(0); obj != nil {
				qualifier = nodeText(obj, content)
			}
			if fid := firstChildOfType(fn, "field_identifier"); fid != nil {
				name = nodeText(fid, content)
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
