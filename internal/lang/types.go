// Package lang defines the language-agnostic symbol/import/call model that
// every per-language analyser produces, and the registry that dispatches a
// file to the analyser responsible for it.
//
// Design principles carried from the analyser this package generalizes:
// language-agnostic types, timestamps as nothing more than line numbers
// (no wall-clock state belongs in a parse result), concrete fields instead
// of map[string]interface{}, and an analyser that is total — it never
// fails the phase, it returns whatever it could recover.
package lang

import (
	"fmt"
	"strings"
)

// SymbolKind enumerates every declaration shape the analysers recognise
// across the ten supported languages.
type SymbolKind int

const (
	KindUnknown SymbolKind = iota
	KindClass
	KindFunction
	KindMethod
	KindInterface
	KindStruct
	KindEnum
	KindNamespace
	KindProperty
	KindConstructor
	KindModule
	KindRecord
	KindDelegate
	KindTypeAlias
	KindConstant
	KindVariable
	KindTrait
	KindImpl
	KindMacro
	KindTemplate
	KindTypedef
	KindAnnotation
	KindStatic
)

var symbolKindNames = map[SymbolKind]string{
	KindUnknown:     "unknown",
	KindClass:       "class",
	KindFunction:    "function",
	KindMethod:      "method",
	KindInterface:   "interface",
	KindStruct:      "struct",
	KindEnum:        "enum",
	KindNamespace:   "namespace",
	KindProperty:    "property",
	KindConstructor: "constructor",
	KindModule:      "module",
	KindRecord:      "record",
	KindDelegate:    "delegate",
	KindTypeAlias:   "type_alias",
	KindConstant:    "constant",
	KindVariable:    "variable",
	KindTrait:       "trait",
	KindImpl:        "impl",
	KindMacro:       "macro",
	KindTemplate:    "template",
	KindTypedef:     "typedef",
	KindAnnotation:  "annotation",
	KindStatic:      "static",
}

var symbolKindByName = func() map[string]SymbolKind {
	m := make(map[string]SymbolKind, len(symbolKindNames))
	for k, v := range symbolKindNames {
		m[v] = k
	}
	return m
}()

func (k SymbolKind) String() string {
	if s, ok := symbolKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON serializes a SymbolKind as its lowercase string name rather
// than the underlying int, matching the output artifact's field shapes.
func (k SymbolKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

func (k *SymbolKind) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	*k = ParseSymbolKind(s)
	return nil
}

func ParseSymbolKind(s string) SymbolKind {
	if k, ok := symbolKindByName[strings.ToLower(s)]; ok {
		return k
	}
	return KindUnknown
}

// Visibility is the language-normalized access level of a symbol.
type Visibility int

const (
	VisibilityUnknown Visibility = iota
	VisibilityPublic
	VisibilityPrivate
	VisibilityInternal
	VisibilityProtected
)

var visibilityNames = map[Visibility]string{
	VisibilityUnknown:    "unknown",
	VisibilityPublic:     "public",
	VisibilityPrivate:    "private",
	VisibilityInternal:   "internal",
	VisibilityProtected:  "protected",
}

func (v Visibility) String() string {
	if s, ok := visibilityNames[v]; ok {
		return s
	}
	return "unknown"
}

func (v Visibility) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// Location pins a span of source text. Lines are 1-indexed, columns are
// 0-indexed, matching the convention the call resolver and process tracer
// both assume when reporting call-site lines.
type Location struct {
	FilePath string `json:"file_path"`
	StartLine int   `json:"start_line"`
	EndLine   int   `json:"end_line"`
	StartCol  int   `json:"start_col"`
	EndCol    int   `json:"end_col"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.FilePath, l.StartLine, l.StartCol)
}

// SymbolMetadata carries the language-specific extras that individual
// resolver phases need but that don't belong on every symbol universally.
type SymbolMetadata struct {
	Implements           []string          `json:"implements,omitempty"`
	Extends              string            `json:"extends,omitempty"`
	ConstructorParamTypes map[string]string `json:"constructor_param_types,omitempty"`
	FrameworkAttributes  []string          `json:"framework_attributes,omitempty"`
	Namespace            string            `json:"namespace,omitempty"`
}

// Symbol is a single named declaration recovered from source. IDs are
// assigned later by the pipeline in a deterministic serial pass; analysers
// only produce a local, file-scoped handle (FilePath + StartLine + Name)
// which the pipeline turns into the final sym_<n> id.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	FilePath   string
	StartLine  int
	EndLine    int
	StartCol   int
	EndCol     int
	Signature  string
	DocComment string
	Receiver   string
	Language   string
	Visibility Visibility
	Exported   bool
	ParentName string // name of the innermost enclosing symbol, if any
	Metadata   SymbolMetadata
	Children   []*Symbol

	// FinalID is set by the pipeline's serial id-assignment pass; empty
	// until then.
	FinalID string
}

func (s *Symbol) Location() Location {
	return Location{FilePath: s.FilePath, StartLine: s.StartLine, EndLine: s.EndLine, StartCol: s.StartCol, EndCol: s.EndCol}
}

// LocalID is the pre-assignment handle used to key parse-time maps before
// the pipeline's serial pass assigns the final sym_<n> id.
func (s *Symbol) LocalID() string {
	return fmt.Sprintf("%s:%d:%s", s.FilePath, s.StartLine, s.Name)
}

// CallSite is a single raw call observed by an analyser, not yet resolved
// to a target symbol.
type CallSite struct {
	CallerLocalID string // LocalID of the innermost enclosing symbol, empty if file-scope
	CalleeName    string
	Qualifier     string // e.g. "svc" in svc.Foo(), or "" for unqualified calls
	Line          int
}

// Import is a single import/using/include statement, kept close to raw
// source text so the resolver can apply its per-language strategy.
type Import struct {
	RawText      string
	Path         string // module/namespace/header path as written
	Alias        string
	Names        []string
	IsWildcard   bool
	IsRelative   bool
	Line         int
}

// ParseResult is a single analyser invocation's total output for one file.
type ParseResult struct {
	FilePath string
	Language string
	Symbols  []*Symbol
	Imports  []Import
	Calls    []CallSite
	Package  string // namespace/package declared at file scope, if any
	Errors   []string
}

func (r *ParseResult) HasErrors() bool { return len(r.Errors) > 0 }
