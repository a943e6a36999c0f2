package lang

import (
	"context"

	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

type typeScriptAnalyser struct{}

func newTypeScriptAnalyser() Analyser { return &typeScriptAnalyser{} }

func (a *typeScriptAnalyser) Language() string     { return "ts" }
func (a *typeScriptAnalyser) Extensions() []string { return []string{".ts", ".mts", ".cts"} }
func (a *typeScriptAnalyser) IsAvailable() bool    { return true }
func (a *typeScriptAnalyser) BuiltinExclusions() map[string]struct{} { return jsBuiltins }

func (a *typeScriptAnalyser) Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error) {
	return jsFamilyParse(ctx, typescript.GetLanguage(), "ts", true, filePath, content)
}
