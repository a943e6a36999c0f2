package lang

import (
	"context"

	"github.com/smacker/go-tree-sitter/javascript"
)

type javaScriptAnalyser struct{}

func newJavaScriptAnalyser() Analyser { return &javaScriptAnalyser{} }

func (a *javaScriptAnalyser) Language() string     { return "js" }
func (a *javaScriptAnalyser) Extensions() []string { return []string{".js", ".jsx", ".mjs", ".cjs"} }
func (a *javaScriptAnalyser) IsAvailable() bool    { return true }
func (a *javaScriptAnalyser) BuiltinExclusions() map[string]struct{} { return jsBuiltins }

func (a *javaScriptAnalyser) Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error) {
	return jsFamilyParse(ctx, javascript.GetLanguage(), "js", false, filePath, content)
}
