package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExactLookup_LastWriteWinsWithinFile(t *testing.T) {
	tbl := New()
	tbl.Insert("a.go", "Foo", "sym_1")
	tbl.Insert("a.go", "Foo", "sym_2")

	id, ok := tbl.ExactLookup("a.go", "Foo")
	assert.True(t, ok)
	assert.Equal(t, "sym_2", id)

	assert.ElementsMatch(t, []string{"sym_1", "sym_2"}, tbl.FuzzyLookup("Foo"))
}

func TestNamespaceIndex_RoundTripLaw(t *testing.T) {
	tbl := New()
	tbl.IndexNamespace("myapp.service", "service/data.go")
	tbl.IndexNamespace("myapp.service", "service/other.go")

	files := tbl.FilesForNamespace("myapp.service")
	assert.Equal(t, []string{"service/data.go", "service/other.go"}, files)

	for _, f := range files {
		assert.Contains(t, tbl.NamespacesForFile(f), "myapp.service")
	}
	for _, ns := range tbl.NamespacesForFile("service/data.go") {
		assert.Contains(t, tbl.FilesForNamespace(ns), "service/data.go")
	}
}
