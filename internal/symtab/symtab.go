// Package symtab implements the dual symbol index and namespace index
// (C3): an exact (file, name) -> id map for single-candidate lookups, a
// fuzzy name -> [id...] map for the call resolver's tier C fallback, and
// a namespace -> {file...} index consulted by the import resolver's
// C#/VB.NET strategy.
package symtab

import "sort"

// Table is mutable only during Phase 2's id-assignment pass; every later phase
// treats it as read-only, per the concurrency contract.
type Table struct {
	exact     map[string]map[string]string // file -> name -> id (last write wins per name)
	fuzzy     map[string][]string          // name -> [id...]
	namespace map[string]map[string]struct{} // namespace -> {file...}
}

func New() *Table {
	return &Table{
		exact:     make(map[string]map[string]string),
		fuzzy:     make(map[string][]string),
		namespace: make(map[string]map[string]struct{}),
	}
}

// Insert adds a symbol to both indices. Called once per symbol in
// declaration order during the pipeline's Phase 2/3 collection pass; a
// duplicate name within a file keeps only the last id for exact lookup
// (spec.md §4.3) while both remain reachable via the fuzzy map.
func (t *Table) Insert(file, name, id string) {
	if t.exact[file] == nil {
		t.exact[file] = make(map[string]string)
	}
	t.exact[file][name] = id
	t.fuzzy[name] = append(t.fuzzy[name], id)
}

// ExactLookup returns the id bound to name within file, if any.
func (t *Table) ExactLookup(file, name string) (string, bool) {
	m, ok := t.exact[file]
	if !ok {
		return "", false
	}
	id, ok := m[name]
	return id, ok
}

// FileMap returns the full name->id map for file. The call resolver's
// Tier B (same-file) lookup uses ExactLookup rather than this map.
func (t *Table) FileMap(file string) map[string]string { return t.exact[file] }

// FuzzyLookup returns every id registered under name across the whole
// repository, used by the call resolver's Tier C fallback.
func (t *Table) FuzzyLookup(name string) []string { return t.fuzzy[name] }

// IndexNamespace records that file declares a symbol in namespace. Only
// the namespace -> files map is stored; NamespacesForFile derives the
// inverse from it, so the round-trip law
// (ns ∈ index(file) ⇔ file ∈ files(ns)) always holds.
func (t *Table) IndexNamespace(namespace, file string) {
	if namespace == "" {
		return
	}
	if t.namespace[namespace] == nil {
		t.namespace[namespace] = make(map[string]struct{})
	}
	t.namespace[namespace][file] = struct{}{}
}

// FilesForNamespace returns the sorted set of files declaring namespace.
func (t *Table) FilesForNamespace(namespace string) []string {
	set, ok := t.namespace[namespace]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// NamespacesForFile returns every namespace the table has recorded file
// as declaring a symbol in — the inverse direction of the round-trip law,
// computed on demand rather than tracked incrementally since it is only
// exercised by tests and diagnostics.
func (t *Table) NamespacesForFile(file string) []string {
	var out []string
	for ns, files := range t.namespace {
		if _, ok := files[file]; ok {
			out = append(out, ns)
		}
	}
	sort.Strings(out)
	return out
}

func (t *Table) Namespaces() []string {
	out := make([]string, 0, len(t.namespace))
	for ns := range t.namespace {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}
