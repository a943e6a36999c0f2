// Package kgraph implements the knowledge graph (C2): a typed directed
// multigraph of file/folder/symbol/community/process nodes and their
// typed edges, built incrementally across Phases 1-6 and frozen at the
// end of each phase's mutation window per the concurrency contract.
package kgraph

// NodeKind distinguishes the five node shapes the graph holds.
type NodeKind int

const (
	NodeFile NodeKind = iota
	NodeFolder
	NodeSymbol
	NodeCommunity
	NodeProcess
)

// EdgeKind distinguishes the typed edges the pipeline draws between nodes.
type EdgeKind int

const (
	EdgeDefines EdgeKind = iota
	EdgeImports
	EdgeCalls
	EdgeImplements
	EdgeEmbeds
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeDefines:
		return "DEFINES"
	case EdgeImports:
		return "IMPORTS"
	case EdgeCalls:
		return "CALLS"
	case EdgeImplements:
		return "IMPLEMENTS"
	case EdgeEmbeds:
		return "EMBEDS"
	default:
		return "UNKNOWN"
	}
}

// FileNode is created in Phase 1 and is immutable thereafter.
type FileNode struct {
	Path         string `json:"path"`
	Language     string `json:"language,omitempty"`
	ByteSize     int64  `json:"byte_size"`
	LineCount    int    `json:"line_count"`
	Parseable    bool   `json:"parseable"`
}

// FolderNode is created in Phase 1 and is immutable thereafter.
type FolderNode struct {
	Path      string `json:"path"`
	FileCount int    `json:"file_count"`
}

// SymbolNode is the graph's view of a Symbol: the stable id plus the
// fields downstream phases (resolver, community detector, tracer) read.
// The richer lang.Symbol (signature, doc comment, metadata) produced by
// Phase 2 is kept alongside by the pipeline; the graph only needs the
// identity/containment/visibility facts invariants are checked against.
type SymbolNode struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	FilePath   string `json:"file"`
	Line       int    `json:"line"`
	Language   string `json:"language"`
	Visibility string `json:"visibility"`
	Exported   bool   `json:"exported"`
	ParentID   string `json:"parent_id,omitempty"`
}

// CallEdge is created in Phase 4. Multiple edges may exist between the
// same pair when distinct call sites resolve to the same target.
type CallEdge struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Confidence float64 `json:"confidence"`
	Tier       string  `json:"tier"`
	Reason     string  `json:"reason"`
	Line       int     `json:"line"`
}

// ImportEdge is created in Phase 3.
type ImportEdge struct {
	FromFile string `json:"from_file"`
	ToFile   string `json:"to_file"`
	RawText  string `json:"raw_text"`
}

// ProjectReference models a .csproj/.vbproj ProjectReference.
type ProjectReference struct {
	FromProject string `json:"from_project"`
	ToProject   string `json:"to_project"`
	Kind        string `json:"kind"`
}

// PackageReference models a .csproj/.vbproj PackageReference.
type PackageReference struct {
	ProjectPath string `json:"project_path"`
	PackageName string `json:"package_name"`
	Version     string `json:"version"`
}

// Community is created in Phase 5.
type Community struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	Members         []string `json:"members"`
	Cohesion        float64  `json:"cohesion"`
	PrimaryLanguage string   `json:"primary_language"`
}

// Process is created in Phase 6.
type Process struct {
	ID             string   `json:"id"`
	Entry          string   `json:"entry_symbol_id"`
	Terminal       string   `json:"terminal_symbol_id"`
	Steps          []string `json:"steps"`
	Classification string   `json:"classification"`
	Confidence     float64  `json:"confidence"`
}
