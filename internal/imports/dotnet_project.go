package imports

import (
	"bufio"
	"encoding/xml"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/symtab"
)

// csprojXML mirrors the handful of MSBuild elements spec.md §4.4 names:
// RootNamespace, AssemblyName, TargetFramework, ProjectReference,
// PackageReference. Everything else in a real .csproj is ignored,
// including the plural TargetFrameworks element.
type csprojXML struct {
	XMLName       xml.Name `xml:"Project"`
	PropertyGroup []struct {
		RootNamespace   string `xml:"RootNamespace"`
		AssemblyName    string `xml:"AssemblyName"`
		TargetFramework string `xml:"TargetFramework"`
	} `xml:"PropertyGroup"`
	ItemGroup []struct {
		ProjectReference []struct {
			Include string `xml:"Include,attr"`
		} `xml:"ProjectReference"`
		PackageReference []struct {
			Include string `xml:"Include,attr"`
			Version string `xml:"Version,attr"`
		} `xml:"PackageReference"`
	} `xml:"ItemGroup"`
}

// ProjectInfo is what ParseCsproj extracts from a single .csproj/.vbproj.
type ProjectInfo struct {
	Path            string
	RootNamespace   string
	AssemblyName    string
	TargetFramework string
	ProjectRefs     []string // resolved, repo-relative
	PackageRefs     []kgraph.PackageReference
}

// ParseCsproj parses a .csproj or .vbproj file (both are MSBuild XML with
// the same element shape) and resolves ProjectReference/Include paths to
// repo-relative .csproj/.vbproj paths.
func ParseCsproj(projectPath string, content []byte) (*ProjectInfo, error) {
	var doc csprojXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	info := &ProjectInfo{Path: projectPath}
	dir := path.Dir(projectPath)
	for _, pg := range doc.PropertyGroup {
		if pg.RootNamespace != "" {
			info.RootNamespace = pg.RootNamespace
		}
		if pg.AssemblyName != "" {
			info.AssemblyName = pg.AssemblyName
		}
		if pg.TargetFramework != "" {
			info.TargetFramework = pg.TargetFramework
		}
	}
	for _, ig := range doc.ItemGroup {
		for _, pr := range ig.ProjectReference {
			resolved := path.Clean(path.Join(dir, filepathToSlash(pr.Include)))
			info.ProjectRefs = append(info.ProjectRefs, resolved)
		}
		for _, pkg := range ig.PackageReference {
			info.PackageRefs = append(info.PackageRefs, kgraph.PackageReference{
				ProjectPath: projectPath,
				PackageName: pkg.Include,
				Version:     pkg.Version,
			})
		}
	}
	if info.RootNamespace == "" {
		// MSBuild defaults RootNamespace to the project file's base name.
		base := path.Base(projectPath)
		info.RootNamespace = strings.TrimSuffix(strings.TrimSuffix(base, ".csproj"), ".vbproj")
	}
	return info, nil
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// ApplyProjectInfo records a project's RootNamespace in the namespace
// index (so C#/VB.NET using-directive resolution can find files whose
// declared namespace matches the project's default), and emits its
// ProjectReference/PackageReference edges into the graph.
func ApplyProjectInfo(g *kgraph.Graph, tbl *symtab.Table, info *ProjectInfo, sourceFiles []string) {
	if info.RootNamespace != "" {
		for _, f := range sourceFiles {
			tbl.IndexNamespace(info.RootNamespace, f)
		}
	}
	for _, ref := range info.ProjectRefs {
		g.AddProjectReference(&kgraph.ProjectReference{
			FromProject: info.Path,
			ToProject:   ref,
			Kind:        "ProjectReference",
		})
	}
	for _, pkg := range info.PackageRefs {
		p := pkg
		g.AddPackageReference(&p)
	}
}

// slnProjectLine matches a Visual Studio .sln Project(...) declaration:
//
//	Project("{GUID}") = "Name", "relative\path\Name.csproj", "{GUID}"
var slnProjectLine = regexp.MustCompile(`^Project\("\{[0-9A-Fa-f-]+\}"\)\s*=\s*"([^"]*)"\s*,\s*"([^"]*)"\s*,\s*"\{[0-9A-Fa-f-]+\}"`)

// SlnProject is one Project(...) entry from a .sln file.
type SlnProject struct {
	Name string
	Path string // repo-relative, slash-normalized
}

// ParseSln parses the custom .sln text format, extracting every
// Project(...) declaration. Solution folders (projects whose Path has no
// recognized project extension) are kept too since spec.md §4.4 asks to
// "honour solution folders" — callers filter by extension as needed.
func ParseSln(slnPath string, r *bufio.Scanner) []SlnProject {
	dir := path.Dir(slnPath)
	var out []SlnProject
	for r.Scan() {
		line := strings.TrimSpace(r.Text())
		m := slnProjectLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rel := filepathToSlash(m[2])
		resolved := path.Clean(path.Join(dir, rel))
		out = append(out, SlnProject{Name: m[1], Path: resolved})
	}
	return out
}

// ParseSlnFile is a convenience wrapper reading slnPath from disk.
func ParseSlnFile(absPath, repoRelativePath string) ([]SlnProject, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSln(repoRelativePath, bufio.NewScanner(f)), nil
}
