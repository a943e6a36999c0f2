package imports

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/mycelium/internal/kgraph"
	"github.com/aleutian-oss/mycelium/internal/lang"
	"github.com/aleutian-oss/mycelium/internal/symtab"
)

func TestResolveGo_StripsModulePrefix(t *testing.T) {
	files := []string{"main.go", "internal/service/service.go", "internal/service/other.go"}
	r := NewResolver(files, "github.com/acme/app", nil)
	g := kgraph.New()

	fi := FileImports{
		Path:     "main.go",
		Language: "go",
		Imports:  []lang.Import{{RawText: "github.com/acme/app/internal/service", Path: "github.com/acme/app/internal/service"}},
	}
	r.Resolve(g, fi)

	edges := g.ImportEdges()
	require.Len(t, edges, 2)
	assert.Empty(t, r.Unresolved)
}

func TestResolveGo_ExternalModuleUnresolved(t *testing.T) {
	r := NewResolver([]string{"main.go"}, "github.com/acme/app", nil)
	g := kgraph.New()

	r.Resolve(g, FileImports{
		Path: "main.go", Language: "go",
		Imports: []lang.Import{{RawText: "github.com/stretchr/testify", Path: "github.com/stretchr/testify"}},
	})

	assert.Empty(t, g.ImportEdges())
	require.Len(t, r.Unresolved, 1)
}

func TestResolveJSFamily_ExtensionProbeOrder(t *testing.T) {
	files := []string{"src/app.ts", "src/util.ts", "src/util.js"}
	r := NewResolver(files, "", nil)
	g := kgraph.New()

	r.Resolve(g, FileImports{
		Path: "src/app.ts", Language: "ts",
		Imports: []lang.Import{{RawText: "./util", Path: "./util", IsRelative: true}},
	})

	edges := g.ImportEdges()
	require.Len(t, edges, 1)
	assert.Equal(t, "src/util.ts", edges[0].ToFile)
}

func TestResolveJSFamily_IndexFallback(t *testing.T) {
	files := []string{"src/app.ts", "src/widgets/index.ts"}
	r := NewResolver(files, "", nil)
	g := kgraph.New()

	r.Resolve(g, FileImports{
		Path: "src/app.ts", Language: "ts",
		Imports: []lang.Import{{RawText: "./widgets", Path: "./widgets", IsRelative: true}},
	})

	edges := g.ImportEdges()
	require.Len(t, edges, 1)
	assert.Equal(t, "src/widgets/index.ts", edges[0].ToFile)
}

func TestResolveJSFamily_BareSpecifierUnresolved(t *testing.T) {
	r := NewResolver([]string{"src/app.ts"}, "", nil)
	g := kgraph.New()

	r.Resolve(g, FileImports{
		Path: "src/app.ts", Language: "ts",
		Imports: []lang.Import{{RawText: "react", Path: "react"}},
	})

	assert.Empty(t, g.ImportEdges())
	require.Len(t, r.Unresolved, 1)
}

func TestResolvePython_DottedModuleToDirectory(t *testing.T) {
	files := []string{"app/main.py", "app/services/__init__.py", "app/services/billing.py"}
	r := NewResolver(files, "", nil)
	g := kgraph.New()

	r.Resolve(g, FileImports{
		Path: "app/main.py", Language: "py",
		Imports: []lang.Import{{RawText: "app.services.billing", Path: "app.services.billing"}},
	})

	edges := g.ImportEdges()
	require.Len(t, edges, 1)
	assert.Equal(t, "app/services/billing.py", edges[0].ToFile)
}

func TestResolveJava_PackagePathThenBasenameFallback(t *testing.T) {
	files := []string{"src/com/acme/Widget.java", "src/other/Helper.java"}
	r := NewResolver(files, "", nil)
	g := kgraph.New()

	r.Resolve(g, FileImports{
		Path: "src/com/acme/Main.java", Language: "java",
		Imports: []lang.Import{
			{RawText: "com.acme.Widget", Path: "com.acme.Widget"},
			{RawText: "some.missing.pkg.Helper", Path: "some.missing.pkg.Helper"},
		},
	})

	edges := g.ImportEdges()
	require.Len(t, edges, 2)
}

func TestResolveDotNet_NamespaceIndexLookup(t *testing.T) {
	tbl := symtab.New()
	tbl.IndexNamespace("Acme.Services", "Services/Billing.cs")
	r := NewResolver([]string{"Services/Billing.cs", "Main.cs"}, "", tbl)
	g := kgraph.New()

	r.Resolve(g, FileImports{
		Path: "Main.cs", Language: "cs",
		Imports: []lang.Import{{RawText: "Acme.Services", Path: "Acme.Services"}},
	})

	edges := g.ImportEdges()
	require.Len(t, edges, 1)
	assert.Equal(t, "Services/Billing.cs", edges[0].ToFile)
}

func TestResolveRust_ProgressiveSegmentShortening(t *testing.T) {
	files := []string{"src/net/http/client.rs", "src/net/mod.rs"}
	r := NewResolver(files, "", nil)
	g := kgraph.New()

	r.Resolve(g, FileImports{
		Path: "src/net/mod.rs", Language: "rs",
		Imports: []lang.Import{{RawText: "crate::net::http::client::Client", Path: "crate::net::http::client::Client"}},
	})

	edges := g.ImportEdges()
	require.Len(t, edges, 1)
	assert.Equal(t, "src/net/http/client.rs", edges[0].ToFile)
}

func TestResolveCFamily_RelativeIncludeOnly(t *testing.T) {
	files := []string{"src/main.c", "src/util.h"}
	r := NewResolver(files, "", nil)
	g := kgraph.New()

	r.Resolve(g, FileImports{
		Path: "src/main.c", Language: "c",
		Imports: []lang.Import{
			{RawText: "util.h", Path: "util.h", IsRelative: true},
			{RawText: "stdio.h", Path: "stdio.h", IsRelative: false},
		},
	})

	edges := g.ImportEdges()
	require.Len(t, edges, 1)
	assert.Equal(t, "src/util.h", edges[0].ToFile)
}

func TestParseCsproj_ExtractsReferencesAndNamespace(t *testing.T) {
	xmlContent := []byte(`<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <RootNamespace>Acme.App</RootNamespace>
    <AssemblyName>Acme.App</AssemblyName>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <ProjectReference Include="..\Acme.Core\Acme.Core.csproj" />
    <PackageReference Include="Newtonsoft.Json" Version="13.0.3" />
  </ItemGroup>
</Project>`)

	info, err := ParseCsproj("src/Acme.App/Acme.App.csproj", xmlContent)
	require.NoError(t, err)
	assert.Equal(t, "Acme.App", info.RootNamespace)
	assert.Equal(t, "net8.0", info.TargetFramework)
	require.Len(t, info.ProjectRefs, 1)
	assert.Equal(t, "src/Acme.Core/Acme.Core.csproj", info.ProjectRefs[0])
	require.Len(t, info.PackageRefs, 1)
	assert.Equal(t, "Newtonsoft.Json", info.PackageRefs[0].PackageName)
	assert.Equal(t, "13.0.3", info.PackageRefs[0].Version)
}

func TestParseSln_ExtractsProjectEntries(t *testing.T) {
	content := `Microsoft Visual Studio Solution File, Format Version 12.00
Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Acme.App", "src\Acme.App\Acme.App.csproj", "{11111111-1111-1111-1111-111111111111}"
EndProject
`
	projects := ParseSln("Acme.sln", bufio.NewScanner(strings.NewReader(content)))
	require.Len(t, projects, 1)
	assert.Equal(t, "Acme.App", projects[0].Name)
	assert.Equal(t, "src/Acme.App/Acme.App.csproj", projects[0].Path)
}
