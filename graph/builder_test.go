package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SkipsSelfEdges(t *testing.T) {
	b := NewBuilder(nil)
	mod := ModuleId{FullPath: "demo.a", ShortName: "a"}
	b.Add(Reference{SourceModule: mod, TargetModule: mod, Kind: RefFunctionCall})

	g := b.Build()
	require.Len(t, g.Edges, 0)
	require.Len(t, g.Nodes, 1)
}

func TestBuilder_FoldsMultipleRefKinds(t *testing.T) {
	b := NewBuilder(nil)
	a := ModuleId{FullPath: "demo.a", ShortName: "a"}
	bb := ModuleId{FullPath: "demo.b", ShortName: "b"}

	b.Add(Reference{SourceModule: a, TargetModule: bb, Kind: RefImport, Evidence: "use b"})
	b.Add(Reference{SourceModule: a, TargetModule: bb, Kind: RefFieldAccess, Evidence: "b.X"})
	b.Add(Reference{SourceModule: a, TargetModule: bb, Kind: RefFunctionCall, Evidence: "b.F()"})

	g := b.Build()
	require.Len(t, g.Edges, 1)
	e := g.Edges[0]
	assert.Equal(t, RefFieldAccess, e.Strongest)
	assert.Len(t, e.RefKinds, 3)
	assert.True(t, e.TargetIsInternal)
}

func TestBuilder_ExternalTarget(t *testing.T) {
	b := NewBuilder(nil)
	a := ModuleId{FullPath: "demo.a", ShortName: "a"}
	ext := ModuleId{FullPath: "github.com/pkg/errors"}

	b.Add(Reference{SourceModule: a, TargetModule: ext, Kind: RefImport})

	g := b.Build()
	require.Len(t, g.Edges, 1)
	assert.False(t, g.Edges[0].TargetIsInternal)
	node := g.NodeByID("github.com/pkg/errors")
	require.NotNil(t, node)
	assert.Equal(t, External, node.Kind)
	assert.Empty(t, node.Items)
}

func TestBuilder_EvidenceCappedAndSorted(t *testing.T) {
	cfg := &Config{EvidenceSamples: 2}
	b := NewBuilder(cfg)
	a := ModuleId{FullPath: "demo.a", ShortName: "a"}
	bb := ModuleId{FullPath: "demo.b", ShortName: "b"}

	b.Add(Reference{SourceModule: a, TargetModule: bb, Kind: RefImport, Evidence: "z"})
	b.Add(Reference{SourceModule: a, TargetModule: bb, Kind: RefFieldAccess, Evidence: "y"})
	b.Add(Reference{SourceModule: a, TargetModule: bb, Kind: RefFunctionCall, Evidence: "x"})

	g := b.Build()
	e := g.Edges[0]
	require.Len(t, e.Evidence, 2)
	assert.Equal(t, RefFieldAccess, e.Evidence[0].Kind)
}

func TestCompositeSize(t *testing.T) {
	n := &Node{Functions: 17, Types: 17, Implementations: 11}
	assert.Equal(t, 17+17+22, n.CompositeSize())
}
