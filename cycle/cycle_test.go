package cycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/coupling/graph"
)

func internalNode(id string) *graph.Node {
	return &graph.Node{ID: id, Kind: graph.Internal, Module: graph.ModuleId{ShortName: id, FullPath: "demo." + id}}
}

func internalEdge(src, dst string) *graph.Edge {
	return &graph.Edge{
		Source:           graph.ModuleId{ShortName: src, FullPath: "demo." + src},
		Target:           graph.ModuleId{ShortName: dst, FullPath: "demo." + dst},
		TargetIsInternal: true,
	}
}

func TestDetect_TwoModuleCycle(t *testing.T) {
	g := &graph.Graph{
		Nodes: []*graph.Node{internalNode("a"), internalNode("b")},
		Edges: []*graph.Edge{internalEdge("a", "b"), internalEdge("b", "a")},
	}

	report := Detect(g, 0)
	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []string{"a", "b"}, report.Cycles[0].Members)
	assert.Equal(t, 2, report.ParticipantCount)
	assert.False(t, report.Truncated)
}

func TestDetect_NoCycleAcyclicGraph(t *testing.T) {
	g := &graph.Graph{
		Nodes: []*graph.Node{internalNode("a"), internalNode("b"), internalNode("c")},
		Edges: []*graph.Edge{internalEdge("a", "b"), internalEdge("b", "c")},
	}

	report := Detect(g, 0)
	assert.Empty(t, report.Cycles)
	assert.Equal(t, 0, report.ParticipantCount)
}

func TestDetect_ExternalNodesNeverParticipate(t *testing.T) {
	g := &graph.Graph{
		Nodes: []*graph.Node{internalNode("a"), {ID: "ext.pkg", Kind: graph.External}},
		Edges: []*graph.Edge{{
			Source:           graph.ModuleId{ShortName: "a", FullPath: "demo.a"},
			Target:           graph.ModuleId{FullPath: "ext.pkg"},
			TargetIsInternal: false,
		}},
	}

	report := Detect(g, 0)
	assert.Empty(t, report.Cycles)
}

func TestDetect_ThreeModuleCycle(t *testing.T) {
	g := &graph.Graph{
		Nodes: []*graph.Node{internalNode("a"), internalNode("b"), internalNode("c")},
		Edges: []*graph.Edge{internalEdge("a", "b"), internalEdge("b", "c"), internalEdge("c", "a")},
	}

	report := Detect(g, 0)
	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []string{"a", "b", "c"}, report.Cycles[0].Members)
	assert.Equal(t, 3, report.ParticipantCount)
}

func TestDetect_TwoIndependentCyclesSortedDeterministically(t *testing.T) {
	g := &graph.Graph{
		Nodes: []*graph.Node{internalNode("a"), internalNode("b"), internalNode("x"), internalNode("y")},
		Edges: []*graph.Edge{
			internalEdge("x", "y"), internalEdge("y", "x"),
			internalEdge("a", "b"), internalEdge("b", "a"),
		},
	}

	report := Detect(g, 0)
	require.Len(t, report.Cycles, 2)
	assert.Equal(t, []string{"a", "b"}, report.Cycles[0].Members)
	assert.Equal(t, []string{"x", "y"}, report.Cycles[1].Members)
}

func TestDetect_RespectsMaxCyclesCap(t *testing.T) {
	// A simple ring has only one elementary cycle, so this uses the
	// complete directed graph over 3 nodes (five elementary cycles:
	// three 2-cycles and two 3-cycles) with a cap of 1.
	g := &graph.Graph{
		Nodes: []*graph.Node{internalNode("a"), internalNode("b"), internalNode("c")},
		Edges: []*graph.Edge{
			internalEdge("a", "b"), internalEdge("b", "c"), internalEdge("c", "a"),
			internalEdge("b", "a"), internalEdge("c", "b"), internalEdge("a", "c"),
		},
	}

	report := Detect(g, 1)
	assert.LessOrEqual(t, len(report.Cycles), 1)
	assert.True(t, report.Truncated)
}

func TestRotateToSmallest(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, rotateToSmallest([]string{"b", "c", "a"}))
	assert.Equal(t, []string{"a", "b", "c"}, rotateToSmallest([]string{"c", "a", "b"}))
	assert.Empty(t, rotateToSmallest(nil))
}
