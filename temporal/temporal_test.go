package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sourcelens/coupling/graph"
)

func mod(short string) graph.ModuleId {
	return graph.ModuleId{ShortName: short, FullPath: "demo." + short}
}

func TestClassifyPhase(t *testing.T) {
	cases := map[string]Phase{
		"NewClient":      PhaseCreate,
		"Configure":      PhaseConfigure,
		"InitDatabase":   PhaseInitialize,
		"StartServer":    PhaseStart,
		"HandleRequest":  PhaseActive,
		"StopWorker":     PhaseStop,
		"CloseConn":      PhaseCleanup,
		"totallyUnknown": PhaseUnclassified,
	}
	for name, want := range cases {
		assert.Equal(t, want, ClassifyPhase(name), name)
	}
}

func TestClassifyPhase_CleanupWinsOverStop(t *testing.T) {
	assert.Equal(t, PhaseCleanup, ClassifyPhase("StopAndCleanup"))
}

func TestDetect_UnbalancedOpenClose(t *testing.T) {
	g := &graph.Graph{
		Nodes: []*graph.Node{
			{ID: "files", Kind: graph.Internal, Module: mod("files"), Items: []*graph.Item{
				{Kind: graph.KindFunction, Name: "Open"},
				{Kind: graph.KindFunction, Name: "OpenReadOnly"},
				{Kind: graph.KindFunction, Name: "Close"},
			}},
		},
	}
	issues := Detect(g)
	assert.Len(t, issues, 1)
	assert.Equal(t, KindUnbalancedPair, issues[0].Kind)
	assert.Equal(t, SeverityHigh, issues[0].Severity)
	assert.Equal(t, "files", issues[0].Module)
	assert.Equal(t, 2, issues[0].Opener)
	assert.Equal(t, 1, issues[0].Closer)
}

func TestDetect_BalancedPairRaisesNothing(t *testing.T) {
	g := &graph.Graph{
		Nodes: []*graph.Node{
			{ID: "mu", Kind: graph.Internal, Module: mod("mu"), Items: []*graph.Item{
				{Kind: graph.KindFunction, Name: "Lock"},
				{Kind: graph.KindFunction, Name: "Unlock"},
			}},
		},
	}
	assert.Empty(t, Detect(g))
}

func TestDetect_LockingImbalanceIsCritical(t *testing.T) {
	g := &graph.Graph{
		Nodes: []*graph.Node{
			{ID: "mu", Kind: graph.Internal, Module: mod("mu"), Items: []*graph.Item{
				{Kind: graph.KindFunction, Name: "Lock"},
				{Kind: graph.KindFunction, Name: "LockShared"},
			}},
		},
	}
	issues := Detect(g)
	var found bool
	for _, is := range issues {
		if is.Kind == KindUnbalancedPair {
			found = true
			assert.Equal(t, SeverityCritical, is.Severity)
		}
	}
	assert.True(t, found)
}

func TestDetect_OrphanedSpawnReportedAsWarning(t *testing.T) {
	g := &graph.Graph{
		Nodes: []*graph.Node{
			{ID: "worker", Kind: graph.Internal, Module: mod("worker")},
		},
		Spawns: []graph.SpawnSite{
			{Module: mod("worker"), Item: "Run", Call: "task.Execute", Observed: false},
			{Module: mod("worker"), Item: "RunWatched", Call: "task.Poll", Observed: true},
		},
	}
	issues := Detect(g)
	var found bool
	for _, is := range issues {
		if is.Kind == KindOrphanedTaskSpawn {
			found = true
			assert.Equal(t, SeverityWarning, is.Severity)
			assert.Equal(t, "worker", is.Module)
			assert.Contains(t, is.Message, "task.Execute")
		}
	}
	assert.True(t, found)
	for _, is := range issues {
		assert.NotContains(t, is.Message, "task.Poll")
	}
}

func TestDetect_RankingWarningLast(t *testing.T) {
	g := &graph.Graph{
		Nodes: []*graph.Node{
			{ID: "mu", Kind: graph.Internal, Module: mod("mu"), Items: []*graph.Item{
				{Kind: graph.KindFunction, Name: "Lock"},
			}},
		},
		Spawns: []graph.SpawnSite{
			{Module: mod("mu"), Item: "Run", Call: "task.Go", Observed: false},
		},
	}
	issues := Detect(g)
	if assert.Len(t, issues, 2) {
		assert.Equal(t, SeverityCritical, issues[0].Severity)
		assert.Equal(t, SeverityWarning, issues[1].Severity)
	}
}

func TestPhaseHistogram_IgnoresUnclassifiedAndNonFunctions(t *testing.T) {
	n := &graph.Node{
		Items: []*graph.Item{
			{Kind: graph.KindFunction, Name: "NewThing"},
			{Kind: graph.KindFunction, Name: "NewOtherThing"},
			{Kind: graph.KindFunction, Name: "xyz"},
			{Kind: graph.KindType, Name: "Thing"},
		},
	}
	hist := PhaseHistogram(n)
	assert.Equal(t, 2, hist[PhaseCreate])
	assert.Equal(t, 0, hist[PhaseUnclassified])
}

func TestPhaseHistogram_CountsMethodsToo(t *testing.T) {
	n := &graph.Node{
		Items: []*graph.Item{
			{Kind: graph.KindImplementation, Name: "Start"},
			{Kind: graph.KindImplementation, Name: "Stop"},
		},
	}
	hist := PhaseHistogram(n)
	assert.Equal(t, 1, hist[PhaseStart])
	assert.Equal(t, 1, hist[PhaseStop])
}
