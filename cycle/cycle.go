// Package cycle implements the CycleDetector (spec.md §4.7): strongly
// connected components over the Internal -> Internal subgraph, then
// elementary-cycle enumeration within each non-trivial component.
//
// Tarjan's algorithm is run iteratively, with an explicit stack
// standing in for the call stack, rather than the textbook recursive
// form — grounded on the pack's own Tarjan implementation
// (jinterlante1206-AleutianLocal's tarjan_scc.go, which holds the
// same index/lowlink/onStack/stack state this package uses) but
// converted from recursive DFS to an explicit-stack walk so a deep
// dependency chain cannot exhaust the goroutine stack on a large
// project, consistent with spec.md §5's "large graphs" framing of the
// pipeline.
package cycle

import (
	"sort"

	"github.com/sourcelens/coupling/graph"
)

// DefaultMaxCycles is the spec.md §7 cap on elementary-cycle
// enumeration before the remainder is summarized as truncated.
const DefaultMaxCycles = 1000

// Cycle is one elementary cycle, rotated so its lexicographically
// smallest member ID appears first (spec.md §4.7 determinism rule).
type Cycle struct {
	Members []string
}

// Report is the CycleDetector's output.
type Report struct {
	Cycles           []Cycle
	ParticipantCount int
	Truncated        bool
}

// adjacency is the directed Internal -> Internal subgraph, keyed and
// valued by node ID (External nodes are sinks and never appear here,
// per spec.md §4.7).
type adjacency map[string][]string

// buildAdjacency extracts only edges whose source and target are both
// Internal nodes.
func buildAdjacency(g *graph.Graph) adjacency {
	adj := make(adjacency)
	for _, n := range g.Nodes {
		if n.Kind == graph.Internal {
			adj[n.ID] = nil
		}
	}
	for _, e := range g.Edges {
		if !e.TargetIsInternal {
			continue
		}
		srcID := e.Source.Key(graph.Internal)
		dstID := e.Target.Key(graph.Internal)
		if _, ok := adj[srcID]; !ok {
			continue
		}
		adj[srcID] = append(adj[srcID], dstID)
	}
	for id := range adj {
		sort.Strings(adj[id])
	}
	return adj
}

// Detect runs SCC decomposition followed by per-SCC elementary-cycle
// enumeration, capped at maxCycles (DefaultMaxCycles if <= 0).
func Detect(g *graph.Graph, maxCycles int) Report {
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}
	adj := buildAdjacency(g)
	sccs := tarjanSCC(adj)

	var report Report
	participants := make(map[string]struct{})

	for i, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		sub := subgraph(adj, scc)
		cycles, truncated := enumerateCycles(sub, maxCycles-len(report.Cycles))
		for _, c := range cycles {
			report.Cycles = append(report.Cycles, c)
			for _, m := range c.Members {
				participants[m] = struct{}{}
			}
		}
		if truncated {
			report.Truncated = true
		}
		if len(report.Cycles) >= maxCycles {
			for _, rest := range sccs[i+1:] {
				if len(rest) >= 2 {
					report.Truncated = true
					break
				}
			}
			break
		}
	}

	report.ParticipantCount = len(participants)
	sortCycles(report.Cycles)
	return report
}

func subgraph(adj adjacency, members []string) adjacency {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	sub := make(adjacency, len(members))
	for _, m := range members {
		for _, d := range adj[m] {
			if _, ok := set[d]; ok {
				sub[m] = append(sub[m], d)
			}
		}
	}
	return sub
}

// sortCycles orders cycles lexicographically by their rotation-
// normalized member list (spec.md §4.7).
func sortCycles(cycles []Cycle) {
	sort.Slice(cycles, func(i, j int) bool {
		a, b := cycles[i].Members, cycles[j].Members
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}

// rotateToSmallest rotates a cycle's member list so its
// lexicographically smallest element appears first, without changing
// the cyclic order of the remaining members.
func rotateToSmallest(members []string) []string {
	if len(members) == 0 {
		return members
	}
	minIdx := 0
	for i, m := range members {
		if m < members[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, len(members))
	for i := range members {
		rotated[i] = members[(minIdx+i)%len(members)]
	}
	return rotated
}
