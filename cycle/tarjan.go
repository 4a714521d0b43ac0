package cycle

import "sort"

// tarjanState mirrors the index/lowlink/onStack/stack bookkeeping of
// the textbook (and the pack's recursive) Tarjan implementation; only
// the traversal itself is restructured as an explicit stack.
type tarjanState struct {
	index     int
	nodeIndex map[string]int
	lowlink   map[string]int
	onStack   map[string]bool
	stack     []string
	sccs      [][]string
}

// frame is one level of the simulated call stack for strongConnect,
// tracking how far through v's adjacency list the walk has gotten so
// it can resume after "recursing" into a child.
type frame struct {
	node     string
	children []string
	childPos int
}

// tarjanSCC returns every strongly connected component of adj, each
// as a slice of node IDs in arbitrary order (callers needing
// determinism sort independently — Detect only cares about component
// membership here).
func tarjanSCC(adj adjacency) [][]string {
	st := &tarjanState{
		nodeIndex: make(map[string]int),
		lowlink:   make(map[string]int),
		onStack:   make(map[string]bool),
	}

	ids := make([]string, 0, len(adj))
	for id := range adj {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, v := range ids {
		if _, visited := st.nodeIndex[v]; !visited {
			strongConnect(st, adj, v)
		}
	}
	return st.sccs
}

// strongConnect runs one DFS tree of Tarjan's algorithm starting at
// root, using an explicit frame stack in place of recursion.
func strongConnect(st *tarjanState, adj adjacency, root string) {
	var callStack []*frame

	push := func(v string) {
		st.nodeIndex[v] = st.index
		st.lowlink[v] = st.index
		st.index++
		st.stack = append(st.stack, v)
		st.onStack[v] = true
		callStack = append(callStack, &frame{node: v, children: adj[v]})
	}

	popSCC := func(v string) {
		if st.lowlink[v] != st.nodeIndex[v] {
			return
		}
		var scc []string
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		st.sccs = append(st.sccs, scc)
	}

	push(root)

	for len(callStack) > 0 {
		top := callStack[len(callStack)-1]
		v := top.node

		if top.childPos < len(top.children) {
			w := top.children[top.childPos]
			top.childPos++

			if _, visited := st.nodeIndex[w]; !visited {
				push(w)
				continue
			}
			if st.onStack[w] && st.nodeIndex[w] < st.lowlink[v] {
				st.lowlink[v] = st.nodeIndex[w]
			}
			continue
		}

		// All of v's children are processed; propagate lowlink to the
		// parent frame (if any) before popping, then close v's SCC if
		// it is a root.
		callStack = callStack[:len(callStack)-1]
		if len(callStack) > 0 {
			parent := callStack[len(callStack)-1]
			if st.lowlink[v] < st.lowlink[parent.node] {
				st.lowlink[parent.node] = st.lowlink[v]
			}
		}
		popSCC(v)
	}
}
