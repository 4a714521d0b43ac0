package cycle

import "sort"

// enumerateCycles finds every elementary cycle in adj (expected to be
// a single SCC, or close enough — any source graph works, Johnson's
// algorithm simply finds nothing outside a cycle) using Johnson's
// algorithm, stopping once limit cycles have been found. It returns
// the cycles found and whether enumeration was cut short by the
// limit (spec.md §7's "cycle-enumeration overrun" cap).
func enumerateCycles(adj adjacency, limit int) ([]Cycle, bool) {
	if limit <= 0 {
		return nil, true
	}

	nodes := sortedKeys(adj)

	blocked := make(map[string]bool)
	blockedMap := make(map[string][]string)
	var pathStack []string
	var cycles []Cycle
	truncated := false

	unblock := func(u string) {
		blocked[u] = false
		deps := blockedMap[u]
		blockedMap[u] = nil
		for _, w := range deps {
			if blocked[w] {
				unblock(w)
			}
		}
	}

	addBlockedDep := func(w, v string) {
		for _, existing := range blockedMap[w] {
			if existing == v {
				return
			}
		}
		blockedMap[w] = append(blockedMap[w], v)
	}

	var circuit func(v, start string, sub adjacency) bool
	circuit = func(v, start string, sub adjacency) bool {
		found := false
		pathStack = append(pathStack, v)
		blocked[v] = true

		for _, w := range sub[v] {
			if truncated {
				break
			}
			if w == start {
				if len(cycles) >= limit {
					// One more cycle exists beyond the limit.
					truncated = true
					break
				}
				cycles = append(cycles, Cycle{Members: rotateToSmallest(append([]string{}, pathStack...))})
				found = true
			} else if !blocked[w] {
				if circuit(w, start, sub) {
					found = true
				}
			}
		}

		if found {
			unblock(v)
		} else {
			for _, w := range sub[v] {
				addBlockedDep(w, v)
			}
		}

		pathStack = pathStack[:len(pathStack)-1]
		return found
	}

	for i, s := range nodes {
		if truncated {
			break
		}
		// Restrict to the subgraph induced on nodes[i:], so each cycle
		// is reported exactly once, from its smallest member. Johnson's
		// further restriction to the strongly connected component that
		// contains s is not applied; it only affects efficiency.
		remaining := make(map[string]struct{}, len(nodes)-i)
		for _, n := range nodes[i:] {
			remaining[n] = struct{}{}
		}
		sub := make(adjacency, len(remaining))
		for n := range remaining {
			for _, d := range adj[n] {
				if _, ok := remaining[d]; ok {
					sub[n] = append(sub[n], d)
				}
			}
		}

		for n := range sub {
			blocked[n] = false
			blockedMap[n] = nil
		}
		circuit(s, s, sub)
	}

	return cycles, truncated
}

func sortedKeys(adj adjacency) []string {
	keys := make([]string, 0, len(adj))
	for k := range adj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
