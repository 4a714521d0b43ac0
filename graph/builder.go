package graph

import (
	"sort"
	"sync"
)

// Config mirrors the subset of spec.md §6 Options the GraphBuilder and
// downstream stages need directly.
type Config struct {
	EvidenceSamples int // spec.md §4.3 default N=5
}

// DefaultConfig matches spec.md's stated defaults.
func DefaultConfig() *Config {
	return &Config{EvidenceSamples: 5}
}

// Builder folds a stream of raw References into a Graph (spec.md §4.3).
// It is safe to call Add concurrently from multiple extractor workers;
// the node/edge tables are guarded by a mutex held only briefly per
// call, mirroring the single-producer merge spec.md §5 describes.
type Builder struct {
	cfg *Config

	mu     sync.Mutex
	nodes  map[string]*Node // keyed by Node.ID
	edges  map[edgeKey]*Edge
	spawns []SpawnSite
}

type edgeKey struct {
	source string
	target string
}

// NewBuilder creates a Builder with the given config (nil uses
// DefaultConfig).
func NewBuilder(cfg *Config) *Builder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Builder{
		cfg:   cfg,
		nodes: make(map[string]*Node),
		edges: make(map[edgeKey]*Edge),
	}
}

// EnsureNode registers a module in the node table if it isn't already
// present, returning the (possibly pre-existing) Node. Nodes are born
// when first referenced or discovered, per spec.md §3 lifecycle.
func (b *Builder) EnsureNode(id ModuleId, kind NodeKind) *Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ensureNodeLocked(id, kind)
}

func (b *Builder) ensureNodeLocked(id ModuleId, kind NodeKind) *Node {
	key := id.Key(kind)
	if n, ok := b.nodes[key]; ok {
		return n
	}
	n := &Node{
		ID:     key,
		Module: id,
		Kind:   kind,
	}
	b.nodes[key] = n
	return n
}

// RecordItem adds one declared item to its owning internal module's
// node, updating the per-kind counts used by GodModule detection and
// evidence context.
func (b *Builder) RecordItem(item *Item) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.ensureNodeLocked(item.Module, Internal)
	n.Items = append(n.Items, item)
	switch item.Kind {
	case KindFunction:
		n.Functions++
	case KindType:
		n.Types++
	case KindImplementation:
		n.Implementations++
	case KindTrait:
		n.Traits++
	}
}

// RecordSpawn appends one observed `go` statement site for later
// orphaned-task-spawn analysis (spec.md §4.9).
func (b *Builder) RecordSpawn(s SpawnSite) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spawns = append(b.spawns, s)
}

// Add folds one raw Reference into the graph. References where
// src == dst are skipped — same-module references are cohesion
// signal, not coupling (spec.md §3 invariant, §4.3).
func (b *Builder) Add(ref Reference) {
	srcKind := Internal
	dstKind := Internal
	if ref.TargetModule.FullPath != "" && ref.TargetModule.ShortName == "" {
		dstKind = External
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.ensureNodeLocked(ref.SourceModule, srcKind)
	dst := b.ensureNodeLocked(ref.TargetModule, dstKind)

	if src.ID == dst.ID {
		return
	}

	key := edgeKey{source: src.ID, target: dst.ID}
	e, ok := b.edges[key]
	if !ok {
		e = &Edge{
			Source:           ref.SourceModule,
			Target:           ref.TargetModule,
			TargetIsInternal: dst.Kind == Internal,
		}
		b.edges[key] = e
	}
	e.AddRefKind(ref.Kind)
	e.Evidence = append(e.Evidence, ref)
}

// Graph is the immutable, fully-merged result of a Builder pass.
type Graph struct {
	Nodes  []*Node    // sorted by ID
	Edges  []*Edge    // sorted by (Source.Key, Target.Key)
	Spawns []SpawnSite // sorted by (Module.ShortName, Item, Call)
}

// NodeByID looks up a node by its ID (short name for Internal, full
// path for External).
func (g *Graph) NodeByID(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Build finalizes the Builder into a sorted, deterministic Graph and
// trims each edge's evidence to the configured sample size. All
// iteration is through sorted key lists before emission, per spec.md
// §5's determinism guarantee.
func (b *Builder) Build() *Graph {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, b.nodes[id])
	}

	keys := make([]edgeKey, 0, len(b.edges))
	for k := range b.edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].source != keys[j].source {
			return keys[i].source < keys[j].source
		}
		return keys[i].target < keys[j].target
	})

	edges := make([]*Edge, 0, len(keys))
	for _, k := range keys {
		e := b.edges[k]
		e.Connascence = ConnascenceFor(e.Strongest)
		sortEvidence(e.Evidence)
		if len(e.Evidence) > b.cfg.EvidenceSamples {
			e.Evidence = e.Evidence[:b.cfg.EvidenceSamples]
		}
		edges = append(edges, e)
	}

	spawns := make([]SpawnSite, len(b.spawns))
	copy(spawns, b.spawns)
	sort.Slice(spawns, func(i, j int) bool {
		if spawns[i].Module.ShortName != spawns[j].Module.ShortName {
			return spawns[i].Module.ShortName < spawns[j].Module.ShortName
		}
		if spawns[i].Item != spawns[j].Item {
			return spawns[i].Item < spawns[j].Item
		}
		return spawns[i].Call < spawns[j].Call
	})

	return &Graph{Nodes: nodes, Edges: edges, Spawns: spawns}
}

// sortEvidence stable-sorts evidence samples by ref_kind severity
// (descending — most intrusive first) then textual content, per
// spec.md §4.3. When kind and text are both equal, the
// EvidenceHashTiebreak fingerprint of each sample's SourceItem is the
// last tiebreaker.
func sortEvidence(evidence []Reference) {
	sort.SliceStable(evidence, func(i, j int) bool {
		ri, rj := StrengthRank(evidence[i].Kind), StrengthRank(evidence[j].Kind)
		if ri != rj {
			return ri > rj
		}
		if evidence[i].Evidence != evidence[j].Evidence {
			return evidence[i].Evidence < evidence[j].Evidence
		}
		return EvidenceHashTiebreak(evidence[i].SourceItem) < EvidenceHashTiebreak(evidence[j].SourceItem)
	})
}
