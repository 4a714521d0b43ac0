// Package report assembles the frozen ReportModel (spec.md §4.10, §6)
// from the outputs of every earlier stage: the scored graph, the cycle
// report, the coupling and temporal issue lists, and the run's
// capability/timing facts. It owns JSON and YAML serialization and the
// separate graph-visualization projection; nothing downstream of Build
// mutates the graph or re-derives scores. The Report carries no schema
// version field.
package report

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sourcelens/coupling/cycle"
	"github.com/sourcelens/coupling/graph"
	"github.com/sourcelens/coupling/issue"
	"github.com/sourcelens/coupling/score"
	"github.com/sourcelens/coupling/temporal"
)

// Capabilities flags which optional data sources were actually
// available for this run (spec.md §6: "capabilities{volatility_available}").
type Capabilities struct {
	VolatilityAvailable bool `json:"volatility_available" yaml:"volatility_available"`
}

// Timing records the three phase durations spec.md §6 asks for, in
// milliseconds.
type Timing struct {
	ParseMs int64 `json:"parse_ms" yaml:"parse_ms"`
	ScoreMs int64 `json:"score_ms" yaml:"score_ms"`
	TotalMs int64 `json:"total_ms" yaml:"total_ms"`
}

// Counts is the project's top-level size summary.
type Counts struct {
	Files   int `json:"files" yaml:"files"`
	Modules int `json:"modules" yaml:"modules"`
	Edges   int `json:"edges" yaml:"edges"`
}

// Breakdown is the project's edge population split by internal/external
// and by balance class, per spec.md §6's named fields.
type Breakdown struct {
	Internal        int `json:"internal" yaml:"internal"`
	External        int `json:"external" yaml:"external"`
	HighCohesion    int `json:"high_cohesion" yaml:"high_cohesion"`
	Loose           int `json:"loose" yaml:"loose"`
	Acceptable      int `json:"acceptable" yaml:"acceptable"`
	Pain            int `json:"pain" yaml:"pain"`
	LocalComplexity int `json:"local_complexity" yaml:"local_complexity"`
}

// ModuleEntry is one row of the report's module table.
type ModuleEntry struct {
	ID              string `json:"id" yaml:"id"`
	FullPath        string `json:"full_path" yaml:"full_path"`
	Kind            string `json:"kind" yaml:"kind"`
	Functions       int    `json:"functions" yaml:"functions"`
	Types           int    `json:"types" yaml:"types"`
	Implementations int    `json:"implementations" yaml:"implementations"`
	Traits          int    `json:"traits" yaml:"traits"`
	ChangeCount     int    `json:"change_count" yaml:"change_count"`
	VolatilityLevel string `json:"volatility_level" yaml:"volatility_level"`
	VolatilityKnown bool   `json:"volatility_known" yaml:"volatility_known"`
}

// EdgeEntry is one row of the report's edge table.
type EdgeEntry struct {
	SourceID     string   `json:"source_id" yaml:"source_id"`
	TargetID     string   `json:"target_id" yaml:"target_id"`
	Strength     float64  `json:"strength" yaml:"strength"`
	Distance     float64  `json:"distance" yaml:"distance"`
	Volatility   float64  `json:"volatility" yaml:"volatility"`
	BalanceClass string   `json:"balance_class" yaml:"balance_class"`
	Connascence  string   `json:"connascence" yaml:"connascence"`
	EdgeScore    float64  `json:"edge_score" yaml:"edge_score"`
	Evidence     []string `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// IssueEntry unifies issue.Issue and temporal.Issue into one reportable
// shape, tagged by Family so a renderer can still tell a coupling
// finding from a temporal one.
type IssueEntry struct {
	Family   string  `json:"family" yaml:"family"`
	Kind     string  `json:"kind" yaml:"kind"`
	Severity string  `json:"severity" yaml:"severity"`
	Module   string  `json:"module" yaml:"module"`
	Target   string  `json:"target,omitempty" yaml:"target,omitempty"`
	Message  string  `json:"message" yaml:"message"`
	Remedy   string  `json:"remedy,omitempty" yaml:"remedy,omitempty"`
	Impact   float64 `json:"impact,omitempty" yaml:"impact,omitempty"`
}

// CycleEntry is one reported simple cycle.
type CycleEntry struct {
	Members []string `json:"members" yaml:"members"`
}

// Report is the frozen ReportModel. Build produces one from the
// pipeline's finished stage outputs; nothing on this type recomputes
// anything.
type Report struct {
	RunID   string  `json:"run_id" yaml:"run_id"`
	Project string  `json:"project" yaml:"project"`
	Grade   string  `json:"grade" yaml:"grade"`
	Score   float64 `json:"score" yaml:"score"`

	Counts    Counts    `json:"counts" yaml:"counts"`
	Breakdown Breakdown `json:"breakdown" yaml:"breakdown"`

	StrengthDistribution   map[string]int `json:"strength_distribution" yaml:"strength_distribution"`
	DistanceDistribution   map[string]int `json:"distance_distribution" yaml:"distance_distribution"`
	VolatilityDistribution map[string]int `json:"volatility_distribution" yaml:"volatility_distribution"`

	Modules []ModuleEntry `json:"modules" yaml:"modules"`
	Edges   []EdgeEntry   `json:"edges" yaml:"edges"`
	Issues  []IssueEntry  `json:"issues" yaml:"issues"`
	Cycles  []CycleEntry  `json:"cycles" yaml:"cycles"`

	// Phases is a supplemental field not named in spec.md's schema
	// table: a per-module histogram of lifecycle-phase-classified item
	// counts (spec.md §4.9's phase extraction feeds report context;
	// this is that context, made concrete).
	Phases map[string]map[string]int `json:"phases,omitempty" yaml:"phases,omitempty"`

	Capabilities Capabilities `json:"capabilities" yaml:"capabilities"`
	Timing       Timing       `json:"timing" yaml:"timing"`

	InsufficientData bool     `json:"insufficient_data,omitempty" yaml:"insufficient_data,omitempty"`
	Incomplete       bool     `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
	Warnings         []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	CyclesTruncated bool `json:"cycles_truncated,omitempty" yaml:"cycles_truncated,omitempty"`
}

// Input is everything Build needs from the finished pipeline stages.
// Every field is the direct output of an earlier package; Build itself
// performs no analysis, only projection and aggregation.
type Input struct {
	Project string
	Graph   *graph.Graph

	Breakdown score.Breakdown
	Grade     score.Grade

	Cycles         cycle.Report
	CouplingIssues []issue.Issue
	TemporalIssues []temporal.Issue
	Phases         map[string]map[temporal.Phase]int

	Capabilities Capabilities
	Timing       Timing

	FileCount int
	Warnings  []string
	Incomplete bool
}

// Stable returns a copy of r with the fields the determinism property
// (spec.md §8.1) doesn't cover zeroed out: RunID identifies a run, not
// its content, and Timing is wall-clock by definition. Two Builds of
// the same Input differ only in these fields; Stable is what a
// determinism test should compare.
func (r *Report) Stable() *Report {
	cp := *r
	cp.RunID = ""
	cp.Timing = Timing{}
	return &cp
}

// Build assembles a Report from in. The RunID is a fresh random UUIDv4
// stamped at build time, distinguishing otherwise-identical reports
// across re-runs (SPEC_FULL.md §4.10's supplemental field).
func Build(in Input) *Report {
	g := in.Graph
	r := &Report{
		RunID:        uuid.NewString(),
		Project:      in.Project,
		Grade:        string(in.Grade),
		Score:        in.Breakdown.MeanScore,
		Capabilities: in.Capabilities,
		Timing:       in.Timing,
		InsufficientData: in.Breakdown.InsufficientData,
		Incomplete:       in.Incomplete,
		Warnings:         in.Warnings,
		CyclesTruncated:  in.Cycles.Truncated,
	}

	r.Counts = Counts{
		Files:   in.FileCount,
		Modules: countInternal(g),
		Edges:   len(g.Edges),
	}

	r.Breakdown = Breakdown{
		Internal:        in.Breakdown.InternalEdgeCount,
		External:        in.Breakdown.ExternalEdgeCount,
		HighCohesion:    in.Breakdown.ClassCounts[graph.ClassHighCohesion],
		Loose:           in.Breakdown.ClassCounts[graph.ClassLooseCoupling],
		Acceptable:      in.Breakdown.ClassCounts[graph.ClassAcceptable],
		Pain:            in.Breakdown.ClassCounts[graph.ClassPain],
		LocalComplexity: in.Breakdown.ClassCounts[graph.ClassLocalComplexity],
	}

	r.StrengthDistribution = distribution(g, func(e *graph.Edge) float64 { return e.Strength })
	r.DistanceDistribution = distribution(g, func(e *graph.Edge) float64 { return e.Distance })
	r.VolatilityDistribution = distribution(g, func(e *graph.Edge) float64 { return e.Volatility })

	r.Modules = buildModules(g)
	r.Edges = buildEdges(g)
	r.Issues = buildIssues(in.CouplingIssues, in.TemporalIssues)
	r.Cycles = buildCycles(in.Cycles)
	r.Phases = buildPhases(in.Phases)

	return r
}

func countInternal(g *graph.Graph) int {
	n := 0
	for _, node := range g.Nodes {
		if node.Kind == graph.Internal {
			n++
		}
	}
	return n
}

// distribution buckets every edge by the exact value a scalar field
// takes (spec.md's dimension scalars only ever take a handful of
// distinct values — see graph.StrengthScalar/DistanceScalar/
// VolatilityScalar), keyed by its formatted string so the result is a
// plain JSON object rather than a float-keyed map. Computed over every
// edge, internal and external, since this is a descriptive fact about
// the observed coupling graph, not an input to the Balance Score (which
// excludes external edges on its own, per spec.md §4.6 — see DESIGN.md).
func distribution(g *graph.Graph, field func(*graph.Edge) float64) map[string]int {
	dist := make(map[string]int)
	for _, e := range g.Edges {
		dist[fmt.Sprintf("%.2f", field(e))]++
	}
	return dist
}

func buildModules(g *graph.Graph) []ModuleEntry {
	entries := make([]ModuleEntry, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		entries = append(entries, ModuleEntry{
			ID:              n.ID,
			FullPath:        n.Module.FullPath,
			Kind:            string(n.Kind),
			Functions:       n.Functions,
			Types:           n.Types,
			Implementations: n.Implementations,
			Traits:          n.Traits,
			ChangeCount:     n.ChangeCount,
			VolatilityLevel: string(n.VolatilityLevel),
			VolatilityKnown: n.VolatilityKnown,
		})
	}
	return entries
}

func buildEdges(g *graph.Graph) []EdgeEntry {
	entries := make([]EdgeEntry, 0, len(g.Edges))
	for _, e := range g.Edges {
		entry := EdgeEntry{
			SourceID:     e.Source.Key(graph.Internal),
			TargetID:     e.Target.Key(edgeTargetKind(e)),
			Strength:     e.Strength,
			Distance:     e.Distance,
			Volatility:   e.Volatility,
			BalanceClass: string(e.Balance),
			Connascence:  string(e.Connascence),
			EdgeScore:    e.EdgeScore,
		}
		for _, ref := range e.Evidence {
			entry.Evidence = append(entry.Evidence, ref.Evidence)
		}
		entries = append(entries, entry)
	}
	return entries
}

func edgeTargetKind(e *graph.Edge) graph.NodeKind {
	if e.TargetIsInternal {
		return graph.Internal
	}
	return graph.External
}

func buildIssues(coupling []issue.Issue, temporalIssues []temporal.Issue) []IssueEntry {
	entries := make([]IssueEntry, 0, len(coupling)+len(temporalIssues))
	for _, is := range coupling {
		entries = append(entries, IssueEntry{
			Family:   "Coupling",
			Kind:     string(is.Kind),
			Severity: string(is.Severity),
			Module:   is.Module,
			Target:   is.Target,
			Message:  is.Message,
			Remedy:   is.Remedy,
			Impact:   is.Impact,
		})
	}
	for _, is := range temporalIssues {
		entries = append(entries, IssueEntry{
			Family:   "Temporal",
			Kind:     string(is.Kind),
			Severity: string(is.Severity),
			Module:   is.Module,
			Message:  is.Message,
		})
	}
	return entries
}

func buildCycles(cycles cycle.Report) []CycleEntry {
	entries := make([]CycleEntry, 0, len(cycles.Cycles))
	for _, c := range cycles.Cycles {
		entries = append(entries, CycleEntry{Members: c.Members})
	}
	return entries
}

func buildPhases(phases map[string]map[temporal.Phase]int) map[string]map[string]int {
	if len(phases) == 0 {
		return nil
	}
	out := make(map[string]map[string]int, len(phases))
	for module, hist := range phases {
		row := make(map[string]int, len(hist))
		for phase, count := range hist {
			row[string(phase)] = count
		}
		out[module] = row
	}
	return out
}

// JSON renders the report as indented JSON, matching spec.md §6's
// schema field-for-field.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// YAML renders the report as YAML, the ambient-stack convenience
// alongside the JSON projection spec.md §6 requires (see DESIGN.md).
func (r *Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// GraphNode is one node of the graph-visualization projection
// (spec.md §6).
type GraphNode struct {
	ID              string        `json:"id" yaml:"id"`
	FullPath        string        `json:"full_path" yaml:"full_path"`
	Kind            string        `json:"kind" yaml:"kind"`
	Counts          GraphCounts   `json:"counts" yaml:"counts"`
	VolatilityLevel string        `json:"volatility_level" yaml:"volatility_level"`
}

// GraphCounts is the node-sized summary the visualization projection
// carries instead of the full module table's fields.
type GraphCounts struct {
	Functions       int `json:"functions" yaml:"functions"`
	Types           int `json:"types" yaml:"types"`
	Implementations int `json:"implementations" yaml:"implementations"`
	Traits          int `json:"traits" yaml:"traits"`
}

// GraphEdge is one edge of the graph-visualization projection
// (spec.md §6).
type GraphEdge struct {
	SourceID     string   `json:"source_id" yaml:"source_id"`
	TargetID     string   `json:"target_id" yaml:"target_id"`
	Strength     float64  `json:"strength" yaml:"strength"`
	Distance     float64  `json:"distance" yaml:"distance"`
	Volatility   float64  `json:"volatility" yaml:"volatility"`
	BalanceClass string   `json:"balance_class" yaml:"balance_class"`
	Evidence     []string `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// GraphProjection is the visualization-oriented view spec.md §6
// describes separately from the main report schema.
type GraphProjection struct {
	Nodes []GraphNode `json:"nodes" yaml:"nodes"`
	Edges []GraphEdge `json:"edges" yaml:"edges"`
}

// Graph builds the graph-visualization projection from g, enforcing
// spec.md §6's stated invariant at projection time: every edge endpoint
// must resolve to exactly one node ID already present in Nodes. A
// violation here means the graph itself is inconsistent (an internal
// invariant violation per spec.md §7), not a data-quality issue to
// degrade gracefully from, so it panics rather than silently dropping
// the edge.
func Graph(g *graph.Graph) GraphProjection {
	proj := GraphProjection{
		Nodes: make([]GraphNode, 0, len(g.Nodes)),
		Edges: make([]GraphEdge, 0, len(g.Edges)),
	}

	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
		proj.Nodes = append(proj.Nodes, GraphNode{
			ID:       n.ID,
			FullPath: n.Module.FullPath,
			Kind:     string(n.Kind),
			Counts: GraphCounts{
				Functions:       n.Functions,
				Types:           n.Types,
				Implementations: n.Implementations,
				Traits:          n.Traits,
			},
			VolatilityLevel: string(n.VolatilityLevel),
		})
	}

	for _, e := range g.Edges {
		srcID := e.Source.Key(graph.Internal)
		dstID := e.Target.Key(edgeTargetKind(e))
		if !known[srcID] || !known[dstID] {
			panic(fmt.Sprintf("report.Graph: edge %s -> %s references an unknown node", srcID, dstID))
		}
		edge := GraphEdge{
			SourceID:     srcID,
			TargetID:     dstID,
			Strength:     e.Strength,
			Distance:     e.Distance,
			Volatility:   e.Volatility,
			BalanceClass: string(e.Balance),
		}
		for _, ref := range e.Evidence {
			edge.Evidence = append(edge.Evidence, ref.Evidence)
		}
		proj.Edges = append(proj.Edges, edge)
	}

	sort.Slice(proj.Nodes, func(i, j int) bool { return proj.Nodes[i].ID < proj.Nodes[j].ID })
	sort.Slice(proj.Edges, func(i, j int) bool {
		if proj.Edges[i].SourceID != proj.Edges[j].SourceID {
			return proj.Edges[i].SourceID < proj.Edges[j].SourceID
		}
		return proj.Edges[i].TargetID < proj.Edges[j].TargetID
	})

	return proj
}
