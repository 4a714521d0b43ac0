// Package issue implements the IssueDetector (spec.md §4.8):
// table-driven evaluation of the labeled graph against configured
// thresholds, the cycle report, and per-node counts, producing a
// ranked, severity-tagged, remedy-templated Issue list.
package issue

import (
	"sort"
	"strconv"

	"github.com/sourcelens/coupling/cycle"
	"github.com/sourcelens/coupling/graph"
)

// Severity orders from least to most urgent.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Kind enumerates the nine issue kinds spec.md §4.8 names.
type Kind string

const (
	KindCircularDependency    Kind = "CircularDependency"
	KindGlobalComplexity      Kind = "GlobalComplexity"
	KindCascadingChangeRisk   Kind = "CascadingChangeRisk"
	KindHighEfferentCoupling  Kind = "HighEfferentCoupling"
	KindHighAfferentCoupling  Kind = "HighAfferentCoupling"
	KindGodModule             Kind = "GodModule"
	KindInappropriateIntimacy Kind = "InappropriateIntimacy"
	KindPublicFieldExposure   Kind = "PublicFieldExposure"
	KindPrimitiveObsession    Kind = "PrimitiveObsession"
)

// Issue is one detected problem, already carrying its rendered remedy
// text.
type Issue struct {
	Kind     Kind
	Severity Severity
	Module   string // primary implicated module ID
	Target   string // secondary module ID, when the issue spans an edge
	Message  string
	Remedy   string
	Impact   float64 // composite ranking score, spec.md §4.8
}

// Config carries the thresholds spec.md §6's Options exposes plus the
// GodModule/PrimitiveObsession defaults spec.md §4.8 leaves
// unspecified (see DESIGN.md's Open Question entry for the chosen
// defaults).
type Config struct {
	MaxDeps             int
	MaxDependents       int
	GodModuleComposite  int
	PrimitiveParamCount int
	HideLow             bool
}

// DefaultConfig matches spec.md's stated and DESIGN.md's resolved
// defaults.
func DefaultConfig() Config {
	return Config{
		MaxDeps:             20,
		MaxDependents:       30,
		GodModuleComposite:  50,
		PrimitiveParamCount: 4,
	}
}

// Detect evaluates every rule in spec.md §4.8's table against g,
// cycles, and cfg, and returns a ranked Issue list (Critical first,
// then descending severity, then descending impact, ties broken by
// module ID). Low-severity issues are included unless cfg.HideLow.
func Detect(g *graph.Graph, cycles cycle.Report, cfg Config) []Issue {
	var issues []Issue

	issues = append(issues, circularDependencyIssues(cycles)...)
	issues = append(issues, edgeIssues(g)...)
	issues = append(issues, couplingCountIssues(g, cfg)...)
	issues = append(issues, godModuleIssues(g, cfg)...)
	issues = append(issues, publicFieldExposureIssues(g)...)

	impact := afferentStrengthImpact(g)
	for i := range issues {
		if issues[i].Impact == 0 {
			issues[i].Impact = impact[issues[i].Module]
		}
	}

	filtered := issues
	if cfg.HideLow {
		filtered = filtered[:0]
		for _, is := range issues {
			if is.Severity != SeverityLow {
				filtered = append(filtered, is)
			}
		}
	}

	rank(filtered)
	return filtered
}

func rank(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Severity != b.Severity {
			return severityRank[a.Severity] > severityRank[b.Severity]
		}
		if a.Impact != b.Impact {
			return a.Impact > b.Impact
		}
		return a.Module < b.Module
	})
}

// afferentStrengthImpact computes, per internal node, afferent_count *
// strength_mean of its incident edges (spec.md §4.8's ranking
// "impact"), where incident means edges where the node is either
// endpoint.
func afferentStrengthImpact(g *graph.Graph) map[string]float64 {
	afferent := make(map[string]int)
	strengthSum := make(map[string]float64)
	strengthCount := make(map[string]int)

	for _, e := range g.Edges {
		srcID := e.Source.Key(graph.Internal)
		if e.TargetIsInternal {
			dstID := e.Target.Key(graph.Internal)
			afferent[dstID]++
			strengthSum[dstID] += e.Strength
			strengthCount[dstID]++
		}
		strengthSum[srcID] += e.Strength
		strengthCount[srcID]++
	}

	impact := make(map[string]float64, len(strengthCount))
	for id, count := range strengthCount {
		mean := strengthSum[id] / float64(count)
		impact[id] = float64(afferent[id]) * mean
	}
	return impact
}

func circularDependencyIssues(cycles cycle.Report) []Issue {
	inCycle := make(map[string][]int)
	for ci, c := range cycles.Cycles {
		for _, m := range c.Members {
			inCycle[m] = append(inCycle[m], ci)
		}
	}
	modules := make([]string, 0, len(inCycle))
	for m := range inCycle {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	issues := make([]Issue, 0, len(modules))
	for _, m := range modules {
		issues = append(issues, Issue{
			Kind:     KindCircularDependency,
			Severity: SeverityCritical,
			Module:   m,
			Message:  "module participates in a circular dependency",
			Remedy:   "Break the cycle by introducing an interface boundary or inverting one dependency direction.",
		})
	}
	return issues
}

func edgeIssues(g *graph.Graph) []Issue {
	var issues []Issue
	for _, e := range g.Edges {
		srcID := e.Source.Key(graph.Internal)
		dstID := e.Target.Key(edgeTargetKind(e))

		if e.Balance == graph.ClassPain || (e.Strength >= 0.75 && e.Distance >= 0.75) {
			issues = append(issues, Issue{
				Kind:     KindGlobalComplexity,
				Severity: SeverityHigh,
				Module:   srcID,
				Target:   dstID,
				Message:  "strong, distant dependency from " + srcID + " to " + dstID,
				Remedy:   "Isolate the volatile component behind a stable interface.",
			})
		}
		if e.Strength >= 0.75 && e.Volatility >= 0.75 {
			issues = append(issues, Issue{
				Kind:     KindCascadingChangeRisk,
				Severity: SeverityHigh,
				Module:   srcID,
				Target:   dstID,
				Message:  srcID + " has a strong dependency on frequently-changing module " + dstID,
				Remedy:   "Isolate the volatile component behind a stable interface.",
			})
		}
		if intimacyViolation(e) {
			issues = append(issues, Issue{
				Kind:     KindInappropriateIntimacy,
				Severity: SeverityMedium,
				Module:   srcID,
				Target:   dstID,
				Message:  srcID + " reaches into non-public state of " + dstID,
				Remedy:   "Extract a trait/interface with the required methods and depend on that instead.",
			})
		}
	}
	return issues
}

func edgeTargetKind(e *graph.Edge) graph.NodeKind {
	if e.TargetIsInternal {
		return graph.Internal
	}
	return graph.External
}

// intimacyViolation reports whether any sampled evidence on e is a
// FieldAccess or StructConstruction naming a known non-Public target
// item. Evidence is capped at GraphBuilder's sample size, so this is
// a best-effort check over the retained samples, not the full
// reference multiset.
func intimacyViolation(e *graph.Edge) bool {
	for _, ref := range e.Evidence {
		if ref.Kind != graph.RefFieldAccess && ref.Kind != graph.RefStructConstruction {
			continue
		}
		if ref.TargetVisibility != "" && ref.TargetVisibility != graph.VisibilityPublic {
			return true
		}
	}
	return false
}

func couplingCountIssues(g *graph.Graph, cfg Config) []Issue {
	efferent := make(map[string]int)
	afferent := make(map[string]int)
	for _, e := range g.Edges {
		efferent[e.Source.Key(graph.Internal)]++
		if e.TargetIsInternal {
			afferent[e.Target.Key(graph.Internal)]++
		}
	}

	var issues []Issue
	for _, n := range g.Nodes {
		if n.Kind != graph.Internal {
			continue
		}
		if count := efferent[n.ID]; count > cfg.MaxDeps {
			issues = append(issues, Issue{
				Kind:     KindHighEfferentCoupling,
				Severity: overThresholdSeverity(count, cfg.MaxDeps),
				Module:   n.ID,
				Message:  "module depends on too many other modules",
				Remedy:   "Split module by responsibility to shrink its outgoing dependency set.",
			})
		}
		if count := afferent[n.ID]; count > cfg.MaxDependents {
			issues = append(issues, Issue{
				Kind:     KindHighAfferentCoupling,
				Severity: overThresholdSeverity(count, cfg.MaxDependents),
				Module:   n.ID,
				Message:  "module is depended on by too many other modules",
				Remedy:   "Extract a stable interface so dependents decouple from the implementation.",
			})
		}
	}
	return issues
}

func overThresholdSeverity(count, threshold int) Severity {
	if count > 2*threshold {
		return SeverityHigh
	}
	return SeverityMedium
}

func godModuleIssues(g *graph.Graph, cfg Config) []Issue {
	var issues []Issue
	for _, n := range g.Nodes {
		if n.Kind != graph.Internal {
			continue
		}
		if n.CompositeSize() > cfg.GodModuleComposite {
			issues = append(issues, Issue{
				Kind:     KindGodModule,
				Severity: SeverityMedium,
				Module:   n.ID,
				Message:  "module has grown too large to reason about as a unit",
				Remedy:   "Split module by responsibility.",
			})
		}
	}
	issues = append(issues, primitiveObsessionIssues(g, cfg)...)
	return issues
}

// primitiveObsessionIssues flags a function or method item with >=
// threshold primitive-kinded parameters and no newtype-typed parameter
// among them (spec.md §4.8), using the per-item counts the Go
// extractor records at declaration time (extract/golang's
// paramProfile).
func primitiveObsessionIssues(g *graph.Graph, cfg Config) []Issue {
	var issues []Issue
	for _, n := range g.Nodes {
		if n.Kind != graph.Internal {
			continue
		}
		for _, item := range n.Items {
			if item.Kind != graph.KindFunction && item.Kind != graph.KindImplementation {
				continue
			}
			if item.PrimitiveParamCount >= cfg.PrimitiveParamCount && !item.HasNewtypeParam {
				issues = append(issues, Issue{
					Kind:     KindPrimitiveObsession,
					Severity: SeverityLow,
					Module:   n.ID,
					Message:  n.ID + "." + item.Name + " takes " + strconv.Itoa(item.PrimitiveParamCount) + " primitive parameters with no newtype wrapper",
					Remedy:   "Introduce newtype wrappers for recurring primitive parameter groups.",
				})
			}
		}
	}
	return issues
}

func publicFieldExposureIssues(g *graph.Graph) []Issue {
	var issues []Issue
	for _, n := range g.Nodes {
		if n.Kind != graph.Internal {
			continue
		}
		publicFields := make(map[string]bool)
		for _, item := range n.Items {
			if item.Kind == graph.KindField && item.Visibility == graph.VisibilityPublic {
				publicFields[fieldSuffix(item.Name)] = true
			}
		}
		if len(publicFields) == 0 {
			continue
		}
		if accessedFromOutside(g, n.ID, publicFields) {
			issues = append(issues, Issue{
				Kind:     KindPublicFieldExposure,
				Severity: SeverityLow,
				Module:   n.ID,
				Message:  "module exposes public fields accessed directly from other modules",
				Remedy:   "Wrap field access behind accessor methods to preserve encapsulation.",
			})
		}
	}
	return issues
}

func fieldSuffix(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}

func accessedFromOutside(g *graph.Graph, moduleID string, fields map[string]bool) bool {
	for _, e := range g.Edges {
		if !e.TargetIsInternal || e.Target.Key(graph.Internal) != moduleID {
			continue
		}
		for _, ref := range e.Evidence {
			if ref.Kind == graph.RefFieldAccess && fields[ref.TargetItem] {
				return true
			}
		}
	}
	return false
}
