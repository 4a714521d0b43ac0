// Package temporal looks for operation pairs and lifecycle phases that a
// pure coupling graph can't see: a module that opens twice as often as it
// closes, a goroutine launched and forgotten, a constructor never paired
// with a teardown. None of this changes an edge's strength, distance, or
// volatility — it is reported alongside the coupling issues as extra
// context on how a module behaves over its own lifetime.
package temporal

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sourcelens/coupling/graph"
)

// Severity mirrors three of issue.Severity's tiers (Critical, High,
// Medium) plus Warning, which the
// coupling-strength model has no use for but orphaned-spawn detection
// does.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityWarning  Severity = "Warning"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityWarning:  3,
}

// Kind enumerates the two issue shapes this analyzer raises.
type Kind string

const (
	KindUnbalancedPair    Kind = "UnbalancedPair"
	KindOrphanedTaskSpawn Kind = "OrphanedTaskSpawn"
)

// pairCategory drives the severity an imbalance is reported at.
type pairCategory string

const (
	categoryLocking   pairCategory = "locking"
	categoryResource  pairCategory = "resource"
	categoryLifecycle pairCategory = "lifecycle"
)

func (c pairCategory) severity() Severity {
	switch c {
	case categoryLocking:
		return SeverityCritical
	case categoryResource:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// pairSpec is one registry entry: an opener token and the closer token(s)
// that balance it. Matching is a case-insensitive substring test against
// an item's name, the same style tool_registry.go in the pack uses to
// match free-text keywords against an index.
type pairSpec struct {
	name     string
	category pairCategory
	opener   string
	closers  []string
}

// registry is the fixed paired-operation token table (spec.md §4.9).
var registry = []pairSpec{
	{name: "open/close", category: categoryResource, opener: "open", closers: []string{"close"}},
	{name: "lock/unlock", category: categoryLocking, opener: "lock", closers: []string{"unlock"}},
	{name: "begin/commit", category: categoryLifecycle, opener: "begin", closers: []string{"commit", "rollback"}},
	{name: "init/cleanup", category: categoryLifecycle, opener: "init", closers: []string{"cleanup"}},
	{name: "subscribe/unsubscribe", category: categoryResource, opener: "subscribe", closers: []string{"unsubscribe"}},
	{name: "connect/disconnect", category: categoryResource, opener: "connect", closers: []string{"disconnect"}},
	{name: "acquire/release", category: categoryLocking, opener: "acquire", closers: []string{"release"}},
}

// Issue is one temporal finding attached to a module.
type Issue struct {
	Kind     Kind
	Severity Severity
	Module   string
	Message  string
	Opener   int
	Closer   int
}

// Phase is a lifecycle stage a method name can be classified into.
type Phase string

const (
	PhaseCreate      Phase = "Create"
	PhaseConfigure   Phase = "Configure"
	PhaseInitialize  Phase = "Initialize"
	PhaseStart       Phase = "Start"
	PhaseActive      Phase = "Active"
	PhaseStop        Phase = "Stop"
	PhaseCleanup     Phase = "Cleanup"
	PhaseUnclassified Phase = ""
)

// phaseOrder is the priority in which keywords are tested: a name
// matching more than one phase's keywords (e.g. "StopAndCleanup") is
// classified by whichever phase comes first here.
var phaseOrder = []Phase{
	PhaseCleanup, PhaseStop, PhaseConfigure, PhaseInitialize, PhaseCreate, PhaseStart, PhaseActive,
}

// phaseKeywords indexes each phase's trigger substrings, lower-cased.
var phaseKeywords = map[Phase][]string{
	PhaseCreate:     {"new", "create", "build", "make"},
	PhaseConfigure:  {"configure", "setopt", "withoption", "set"},
	PhaseInitialize: {"init", "setup", "bootstrap", "prepare"},
	PhaseStart:      {"start", "run", "launch", "listen", "serve"},
	PhaseActive:     {"handle", "process", "execute", "update", "do", "apply"},
	PhaseStop:       {"stop", "pause", "halt", "cancel"},
	PhaseCleanup:    {"close", "cleanup", "shutdown", "teardown", "destroy", "dispose"},
}

// ClassifyPhase maps an item name onto a lifecycle phase by keyword
// registry, or PhaseUnclassified when nothing matches (spec.md §4.9:
// this feeds report context only, it never raises an issue on its own).
func ClassifyPhase(name string) Phase {
	lower := strings.ToLower(name)
	for _, phase := range phaseOrder {
		for _, kw := range phaseKeywords[phase] {
			if strings.Contains(lower, kw) {
				return phase
			}
		}
	}
	return PhaseUnclassified
}

// PhaseHistogram counts, per phase, how many items in a node classified
// into it. Unclassified items are not counted.
func PhaseHistogram(n *graph.Node) map[Phase]int {
	hist := make(map[Phase]int)
	for _, item := range n.Items {
		if item.Kind != graph.KindFunction && item.Kind != graph.KindImplementation {
			continue
		}
		phase := ClassifyPhase(item.Name)
		if phase == PhaseUnclassified {
			continue
		}
		hist[phase]++
	}
	return hist
}

// Detect runs both temporal checks over every internal node in g: paired
// token-count imbalance and orphaned-spawn sites recorded during
// extraction. Results are sorted by severity, then module, for
// deterministic output.
func Detect(g *graph.Graph) []Issue {
	counts := countTokensByModule(g)
	orphanedSpawns := make(map[string][]string)
	for _, s := range g.Spawns {
		if s.Observed {
			continue
		}
		orphanedSpawns[s.Module.ShortName] = append(orphanedSpawns[s.Module.ShortName], s.Call)
	}

	var issues []Issue
	for _, n := range g.Nodes {
		if n.Kind != graph.Internal {
			continue
		}
		key := n.Module.ShortName
		modCounts := counts[key]
		for _, spec := range registry {
			opener := modCounts[spec.opener]
			var closer int
			for _, c := range spec.closers {
				closer += modCounts[c]
			}
			if opener == 0 && closer == 0 {
				continue
			}
			diff := opener - closer
			if diff < 0 {
				diff = -diff
			}
			if diff == 0 {
				continue
			}
			issues = append(issues, Issue{
				Kind:     KindUnbalancedPair,
				Severity: spec.category.severity(),
				Module:   key,
				Message:  spec.name + " imbalance: " + strconv.Itoa(opener) + " opener(s) vs " + strconv.Itoa(closer) + " closer(s)",
				Opener:   opener,
				Closer:   closer,
			})
		}
		for _, name := range orphanedSpawns[key] {
			issues = append(issues, Issue{
				Kind:     KindOrphanedTaskSpawn,
				Severity: SeverityWarning,
				Module:   key,
				Message:  "goroutine launched from " + name + " without a channel or WaitGroup to observe its completion",
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if severityRank[issues[i].Severity] != severityRank[issues[j].Severity] {
			return severityRank[issues[i].Severity] < severityRank[issues[j].Severity]
		}
		if issues[i].Module != issues[j].Module {
			return issues[i].Module < issues[j].Module
		}
		return issues[i].Message < issues[j].Message
	})
	return issues
}

// countTokensByModule scans every function/method item name declared in
// each internal module and tallies, per registry token, how many
// declared operations matched it (case-insensitive substring test). A
// name can match more than one token, e.g. "ReleaseLock" counts toward
// both "release" and "lock". An opener that only occurs inside a
// matched closer of the same pair (the "lock" in "Unlock") is not
// counted as an opener.
func countTokensByModule(g *graph.Graph) map[string]map[string]int {
	counts := make(map[string]map[string]int)
	for _, n := range g.Nodes {
		if n.Kind != graph.Internal {
			continue
		}
		key := n.Module.ShortName
		tally := make(map[string]int)
		for _, item := range n.Items {
			if item.Kind != graph.KindFunction && item.Kind != graph.KindImplementation {
				continue
			}
			lower := strings.ToLower(item.Name)
			for _, spec := range registry {
				rest := lower
				for _, c := range spec.closers {
					if strings.Contains(lower, c) {
						tally[c]++
						rest = strings.ReplaceAll(rest, c, "")
					}
				}
				if strings.Contains(rest, spec.opener) {
					tally[spec.opener]++
				}
			}
		}
		counts[key] = tally
	}
	return counts
}

