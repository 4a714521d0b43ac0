// Package score implements the DimensionScorer and BalanceScorer
// (spec.md §4.5-4.6): per-edge Strength/Distance/Volatility, the
// qualitative BalanceClass, the numeric edge_score, and the
// project-level Balance Score and Grade. Every function here is pure
// over graph.Edge/graph.Node, mirroring the teacher's own preference
// for small, pure, independently-testable transformation functions
// (analyzer/identifier.go, analyzer/touchpoint.go) rather than a
// stateful scorer object.
package score

import (
	"github.com/sourcelens/coupling/graph"
)

// thresholds used by the balance-class decision table (spec.md §4.6).
const (
	strongMin  = 0.75
	closeMax   = 0.25
	farMin     = 0.50
	volatileMin = 0.75
	stableMax  = 0.50
)

// ScoreEdge fills in an edge's Strength, Distance, DistanceCls,
// Volatility, Balance, Alignment, VolImpact and EdgeScore fields from
// its Strongest ref_kind and the target node's volatility, per
// spec.md §4.5-4.6. target must be the Node the edge points at; it is
// read but not mutated.
func ScoreEdge(e *graph.Edge, target *graph.Node) {
	e.Strength = graph.StrengthScalar(e.Strongest)

	if e.TargetIsInternal {
		e.DistanceCls = graph.DistanceDifferentModule
	} else {
		e.DistanceCls = graph.DistanceDifferentCrate
	}
	e.Distance = graph.DistanceScalar(e.DistanceCls)

	e.Volatility = graph.VolatilityScalar(target.VolatilityLevel, target.VolatilityKnown)

	e.Balance = classify(e.Strength, e.Distance, e.Volatility)
	e.Alignment = alignment(e.Strength, e.Distance)
	e.VolImpact = volatilityImpact(e.Volatility, e.Strength)
	e.EdgeScore = e.Alignment * e.VolImpact
}

func alignment(strength, distance float64) float64 {
	diff := strength - (1 - distance)
	if diff < 0 {
		diff = -diff
	}
	return 1 - diff
}

func volatilityImpact(volatility, strength float64) float64 {
	return 1 - (volatility * strength)
}

// classify applies spec.md §4.6's decision table. The table's last
// two rows overlap ("otherwise" covers ¬strong ∧ ¬close ∧ ¬far, i.e.
// distance strictly between close and far, which the three named
// distance values never produce) so "otherwise" only ever matches
// dead cases in practice; it is kept for completeness.
func classify(strength, distance, volatility float64) graph.BalanceClass {
	strong := strength >= strongMin
	near := distance <= closeMax
	far := distance >= farMin
	stable := volatility <= stableMax
	volatile := volatility >= volatileMin

	switch {
	case strong && near:
		return graph.ClassHighCohesion
	case !strong && far:
		return graph.ClassLooseCoupling
	case strong && far && volatile:
		return graph.ClassPain
	case strong && far && stable:
		return graph.ClassAcceptable
	case !strong && near:
		return graph.ClassLocalComplexity
	default:
		return graph.ClassAcceptable
	}
}

// ScoreGraph scores every edge in g in place, looking up each edge's
// target node by ID.
func ScoreGraph(g *graph.Graph) {
	for _, e := range g.Edges {
		target := g.NodeByID(e.Target.Key(targetKind(e)))
		if target == nil {
			continue
		}
		ScoreEdge(e, target)
	}
}

func targetKind(e *graph.Edge) graph.NodeKind {
	if e.TargetIsInternal {
		return graph.Internal
	}
	return graph.External
}

// Grade is the project-wide letter grade (spec.md §4.6).
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// minInternalEdgesForGrading is spec.md §4.6's "fewer than 10
// internal edges" insufficient-data threshold.
const minInternalEdgesForGrading = 10

// Breakdown is the Balance Score's supporting statistics, surfaced in
// the report alongside the grade.
type Breakdown struct {
	MeanScore         float64
	InternalEdgeCount int
	ExternalEdgeCount int
	ClassCounts       map[graph.BalanceClass]int
	InsufficientData  bool
}

// mediumDensity is the fraction of internal edges in class Acceptable
// (spec.md §4.6's "medium-density").
func (b Breakdown) mediumDensity() float64 {
	if b.InternalEdgeCount == 0 {
		return 0
	}
	return float64(b.ClassCounts[graph.ClassAcceptable]) / float64(b.InternalEdgeCount)
}

// highDensity is the fraction of internal edges in class Pain
// (spec.md §4.6's "high-density").
func (b Breakdown) highDensity() float64 {
	if b.InternalEdgeCount == 0 {
		return 0
	}
	return float64(b.ClassCounts[graph.ClassPain]) / float64(b.InternalEdgeCount)
}

// IssueCounts is the subset of the project's issue population the
// grade mapping consults, kept as plain counts so this package does
// not import the issue package.
type IssueCounts struct {
	Critical int
	High     int
}

// BalanceScore computes the project-level mean edge_score and
// breakdown over internal edges only (spec.md §4.6: external edges
// are reported but excluded from the grade). g's edges must already
// be scored (ScoreGraph).
func BalanceScore(g *graph.Graph) Breakdown {
	b := Breakdown{ClassCounts: make(map[graph.BalanceClass]int)}
	var sum float64
	for _, e := range g.Edges {
		if e.TargetIsInternal {
			b.ClassCounts[e.Balance]++
			b.InternalEdgeCount++
			sum += e.EdgeScore
		} else {
			b.ExternalEdgeCount++
		}
	}
	if b.InternalEdgeCount > 0 {
		b.MeanScore = sum / float64(b.InternalEdgeCount)
	}
	b.InsufficientData = b.InternalEdgeCount < minInternalEdgesForGrading
	return b
}

// ComputeGrade maps a Breakdown and the project's issue population to
// a letter Grade, per spec.md §4.6's table.
//
// The table as written reads as score-tier-first (S down to F), which
// would let a sufficiently high mean score outrank a large Critical
// issue count — since none of S/A/B's row conditions mention Critical
// except B's, a project with four Critical issues and a 0.96 mean
// score reads as matching S literally. That contradicts "Grade
// monotonicity" never improving on more Critical issues, so Critical-
// and Pain-density severity are checked first as overrides, and the
// score tiers are evaluated only once those gates pass. This is
// recorded as an Open Question resolution in DESIGN.md.
func ComputeGrade(b Breakdown, issues IssueCounts) Grade {
	if b.InsufficientData {
		return GradeB
	}

	md := b.mediumDensity()
	hd := b.highDensity()

	switch {
	case issues.Critical > 3:
		return GradeF
	case issues.Critical >= 1 || hd > 0.05:
		return GradeD
	}

	switch {
	case b.MeanScore >= 0.95 && md <= 0.05 && b.InternalEdgeCount >= 20:
		return GradeS
	case b.MeanScore >= 0.85 && issues.High == 0 && md <= 0.10:
		return GradeA
	case b.MeanScore >= 0.70:
		return GradeB
	case b.MeanScore >= 0.55 || issues.High > 0 || md > 0.25:
		return GradeC
	default:
		return GradeD
	}
}
