package coupling

import (
	"github.com/sourcelens/coupling/issue"
	"github.com/sourcelens/coupling/report"
	"github.com/sourcelens/coupling/score"
)

// Exit codes per spec.md §6.
const (
	ExitSuccess       = 0
	ExitGateFailed    = 1
	ExitConfigError   = 2
	ExitUnrecoverable = 3
)

// gradeRank orders letter grades worst-to-best for threshold
// comparison; min_grade "no worse than B" means rank(actual) >=
// rank(B).
var gradeRank = map[score.Grade]int{
	score.GradeF: 0,
	score.GradeD: 1,
	score.GradeC: 2,
	score.GradeB: 3,
	score.GradeA: 4,
	score.GradeS: 5,
}

var severityRank = map[issue.Severity]int{
	issue.SeverityLow:      0,
	issue.SeverityMedium:   1,
	issue.SeverityHigh:     2,
	issue.SeverityCritical: 3,
}

// Gate implements spec.md §6's quality-gate evaluation: pure function
// over a finished ReportModel, never touching the filesystem or
// calling os.Exit itself — that belongs to the CLI front-end this
// repository explicitly leaves out of scope (SPEC_FULL.md §1).
type Gate struct {
	// MinGrade is the worst acceptable letter grade ("" disables the
	// check).
	MinGrade score.Grade
	// MaxCritical is the maximum tolerated count of Critical-severity
	// issues (-1 disables the check).
	MaxCritical int
	// MaxCircular is the maximum tolerated count of reported cycles
	// (-1 disables the check).
	MaxCircular int
	// FailOnSeverity fails the gate if any issue at or above this
	// severity is present ("" disables the check).
	FailOnSeverity issue.Severity
}

// Evaluate returns the exit code spec.md §6 defines for r. A nil
// report is treated as an unrecoverable run.
func (g Gate) Evaluate(r *report.Report) int {
	if r == nil {
		return ExitUnrecoverable
	}
	if !r.Incomplete && g.failsThresholds(r) {
		return ExitGateFailed
	}
	if r.Incomplete {
		return ExitUnrecoverable
	}
	return ExitSuccess
}

func (g Gate) failsThresholds(r *report.Report) bool {
	if g.MinGrade != "" && gradeRank[score.Grade(r.Grade)] < gradeRank[g.MinGrade] {
		return true
	}
	if g.MaxCritical >= 0 && countSeverity(r, "Critical") > g.MaxCritical {
		return true
	}
	if g.MaxCircular >= 0 && len(r.Cycles) > g.MaxCircular {
		return true
	}
	if g.FailOnSeverity != "" {
		threshold := severityRank[g.FailOnSeverity]
		for _, is := range r.Issues {
			if severityRank[issue.Severity(is.Severity)] >= threshold {
				return true
			}
		}
	}
	return false
}

func countSeverity(r *report.Report, severity string) int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == severity {
			n++
		}
	}
	return n
}
