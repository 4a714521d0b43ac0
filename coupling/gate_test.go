package coupling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sourcelens/coupling/report"
)

func TestGate_Evaluate_Success(t *testing.T) {
	g := Gate{MinGrade: "", MaxCritical: -1, MaxCircular: -1}
	r := &report.Report{Grade: "A"}
	assert.Equal(t, ExitSuccess, g.Evaluate(r))
}

func TestGate_Evaluate_NilReportIsUnrecoverable(t *testing.T) {
	g := Gate{}
	assert.Equal(t, ExitUnrecoverable, g.Evaluate(nil))
}

func TestGate_Evaluate_IncompleteIsUnrecoverable(t *testing.T) {
	g := Gate{MaxCritical: -1, MaxCircular: -1}
	r := &report.Report{Grade: "A", Incomplete: true}
	assert.Equal(t, ExitUnrecoverable, g.Evaluate(r))
}

func TestGate_Evaluate_MinGradeFails(t *testing.T) {
	g := Gate{MinGrade: "B", MaxCritical: -1, MaxCircular: -1}
	r := &report.Report{Grade: "D"}
	assert.Equal(t, ExitGateFailed, g.Evaluate(r))
}

func TestGate_Evaluate_MaxCriticalFails(t *testing.T) {
	g := Gate{MaxCritical: 0, MaxCircular: -1}
	r := &report.Report{Grade: "A", Issues: []report.IssueEntry{{Severity: "Critical"}}}
	assert.Equal(t, ExitGateFailed, g.Evaluate(r))
}

func TestGate_Evaluate_MaxCircularFails(t *testing.T) {
	g := Gate{MaxCritical: -1, MaxCircular: 0}
	r := &report.Report{Grade: "A", Cycles: []report.CycleEntry{{Members: []string{"a", "b"}}}}
	assert.Equal(t, ExitGateFailed, g.Evaluate(r))
}

func TestGate_Evaluate_FailOnSeverity(t *testing.T) {
	g := Gate{MaxCritical: -1, MaxCircular: -1, FailOnSeverity: "High"}
	r := &report.Report{Grade: "A", Issues: []report.IssueEntry{{Severity: "High"}}}
	assert.Equal(t, ExitGateFailed, g.Evaluate(r))

	r2 := &report.Report{Grade: "A", Issues: []report.IssueEntry{{Severity: "Low"}}}
	assert.Equal(t, ExitSuccess, Gate{MaxCritical: -1, MaxCircular: -1, FailOnSeverity: "High"}.Evaluate(r2))
}
