package coupling

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sourcelens/coupling/cycle"
	"github.com/sourcelens/coupling/extract"
	"github.com/sourcelens/coupling/extract/golang"
	"github.com/sourcelens/coupling/extract/pyts"
	"github.com/sourcelens/coupling/graph"
	"github.com/sourcelens/coupling/issue"
	"github.com/sourcelens/coupling/pathmap"
	"github.com/sourcelens/coupling/report"
	"github.com/sourcelens/coupling/score"
	"github.com/sourcelens/coupling/temporal"
	"github.com/sourcelens/coupling/volatility"
)

// Engine runs the full analysis pipeline: discover files, extract
// facts in a bounded worker pool, fold them into a graph, score it,
// and assemble a report. The teacher has no pipeline of this shape
// (inspector.InspectProject is a single sequential pass), so the
// worker-pool and logging conventions here are grounded on the pack's
// errgroup-based drivers instead (see DESIGN.md).
type Engine struct {
	logger *zap.Logger
}

// New constructs an Engine. A nil logger is replaced with a no-op one,
// matching the teacher's tolerance for an absent logger dependency.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Analyze runs the pipeline against root and returns the finished
// ReportModel. A cancelled ctx yields a partial report with
// Incomplete=true rather than an error (spec.md §7).
func (e *Engine) Analyze(ctx context.Context, root string, opts Options) (*report.Report, error) {
	start := time.Now()
	opts = opts.withDefaults()

	goMapper := pathmap.New(root)
	goFiles, err := goMapper.Discover()
	if err != nil {
		return nil, errors.WithStack(fmt.Errorf("coupling: discovering go sources under %s: %w", root, err))
	}

	pyMapper := pathmap.New(root, pathmap.WithExtension(".py"))
	pyFiles, err := pyMapper.Discover()
	if err != nil {
		return nil, errors.WithStack(fmt.Errorf("coupling: discovering python sources under %s: %w", root, err))
	}

	type job struct {
		path     string
		source   extract.Source
		resolver extract.Resolver
	}
	jobs := make([]job, 0, len(goFiles)+len(pyFiles))
	goSource := golang.New()
	pySource := pyts.New()
	for _, f := range goFiles {
		jobs = append(jobs, job{path: f, source: goSource, resolver: goMapper})
	}
	for _, f := range pyFiles {
		jobs = append(jobs, job{path: f, source: pySource, resolver: goMapper})
	}

	builder := graph.NewBuilder(opts.graphConfig())

	var warnMu sync.Mutex
	var warnings []string

	parseStart := time.Now()
	limit := opts.Jobs
	if limit <= 0 || limit > defaultJobLimit() {
		limit = defaultJobLimit()
	}
	if limit > len(jobs) && len(jobs) > 0 {
		limit = len(jobs)
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	var volatilityResult map[string]*volatility.Result
	g.Go(func() error {
		va := volatility.New(root, goMapper, opts.volatilityConfig())
		volatilityResult = va.Analyze(gctx)
		return nil
	})

	incomplete := false
	for i := range jobs {
		j := jobs[i]
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			facts, err := j.source.Extract(j.path, j.resolver)
			if err != nil {
				warnMu.Lock()
				warnings = append(warnings, fmt.Sprintf("%s: %v", j.path, err))
				warnMu.Unlock()
				return nil
			}
			mergeFacts(builder, facts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		incomplete = true
	}
	if ctx.Err() != nil {
		incomplete = true
	}
	parseMs := time.Since(parseStart).Milliseconds()

	e.logger.Info("extraction complete",
		zap.Int("files", len(jobs)),
		zap.Int("warnings", len(warnings)),
		zap.Int64("parse_ms", parseMs),
	)

	gr := builder.Build()
	applyVolatility(gr, volatilityResult)

	scoreStart := time.Now()
	score.ScoreGraph(gr)
	breakdown := score.BalanceScore(gr)

	cycles := cycle.Detect(gr, opts.MaxCycles)
	couplingIssues := issue.Detect(gr, cycles, opts.issueConfig())
	temporalIssues := temporal.Detect(gr)
	grade := score.ComputeGrade(breakdown, issueCounts(couplingIssues))
	scoreMs := time.Since(scoreStart).Milliseconds()

	e.logger.Info("scoring complete",
		zap.String("grade", string(grade)),
		zap.Int("issues", len(couplingIssues)+len(temporalIssues)),
		zap.Int64("score_ms", scoreMs),
	)

	phases := buildPhaseHistograms(gr)

	capabilities := report.Capabilities{VolatilityAvailable: volatilityKnown(volatilityResult)}

	in := report.Input{
		Project:        goMapper.ProjectName(),
		Graph:          gr,
		Breakdown:      breakdown,
		Grade:          grade,
		Cycles:         cycles,
		CouplingIssues: couplingIssues,
		TemporalIssues: temporalIssues,
		Phases:         phases,
		Capabilities:   capabilities,
		Timing: report.Timing{
			ParseMs: parseMs,
			ScoreMs: scoreMs,
			TotalMs: time.Since(start).Milliseconds(),
		},
		FileCount:  len(jobs),
		Warnings:   warnings,
		Incomplete: incomplete,
	}
	return report.Build(in), nil
}

// defaultJobLimit mirrors spec.md §5's "min(logical CPUs, user-supplied
// -j)" with jobs=0 meaning auto: the pack's vovakirdan-surge driver
// resolves the same "0 = auto" convention against runtime.NumCPU.
func defaultJobLimit() int {
	return runtime.NumCPU()
}

func mergeFacts(builder *graph.Builder, facts *extract.Facts) {
	for _, item := range facts.Items {
		builder.RecordItem(item)
	}
	for _, ref := range facts.References {
		builder.Add(ref)
	}
	for _, s := range facts.Spawns {
		builder.RecordSpawn(s)
	}
}

func applyVolatility(g *graph.Graph, results map[string]*volatility.Result) {
	for _, n := range g.Nodes {
		if n.Kind != graph.Internal {
			continue
		}
		r, ok := results[n.Module.FullPath]
		if !ok {
			n.VolatilityLevel = graph.VolatilityLow
			n.VolatilityKnown = false
			continue
		}
		n.ChangeCount = r.ChangeCount
		n.VolatilityLevel = r.Level
		n.VolatilityKnown = r.Known
	}
}

func volatilityKnown(results map[string]*volatility.Result) bool {
	for _, r := range results {
		if r.Known {
			return true
		}
	}
	return false
}

func issueCounts(issues []issue.Issue) score.IssueCounts {
	var c score.IssueCounts
	for _, is := range issues {
		switch is.Severity {
		case issue.SeverityCritical:
			c.Critical++
		case issue.SeverityHigh:
			c.High++
		}
	}
	return c
}

func buildPhaseHistograms(g *graph.Graph) map[string]map[temporal.Phase]int {
	out := make(map[string]map[temporal.Phase]int)
	for _, n := range g.Nodes {
		if n.Kind != graph.Internal {
			continue
		}
		hist := temporal.PhaseHistogram(n)
		nonEmpty := false
		for _, count := range hist {
			if count > 0 {
				nonEmpty = true
				break
			}
		}
		if nonEmpty {
			out[n.ID] = hist
		}
	}
	return out
}
