// Package volatility implements the VolatilityAnalyzer (spec.md §4.4,
// C4): how often each module has changed recently, bucketed into Low/
// Medium/High. It shells out to `git log` rather than linking a Git
// library — see DESIGN.md's volatility/ entry — following the
// teacher's own preference for a hand-rolled read over
// inspector/repository/detector.go's `.git/config` scan rather than a
// dependency.
package volatility

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sourcelens/coupling/graph"
)

// Resolver is the subset of pathmap.Mapper the analyzer needs to turn
// a changed file path into the module it belongs to.
type Resolver interface {
	ToModuleId(filePath string) graph.ModuleId
}

// Thresholds match spec.md §4.4's stated defaults.
const (
	lowMax    = 2
	mediumMax = 10
)

// Classify buckets a raw change count into a VolatilityLevel.
func Classify(changeCount int) graph.VolatilityLevel {
	switch {
	case changeCount <= lowMax:
		return graph.VolatilityLow
	case changeCount <= mediumMax:
		return graph.VolatilityMedium
	default:
		return graph.VolatilityHigh
	}
}

// Config controls one analysis run.
type Config struct {
	// SinceMonths bounds the git log window (spec.md §6 git_months,
	// default 6).
	SinceMonths int
	// SkipGit disables history collection entirely (spec.md §6
	// skip_git): no git-derived entries are returned, so every module
	// without an override ends up Low with Known=false.
	SkipGit bool
	// Overrides force a specific level for a module's full path,
	// bypassing the observed count entirely (spec.md §6 volatility
	// overrides). These win over any git-derived value.
	Overrides map[string]graph.VolatilityLevel
	// Timeout bounds how long the git subprocess may run before the
	// analyzer gives up and reports unavailable history (spec.md §5's
	// cancellation requirement applied to this stage).
	Timeout time.Duration
}

// DefaultConfig matches spec.md's stated defaults.
func DefaultConfig() Config {
	return Config{SinceMonths: 6, Timeout: 30 * time.Second}
}

// Result is one module's computed volatility, keyed by FullPath.
type Result struct {
	ChangeCount int
	Level       graph.VolatilityLevel
	Known       bool
}

// Analyzer computes per-module Result from a project's recent commit
// history.
type Analyzer struct {
	root     string
	resolver Resolver
	cfg      Config
	runGit   gitRunner
}

// New constructs an Analyzer rooted at root.
func New(root string, resolver Resolver, cfg Config) *Analyzer {
	if cfg.SinceMonths <= 0 {
		cfg.SinceMonths = DefaultConfig().SinceMonths
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Analyzer{root: root, resolver: resolver, cfg: cfg, runGit: execGitLog}
}

// Analyze returns the per-module Result map (keyed by ModuleId.FullPath).
// A git failure (not a repository, git missing, timeout) is not an
// error: no git-derived entries are returned, so every module without
// an override ends up Known=false (scored as Low), matching spec.md §9's
// "volatility unavailable degrades to Low, not a run failure" stance.
// The caller reads Result.Known to surface the capabilities.volatility_available
// flag in the report.
func (a *Analyzer) Analyze(ctx context.Context) map[string]*Result {
	results := make(map[string]*Result)

	if !a.cfg.SkipGit {
		counts, ok := a.collectChangeCounts(ctx)
		if ok {
			for fullPath, count := range counts {
				results[fullPath] = &Result{ChangeCount: count, Level: Classify(count), Known: true}
			}
		}
	}

	for fullPath, level := range a.cfg.Overrides {
		r, ok := results[fullPath]
		if !ok {
			r = &Result{}
			results[fullPath] = r
		}
		r.Level = level
		r.Known = true
	}

	return results
}

func (a *Analyzer) collectChangeCounts(ctx context.Context) (map[string]int, bool) {
	runCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	files, err := a.runGit(runCtx, a.root, a.cfg.SinceMonths)
	if err != nil {
		return nil, false
	}

	counts := make(map[string]int)
	for _, rel := range files {
		mod := a.resolver.ToModuleId(filepath.Join(a.root, rel))
		if mod.FullPath == "" {
			continue
		}
		counts[mod.FullPath]++
	}
	return counts, true
}
