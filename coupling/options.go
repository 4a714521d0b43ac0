// Package coupling is the root orchestration package: Options, the
// Engine that runs the full pipeline (pathmap -> extract -> graph ->
// volatility -> score -> cycle -> issue -> temporal -> report), and
// the Gate that turns a finished report into a CLI-style exit code.
// It has no analogue in the teacher repo, which never runs a
// multi-stage pipeline of its own (inspector.InspectProject does one
// pass and returns) — see DESIGN.md.
package coupling

import (
	"time"

	"github.com/sourcelens/coupling/graph"
	"github.com/sourcelens/coupling/issue"
	"github.com/sourcelens/coupling/volatility"
)

// Options is the External Interfaces Options record (spec.md §6),
// passed explicitly into Engine.Analyze. There is no file loader and
// no global state: every recognized option is a field here.
type Options struct {
	GitMonths     int  `json:"git_months" yaml:"git_months"`
	SkipGit       bool `json:"skip_git" yaml:"skip_git"`
	MaxDeps       int  `json:"max_deps" yaml:"max_deps"`
	MaxDependents int  `json:"max_dependents" yaml:"max_dependents"`
	Jobs          int  `json:"jobs" yaml:"jobs"` // 0 = auto (runtime.NumCPU); the pool never exceeds the CPU count or the file count
	HideLow       bool `json:"hide_low" yaml:"hide_low"`

	// ThresholdOverrides covers the two thresholds spec.md §9 leaves
	// as an implementer's choice: GodModuleComposite (default
	// fn+type+2*impl >= 40, raised here to issue.DefaultConfig's 50 —
	// see DESIGN.md) and PrimitiveParamCount.
	GodModuleComposite  int `json:"god_module_composite" yaml:"god_module_composite"`
	PrimitiveParamCount int `json:"primitive_param_count" yaml:"primitive_param_count"`

	// VolatilityOverrides forces a level for a module's full path,
	// bypassing git history (spec.md §6 "volatility overrides map").
	VolatilityOverrides map[string]graph.VolatilityLevel `json:"volatility_overrides" yaml:"volatility_overrides"`

	VolatilityTimeout time.Duration `json:"volatility_timeout" yaml:"volatility_timeout"`

	// EvidenceSamples is spec.md §4.3's per-edge evidence cap, default 5.
	EvidenceSamples int `json:"evidence_samples" yaml:"evidence_samples"`

	// MaxCycles is spec.md §7's cycle-enumeration cap, default 1000.
	MaxCycles int `json:"max_cycles" yaml:"max_cycles"`
}

// DefaultOptions matches spec.md's and DESIGN.md's stated defaults.
func DefaultOptions() Options {
	return Options{
		GitMonths:           6,
		MaxDeps:             20,
		MaxDependents:       30,
		GodModuleComposite:  50,
		PrimitiveParamCount: 4,
		VolatilityTimeout:   30 * time.Second,
		EvidenceSamples:     5,
		MaxCycles:           1000,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.GitMonths <= 0 {
		o.GitMonths = d.GitMonths
	}
	if o.MaxDeps <= 0 {
		o.MaxDeps = d.MaxDeps
	}
	if o.MaxDependents <= 0 {
		o.MaxDependents = d.MaxDependents
	}
	if o.GodModuleComposite <= 0 {
		o.GodModuleComposite = d.GodModuleComposite
	}
	if o.PrimitiveParamCount <= 0 {
		o.PrimitiveParamCount = d.PrimitiveParamCount
	}
	if o.VolatilityTimeout <= 0 {
		o.VolatilityTimeout = d.VolatilityTimeout
	}
	if o.EvidenceSamples <= 0 {
		o.EvidenceSamples = d.EvidenceSamples
	}
	if o.MaxCycles <= 0 {
		o.MaxCycles = d.MaxCycles
	}
	return o
}

func (o Options) issueConfig() issue.Config {
	return issue.Config{
		MaxDeps:             o.MaxDeps,
		MaxDependents:       o.MaxDependents,
		GodModuleComposite:  o.GodModuleComposite,
		PrimitiveParamCount: o.PrimitiveParamCount,
		HideLow:             o.HideLow,
	}
}

func (o Options) volatilityConfig() volatility.Config {
	return volatility.Config{
		SinceMonths: o.GitMonths,
		SkipGit:     o.SkipGit,
		Overrides:   o.VolatilityOverrides,
		Timeout:     o.VolatilityTimeout,
	}
}

func (o Options) graphConfig() *graph.Config {
	return &graph.Config{EvidenceSamples: o.EvidenceSamples}
}
