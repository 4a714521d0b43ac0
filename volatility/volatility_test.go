package volatility

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/coupling/graph"
)

type fakeResolver struct {
	modules map[string]graph.ModuleId
}

func (f *fakeResolver) ToModuleId(filePath string) graph.ModuleId {
	if m, ok := f.modules[filePath]; ok {
		return m
	}
	return graph.ModuleId{}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, graph.VolatilityLow, Classify(0))
	assert.Equal(t, graph.VolatilityLow, Classify(2))
	assert.Equal(t, graph.VolatilityMedium, Classify(3))
	assert.Equal(t, graph.VolatilityMedium, Classify(10))
	assert.Equal(t, graph.VolatilityHigh, Classify(11))
}

func TestAnalyze_AggregatesChangeCountsPerModule(t *testing.T) {
	root := "/repo"
	resolver := &fakeResolver{modules: map[string]graph.ModuleId{
		"/repo/a/one.go": {FullPath: "demo.a", ShortName: "a"},
		"/repo/a/two.go": {FullPath: "demo.a", ShortName: "a"},
		"/repo/b/one.go": {FullPath: "demo.b", ShortName: "b"},
	}}

	a := New(root, resolver, Config{SinceMonths: 6, Timeout: 0})
	a.runGit = func(ctx context.Context, root string, sinceMonths int) ([]string, error) {
		assert.Equal(t, 6, sinceMonths)
		return []string{"a/one.go", "a/two.go", "a/one.go", "b/one.go"}, nil
	}

	results := a.Analyze(context.Background())
	require.Contains(t, results, "demo.a")
	require.Contains(t, results, "demo.b")
	assert.Equal(t, 3, results["demo.a"].ChangeCount)
	assert.Equal(t, graph.VolatilityMedium, results["demo.a"].Level)
	assert.True(t, results["demo.a"].Known)
	assert.Equal(t, 1, results["demo.b"].ChangeCount)
	assert.Equal(t, graph.VolatilityLow, results["demo.b"].Level)
}

func TestAnalyze_GitFailureDegradesGracefully(t *testing.T) {
	resolver := &fakeResolver{modules: map[string]graph.ModuleId{}}
	a := New("/repo", resolver, Config{})
	a.runGit = func(ctx context.Context, root string, sinceMonths int) ([]string, error) {
		return nil, assert.AnError
	}

	results := a.Analyze(context.Background())
	assert.Empty(t, results)
}

func TestAnalyze_SkipGit(t *testing.T) {
	resolver := &fakeResolver{modules: map[string]graph.ModuleId{}}
	a := New("/repo", resolver, Config{SkipGit: true})
	a.runGit = func(ctx context.Context, root string, sinceMonths int) ([]string, error) {
		t.Fatal("runGit should not be called when SkipGit is set")
		return nil, nil
	}

	results := a.Analyze(context.Background())
	assert.Empty(t, results)
}

func TestAnalyze_OverridesWinOverObservedCounts(t *testing.T) {
	resolver := &fakeResolver{modules: map[string]graph.ModuleId{
		"/repo/a/one.go": {FullPath: "demo.a", ShortName: "a"},
	}}
	a := New("/repo", resolver, Config{
		Overrides: map[string]graph.VolatilityLevel{
			"demo.a": graph.VolatilityHigh,
			"demo.c": graph.VolatilityLow,
		},
	})
	a.runGit = func(ctx context.Context, root string, sinceMonths int) ([]string, error) {
		return []string{"a/one.go"}, nil
	}

	results := a.Analyze(context.Background())
	require.Contains(t, results, "demo.a")
	assert.Equal(t, graph.VolatilityHigh, results["demo.a"].Level)
	assert.True(t, results["demo.a"].Known)

	require.Contains(t, results, "demo.c")
	assert.Equal(t, graph.VolatilityLow, results["demo.c"].Level)
	assert.True(t, results["demo.c"].Known)
}

func TestNew_AppliesDefaults(t *testing.T) {
	a := New("/repo", &fakeResolver{}, Config{})
	assert.Equal(t, 6, a.cfg.SinceMonths)
	assert.NotZero(t, a.cfg.Timeout)
}

func TestParseNameStatus(t *testing.T) {
	transcript := "M\tcmd/main.go\n" +
		"A\tinternal/foo/foo.go\n" +
		"R100\told/path.go\tnew/path.go\n" +
		"\n"
	files := parseNameStatus(bytes.NewBufferString(transcript))
	assert.Equal(t, []string{"cmd/main.go", "internal/foo/foo.go", "new/path.go"}, files)
}
