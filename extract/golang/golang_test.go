package golang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/coupling/graph"
)

// fakeResolver is a minimal extract.Resolver for unit tests: one fixed
// internal module plus whatever external import paths the test wires
// in, with no filesystem dependency on pathmap.
type fakeResolver struct {
	file     string
	internal graph.ModuleId
}

func (f *fakeResolver) ToModuleId(filePath string) graph.ModuleId {
	return f.internal
}

func (f *fakeResolver) ClassifySymbol(symbolPath string) graph.ModuleId {
	return graph.ModuleId{FullPath: symbolPath}
}

func (f *fakeResolver) ClassifyImportPath(importPath string) graph.ModuleId {
	return graph.ModuleId{FullPath: importPath}
}

func extractSource(t *testing.T, src string) *fakeResolver {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(file, []byte(src), 0o644))
	return &fakeResolver{file: file, internal: graph.ModuleId{FullPath: "demo.sample", ShortName: "sample"}}
}

func TestExtract_RecordsImportAndCall(t *testing.T) {
	src := `package sample

import "fmt"

func Greet(name string) {
	fmt.Println(name)
}
`
	r := extractSource(t, src)
	e := New()
	facts, err := e.Extract(r.file, r)
	require.NoError(t, err)

	var sawImport, sawCall bool
	for _, ref := range facts.References {
		if ref.Kind == graph.RefImport && ref.TargetModule.FullPath == "fmt" {
			sawImport = true
		}
		if ref.Kind == graph.RefFunctionCall && ref.TargetModule.FullPath == "fmt" && ref.TargetItem == "Println" {
			sawCall = true
		}
	}
	assert.True(t, sawImport, "expected an Import reference to fmt")
	assert.True(t, sawCall, "expected a FunctionCall reference to fmt.Println")

	var sawFunc bool
	for _, item := range facts.Items {
		if item.Name == "Greet" && item.Kind == graph.KindFunction && item.Visibility == graph.VisibilityPublic {
			sawFunc = true
		}
	}
	assert.True(t, sawFunc)
}

func TestExtract_StructConstructionAndMethodCall(t *testing.T) {
	src := `package sample

import "bytes"

func Build() string {
	buf := &bytes.Buffer{}
	buf.WriteString("x")
	return buf.String()
}
`
	r := extractSource(t, src)
	facts, err := New().Extract(r.file, r)
	require.NoError(t, err)

	var sawConstruct, sawMethodCall bool
	for _, ref := range facts.References {
		if ref.Kind == graph.RefStructConstruction && ref.TargetModule.FullPath == "bytes" && ref.TargetItem == "Buffer" {
			sawConstruct = true
		}
		if ref.Kind == graph.RefMethodCall && ref.TargetModule.FullPath == "bytes" {
			sawMethodCall = true
		}
	}
	assert.True(t, sawConstruct)
	assert.True(t, sawMethodCall)
}

func TestExtract_ExplicitInterfaceAssertion(t *testing.T) {
	src := `package sample

import "io"

type reader struct{}

func (r *reader) Read(p []byte) (int, error) { return 0, nil }

var _ io.Reader = (*reader)(nil)
`
	r := extractSource(t, src)
	facts, err := New().Extract(r.file, r)
	require.NoError(t, err)

	var sawTraitImpl bool
	for _, ref := range facts.References {
		if ref.Kind == graph.RefTraitImpl && ref.TargetModule.FullPath == "io" && ref.TargetItem == "Reader" {
			sawTraitImpl = true
		}
	}
	assert.True(t, sawTraitImpl)
}

func TestExtract_GenericTraitBound(t *testing.T) {
	src := `package sample

import "sort"

func First[T sort.Interface](items T) T { return items }
`
	r := extractSource(t, src)
	facts, err := New().Extract(r.file, r)
	require.NoError(t, err)

	var sawBound bool
	for _, ref := range facts.References {
		if ref.Kind == graph.RefTraitBound && ref.TargetModule.FullPath == "sort" && ref.TargetItem == "Interface" {
			sawBound = true
		}
	}
	assert.True(t, sawBound)
}

func TestExtract_OrphanedGoStatement(t *testing.T) {
	src := `package sample

import "sync"

func Fire() {
	go doWork()
}

func FireAndWait(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		doWork()
	}()
	wg.Wait()
}

func doWork() {}
`
	r := extractSource(t, src)
	facts, err := New().Extract(r.file, r)
	require.NoError(t, err)

	var fire, fireAndWait *graph.SpawnSite
	for i := range facts.Spawns {
		s := &facts.Spawns[i]
		switch s.Item {
		case "Fire":
			fire = s
		case "FireAndWait":
			fireAndWait = s
		}
	}
	require.NotNil(t, fire)
	assert.False(t, fire.Observed)
	assert.Equal(t, "doWork", fire.Call)

	require.NotNil(t, fireAndWait)
	assert.True(t, fireAndWait.Observed)
}

func TestExtract_PrimitiveObsessionParamProfile(t *testing.T) {
	src := `package sample

type UserID string

func Configure(name string, port int, host string, timeout int) {}

func ConfigureTyped(id UserID, port int) {}
`
	r := extractSource(t, src)
	facts, err := New().Extract(r.file, r)
	require.NoError(t, err)

	var configure, configureTyped *graph.Item
	for _, item := range facts.Items {
		switch item.Name {
		case "Configure":
			configure = item
		case "ConfigureTyped":
			configureTyped = item
		}
	}
	require.NotNil(t, configure)
	assert.Equal(t, 4, configure.PrimitiveParamCount)
	assert.False(t, configure.HasNewtypeParam)

	require.NotNil(t, configureTyped)
	assert.True(t, configureTyped.HasNewtypeParam)
}

func TestExtract_MethodIsImplementation(t *testing.T) {
	src := `package sample

type Counter struct{ n int }

func (c *Counter) Increment() { c.n++ }

func NewCounter() *Counter { return &Counter{} }
`
	r := extractSource(t, src)
	facts, err := New().Extract(r.file, r)
	require.NoError(t, err)

	var method, free *graph.Item
	for _, item := range facts.Items {
		switch item.Name {
		case "Increment":
			method = item
		case "NewCounter":
			free = item
		}
	}
	require.NotNil(t, method)
	assert.Equal(t, graph.KindImplementation, method.Kind)

	require.NotNil(t, free)
	assert.Equal(t, graph.KindFunction, free.Kind)
}

func TestExtract_PackageSymbolReadIsTypeUse(t *testing.T) {
	src := `package sample

import (
	"io"
	"time"
)

func Deadline() time.Duration {
	return time.Second
}

func IsEOF(err error) bool {
	return err == io.EOF
}
`
	r := extractSource(t, src)
	facts, err := New().Extract(r.file, r)
	require.NoError(t, err)

	var sawTimeSecond, sawIOEOF bool
	for _, ref := range facts.References {
		if ref.TargetModule.FullPath == "time" && ref.TargetItem == "Second" {
			assert.Equal(t, graph.RefTypeUse, ref.Kind)
			sawTimeSecond = true
		}
		if ref.TargetModule.FullPath == "io" && ref.TargetItem == "EOF" {
			assert.Equal(t, graph.RefTypeUse, ref.Kind)
			sawIOEOF = true
		}
	}
	assert.True(t, sawTimeSecond, "expected a TypeUse reference to time.Second")
	assert.True(t, sawIOEOF, "expected a TypeUse reference to io.EOF")
}

func TestHandles(t *testing.T) {
	e := New()
	assert.True(t, e.Handles(".go"))
	assert.False(t, e.Handles(".py"))
}
