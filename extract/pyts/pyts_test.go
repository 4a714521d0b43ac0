package pyts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcelens/coupling/graph"
)

type fakeResolver struct {
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

func writeFile(t *testing.T, src string) (string, *fakeResolver) {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "sample.py")
	require.NoError(t, os.WriteFile(file, []byte(src), 0o644))
	return file, &fakeResolver{internal: graph.ModuleId{FullPath: "demo.sample", ShortName: "sample"}}
}

func TestExtract_ImportAndCall(t *testing.T) {
	src := "import os\n\n" +
		"def run():\n" +
		"    os.getcwd()\n"
	file, r := writeFile(t, src)

	facts, err := New().Extract(file, r)
	require.NoError(t, err)

	var sawImport, sawCall bool
	for _, ref := range facts.References {
		if ref.Kind == graph.RefImport && ref.TargetModule.FullPath == "os" {
			sawImport = true
		}
		if ref.Kind == graph.RefFunctionCall && ref.TargetModule.FullPath == "os" && ref.TargetItem == "getcwd" {
			sawCall = true
		}
	}
	assert.True(t, sawImport)
	assert.True(t, sawCall)

	var sawFunc bool
	for _, item := range facts.Items {
		if item.Name == "run" && item.Kind == graph.KindFunction {
			sawFunc = true
		}
	}
	assert.True(t, sawFunc)
}

func TestExtract_ClassWithBaseClass(t *testing.T) {
	src := "import abc\n\n" +
		"class Worker(abc.ABC):\n" +
		"    def process(self):\n" +
		"        pass\n"
	file, r := writeFile(t, src)

	facts, err := New().Extract(file, r)
	require.NoError(t, err)

	var sawClass, sawBase, sawMethod bool
	for _, item := range facts.Items {
		if item.Name == "Worker" && item.Kind == graph.KindType {
			sawClass = true
		}
		if item.Name == "Worker.process" {
			sawMethod = true
		}
	}
	for _, ref := range facts.References {
		if ref.Kind == graph.RefTypeUse && ref.TargetModule.FullPath == "abc" && ref.TargetItem == "ABC" {
			sawBase = true
		}
	}
	assert.True(t, sawClass)
	assert.True(t, sawBase)
	assert.True(t, sawMethod)
}

func TestHandles(t *testing.T) {
	e := New()
	assert.True(t, e.Handles(".py"))
	assert.False(t, e.Handles(".go"))
}
