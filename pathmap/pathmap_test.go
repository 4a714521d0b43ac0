package pathmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestDiscover_SkipsVendorAndDiscoversGoFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod":          "module demo\n\ngo 1.22\n",
		"a/a.go":          "package a\n",
		"b/b.go":          "package b\n",
		"vendor/x/x.go":   "package x\n",
		".git/HEAD":       "ref: refs/heads/main\n",
	})

	m := New(root)
	files, err := m.Discover()
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "demo", m.ProjectName())
}

func TestToModuleId(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod":     "module demo\n\ngo 1.22\n",
		"a/sub/c.go": "package sub\n",
		"a/sub/d.go": "package sub\n",
	})
	m := New(root)
	_, err := m.Discover()
	require.NoError(t, err)

	c := m.ToModuleId(filepath.Join(root, "a", "sub", "c.go"))
	d := m.ToModuleId(filepath.Join(root, "a", "sub", "d.go"))
	require.Equal(t, "demo.a.sub", c.FullPath)
	require.Equal(t, "sub", c.ShortName)
	require.Equal(t, c, d, "files in the same package directory share one ModuleId")
}

func TestToModuleId_RootPackage(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod": "module demo\n\ngo 1.22\n",
		"main.go": "package main\n",
	})
	m := New(root)
	_, err := m.Discover()
	require.NoError(t, err)

	id := m.ToModuleId(filepath.Join(root, "main.go"))
	require.Equal(t, "demo", id.FullPath)
	require.Equal(t, "demo", id.ShortName)
}

func TestClassifySymbol_InternalVsExternal(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod": "module demo\n\ngo 1.22\n",
		"a/a.go": "package a\n",
		"b/b.go": "package b\n",
	})
	m := New(root)
	_, err := m.Discover()
	require.NoError(t, err)

	internal := m.ClassifySymbol("b")
	require.True(t, IsInternal(internal))
	require.Equal(t, "b", internal.ShortName)

	external := m.ClassifySymbol("github.com/pkg/errors")
	require.False(t, IsInternal(external))
	require.Equal(t, "github.com/pkg/errors", external.FullPath)
}
