package coupling

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func demoProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module demo\n\ngo 1.23\n")
	writeFile(t, filepath.Join(root, "db", "db.go"), `package db

type Store struct {
	Conn string
}

func Open() *Store { return &Store{} }
`)
	writeFile(t, filepath.Join(root, "api", "api.go"), `package api

import "demo/db"

func Handler() {
	s := db.Open()
	_ = s.Conn
}
`)
	return root
}

func TestEngine_Analyze_ProducesReportWithEdge(t *testing.T) {
	e := New(nil)
	opts := DefaultOptions()
	opts.SkipGit = true

	r, err := e.Analyze(context.Background(), demoProject(t), opts)
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, "demo", r.Project)
	assert.False(t, r.Incomplete)
	assert.NotEmpty(t, r.RunID)
	assert.GreaterOrEqual(t, r.Counts.Modules, 2)
	assert.GreaterOrEqual(t, r.Counts.Edges, 1)

	var sawEdge bool
	for _, edge := range r.Edges {
		if edge.SourceID == "api" && edge.TargetID == "db" {
			sawEdge = true
		}
	}
	assert.True(t, sawEdge)
}

func TestEngine_Analyze_CancelledContextMarksIncomplete(t *testing.T) {
	e := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.SkipGit = true

	r, err := e.Analyze(ctx, demoProject(t), opts)
	require.NoError(t, err)
	assert.True(t, r.Incomplete)
}

func TestEngine_Analyze_EmptyProjectIsInsufficientData(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module demo\n\ngo 1.23\n")

	e := New(nil)
	opts := DefaultOptions()
	opts.SkipGit = true

	r, err := e.Analyze(context.Background(), root, opts)
	require.NoError(t, err)
	assert.True(t, r.InsufficientData)
	assert.Equal(t, "B", r.Grade)
}
