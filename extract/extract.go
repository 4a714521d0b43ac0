// Package extract defines the shared Extractor seam (spec.md §4.2,
// C2) and its facts: per-file Items and References. Concrete language
// extractors live in extract/golang (primary, full-fidelity) and
// extract/pyts (secondary, tree-sitter-based, lower fidelity) — this
// mirrors the teacher's inspector.Inspector/inspector.Factory
// per-language dispatch (inspector/inspector.go), generalized from
// "parse into a graph.File" to "emit facts for the coupling graph".
package extract

import "github.com/sourcelens/coupling/graph"

// Facts is the per-file result of running an Extractor over one
// source file (spec.md §4.2).
type Facts struct {
	Items      []*graph.Item
	References []graph.Reference
	Spawns     []graph.SpawnSite
}

// Warning records a non-fatal, per-file parse failure (spec.md §4.2,
// §7): the file is skipped but does not abort the run.
type Warning struct {
	File    string
	Message string
}

// Resolver is the subset of pathmap.Mapper an Extractor needs: turning
// a file path into its owning ModuleId, and a referenced symbol path
// into a classified ModuleId (Internal or External).
type Resolver interface {
	ToModuleId(filePath string) graph.ModuleId
	ClassifySymbol(symbolPath string) graph.ModuleId
	// ClassifyImportPath resolves a fully-qualified import path
	// (Go's import paths are always fully qualified, unlike the bare
	// symbol names ClassifySymbol handles) to a ModuleId.
	ClassifyImportPath(importPath string) graph.ModuleId
}

// Source is one language's Extractor. Implementations must never
// panic on malformed input — a parse failure is reported by returning
// a non-nil error, which the caller turns into a Warning and moves on
// (spec.md §4.2, §7).
type Source interface {
	// Extract parses one source file and emits its Facts.
	Extract(filePath string, resolver Resolver) (*Facts, error)
	// Handles reports whether this Source recognizes the given file
	// extension (e.g. ".go", ".py").
	Handles(ext string) bool
}
