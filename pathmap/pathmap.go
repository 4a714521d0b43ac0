// Package pathmap maps source file paths to canonical ModuleIds and
// classifies referenced symbol paths as Internal or External to the
// project, per spec.md §4.1 (C1 PathMapper).
package pathmap

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/sourcelens/coupling/graph"
)

// DefaultSkipDirs matches SPEC_FULL.md §4.1's stated default skip set.
var DefaultSkipDirs = map[string]bool{
	".git":        true,
	"vendor":      true,
	"node_modules": true,
	"testdata":    true,
	"target":      true,
	"build":       true,
	"dist":        true,
	".idea":       true,
	".vscode":     true,
}

// Mapper resolves file paths to ModuleIds and classifies symbol
// references for one analysis run. Discover seeds the module set once;
// lookups afterward are pure functions of that set, so the
// invariant "every internal short_name resolves to exactly one
// full_path" (spec.md §3) holds for the run's lifetime.
type Mapper struct {
	root        string
	projectName string
	modulePath  string // full go.mod module directive, e.g. "github.com/sourcelens/coupling"
	ext         string
	skipDirs    map[string]bool

	// shortToFull and the reverse index are built as files are
	// discovered; both are immutable once Discover returns.
	shortToFull map[string]string
	fullToShort map[string]string
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithSkipDirs overrides the default directory skip-set.
func WithSkipDirs(dirs []string) Option {
	return func(m *Mapper) {
		set := make(map[string]bool, len(dirs))
		for _, d := range dirs {
			set[d] = true
		}
		m.skipDirs = set
	}
}

// WithExtension sets the file extension recognized as source (default
// ".go").
func WithExtension(ext string) Option {
	return func(m *Mapper) {
		m.ext = ext
	}
}

// New creates a Mapper rooted at root, inferring the project name from
// a go.mod manifest if present (SPEC_FULL.md §4.1).
func New(root string, opts ...Option) *Mapper {
	m := &Mapper{
		root:        root,
		ext:         ".go",
		skipDirs:    DefaultSkipDirs,
		shortToFull: make(map[string]string),
		fullToShort: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.projectName, m.modulePath = inferProjectName(root)
	return m
}

// ProjectName returns the inferred project/crate name (from go.mod's
// module directive, falling back to the root directory's base name).
func (m *Mapper) ProjectName() string {
	return m.projectName
}

// ModulePath returns the full go.mod module directive, if one was
// found ("" for a non-Go or manifest-less tree).
func (m *Mapper) ModulePath() string {
	return m.modulePath
}

// Discover walks root, finds every recognizable source file, and seeds
// the internal module set from their derived ModuleIds. It must be
// called before ToModuleId/ClassifySymbol can resolve internal paths
// correctly.
func (m *Mapper) Discover() ([]string, error) {
	var files []string
	err := filepath.Walk(m.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != m.root && m.skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != m.ext {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pathmap: failed to walk %s: %w", m.root, err)
	}
	sort.Strings(files)
	for _, f := range files {
		id := m.toModuleIdLocked(f)
		m.shortToFull[id.ShortName] = id.FullPath
		m.fullToShort[id.FullPath] = id.ShortName
	}
	return files, nil
}

// ToModuleId derives the canonical ModuleId owning a discovered source
// file. For Go, the unit of encapsulation and visibility is the
// package directory, not the individual file — two files in the same
// directory share a package scope and an unexported identifier
// declared in one is directly usable from the other. Mapping ModuleId
// to the directory rather than the file keeps that same-package
// relationship as cohesion (collapsed into a single node) rather than
// manufacturing coupling edges between files that happen to sit side
// by side in one package. Canonicalization strips the root and joins
// the remaining directory segments with "." (spec.md §4.1); the root
// package itself (no subdirectory) collapses to the project name.
func (m *Mapper) ToModuleId(filePath string) graph.ModuleId {
	return m.toModuleIdLocked(filePath)
}

func (m *Mapper) toModuleIdLocked(filePath string) graph.ModuleId {
	dir := filepath.Dir(filePath)
	rel, err := filepath.Rel(m.root, dir)
	if err != nil {
		rel = dir
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return graph.ModuleId{FullPath: m.projectName, ShortName: m.projectName}
	}
	segments := strings.Split(rel, "/")
	full := m.projectName + "." + strings.Join(segments, ".")
	short := segments[len(segments)-1]
	return graph.ModuleId{FullPath: full, ShortName: short}
}

// ClassifySymbol decides whether a referenced symbol path is Internal
// (its first segment matches the project name or appears in the
// discovered module set) or External, per spec.md §4.1.
func (m *Mapper) ClassifySymbol(symbolPath string) graph.ModuleId {
	if symbolPath == "" {
		return graph.ModuleId{}
	}
	segments := strings.Split(symbolPath, "/")
	first := segments[0]

	if first == m.projectName {
		short := segments[len(segments)-1]
		if full, ok := m.shortToFull[short]; ok {
			return graph.ModuleId{FullPath: full, ShortName: short}
		}
		return graph.ModuleId{FullPath: symbolPath, ShortName: short}
	}

	if full, ok := m.shortToFull[first]; ok {
		return graph.ModuleId{FullPath: full, ShortName: first}
	}

	// Not recognized as internal: External nodes are keyed by full
	// path only (spec.md §3).
	return graph.ModuleId{FullPath: symbolPath}
}

// IsInternal reports whether a classified ModuleId belongs to the
// analyzed project.
func IsInternal(id graph.ModuleId) bool {
	return id.ShortName != ""
}

// ClassifyImportPath resolves a Go import path to a ModuleId, using
// the full go.mod module path (not just its last segment) as the
// internal/external boundary — Go import paths are fully qualified,
// unlike the bare symbol names ClassifySymbol handles for the
// generic, language-agnostic case described in spec.md §4.1.
func (m *Mapper) ClassifyImportPath(importPath string) graph.ModuleId {
	if m.modulePath == "" || (importPath != m.modulePath && !strings.HasPrefix(importPath, m.modulePath+"/")) {
		return graph.ModuleId{FullPath: importPath}
	}
	rest := strings.TrimPrefix(importPath, m.modulePath)
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return graph.ModuleId{FullPath: m.projectName, ShortName: m.projectName}
	}
	segments := strings.Split(rest, "/")
	full := m.projectName + "." + strings.Join(segments, ".")
	short := segments[len(segments)-1]
	return graph.ModuleId{FullPath: full, ShortName: short}
}

func inferProjectName(root string) (name, modulePath string) {
	goModPath := filepath.Join(root, "go.mod")
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return filepath.Base(root), ""
	}
	if mod, err := modfile.Parse(goModPath, data, nil); err == nil && mod.Module != nil {
		modulePath = mod.Module.Mod.Path
		parts := strings.Split(modulePath, "/")
		return parts[len(parts)-1], modulePath
	}
	// Fall back to a bare regex scan, matching the teacher's own
	// two-tier fallback in repository.Detector.extractGoModuleName.
	moduleRegex := regexp.MustCompile(`module\s+([^\s]+)`)
	matches := moduleRegex.FindSubmatch(data)
	if len(matches) < 2 {
		return filepath.Base(root), ""
	}
	modulePath = string(matches[1])
	parts := strings.Split(modulePath, "/")
	return parts[len(parts)-1], modulePath
}
