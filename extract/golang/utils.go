package golang

import (
	"go/ast"
	"strings"

	"github.com/sourcelens/coupling/graph"
)

// buildImportMap maps a file's import aliases to their full import
// paths, adapted from the teacher's inspector/golang/utils.go
// (buildImportMap). An unnamed import is keyed by its last path
// segment; blank and dot imports are left out of the map.
func buildImportMap(file *ast.File) map[string]string {
	importMap := make(map[string]string, len(file.Imports))
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		var alias string
		switch {
		case imp.Name == nil:
			alias = path[strings.LastIndex(path, "/")+1:]
		case imp.Name.Name == "_" || imp.Name.Name == ".":
			// Blank and dot imports never appear as a selector prefix;
			// skip the alias so selector resolution can't collide.
			continue
		default:
			alias = imp.Name.Name
		}
		importMap[alias] = path
	}
	return importMap
}

// isValidIdent reports whether s could be a Go identifier, mirroring
// inspector/golang/utils.go's isValidIdent/isLetter/isDigit trio.
func isValidIdent(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// visibilityOf classifies a top-level Go identifier per SPEC_FULL.md's
// resolution: exported names are Public; unexported top-level names
// are CrateLocal, because Go's package scope already makes them
// visible throughout every file in the same package directory (which
// is the unit a ModuleId names for Go — see DESIGN.md). Private is
// reserved for struct fields, which cannot be reached at all once a
// value crosses a package boundary without being exported.
func visibilityOf(name string) graph.Visibility {
	if isExportedName(name) {
		return graph.VisibilityPublic
	}
	return graph.VisibilityCrateLocal
}

func isExportedName(name string) bool {
	if name == "" {
		return false
	}
	r := name[0]
	return r >= 'A' && r <= 'Z'
}

// qualifiedRef is a `pkgAlias.Name` selector found while walking a
// type expression or an expression tree.
type qualifiedRef struct {
	pkgAlias string
	name     string
}

// collectTypeRefs walks a type expression and returns every qualified
// (package-prefixed) named type it references, recursing through the
// wrapper node kinds the teacher's exprToString (inspector/golang/utils.go)
// also handles: pointers, slices, arrays, maps, channels, generics,
// variadics, and function signatures.
func collectTypeRefs(expr ast.Expr) []qualifiedRef {
	if expr == nil {
		return nil
	}
	var out []qualifiedRef
	switch t := expr.(type) {
	case *ast.SelectorExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			out = append(out, qualifiedRef{pkgAlias: id.Name, name: t.Sel.Name})
		}
	case *ast.StarExpr:
		out = append(out, collectTypeRefs(t.X)...)
	case *ast.ArrayType:
		out = append(out, collectTypeRefs(t.Elt)...)
	case *ast.MapType:
		out = append(out, collectTypeRefs(t.Key)...)
		out = append(out, collectTypeRefs(t.Value)...)
	case *ast.ChanType:
		out = append(out, collectTypeRefs(t.Value)...)
	case *ast.Ellipsis:
		out = append(out, collectTypeRefs(t.Elt)...)
	case *ast.IndexExpr:
		out = append(out, collectTypeRefs(t.X)...)
		out = append(out, collectTypeRefs(t.Index)...)
	case *ast.IndexListExpr:
		out = append(out, collectTypeRefs(t.X)...)
		for _, idx := range t.Indices {
			out = append(out, collectTypeRefs(idx)...)
		}
	case *ast.FuncType:
		if t.Params != nil {
			for _, f := range t.Params.List {
				out = append(out, collectTypeRefs(f.Type)...)
			}
		}
		if t.Results != nil {
			for _, f := range t.Results.List {
				out = append(out, collectTypeRefs(f.Type)...)
			}
		}
	case *ast.ParenExpr:
		out = append(out, collectTypeRefs(t.X)...)
	}
	return out
}
