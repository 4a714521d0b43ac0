package golang

import (
	"go/ast"

	"github.com/sourcelens/coupling/graph"
)

// detectExplicitAssertions scans top-level `var _ Interface = (*Struct)(nil)`
// (and the `= Struct{}` / `= &Struct{}` variants) compile-time
// interface-satisfaction assertions — the idiomatic, syntactic way Go
// authors declare "this type implements that interface" — and emits
// the TraitImpl + TypeUse pair spec.md §4.2 requires for an
// `impl T for S` construct (see DESIGN.md's Open Question entry).
func (c *fileCtx) detectExplicitAssertions(file *ast.File) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok.String() != "var" {
			continue
		}
		for _, spec := range gd.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok || len(vs.Names) != 1 || vs.Names[0].Name != "_" || vs.Type == nil || len(vs.Values) != 1 {
				continue
			}
			ifaceRef, ok := selectorRef(vs.Type)
			if !ok {
				continue
			}
			structRef, ok := implValueType(vs.Values[0])
			if !ok {
				continue
			}
			c.emitImplPair(ifaceRef, structRef)
		}
	}
}

// implValueType extracts the qualified (or local) type named by a
// compile-time assertion's value expression: `(*pkg.Struct)(nil)`,
// `pkg.Struct{}`, or their local-type equivalents.
func implValueType(expr ast.Expr) (qualifiedRef, bool) {
	switch e := expr.(type) {
	case *ast.CallExpr:
		if len(e.Args) == 1 {
			return typeRefOf(e.Fun)
		}
	case *ast.CompositeLit:
		return typeRefOf(e.Type)
	}
	return qualifiedRef{}, false
}

func typeRefOf(expr ast.Expr) (qualifiedRef, bool) {
	switch t := expr.(type) {
	case *ast.ParenExpr:
		return typeRefOf(t.X)
	case *ast.StarExpr:
		return typeRefOf(t.X)
	case *ast.SelectorExpr:
		return selectorRef(t)
	case *ast.Ident:
		return qualifiedRef{pkgAlias: "", name: t.Name}, true
	}
	return qualifiedRef{}, false
}

func (c *fileCtx) emitImplPair(iface, target qualifiedRef) {
	ifacePath, ifaceIsExternal := c.importMap[iface.pkgAlias]
	var ifaceModule graph.ModuleId
	if ifaceIsExternal {
		ifaceModule = c.resolver.ClassifyImportPath(ifacePath)
	} else {
		ifaceModule = c.module
	}

	var targetModule graph.ModuleId
	if target.pkgAlias == "" {
		targetModule = c.module
	} else if path, ok := c.importMap[target.pkgAlias]; ok {
		targetModule = c.resolver.ClassifyImportPath(path)
	} else {
		return
	}

	evidence := "impl " + iface.name + " for " + target.name
	c.addRef(graph.Reference{TargetModule: ifaceModule, TargetItem: iface.name, Kind: graph.RefTraitImpl, Evidence: evidence})
	c.addRef(graph.Reference{TargetModule: targetModule, TargetItem: target.name, Kind: graph.RefTypeUse, Evidence: evidence})
}

// detectStructuralImpls applies the same-file heuristic: if a struct's
// declared method set (by name only) is a non-empty superset of a
// locally-declared interface's method set, treat it as implementing
// that interface. Both the interface and the struct must be declared
// in this file; cross-file matching would require a type-checker,
// which spec.md's Non-goals rule out.
func (c *fileCtx) detectStructuralImpls() {
	for ifaceName, ifaceMethods := range c.interfaceMethods {
		if len(ifaceMethods) == 0 {
			continue
		}
		for recvName, recvMethods := range c.receiverMethods {
			if recvName == ifaceName {
				continue
			}
			if methodSetSatisfies(recvMethods, ifaceMethods) {
				c.emitImplPair(qualifiedRef{name: ifaceName}, qualifiedRef{name: recvName})
			}
		}
	}
}

func methodSetSatisfies(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, m := range have {
		set[m] = true
	}
	for _, m := range want {
		if !set[m] {
			return false
		}
	}
	return true
}
