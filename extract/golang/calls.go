package golang

import (
	"go/ast"
	"go/token"

	"github.com/sourcelens/coupling/graph"
)

// bodyWalker tracks a lightweight, per-function local variable type
// table while walking a function body, so that a later `x.Method()` or
// `x.Field` can be attributed to the module that declared x's type
// when x was constructed from (or declared as) an imported package's
// type. This is a lexical, single-pass approximation, not real type
// inference: it only ever learns from a handful of common
// construction idioms (see recordLocal). Anything it can't resolve is
// silently skipped, which is consistent with spec.md's "pattern
// matching only" framing of the Extractor (no semantic understanding).
type bodyWalker struct {
	ctx        *fileCtx
	locals     map[string]qualifiedRef
	sourceItem string
}

func (w *bodyWalker) walkBlock(b *ast.BlockStmt) {
	if b == nil {
		return
	}
	for _, stmt := range b.List {
		w.walkStmt(stmt)
	}
}

func (w *bodyWalker) walkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		w.walkExpr(s.X)
	case *ast.AssignStmt:
		w.walkAssign(s)
	case *ast.DeclStmt:
		w.walkDeclStmt(s)
	case *ast.IfStmt:
		w.walkStmt(s.Init)
		w.walkExpr(s.Cond)
		w.walkBlock(s.Body)
		w.walkStmt(s.Else)
	case *ast.ForStmt:
		w.walkStmt(s.Init)
		w.walkExpr(s.Cond)
		w.walkStmt(s.Post)
		w.walkBlock(s.Body)
	case *ast.RangeStmt:
		w.walkExpr(s.X)
		w.walkBlock(s.Body)
	case *ast.SwitchStmt:
		w.walkStmt(s.Init)
		w.walkExpr(s.Tag)
		w.walkCaseClauses(s.Body)
	case *ast.TypeSwitchStmt:
		w.walkStmt(s.Init)
		w.walkStmt(s.Assign)
		w.walkCaseClauses(s.Body)
	case *ast.ReturnStmt:
		for _, r := range s.Results {
			w.walkExpr(r)
		}
	case *ast.GoStmt:
		w.walkExpr(s.Call)
	case *ast.DeferStmt:
		w.walkExpr(s.Call)
	case *ast.LabeledStmt:
		w.walkStmt(s.Stmt)
	case *ast.BlockStmt:
		w.walkBlock(s)
	case *ast.SendStmt:
		w.walkExpr(s.Chan)
		w.walkExpr(s.Value)
	case *ast.IncDecStmt:
		w.walkExpr(s.X)
	}
}

func (w *bodyWalker) walkCaseClauses(body *ast.BlockStmt) {
	if body == nil {
		return
	}
	for _, stmt := range body.List {
		switch c := stmt.(type) {
		case *ast.CaseClause:
			for _, e := range c.List {
				w.walkExpr(e)
			}
			for _, s := range c.Body {
				w.walkStmt(s)
			}
		case *ast.CommClause:
			for _, s := range c.Body {
				w.walkStmt(s)
			}
		}
	}
}

func (w *bodyWalker) walkDeclStmt(ds *ast.DeclStmt) {
	gd, ok := ds.Decl.(*ast.GenDecl)
	if !ok {
		return
	}
	for _, spec := range gd.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		if vs.Type != nil {
			w.ctx.emitTypeUse(vs.Type, w.sourceItem)
			if ref, ok := selectorRef(vs.Type); ok {
				for _, n := range vs.Names {
					w.locals[n.Name] = ref
				}
			}
		}
		for _, v := range vs.Values {
			w.walkExpr(v)
		}
	}
}

func (w *bodyWalker) walkAssign(as *ast.AssignStmt) {
	for _, rhs := range as.Rhs {
		w.walkExpr(rhs)
	}
	for _, lhs := range as.Lhs {
		w.walkExpr(lhs)
	}
	if len(as.Lhs) != len(as.Rhs) {
		return
	}
	for i, lhs := range as.Lhs {
		id, ok := lhs.(*ast.Ident)
		if !ok || id.Name == "_" {
			continue
		}
		if ref, ok := w.inferConstructedType(as.Rhs[i]); ok {
			w.locals[id.Name] = ref
		}
	}
}

// inferConstructedType recognizes the handful of Go idioms that name
// an imported package's type at the construction site: `&pkg.T{}`,
// `pkg.T{}`, and `pkg.New(...)`-shaped calls (assumed, heuristically,
// to return a value of the called package).
func (w *bodyWalker) inferConstructedType(expr ast.Expr) (qualifiedRef, bool) {
	switch e := expr.(type) {
	case *ast.UnaryExpr:
		if e.Op.String() == "&" {
			return w.inferConstructedType(e.X)
		}
	case *ast.CompositeLit:
		return selectorRef(e.Type)
	case *ast.CallExpr:
		if sel, ok := e.Fun.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				if _, isPkg := w.ctx.importMap[id.Name]; isPkg {
					return qualifiedRef{pkgAlias: id.Name, name: sel.Sel.Name}, true
				}
			}
		}
	}
	return qualifiedRef{}, false
}

func selectorRef(expr ast.Expr) (qualifiedRef, bool) {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok {
		return qualifiedRef{}, false
	}
	id, ok := sel.X.(*ast.Ident)
	if !ok {
		return qualifiedRef{}, false
	}
	return qualifiedRef{pkgAlias: id.Name, name: sel.Sel.Name}, true
}

func (w *bodyWalker) walkExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case nil:
		return
	case *ast.CallExpr:
		w.walkCall(e)
	case *ast.SelectorExpr:
		w.walkSelector(e, false)
	case *ast.CompositeLit:
		w.walkCompositeLit(e)
	case *ast.UnaryExpr:
		w.walkExpr(e.X)
	case *ast.StarExpr:
		w.walkExpr(e.X)
	case *ast.ParenExpr:
		w.walkExpr(e.X)
	case *ast.BinaryExpr:
		w.walkExpr(e.X)
		w.walkExpr(e.Y)
	case *ast.IndexExpr:
		w.walkExpr(e.X)
		w.walkExpr(e.Index)
	case *ast.SliceExpr:
		w.walkExpr(e.X)
	case *ast.TypeAssertExpr:
		w.walkExpr(e.X)
		w.ctx.emitTypeUse(e.Type, w.sourceItem)
	case *ast.FuncLit:
		inner := &bodyWalker{ctx: w.ctx, locals: cloneLocals(w.locals), sourceItem: w.sourceItem}
		inner.walkBlock(e.Body)
	case *ast.KeyValueExpr:
		w.walkExpr(e.Value)
	}
}

func cloneLocals(in map[string]qualifiedRef) map[string]qualifiedRef {
	out := make(map[string]qualifiedRef, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// walkCall handles a call expression: `pkg.Func(...)` is a qualified
// FunctionCall, `localVar.Method(...)` is a MethodCall when localVar's
// type was tracked back to an imported package, and either way the
// call's arguments are still walked for nested references.
func (w *bodyWalker) walkCall(call *ast.CallExpr) {
	if sel, ok := call.Fun.(*ast.SelectorExpr); ok {
		w.walkSelector(sel, true)
	} else {
		w.walkExpr(call.Fun)
	}
	for _, arg := range call.Args {
		w.walkExpr(arg)
	}
}

func (w *bodyWalker) walkSelector(sel *ast.SelectorExpr, isCall bool) {
	id, ok := sel.X.(*ast.Ident)
	if !ok {
		w.walkExpr(sel.X)
		return
	}

	if path, ok := w.ctx.importMap[id.Name]; ok {
		target := w.ctx.resolver.ClassifyImportPath(path)
		// A call resolves to the package's function; any other selector
		// on a package identifier (io.EOF, time.Second) is a read of a
		// package-level symbol, not a struct field reach, so it gets
		// TypeUse strength rather than FieldAccess.
		kind := graph.RefTypeUse
		if isCall {
			kind = graph.RefFunctionCall
		}
		w.ctx.addRef(graph.Reference{
			SourceItem:   w.sourceItem,
			TargetModule: target,
			TargetItem:   sel.Sel.Name,
			Kind:         kind,
			Evidence:     id.Name + "." + sel.Sel.Name,
		})
		return
	}

	if ref, ok := w.locals[id.Name]; ok {
		if path, ok := w.ctx.importMap[ref.pkgAlias]; ok {
			target := w.ctx.resolver.ClassifyImportPath(path)
			kind := graph.RefFieldAccess
			if isCall {
				kind = graph.RefMethodCall
			}
			w.ctx.addRef(graph.Reference{
				SourceItem:   w.sourceItem,
				TargetModule: target,
				TargetItem:   sel.Sel.Name,
				Kind:         kind,
				Evidence:     id.Name + "." + sel.Sel.Name + " (" + ref.pkgAlias + "." + ref.name + ")",
			})
		}
	}
}

// collectSpawns records one SpawnSite per `go` statement found anywhere
// in body (including inside nested closures), all sharing the single
// "observed" verdict computed for the whole enclosing function: whether
// its body contains any channel send/receive or a call that looks like
// a sync.WaitGroup method (Add/Done/Wait). This is a syntactic proxy,
// not a data-flow analysis — a function that signals completion through
// some other mechanism entirely will be misreported as unobserved.
func (c *fileCtx) collectSpawns(body *ast.BlockStmt, owner string) {
	if body == nil {
		return
	}
	observed := hasSyncSignal(body)
	ast.Inspect(body, func(n ast.Node) bool {
		gs, ok := n.(*ast.GoStmt)
		if !ok {
			return true
		}
		c.facts.Spawns = append(c.facts.Spawns, graph.SpawnSite{
			Module:   c.module,
			Item:     owner,
			Call:     renderCallName(gs.Call),
			Observed: observed,
		})
		return true
	})
}

func hasSyncSignal(body *ast.BlockStmt) bool {
	found := false
	ast.Inspect(body, func(n ast.Node) bool {
		if found {
			return false
		}
		switch e := n.(type) {
		case *ast.SendStmt:
			found = true
		case *ast.UnaryExpr:
			if e.Op == token.ARROW {
				found = true
			}
		case *ast.CallExpr:
			if sel, ok := e.Fun.(*ast.SelectorExpr); ok {
				switch sel.Sel.Name {
				case "Wait", "Done", "Add":
					found = true
				}
			}
		}
		return !found
	})
	return found
}

// renderCallName gives a short human-readable label for a `go` call
// site's target, for issue messages only.
func renderCallName(call *ast.CallExpr) string {
	switch f := call.Fun.(type) {
	case *ast.Ident:
		return f.Name
	case *ast.SelectorExpr:
		if id, ok := f.X.(*ast.Ident); ok {
			return id.Name + "." + f.Sel.Name
		}
		return f.Sel.Name
	case *ast.FuncLit:
		return "func() {...}"
	default:
		return "<call>"
	}
}

func (w *bodyWalker) walkCompositeLit(cl *ast.CompositeLit) {
	if ref, ok := selectorRef(cl.Type); ok {
		if path, ok := w.ctx.importMap[ref.pkgAlias]; ok {
			target := w.ctx.resolver.ClassifyImportPath(path)
			w.ctx.addRef(graph.Reference{
				SourceItem:   w.sourceItem,
				TargetModule: target,
				TargetItem:   ref.name,
				Kind:         graph.RefStructConstruction,
				Evidence:     ref.pkgAlias + "." + ref.name + "{}",
			})
		}
	}
	for _, elt := range cl.Elts {
		w.walkExpr(elt)
	}
}
