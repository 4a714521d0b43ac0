package golang

import (
	"go/ast"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/sourcelens/coupling/extract"
	"github.com/sourcelens/coupling/graph"
)

// fileCtx carries the state a single file's extraction accumulates:
// the resolver, its import alias table, the module it belongs to, the
// facts collected so far, and the two file-local indexes the
// impl-detection heuristics need (DESIGN.md's "Trait/interface
// implementation detection" entry).
type fileCtx struct {
	resolver  extract.Resolver
	importMap map[string]string
	module    graph.ModuleId
	facts     *extract.Facts

	interfaceMethods map[string][]string // interface name -> method names, this file only
	receiverMethods  map[string][]string // receiver type name -> method names, this file only
	newtypes         map[string]bool     // type name -> isNewtype, this file only
}

func newFileCtx(r extract.Resolver, module graph.ModuleId, importMap map[string]string) *fileCtx {
	return &fileCtx{
		resolver:         r,
		importMap:        importMap,
		module:           module,
		facts:            &extract.Facts{},
		interfaceMethods: make(map[string][]string),
		receiverMethods:  make(map[string][]string),
		newtypes:         make(map[string]bool),
	}
}

func (c *fileCtx) addItem(item *graph.Item) {
	c.facts.Items = append(c.facts.Items, item)
}

func (c *fileCtx) addRef(ref graph.Reference) {
	ref.SourceModule = c.module
	c.facts.References = append(c.facts.References, ref)
}

// emitTypeUse resolves every qualified type reference found in expr
// and records a TypeUse reference for each (spec.md §4.2's minimum
// reference set).
func (c *fileCtx) emitTypeUse(expr ast.Expr, sourceItem string) {
	for _, ref := range collectTypeRefs(expr) {
		path, ok := c.importMap[ref.pkgAlias]
		if !ok {
			continue
		}
		target := c.resolver.ClassifyImportPath(path)
		c.addRef(graph.Reference{
			SourceItem: sourceItem,
			TargetModule: target,
			TargetItem:   ref.name,
			Kind:         graph.RefTypeUse,
			Evidence:     ref.pkgAlias + "." + ref.name,
		})
	}
}

// emitImports records one Import reference per import spec, even when
// the import is unused by name elsewhere in the file (spec.md §4.2
// edge case: unused imports still count as coupling). astutil.UsesImport
// — not file.Imports itself — is what tells used and unused apart,
// which only changes the recorded evidence text, not whether the
// reference exists.
func (c *fileCtx) emitImports(file *ast.File) {
	for _, imp := range file.Imports {
		path := trimImportPath(imp.Path.Value)
		target := c.resolver.ClassifyImportPath(path)
		evidence := "import \"" + path + "\""
		if !astutil.UsesImport(file, path) {
			evidence += " (unused)"
		}
		c.addRef(graph.Reference{
			TargetModule: target,
			Kind:         graph.RefImport,
			Evidence:     evidence,
		})
	}
}

func trimImportPath(raw string) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	return raw
}

// walkTypeDecl handles one `type Name ...` spec: the declared Item,
// its generic bounds, and (for structs) its fields.
func (c *fileCtx) walkTypeDecl(ts *ast.TypeSpec) {
	kind := graph.KindType
	if _, ok := ts.Type.(*ast.InterfaceType); ok {
		kind = graph.KindTrait
	}
	item := &graph.Item{
		Module:     c.module,
		Name:       ts.Name.Name,
		Kind:       kind,
		Visibility: visibilityOf(ts.Name.Name),
		IsNewtype:  isNewtype(ts),
	}
	c.addItem(item)
	c.newtypes[ts.Name.Name] = item.IsNewtype

	if ts.TypeParams != nil {
		c.emitTraitBounds(ts.TypeParams, ts.Name.Name)
	}

	switch t := ts.Type.(type) {
	case *ast.StructType:
		c.walkStructFields(t, ts.Name.Name)
	case *ast.InterfaceType:
		c.walkInterfaceMethods(t, ts.Name.Name)
	default:
		c.emitTypeUse(ts.Type, ts.Name.Name)
	}
}

// walkValueDecl handles a top-level `const`/`var` block: one Item per
// declared name (Constant for both — Go doesn't distinguish a
// top-level var from a const in spec.md's ItemKind set) and a TypeUse
// reference when the spec carries an explicit, qualified type.
func (c *fileCtx) walkValueDecl(gd *ast.GenDecl) {
	for _, spec := range gd.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		for _, n := range vs.Names {
			if n.Name == "_" {
				continue
			}
			c.addItem(&graph.Item{
				Module:     c.module,
				Name:       n.Name,
				Kind:       graph.KindConstant,
				Visibility: visibilityOf(n.Name),
			})
		}
		if vs.Type != nil {
			for _, n := range vs.Names {
				c.emitTypeUse(vs.Type, n.Name)
			}
		}
		for _, v := range vs.Values {
			w := &bodyWalker{ctx: c, locals: map[string]qualifiedRef{}, sourceItem: ""}
			w.walkExpr(v)
		}
	}
}

// isNewtype flags single-field structs and defined-type aliases over a
// builtin/other named type — Go's nearest equivalent to a tuple-struct
// newtype wrapper (spec.md §3's is_newtype flag).
func isNewtype(ts *ast.TypeSpec) bool {
	if st, ok := ts.Type.(*ast.StructType); ok {
		return st.Fields != nil && len(st.Fields.List) == 1 && len(st.Fields.List[0].Names) <= 1
	}
	switch ts.Type.(type) {
	case *ast.Ident, *ast.SelectorExpr:
		return true
	}
	return false
}

func (c *fileCtx) walkStructFields(st *ast.StructType, typeName string) {
	if st.Fields == nil {
		return
	}
	// Unexported fields are Private: they cannot be reached from outside
	// the declaring package at all (see visibilityOf).
	fieldVisibility := func(name string) graph.Visibility {
		if isExportedName(name) {
			return graph.VisibilityPublic
		}
		return graph.VisibilityPrivate
	}
	for _, field := range st.Fields.List {
		c.emitTypeUse(field.Type, typeName)
		if len(field.Names) == 0 {
			// Embedded field: the embedded type name is itself the
			// field name for visibility purposes.
			name := embeddedFieldName(field.Type)
			c.addItem(&graph.Item{Module: c.module, Name: typeName + "." + name, Kind: graph.KindField, Visibility: fieldVisibility(name)})
			continue
		}
		for _, n := range field.Names {
			c.addItem(&graph.Item{Module: c.module, Name: typeName + "." + n.Name, Kind: graph.KindField, Visibility: fieldVisibility(n.Name)})
		}
	}
}

func embeddedFieldName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.StarExpr:
		return embeddedFieldName(t.X)
	default:
		return ""
	}
}

func (c *fileCtx) walkInterfaceMethods(it *ast.InterfaceType, name string) {
	if it.Methods == nil {
		return
	}
	var methodNames []string
	for _, m := range it.Methods.List {
		if ft, ok := m.Type.(*ast.FuncType); ok {
			c.emitTypeUse(ft, name)
		}
		for _, n := range m.Names {
			methodNames = append(methodNames, n.Name)
		}
		if len(m.Names) == 0 {
			// Embedded interface constraint/bound.
			c.emitTypeUse(m.Type, name)
		}
	}
	c.interfaceMethods[name] = methodNames
}

// emitTraitBounds records one TraitBound reference per generic type
// parameter's constraint element (spec.md §4.2 edge case), skipping
// the predeclared constraints "any" and "comparable" which name no
// module.
func (c *fileCtx) emitTraitBounds(params *ast.FieldList, sourceItem string) {
	for _, param := range params.List {
		for _, ref := range collectTypeRefs(param.Type) {
			path, ok := c.importMap[ref.pkgAlias]
			if !ok {
				continue
			}
			target := c.resolver.ClassifyImportPath(path)
			c.addRef(graph.Reference{
				SourceItem:   sourceItem,
				TargetModule: target,
				TargetItem:   ref.name,
				Kind:         graph.RefTraitBound,
				Evidence:     sourceItem + ": " + ref.pkgAlias + "." + ref.name,
			})
		}
	}
}

// walkFuncDecl handles one function or method declaration: its Item,
// receiver/impl bookkeeping, generic bounds, signature TypeUse
// references, and body.
func (c *fileCtx) walkFuncDecl(fn *ast.FuncDecl) {
	isMethod := fn.Recv != nil && len(fn.Recv.List) == 1
	kind := graph.KindFunction
	if isMethod {
		// A method is the Go equivalent of an "implementation": a
		// receiver-bound operation contributing to a type's method set,
		// as distinct from a free function (spec.md §9's GodModule
		// composite weights implementations at 2x precisely because
		// they're more expensive than a free function to read in
		// isolation).
		kind = graph.KindImplementation
	}
	item := &graph.Item{
		Module:     c.module,
		Name:       fn.Name.Name,
		Kind:       kind,
		Visibility: visibilityOf(fn.Name.Name),
	}
	if fn.Type.Params != nil {
		item.PrimitiveParamCount, item.HasNewtypeParam = c.paramProfile(fn.Type.Params)
	}
	c.addItem(item)

	if fn.Type.TypeParams != nil {
		c.emitTraitBounds(fn.Type.TypeParams, fn.Name.Name)
	}
	c.emitTypeUse(fn.Type, fn.Name.Name)

	var recvName string
	if isMethod {
		recvName = baseReceiverName(fn.Recv.List[0].Type)
		if recvName != "" {
			c.receiverMethods[recvName] = append(c.receiverMethods[recvName], fn.Name.Name)
		}
	}

	if fn.Body != nil {
		w := &bodyWalker{ctx: c, locals: make(map[string]qualifiedRef), sourceItem: fn.Name.Name}
		w.walkBlock(fn.Body)
		c.collectSpawns(fn.Body, fn.Name.Name)
	}
}

// paramProfile counts a function's bare-primitive-typed parameters and
// reports whether any parameter is instead typed as a newtype declared
// elsewhere in this file, feeding the PrimitiveObsession rule
// (spec.md §4.8). Only same-file newtypes are recognized; a newtype
// declared in a sibling file of the same package is invisible here
// since extraction is per-file (see DESIGN.md).
func (c *fileCtx) paramProfile(params *ast.FieldList) (primitiveCount int, hasNewtype bool) {
	for _, field := range params.List {
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		switch t := field.Type.(type) {
		case *ast.Ident:
			if isPrimitiveTypeName(t.Name) {
				primitiveCount += n
			} else if c.newtypes[t.Name] {
				hasNewtype = true
			}
		}
	}
	return primitiveCount, hasNewtype
}

func isPrimitiveTypeName(name string) bool {
	switch name {
	case "string", "bool",
		"int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
		"float32", "float64", "byte", "rune":
		return true
	default:
		return false
	}
}

func baseReceiverName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return baseReceiverName(t.X)
	case *ast.IndexListExpr:
		return baseReceiverName(t.X)
	default:
		return ""
	}
}
