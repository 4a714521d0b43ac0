// Package pyts is the secondary Extractor (spec.md §4.2, C2): a
// lower-fidelity Python front end built on tree-sitter rather than a
// real parser. It recognizes only what a grammar walk can cheaply and
// reliably find — imports, top-level/class-level function and class
// declarations, and qualified call expressions — grounded on the
// teacher's own tree-sitter inspector (inspector/golang/inspector_tree_sitter.go)
// for the parser lifecycle, and on the pack's python_parser.go (a
// from-scratch tree-sitter-python symbol extractor) for the Python
// grammar's node-kind vocabulary.
package pyts

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/sourcelens/coupling/extract"
	"github.com/sourcelens/coupling/graph"
)

// Extractor implements extract.Source for ".py" files.
type Extractor struct{}

// New constructs a Python Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Handles reports whether ext names a Python source file.
func (e *Extractor) Handles(ext string) bool {
	return strings.EqualFold(ext, ".py")
}

// Extract parses one Python source file with tree-sitter and emits
// the facts the grammar walk can find. A tree-sitter parse "failure"
// is rare (the grammar is error-tolerant by design — it produces ERROR
// nodes rather than failing outright), so this mainly returns an error
// for I/O or nil-root cases; malformed Python still yields partial
// facts from whatever parsed cleanly, matching spec.md §7's
// degrade-gracefully stance.
func (e *Extractor) Extract(filePath string, resolver extract.Resolver) (*extract.Facts, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("pyts: read %s: %w", filePath, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("pyts: parse %s: %w", filePath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("pyts: %s: tree-sitter returned no root node", filePath)
	}

	module := resolver.ToModuleId(filePath)
	w := &walker{resolver: resolver, module: module, facts: &extract.Facts{}, src: src}
	w.walkBlock(root, "")
	return w.facts, nil
}

type walker struct {
	resolver extract.Resolver
	module   graph.ModuleId
	facts    *extract.Facts
	src      []byte

	// aliases maps an import alias (or bare module's last segment) to
	// the dotted module path it names, the Python equivalent of the Go
	// extractor's importMap.
	aliases map[string]string
}

func (w *walker) text(n *sitter.Node) string {
	return string(w.src[n.StartByte():n.EndByte()])
}

func (w *walker) addItem(item *graph.Item) {
	w.facts.Items = append(w.facts.Items, item)
}

func (w *walker) addRef(ref graph.Reference) {
	ref.SourceModule = w.module
	w.facts.References = append(w.facts.References, ref)
}

// walkBlock processes the direct children of a module or class body,
// recursing into nested function bodies for call expressions but not
// for further declarations (Python rarely nests classes/functions in
// ways that matter for module-level coupling; spec.md's "lower
// fidelity" framing licenses this shallower pass).
func (w *walker) walkBlock(node *sitter.Node, scopeName string) {
	if w.aliases == nil {
		w.aliases = make(map[string]string)
	}
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import_statement":
			w.walkImportStatement(child)
		case "import_from_statement":
			w.walkImportFromStatement(child)
		case "class_definition":
			w.walkClassDef(child)
		case "function_definition":
			w.walkFunctionDef(child, "")
		case "decorated_definition":
			w.walkDecoratedDef(child)
		default:
			w.walkCallsIn(child, scopeName)
		}
	}
}

func (w *walker) walkImportStatement(node *sitter.Node) {
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			path := w.text(child)
			w.recordImport(path, lastSegment(path), path)
		case "aliased_import":
			var path, alias string
			inner := int(child.ChildCount())
			for j := 0; j < inner; j++ {
				gc := child.Child(j)
				switch gc.Type() {
				case "dotted_name":
					path = w.text(gc)
				case "identifier":
					alias = w.text(gc)
				}
			}
			if path != "" {
				w.recordImport(path, alias, path)
			}
		}
	}
}

func (w *walker) walkImportFromStatement(node *sitter.Node) {
	var modulePath string
	var names []string
	count := int(node.ChildCount())
	sawImport := false
	for i := 0; i < count; i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import":
			sawImport = true
		case "dotted_name":
			name := w.text(child)
			if !sawImport {
				modulePath = name
			} else {
				names = append(names, name)
			}
		case "relative_import":
			modulePath = w.text(child)
		case "identifier":
			if sawImport {
				names = append(names, w.text(child))
			}
		case "aliased_import":
			inner := int(child.ChildCount())
			var importName, alias string
			for j := 0; j < inner; j++ {
				gc := child.Child(j)
				if gc.Type() == "identifier" || gc.Type() == "dotted_name" {
					if importName == "" {
						importName = w.text(gc)
					} else {
						alias = w.text(gc)
					}
				}
			}
			if alias != "" {
				w.aliases[alias] = modulePath
			}
			names = append(names, importName)
		}
	}
	if modulePath == "" {
		return
	}
	target := w.resolver.ClassifySymbol(moduleKey(modulePath))
	for _, name := range names {
		w.addRef(graph.Reference{
			TargetModule: target,
			TargetItem:   name,
			Kind:         graph.RefImport,
			Evidence:     "from " + modulePath + " import " + name,
		})
		if _, aliased := w.aliases[name]; !aliased {
			w.aliases[name] = modulePath
		}
	}
}

func (w *walker) recordImport(path, alias, evidence string) {
	w.aliases[alias] = path
	target := w.resolver.ClassifySymbol(moduleKey(path))
	w.addRef(graph.Reference{
		TargetModule: target,
		Kind:         graph.RefImport,
		Evidence:     "import " + evidence,
	})
}

// moduleKey reduces a dotted Python module path to the single segment
// ClassifySymbol's generic, language-agnostic matching expects.
func moduleKey(dotted string) string {
	return lastSegment(dotted)
}

func lastSegment(dotted string) string {
	if idx := strings.LastIndexByte(dotted, '.'); idx >= 0 {
		return dotted[idx+1:]
	}
	return dotted
}

func (w *walker) walkClassDef(node *sitter.Node) {
	var name string
	var bodyNode *sitter.Node
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			if name == "" {
				name = w.text(child)
			}
		case "argument_list":
			w.emitBaseClassRefs(child, name)
		case "block":
			bodyNode = child
		}
	}
	if name == "" {
		return
	}
	w.addItem(&graph.Item{Module: w.module, Name: name, Kind: graph.KindType, Visibility: pyVisibility(name)})

	if bodyNode == nil {
		return
	}
	inner := int(bodyNode.ChildCount())
	for i := 0; i < inner; i++ {
		member := bodyNode.Child(i)
		switch member.Type() {
		case "function_definition":
			w.walkFunctionDef(member, name)
		case "decorated_definition":
			w.walkDecoratedDef(member)
		default:
			w.walkCallsIn(member, name)
		}
	}
}

// emitBaseClassRefs treats a base class listed in `class X(pkg.Base):`
// as a TypeUse reference — Python has no formal `impl` syntax, so
// inheritance from an imported base is the closest coupling signal a
// grammar-only pass can observe (see DESIGN.md).
func (w *walker) emitBaseClassRefs(argList *sitter.Node, className string) {
	count := int(argList.ChildCount())
	for i := 0; i < count; i++ {
		arg := argList.Child(i)
		if arg.Type() != "identifier" && arg.Type() != "attribute" {
			continue
		}
		text := w.text(arg)
		alias, member := splitAttribute(text)
		if path, ok := w.aliases[alias]; ok {
			target := w.resolver.ClassifySymbol(moduleKey(path))
			w.addRef(graph.Reference{
				SourceItem:   className,
				TargetModule: target,
				TargetItem:   member,
				Kind:         graph.RefTypeUse,
				Evidence:     className + "(" + text + ")",
			})
		}
	}
}

func splitAttribute(text string) (base, member string) {
	if idx := strings.IndexByte(text, '.'); idx >= 0 {
		return text[:idx], text[idx+1:]
	}
	return text, text
}

func (w *walker) walkFunctionDef(node *sitter.Node, className string) {
	var name string
	var bodyNode *sitter.Node
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			if name == "" {
				name = w.text(child)
			}
		case "block":
			bodyNode = child
		}
	}
	if name == "" {
		return
	}
	itemName := name
	if className != "" {
		itemName = className + "." + name
	}
	w.addItem(&graph.Item{Module: w.module, Name: itemName, Kind: graph.KindFunction, Visibility: pyVisibility(name)})
	if bodyNode != nil {
		w.walkCallsIn(bodyNode, itemName)
	}
}

func (w *walker) walkDecoratedDef(node *sitter.Node) {
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(i)
		switch child.Type() {
		case "class_definition":
			w.walkClassDef(child)
		case "function_definition":
			w.walkFunctionDef(child, "")
		}
	}
}

// walkCallsIn recurses through an arbitrary subtree looking only for
// `call` nodes whose function is a qualified attribute access rooted
// at a known import alias — the one reference shape this lower-
// fidelity extractor attributes inside a function body.
func (w *walker) walkCallsIn(node *sitter.Node, sourceItem string) {
	if node.Type() == "call" {
		w.emitCallRef(node, sourceItem)
	}
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		w.walkCallsIn(node.Child(i), sourceItem)
	}
}

func (w *walker) emitCallRef(call *sitter.Node, sourceItem string) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return
	}
	obj := fn.ChildByFieldName("object")
	attr := fn.ChildByFieldName("attribute")
	if obj == nil || attr == nil || obj.Type() != "identifier" {
		return
	}
	alias := w.text(obj)
	path, ok := w.aliases[alias]
	if !ok {
		return
	}
	target := w.resolver.ClassifySymbol(moduleKey(path))
	w.addRef(graph.Reference{
		SourceItem:   sourceItem,
		TargetModule: target,
		TargetItem:   w.text(attr),
		Kind:         graph.RefFunctionCall,
		Evidence:     alias + "." + w.text(attr) + "(...)",
	})
}

// pyVisibility applies Python's underscore convention (spec.md §4.1's
// resolution for languages without compiler-enforced visibility):
// a leading underscore is CrateLocal-equivalent convention, dunder
// names are Public, everything else is Public.
func pyVisibility(name string) graph.Visibility {
	switch {
	case strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__"):
		return graph.VisibilityPublic
	case strings.HasPrefix(name, "_"):
		return graph.VisibilityCrateLocal
	default:
		return graph.VisibilityPublic
	}
}
