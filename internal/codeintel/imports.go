package codeintel

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Import is one import statement found in a source file.
type Import struct {
	Module     string
	Names      []string
	Line       int
	IsRelative bool
	// IsSystem marks C/C++ angle-bracket includes.
	IsSystem bool
	Node     *sitter.Node
}

// FindImports returns the imports declared in a tree. Parsers are
// best-effort per language; unknown languages yield nothing.
func FindImports(tree *sitter.Tree, language string, source []byte) []Import {
	cfg, ok := Languages[language]
	if !ok {
		return nil
	}

	parse := importParsers[language]
	if parse == nil {
		return nil
	}

	var imports []Import
	walkTypes(tree.RootNode(), cfg.ImportTypes, func(node *sitter.Node) {
		if imp, ok := parse(node, source); ok {
			imports = append(imports, imp)
		}
	})
	return imports
}

type importParser func(node *sitter.Node, source []byte) (Import, bool)

var importParsers = map[string]importParser{
	"python":     parsePythonImport,
	"javascript": parseJSImport,
	"typescript": parseJSImport,
	"tsx":        parseJSImport,
	"go":         parseGoImport,
	"rust":       parseRustImport,
	"java":       parseJavaImport,
	"c":          parseCInclude,
	"cpp":        parseCppImport,
	"ruby":       parseRubyImport,
	"php":        parsePHPImport,
	"csharp":     parseCSharpImport,
}

func startLine(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

func parsePythonImport(node *sitter.Node, source []byte) (Import, bool) {
	switch node.Type() {
	case "import_statement":
		// import foo, bar (first module wins, matching reference behavior)
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case "dotted_name":
				return Import{Module: NodeText(child, source), Line: startLine(node), Node: node}, true
			case "aliased_import":
				target := child.ChildByFieldName("name")
				if target == nil {
					target = child
				}
				return Import{Module: NodeText(target, source), Line: startLine(node), Node: node}, true
			}
		}
		return Import{Line: startLine(node), Node: node}, true

	case "import_from_statement":
		imp := Import{Line: startLine(node), Node: node}
		if module := node.ChildByFieldName("module_name"); module != nil {
			imp.Module = NodeText(module, source)
			imp.IsRelative = strings.HasPrefix(imp.Module, ".")
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case "relative_import":
				imp.IsRelative = true
				imp.Module = NodeText(child, source)
			case "import_prefix":
				imp.IsRelative = true
			case "dotted_name":
				if name := NodeText(child, source); name != imp.Module {
					imp.Names = append(imp.Names, name)
				}
			case "aliased_import":
				if name := child.ChildByFieldName("name"); name != nil {
					imp.Names = append(imp.Names, NodeText(name, source))
				}
			}
		}
		return imp, true
	}
	return Import{}, false
}

func parseJSImport(node *sitter.Node, source []byte) (Import, bool) {
	if node.Type() != "import_statement" {
		return Import{}, false
	}
	src := node.ChildByFieldName("source")
	if src == nil {
		return Import{}, false
	}
	module := strings.Trim(NodeText(src, source), `'"`)

	var names []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "import_clause" {
			continue
		}
		Walk(child, func(n *sitter.Node) {
			if n.Type() == "identifier" {
				names = append(names, NodeText(n, source))
			}
		})
	}

	return Import{
		Module:     module,
		Names:      names,
		Line:       startLine(node),
		IsRelative: strings.HasPrefix(module, ".") || strings.HasPrefix(module, "/"),
		Node:       node,
	}, true
}

func parseGoImport(node *sitter.Node, source []byte) (Import, bool) {
	if node.Type() != "import_spec" {
		return Import{}, false
	}
	path := node.ChildByFieldName("path")
	if path == nil {
		return Import{}, false
	}
	module := strings.Trim(NodeText(path, source), `"`)

	var names []string
	if alias := node.ChildByFieldName("name"); alias != nil {
		names = append(names, NodeText(alias, source))
	}

	return Import{
		Module:     module,
		Names:      names,
		Line:       startLine(node),
		IsRelative: strings.HasPrefix(module, "."),
		Node:       node,
	}, true
}

func parseRustImport(node *sitter.Node, source []byte) (Import, bool) {
	switch node.Type() {
	case "extern_crate_declaration":
		for i := 0; i < int(node.ChildCount()); i++ {
			if child := node.Child(i); child.Type() == "identifier" {
				return Import{Module: NodeText(child, source), Line: startLine(node), Node: node}, true
			}
		}
		return Import{}, false

	case "use_declaration":
		var imp Import
		found := false
		Walk(node, func(n *sitter.Node) {
			if found {
				return
			}
			switch n.Type() {
			case "scoped_identifier", "identifier", "use_wildcard":
				module := strings.ReplaceAll(NodeText(n, source), "::", ".")
				imp = Import{
					Module: module,
					Line:   startLine(node),
					IsRelative: strings.HasPrefix(module, "crate.") ||
						strings.HasPrefix(module, "super.") ||
						strings.HasPrefix(module, "self."),
					Node: node,
				}
				found = true
			}
		})
		return imp, found
	}
	return Import{}, false
}

func parseJavaImport(node *sitter.Node, source []byte) (Import, bool) {
	if node.Type() != "import_declaration" {
		return Import{}, false
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "scoped_identifier" {
			continue
		}
		module := NodeText(child, source)
		wildcard := false
		for j := 0; j < int(node.ChildCount()); j++ {
			if node.Child(j).Type() == "asterisk" {
				wildcard = true
			}
		}
		names := []string{module[strings.LastIndex(module, ".")+1:]}
		if wildcard {
			names = []string{"*"}
		}
		return Import{Module: module, Names: names, Line: startLine(node), Node: node}, true
	}
	return Import{}, false
}

func parseCInclude(node *sitter.Node, source []byte) (Import, bool) {
	if node.Type() != "preproc_include" {
		return Import{}, false
	}
	path := node.ChildByFieldName("path")
	if path == nil {
		return Import{}, false
	}
	text := NodeText(path, source)
	isSystem := strings.HasPrefix(text, "<")
	return Import{
		Module:     strings.Trim(text, `<>"`),
		Line:       startLine(node),
		IsRelative: !isSystem,
		IsSystem:   isSystem,
		Node:       node,
	}, true
}

func parseCppImport(node *sitter.Node, source []byte) (Import, bool) {
	switch node.Type() {
	case "preproc_include":
		return parseCInclude(node, source)
	case "using_declaration":
		var imp Import
		found := false
		Walk(node, func(n *sitter.Node) {
			if found {
				return
			}
			switch n.Type() {
			case "qualified_identifier", "identifier", "namespace_identifier":
				name := NodeText(n, source)
				parts := strings.Split(name, "::")
				imp = Import{
					Module: strings.ReplaceAll(name, "::", "."),
					Names:  []string{parts[len(parts)-1]},
					Line:   startLine(node),
					Node:   node,
				}
				found = true
			}
		})
		return imp, found
	}
	return Import{}, false
}

func parseRubyImport(node *sitter.Node, source []byte) (Import, bool) {
	if node.Type() != "call" {
		return Import{}, false
	}
	method := node.ChildByFieldName("method")
	if method == nil {
		return Import{}, false
	}
	methodName := NodeText(method, source)
	switch methodName {
	case "require", "require_relative", "load":
	default:
		return Import{}, false
	}

	args := node.ChildByFieldName("arguments")
	if args == nil {
		return Import{}, false
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		arg := args.Child(i)
		if arg.Type() != "string" {
			continue
		}
		return Import{
			Module:     strings.Trim(NodeText(arg, source), `'"`),
			Line:       startLine(node),
			IsRelative: methodName == "require_relative",
			Node:       node,
		}, true
	}
	return Import{}, false
}

func parsePHPImport(node *sitter.Node, source []byte) (Import, bool) {
	switch node.Type() {
	case "namespace_use_declaration":
		var imp Import
		found := false
		Walk(node, func(n *sitter.Node) {
			if found {
				return
			}
			switch n.Type() {
			case "qualified_name", "name":
				name := strings.Trim(NodeText(n, source), `\`)
				parts := strings.Split(name, `\`)
				imp = Import{
					Module: name,
					Names:  []string{parts[len(parts)-1]},
					Line:   startLine(node),
					Node:   node,
				}
				found = true
			}
		})
		return imp, found

	case "require_expression", "require_once_expression",
		"include_expression", "include_once_expression":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case "string", "encapsed_string":
				path := strings.Trim(NodeText(child, source), `'"`)
				return Import{
					Module:     path,
					Line:       startLine(node),
					IsRelative: strings.HasPrefix(path, ".") || strings.HasPrefix(path, "/"),
					Node:       node,
				}, true
			}
		}
	}
	return Import{}, false
}

func parseCSharpImport(node *sitter.Node, source []byte) (Import, bool) {
	if node.Type() != "using_directive" {
		return Import{}, false
	}
	var imp Import
	found := false
	Walk(node, func(n *sitter.Node) {
		if found {
			return
		}
		switch n.Type() {
		case "qualified_name", "identifier_name", "identifier":
			imp = Import{Module: NodeText(n, source), Line: startLine(node), Node: node}
			found = true
		}
	})
	return imp, found
}
