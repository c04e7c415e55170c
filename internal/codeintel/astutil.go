package codeintel

import sitter "github.com/smacker/go-tree-sitter"

// Walk visits every node under root depth-first, leftmost child first.
// Iterative to keep deep trees off the Go stack.
func Walk(root *sitter.Node, visit func(*sitter.Node)) {
	if root == nil {
		return
	}
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(node)
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.Child(i))
		}
	}
}

func walkTypes(root *sitter.Node, types []string, visit func(*sitter.Node)) {
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	Walk(root, func(n *sitter.Node) {
		if wanted[n.Type()] {
			visit(n)
		}
	})
}

// Definition is a symbol definition site.
type Definition struct {
	Name      string
	Kind      SymbolKind
	Line      int
	Column    int
	EndLine   int
	EndColumn int
	Node      *sitter.Node
}

// Reference is an occurrence of a symbol name.
type Reference struct {
	Name         string
	Line         int
	Column       int
	IsDefinition bool
	Node         *sitter.Node
}

// NodeName extracts the defined name from a definition node, trying the
// language's name fields then the first identifier child.
func NodeName(node *sitter.Node, language string, source []byte) string {
	cfg, ok := Languages[language]
	if !ok {
		return ""
	}
	for _, field := range cfg.NameFields {
		if name := node.ChildByFieldName(field); name != nil {
			return NodeText(name, source)
		}
	}
	switch node.Type() {
	case "function_definition", "class_definition":
		for i := 0; i < int(node.ChildCount()); i++ {
			if child := node.Child(i); child.Type() == "identifier" {
				return NodeText(child, source)
			}
		}
	}
	return ""
}

// FindDefinitions returns symbol definitions in the tree. A non-empty name
// filters to that symbol only.
func FindDefinitions(tree *sitter.Tree, language string, source []byte, name string) []Definition {
	cfg, ok := Languages[language]
	if !ok {
		return nil
	}

	var defs []Definition
	walkTypes(tree.RootNode(), cfg.DefinitionTypes, func(node *sitter.Node) {
		defName := NodeName(node, language, source)
		if defName == "" {
			return
		}
		if name != "" && defName != name {
			return
		}
		defs = append(defs, Definition{
			Name:      defName,
			Kind:      kindForNodeType(node.Type()),
			Line:      int(node.StartPoint().Row) + 1,
			Column:    int(node.StartPoint().Column),
			EndLine:   int(node.EndPoint().Row) + 1,
			EndColumn: int(node.EndPoint().Column),
			Node:      node,
		})
	})
	return defs
}

// FindReferences returns every identifier occurrence of a symbol name,
// tagging occurrences that coincide with a definition site.
func FindReferences(tree *sitter.Tree, language string, source []byte, name string) []Reference {
	if _, ok := Languages[language]; !ok {
		return nil
	}

	type pos struct{ line, col int }
	defSites := make(map[pos]bool)
	for _, d := range FindDefinitions(tree, language, source, name) {
		defSites[pos{d.Line, d.Column}] = true
	}

	var refs []Reference
	Walk(tree.RootNode(), func(node *sitter.Node) {
		switch node.Type() {
		case "identifier", "type_identifier":
		default:
			return
		}
		if NodeText(node, source) != name {
			return
		}
		line := int(node.StartPoint().Row) + 1
		col := int(node.StartPoint().Column)
		refs = append(refs, Reference{
			Name:         name,
			Line:         line,
			Column:       col,
			IsDefinition: defSites[pos{line, col}],
			Node:         node,
		})
	})
	return refs
}

// kindForNodeType maps AST node types to human-readable symbol kinds.
func kindForNodeType(nodeType string) SymbolKind {
	if kind, ok := nodeKinds[nodeType]; ok {
		return kind
	}
	return SymbolKind(nodeType)
}

var nodeKinds = map[string]SymbolKind{
	"function_definition":         "function",
	"class_definition":            "class",
	"assignment":                  "variable",
	"augmented_assignment":        "variable",
	"global_statement":            "variable",
	"decorated_definition":        "decorated",
	"function_declaration":        "function",
	"arrow_function":              "function",
	"function_expression":         "function",
	"method_definition":           "method",
	"class_declaration":           "class",
	"variable_declarator":         "variable",
	"interface_declaration":       "interface",
	"type_alias_declaration":      "type",
	"enum_declaration":            "enum",
	"method_declaration":          "method",
	"type_declaration":            "type",
	"type_spec":                   "type",
	"var_declaration":             "variable",
	"const_declaration":           "constant",
	"short_var_declaration":       "variable",
	"function_item":               "function",
	"struct_item":                 "struct",
	"enum_item":                   "enum",
	"trait_item":                  "trait",
	"impl_item":                   "impl",
	"type_item":                   "type",
	"const_item":                  "constant",
	"static_item":                 "static",
	"let_declaration":             "variable",
	"mod_item":                    "module",
	"macro_definition":            "macro",
	"field_declaration":           "field",
	"annotation_type_declaration": "annotation",
	"constructor_declaration":     "constructor",
	"struct_specifier":            "struct",
	"enum_specifier":              "enum",
	"union_specifier":             "union",
	"type_definition":             "type",
	"declaration":                 "declaration",
	"class_specifier":             "class",
	"template_declaration":        "template",
	"namespace_definition":        "namespace",
	"using_declaration":           "using",
	"method":                      "method",
	"singleton_method":            "method",
	"class":                       "class",
	"module":                      "module",
	"trait_declaration":           "trait",
	"property_declaration":        "property",
	"struct_declaration":          "struct",
	"delegate_declaration":        "delegate",
	"record_declaration":          "record",
}
