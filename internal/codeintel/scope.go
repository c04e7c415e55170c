package codeintel

import sitter "github.com/smacker/go-tree-sitter"

// ScopeType classifies a lexical scope.
type ScopeType int

const (
	ScopeGlobal ScopeType = iota
	ScopeClass
	ScopeFunction
	ScopeBlock
	ScopeNamespace
)

func (t ScopeType) String() string {
	switch t {
	case ScopeGlobal:
		return "global"
	case ScopeClass:
		return "class"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeNamespace:
		return "namespace"
	default:
		return "unknown"
	}
}

// Scope is one lexical scope. Parent and Children are indices into the
// owning ScopeTree's arena; the root's Parent is -1.
type Scope struct {
	Type      ScopeType
	Name      string
	StartLine int
	EndLine   int
	Parent    int
	Children  []int

	Node *sitter.Node
}

// ScopeTree holds all scopes of one analysis in a flat arena. Index 0 is
// always the global scope.
type ScopeTree struct {
	Scopes   []Scope
	language string
	source   []byte
}

// BuildScopeTree walks an AST and records every scope the language's
// scope-creator table names. Scopes are rebuilt fully per call.
func BuildScopeTree(tree *sitter.Tree, language string, source []byte) *ScopeTree {
	st := &ScopeTree{language: language, source: source}

	root := tree.RootNode()
	st.Scopes = append(st.Scopes, Scope{
		Type:      ScopeGlobal,
		StartLine: 1,
		EndLine:   int(root.EndPoint().Row) + 1,
		Parent:    -1,
		Node:      root,
	})

	creators := map[string]ScopeType{}
	if cfg, ok := Languages[language]; ok {
		creators = cfg.ScopeCreators
	}
	st.build(root, 0, creators)
	return st
}

func (st *ScopeTree) build(node *sitter.Node, current int, creators map[string]ScopeType) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		scopeType, creates := creators[child.Type()]
		if !creates {
			st.build(child, current, creators)
			continue
		}

		idx := len(st.Scopes)
		st.Scopes = append(st.Scopes, Scope{
			Type:      scopeType,
			Name:      st.scopeName(child),
			StartLine: int(child.StartPoint().Row) + 1,
			EndLine:   int(child.EndPoint().Row) + 1,
			Parent:    current,
			Node:      child,
		})
		st.Scopes[current].Children = append(st.Scopes[current].Children, idx)
		st.build(child, idx, creators)
	}
}

func (st *ScopeTree) scopeName(node *sitter.Node) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return NodeText(name, st.source)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == "identifier" {
			return NodeText(child, st.source)
		}
	}
	return ""
}

// ScopeAt returns the index of the innermost scope containing the position
// (line is 1-indexed). The global scope contains everything.
func (st *ScopeTree) ScopeAt(line, col int) int {
	best := 0
	var search func(idx int)
	search = func(idx int) {
		s := &st.Scopes[idx]
		if s.StartLine <= line && line <= s.EndLine {
			best = idx
			for _, child := range s.Children {
				search(child)
			}
		}
	}
	search(0)
	return best
}

// Chain returns the scopes from the global scope down to idx.
func (st *ScopeTree) Chain(idx int) []Scope {
	var chain []Scope
	for i := idx; i >= 0; i = st.Scopes[i].Parent {
		chain = append(chain, st.Scopes[i])
	}
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return chain
}

// QualifiedName joins the names of a symbol's enclosing scopes, outermost
// first, ending with the symbol name itself.
func (st *ScopeTree) QualifiedName(scope int, name string) string {
	qualified := name
	for i := scope; i >= 0; i = st.Scopes[i].Parent {
		if st.Scopes[i].Name != "" {
			qualified = st.Scopes[i].Name + "." + qualified
		}
	}
	return qualified
}

// SymbolKind classifies a symbol.
type SymbolKind string

// Symbol is an occurrence of a name with its scope classification.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	Line      int
	Column    int
	EndLine   int
	EndColumn int
	Scope     int

	IsLocal            bool
	IsParameter        bool
	IsClassMember      bool
	IsInstanceVariable bool

	Docstring string
	Node      *sitter.Node
}

// IsGlobal reports whether the symbol lives at module scope.
func (s Symbol) IsGlobal(st *ScopeTree) bool {
	return s.Scope >= 0 && st.Scopes[s.Scope].Type == ScopeGlobal
}

// Classify fills a symbol's scope-derived flags from its node and
// enclosing scope.
func (st *ScopeTree) Classify(sym *Symbol) {
	scopeType := st.Scopes[sym.Scope].Type
	sym.IsLocal = scopeType == ScopeFunction || scopeType == ScopeBlock
	sym.IsClassMember = scopeType == ScopeClass
	sym.IsParameter = isParameter(sym.Node)
	sym.IsInstanceVariable = st.isInstanceVariable(sym.Node)
}

// isParameter walks ancestors looking for a parameter list, stopping at
// the enclosing function boundary.
func isParameter(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		switch parent.Type() {
		case "parameters", "formal_parameters", "parameter_list", "function_parameters":
			return true
		case "function_definition", "function_declaration", "method_declaration", "function_item":
			return false
		}
	}
	return false
}

func (st *ScopeTree) isInstanceVariable(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch st.language {
	case "python":
		if parent := node.Parent(); parent != nil && parent.Type() == "attribute" {
			return NodeText(parent.ChildByFieldName("object"), st.source) == "self"
		}
	case "javascript", "typescript", "tsx", "java", "csharp":
		if parent := node.Parent(); parent != nil {
			switch parent.Type() {
			case "member_expression", "field_access", "member_access_expression":
				return NodeText(parent.ChildByFieldName("object"), st.source) == "this"
			}
		}
	case "php":
		if parent := node.Parent(); parent != nil && parent.Type() == "member_access_expression" {
			obj := NodeText(parent.ChildByFieldName("object"), st.source)
			return obj == "$this" || obj == "self"
		}
	case "ruby":
		if node.Type() == "instance_variable" {
			return true
		}
		text := NodeText(node, st.source)
		return len(text) > 1 && text[0] == '@' && text[1] != '@'
	}
	return false
}

// ScopeInfo summarizes the scope at a position.
type ScopeInfo struct {
	Current    ScopeType
	Name       string
	IsGlobal   bool
	IsClass    bool
	IsFunction bool
	Chain      []Scope
}

// ScopeInfoAt builds the scope chain for a position in parsed code.
func ScopeInfoAt(tree *sitter.Tree, language string, source []byte, line, col int) ScopeInfo {
	st := BuildScopeTree(tree, language, source)
	idx := st.ScopeAt(line, col)
	scope := st.Scopes[idx]
	return ScopeInfo{
		Current:    scope.Type,
		Name:       scope.Name,
		IsGlobal:   scope.Type == ScopeGlobal,
		IsClass:    scope.Type == ScopeClass,
		IsFunction: scope.Type == ScopeFunction,
		Chain:      st.Chain(idx),
	}
}
