// Package codeintel provides tree-sitter backed source analysis:
// language detection, AST parsing with caching, scope trees, symbol
// definitions and references, import extraction, and import resolution.
package codeintel

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageConfig describes how a language's AST is analyzed.
type LanguageConfig struct {
	Name       string
	Extensions []string

	// Node types that define symbols.
	DefinitionTypes []string
	// Node types that reference symbols.
	ReferenceTypes []string
	// Node types carrying import statements.
	ImportTypes []string
	// Field names used to extract symbol names from definition nodes.
	NameFields []string
	// Node types that contain function/method bodies.
	BodyTypes []string
	// Node types that open a new scope.
	ScopeCreators map[string]ScopeType

	// Grammar returns the tree-sitter grammar.
	Grammar func() *sitter.Language
}

// Languages is the static table of supported languages.
var Languages = map[string]*LanguageConfig{
	"python": {
		Name:       "python",
		Extensions: []string{".py", ".pyi"},
		DefinitionTypes: []string{
			"function_definition", "class_definition", "assignment",
			"augmented_assignment", "global_statement", "decorated_definition",
		},
		ReferenceTypes: []string{"identifier", "attribute", "call"},
		ImportTypes:    []string{"import_statement", "import_from_statement"},
		NameFields:     []string{"name", "left"},
		BodyTypes:      []string{"block", "module"},
		ScopeCreators: map[string]ScopeType{
			"module":              ScopeGlobal,
			"class_definition":    ScopeClass,
			"function_definition": ScopeFunction,
		},
		Grammar: python.GetLanguage,
	},
	"javascript": {
		Name:       "javascript",
		Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		DefinitionTypes: []string{
			"function_declaration", "class_declaration", "variable_declarator",
			"method_definition", "arrow_function", "function_expression",
		},
		ReferenceTypes: []string{"identifier", "member_expression", "call_expression"},
		ImportTypes:    []string{"import_statement"},
		NameFields:     []string{"name", "id"},
		BodyTypes:      []string{"statement_block", "program"},
		ScopeCreators: map[string]ScopeType{
			"program":              ScopeGlobal,
			"class_declaration":    ScopeClass,
			"class_body":           ScopeClass,
			"function_declaration": ScopeFunction,
			"arrow_function":       ScopeFunction,
			"method_definition":    ScopeFunction,
			"statement_block":      ScopeBlock,
		},
		Grammar: javascript.GetLanguage,
	},
	"typescript": {
		Name:       "typescript",
		Extensions: []string{".ts", ".mts", ".cts"},
		DefinitionTypes: []string{
			"function_declaration", "class_declaration", "variable_declarator",
			"method_definition", "arrow_function", "function_expression",
			"interface_declaration", "type_alias_declaration", "enum_declaration",
		},
		ReferenceTypes: []string{
			"identifier", "member_expression", "call_expression", "type_identifier",
		},
		ImportTypes: []string{"import_statement"},
		NameFields:  []string{"name", "id"},
		BodyTypes:   []string{"statement_block", "program"},
		ScopeCreators: map[string]ScopeType{
			"program":              ScopeGlobal,
			"class_declaration":    ScopeClass,
			"function_declaration": ScopeFunction,
			"arrow_function":       ScopeFunction,
			"method_definition":    ScopeFunction,
			"statement_block":      ScopeBlock,
			"module":               ScopeNamespace,
		},
		Grammar: typescript.GetLanguage,
	},
	"tsx": {
		Name:       "tsx",
		Extensions: []string{".tsx"},
		DefinitionTypes: []string{
			"function_declaration", "class_declaration", "variable_declarator",
			"method_definition", "arrow_function", "function_expression",
			"interface_declaration", "type_alias_declaration", "enum_declaration",
		},
		ReferenceTypes: []string{
			"identifier", "member_expression", "call_expression", "type_identifier",
		},
		ImportTypes: []string{"import_statement"},
		NameFields:  []string{"name", "id"},
		BodyTypes:   []string{"statement_block", "program"},
		ScopeCreators: map[string]ScopeType{
			"program":              ScopeGlobal,
			"class_declaration":    ScopeClass,
			"function_declaration": ScopeFunction,
			"arrow_function":       ScopeFunction,
			"method_definition":    ScopeFunction,
			"statement_block":      ScopeBlock,
			"module":               ScopeNamespace,
		},
		Grammar: tsx.GetLanguage,
	},
	"go": {
		Name:       "go",
		Extensions: []string{".go"},
		DefinitionTypes: []string{
			"function_declaration", "method_declaration", "type_declaration",
			"type_spec", "var_declaration", "const_declaration",
			"short_var_declaration",
		},
		ReferenceTypes: []string{
			"identifier", "selector_expression", "call_expression", "type_identifier",
		},
		ImportTypes: []string{"import_spec"},
		NameFields:  []string{"name"},
		BodyTypes:   []string{"block", "source_file"},
		ScopeCreators: map[string]ScopeType{
			"source_file":          ScopeGlobal,
			"function_declaration": ScopeFunction,
			"method_declaration":   ScopeFunction,
			"block":                ScopeBlock,
		},
		Grammar: golang.GetLanguage,
	},
	"rust": {
		Name:       "rust",
		Extensions: []string{".rs"},
		DefinitionTypes: []string{
			"function_item", "struct_item", "enum_item", "trait_item",
			"impl_item", "type_item", "const_item", "static_item",
			"let_declaration", "mod_item", "macro_definition",
		},
		ReferenceTypes: []string{
			"identifier", "field_expression", "call_expression",
			"type_identifier", "scoped_identifier",
		},
		ImportTypes: []string{"use_declaration", "extern_crate_declaration"},
		NameFields:  []string{"name"},
		BodyTypes:   []string{"block", "source_file"},
		ScopeCreators: map[string]ScopeType{
			"source_file":   ScopeGlobal,
			"function_item": ScopeFunction,
			"impl_item":     ScopeClass,
			"struct_item":   ScopeClass,
			"mod_item":      ScopeNamespace,
			"block":         ScopeBlock,
		},
		Grammar: rust.GetLanguage,
	},
	"java": {
		Name:       "java",
		Extensions: []string{".java"},
		DefinitionTypes: []string{
			"class_declaration", "interface_declaration", "method_declaration",
			"field_declaration", "enum_declaration",
			"annotation_type_declaration", "constructor_declaration",
		},
		ReferenceTypes: []string{
			"identifier", "method_invocation", "field_access", "type_identifier",
		},
		ImportTypes: []string{"import_declaration"},
		NameFields:  []string{"name"},
		BodyTypes:   []string{"block", "class_body", "program"},
		ScopeCreators: map[string]ScopeType{
			"program":                 ScopeGlobal,
			"class_declaration":       ScopeClass,
			"interface_declaration":   ScopeClass,
			"method_declaration":      ScopeFunction,
			"constructor_declaration": ScopeFunction,
			"block":                   ScopeBlock,
		},
		Grammar: java.GetLanguage,
	},
	"c": {
		Name:       "c",
		Extensions: []string{".c", ".h"},
		DefinitionTypes: []string{
			"function_definition", "declaration", "struct_specifier",
			"enum_specifier", "union_specifier", "type_definition",
		},
		ReferenceTypes: []string{
			"identifier", "field_expression", "call_expression", "type_identifier",
		},
		ImportTypes: []string{"preproc_include"},
		NameFields:  []string{"name", "declarator"},
		BodyTypes:   []string{"compound_statement", "translation_unit"},
		ScopeCreators: map[string]ScopeType{
			"translation_unit":    ScopeGlobal,
			"function_definition": ScopeFunction,
			"compound_statement":  ScopeBlock,
		},
		Grammar: c.GetLanguage,
	},
	"cpp": {
		Name:       "cpp",
		Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx", ".h++"},
		DefinitionTypes: []string{
			"function_definition", "class_specifier", "struct_specifier",
			"declaration", "template_declaration", "namespace_definition",
			"enum_specifier", "using_declaration",
		},
		ReferenceTypes: []string{
			"identifier", "field_expression", "call_expression",
			"type_identifier", "qualified_identifier",
		},
		ImportTypes: []string{"preproc_include", "using_declaration"},
		NameFields:  []string{"name", "declarator"},
		BodyTypes:   []string{"compound_statement", "translation_unit", "declaration_list"},
		ScopeCreators: map[string]ScopeType{
			"translation_unit":     ScopeGlobal,
			"function_definition":  ScopeFunction,
			"class_specifier":      ScopeClass,
			"struct_specifier":     ScopeClass,
			"namespace_definition": ScopeNamespace,
			"compound_statement":   ScopeBlock,
		},
		Grammar: cpp.GetLanguage,
	},
	"ruby": {
		Name:       "ruby",
		Extensions: []string{".rb", ".rake", ".gemspec"},
		DefinitionTypes: []string{
			"method", "singleton_method", "class", "module", "assignment",
		},
		ReferenceTypes: []string{"identifier", "call", "method_call", "constant"},
		ImportTypes:    []string{"call"},
		NameFields:     []string{"name"},
		BodyTypes:      []string{"body_statement", "program"},
		ScopeCreators: map[string]ScopeType{
			"program":          ScopeGlobal,
			"class":            ScopeClass,
			"module":           ScopeNamespace,
			"method":           ScopeFunction,
			"singleton_method": ScopeFunction,
		},
		Grammar: ruby.GetLanguage,
	},
	"php": {
		Name:       "php",
		Extensions: []string{".php", ".phtml"},
		DefinitionTypes: []string{
			"function_definition", "class_declaration", "method_declaration",
			"interface_declaration", "trait_declaration", "enum_declaration",
			"property_declaration",
		},
		ReferenceTypes: []string{
			"name", "member_access_expression", "function_call_expression",
			"class_constant_access_expression",
		},
		ImportTypes: []string{
			"namespace_use_declaration", "require_expression",
			"require_once_expression", "include_expression",
			"include_once_expression",
		},
		NameFields: []string{"name"},
		BodyTypes:  []string{"compound_statement", "program"},
		ScopeCreators: map[string]ScopeType{
			"program":               ScopeGlobal,
			"class_declaration":     ScopeClass,
			"interface_declaration": ScopeClass,
			"trait_declaration":     ScopeClass,
			"function_definition":   ScopeFunction,
			"method_declaration":    ScopeFunction,
			"compound_statement":    ScopeBlock,
		},
		Grammar: php.GetLanguage,
	},
	"csharp": {
		Name:       "csharp",
		Extensions: []string{".cs"},
		DefinitionTypes: []string{
			"class_declaration", "interface_declaration", "struct_declaration",
			"method_declaration", "field_declaration", "property_declaration",
			"enum_declaration", "delegate_declaration",
			"constructor_declaration", "record_declaration",
		},
		ReferenceTypes: []string{
			"identifier", "member_access_expression",
			"invocation_expression", "generic_name",
		},
		ImportTypes: []string{"using_directive"},
		NameFields:  []string{"name"},
		BodyTypes:   []string{"block", "compilation_unit"},
		ScopeCreators: map[string]ScopeType{
			"compilation_unit":        ScopeGlobal,
			"class_declaration":       ScopeClass,
			"interface_declaration":   ScopeClass,
			"struct_declaration":      ScopeClass,
			"method_declaration":      ScopeFunction,
			"constructor_declaration": ScopeFunction,
			"namespace_declaration":   ScopeNamespace,
			"block":                   ScopeBlock,
		},
		Grammar: csharp.GetLanguage,
	},
}

// extensionToLanguage maps file extensions to language names.
var extensionToLanguage = func() map[string]string {
	m := make(map[string]string)
	for name, cfg := range Languages {
		for _, ext := range cfg.Extensions {
			m[ext] = name
		}
	}
	return m
}()

// LanguageForFile detects the language from a file's extension.
// Returns "" for unrecognized extensions.
func LanguageForFile(path string) string {
	return extensionToLanguage[strings.ToLower(filepath.Ext(path))]
}

// SupportedExtensions lists every recognized file extension.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionToLanguage))
	for ext := range extensionToLanguage {
		exts = append(exts, ext)
	}
	return exts
}

// IsSupportedFile reports whether the file can be analyzed.
func IsSupportedFile(path string) bool {
	return LanguageForFile(path) != ""
}
