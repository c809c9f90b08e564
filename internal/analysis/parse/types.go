// Package parse implements the Parser & Call Graph front end:
// language-specific extraction of functions, methods, and calls into
// a unified Element representation. Interface shape and the
// native/tree-sitter split are grounded directly on an internal/world
// package (parser_interface.go's CodeParser, go_parser.go's go/ast
// fast path, ast_treesitter.go's grammar-backed path for the
// remaining languages).
package parse

// ElementKind classifies one extracted code element.
type ElementKind string

const (
	KindFunction ElementKind = "function"
	KindMethod   ElementKind = "method"
	KindCall     ElementKind = "call"
)

// Element is one language-agnostic unit extracted from a source file:
// a function/method declaration, or a call site found within one.
type Element struct {
	Kind      ElementKind
	Name      string // bare for functions ("Func"), "Type.Method" for Go methods
	File      string
	StartLine int
	EndLine   int
	Receiver  string // non-empty for KindMethod
	Calls     []CallSite
}

// CallSite is one function/method invocation found inside an Element's body.
type CallSite struct {
	Callee string // best-effort resolved name; may be unqualified
	Line   int
}

// LanguageParser is the per-language extraction contract, generalized
// from a CodeParser interface.
type LanguageParser interface {
	Language() string
	SupportedExtensions() []string
	Parse(path string, content []byte) ([]Element, error)
}

// Literal is a string literal found in source, with the line it
// appears on. It feeds the crypto detector's hardcoded key/IV/salt
// pattern catalog (internal/analysis/taint).
type Literal struct {
	Value string
	Line  int
}

// ImportExtractor is an optional capability a LanguageParser may
// implement: list every module/package imported by a file. Kept
// separate from LanguageParser itself so adding it to one parser
// never forces a stub implementation on the others.
type ImportExtractor interface {
	ExtractImports(path string, content []byte) ([]string, error)
}

// LiteralExtractor is an optional capability a LanguageParser may
// implement: list every string literal in a file, for the crypto
// detector's hardcoded-secret and missing-IV literal rules.
type LiteralExtractor interface {
	ExtractLiterals(path string, content []byte) ([]Literal, error)
}
