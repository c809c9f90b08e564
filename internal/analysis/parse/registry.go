package parse

import (
	"path/filepath"
	"strings"

	"cortex/internal/types"
)

// Registry dispatches a file path to its language's LanguageParser by
// extension, a parser_factory.go role generalized to this module's
// reduced five-language set.
type Registry struct {
	byExt map[string]LanguageParser
}

// NewRegistry builds a Registry with the native Go parser plus
// tree-sitter parsers for python/javascript/typescript/rust.
func NewRegistry() *Registry {
	r := &Registry{byExt: map[string]LanguageParser{}}
	r.register(NewGoParser())
	for _, lang := range []string{"python", "javascript", "typescript", "rust"} {
		r.register(NewTreeSitterParser(lang))
	}
	return r
}

func (r *Registry) register(p LanguageParser) {
	for _, ext := range p.SupportedExtensions() {
		r.byExt[ext] = p
	}
}

// ParserFor returns the LanguageParser registered for path's
// extension, or (nil, false) if the language isn't supported.
func (r *Registry) ParserFor(path string) (LanguageParser, bool) {
	p, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return p, ok
}

// Parse dispatches path to its language parser and extracts Elements.
func (r *Registry) Parse(path string, content []byte) ([]Element, error) {
	p, ok := r.ParserFor(path)
	if !ok {
		return nil, types.NewError(types.KindValidation, "no parser registered for %s", path)
	}
	return p.Parse(path, content)
}

// SecurityContext is the AST-extracted surface the crypto detector
// runs its pattern catalog against: never raw source text, always
// imports and literals the language parser itself identified.
type SecurityContext struct {
	Imports  []string
	Literals []Literal
}

// ExtractSecurityContext dispatches path to its language parser's
// optional ImportExtractor/LiteralExtractor capabilities. A parser
// that implements neither (none currently don't) yields an empty,
// non-error SecurityContext, so callers can run uniformly over a
// mixed-language tree without per-language branching.
func (r *Registry) ExtractSecurityContext(path string, content []byte) (SecurityContext, error) {
	p, ok := r.ParserFor(path)
	if !ok {
		return SecurityContext{}, types.NewError(types.KindValidation, "no parser registered for %s", path)
	}

	var ctx SecurityContext
	if ie, ok := p.(ImportExtractor); ok {
		imports, err := ie.ExtractImports(path, content)
		if err != nil {
			return SecurityContext{}, err
		}
		ctx.Imports = imports
	}
	if le, ok := p.(LiteralExtractor); ok {
		literals, err := le.ExtractLiterals(path, content)
		if err != nil {
			return SecurityContext{}, err
		}
		ctx.Literals = literals
	}
	return ctx, nil
}
