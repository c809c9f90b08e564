package parse

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// declNodeTypes and callNodeTypes are the tree-sitter grammar node
// kinds this walker treats as function-like declarations and call
// expressions, per language. Kept table-driven rather than one switch
// per language.
var declNodeTypes = map[string]string{
	"python":     "function_definition",
	"javascript": "function_declaration",
	"typescript": "function_declaration",
	"rust":       "function_item",
}

var callNodeTypes = map[string]string{
	"python":     "call",
	"javascript": "call_expression",
	"typescript": "call_expression",
	"rust":       "call_expression",
}

// importNodeTypes and stringNodeTypes extend the same table-driven
// node-kind lookup to the crypto detector's two extraction needs:
// import statements (for the trusted-library short-circuit) and
// string literals (for hardcoded key/IV/salt patterns).
var importNodeTypes = map[string][]string{
	"python":     {"import_statement", "import_from_statement"},
	"javascript": {"import_statement"},
	"typescript": {"import_statement"},
	"rust":       {"use_declaration"},
}

var stringNodeTypes = map[string]string{
	"python":     "string",
	"javascript": "string",
	"typescript": "string",
	"rust":       "string_literal",
}

// TreeSitterParser extracts Elements for python/javascript/typescript/
// rust via tree-sitter grammars, the four languages wired alongside
// Go (which instead uses go/ast's
// native fast path, see go_parser.go).
type TreeSitterParser struct {
	lang   string
	ext    []string
	parser *sitter.Parser
}

// NewTreeSitterParser builds the parser for one supported language
// ("python", "javascript", "typescript", "rust").
func NewTreeSitterParser(lang string) *TreeSitterParser {
	p := sitter.NewParser()
	switch lang {
	case "python":
		p.SetLanguage(python.GetLanguage())
	case "javascript":
		p.SetLanguage(javascript.GetLanguage())
	case "typescript":
		p.SetLanguage(typescript.GetLanguage())
	case "rust":
		p.SetLanguage(rust.GetLanguage())
	}
	return &TreeSitterParser{lang: lang, ext: extensionsFor(lang), parser: p}
}

func extensionsFor(lang string) []string {
	switch lang {
	case "python":
		return []string{".py"}
	case "javascript":
		return []string{".js", ".jsx"}
	case "typescript":
		return []string{".ts", ".tsx"}
	case "rust":
		return []string{".rs"}
	default:
		return nil
	}
}

func (p *TreeSitterParser) Language() string              { return p.lang }
func (p *TreeSitterParser) SupportedExtensions() []string { return p.ext }

// Parse walks the tree-sitter parse tree and extracts every
// declaration-shaped node plus the call expressions nested within it.
func (p *TreeSitterParser) Parse(path string, content []byte) ([]Element, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	declType := declNodeTypes[p.lang]
	callType := callNodeTypes[p.lang]

	var elements []Element
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == declType {
			elements = append(elements, extractElement(n, path, content, callType))
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return elements, nil
}

// ExtractImports returns the raw text of every import/use statement in
// the file. Unlike the Go path these aren't resolved to bare module
// paths (tree-sitter grammars vary too much for one generic rule), so
// callers match against known crypto-library substrings instead of
// exact equality.
func (p *TreeSitterParser) ExtractImports(path string, content []byte) ([]string, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	types := importNodeTypes[p.lang]
	if len(types) == 0 {
		return nil, nil
	}
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for _, t := range types {
			if n.Type() == t {
				out = append(out, strings.TrimSpace(n.Content(content)))
				break
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}

// ExtractLiterals returns every string literal in the file with its
// line, quotes stripped.
func (p *TreeSitterParser) ExtractLiterals(path string, content []byte) ([]Literal, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	strType := stringNodeTypes[p.lang]
	if strType == "" {
		return nil, nil
	}
	var out []Literal
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == strType {
			value := strings.Trim(n.Content(content), `"'`+"`")
			out = append(out, Literal{Value: value, Line: int(n.StartPoint().Row) + 1})
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}

func extractElement(n *sitter.Node, path string, content []byte, callType string) Element {
	name := "anonymous"
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(content)
	}
	el := Element{
		Kind:      KindFunction,
		Name:      name,
		File:      path,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}

	var walkCalls func(c *sitter.Node)
	walkCalls = func(c *sitter.Node) {
		if c.Type() == callType {
			if fn := c.ChildByFieldName("function"); fn != nil {
				el.Calls = append(el.Calls, CallSite{
					Callee: fn.Content(content),
					Line:   int(c.StartPoint().Row) + 1,
				})
			}
		}
		for i := 0; i < int(c.ChildCount()); i++ {
			walkCalls(c.Child(i))
		}
	}
	walkCalls(n)
	return el
}
