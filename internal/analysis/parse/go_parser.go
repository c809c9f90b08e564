package parse

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
)

// GoParser extracts Elements from Go source using the standard
// library's go/ast, the fast native path; tree-sitter is reserved for
// the other four languages.
type GoParser struct{}

// NewGoParser builds the native Go parser.
func NewGoParser() *GoParser { return &GoParser{} }

func (p *GoParser) Language() string              { return "go" }
func (p *GoParser) SupportedExtensions() []string { return []string{".go"} }

// Parse walks every top-level func/method declaration and records the
// call expressions found in its body.
func (p *GoParser) Parse(path string, content []byte) ([]Element, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var elements []Element
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		start := fset.Position(fn.Pos())
		end := fset.Position(fn.End())

		el := Element{
			Kind:      KindFunction,
			Name:      fn.Name.Name,
			File:      path,
			StartLine: start.Line,
			EndLine:   end.Line,
		}
		if fn.Recv != nil && len(fn.Recv.List) > 0 {
			el.Kind = KindMethod
			el.Receiver = receiverTypeName(fn.Recv.List[0].Type)
			el.Name = el.Receiver + "." + fn.Name.Name
		}
		el.Calls = collectCalls(fn.Body, fset)
		elements = append(elements, el)
	}
	return elements, nil
}

// ExtractImports lists every import path in the file, satisfying
// ImportExtractor so the crypto detector can short-circuit gating on
// files that import a known crypto library.
func (p *GoParser) ExtractImports(path string, content []byte) ([]string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}
	imports := make([]string, 0, len(file.Imports))
	for _, imp := range file.Imports {
		unquoted, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			unquoted = strings.Trim(imp.Path.Value, `"`)
		}
		imports = append(imports, unquoted)
	}
	return imports, nil
}

// ExtractLiterals lists every string literal in the file, satisfying
// LiteralExtractor so the crypto detector's hardcoded key/IV/salt
// patterns can match against extracted literals rather than raw
// source text.
func (p *GoParser) ExtractLiterals(path string, content []byte) ([]Literal, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, 0)
	if err != nil {
		return nil, err
	}
	var out []Literal
	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		value, err := strconv.Unquote(lit.Value)
		if err != nil {
			value = strings.Trim(lit.Value, `"`+"`")
		}
		out = append(out, Literal{Value: value, Line: fset.Position(lit.Pos()).Line})
		return true
	})
	return out, nil
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

func collectCalls(body *ast.BlockStmt, fset *token.FileSet) []CallSite {
	if body == nil {
		return nil
	}
	var calls []CallSite
	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		name := calleeName(call.Fun)
		if name == "" {
			return true
		}
		calls = append(calls, CallSite{Callee: name, Line: fset.Position(call.Pos()).Line})
		return true
	})
	return calls
}

func calleeName(expr ast.Expr) string {
	switch f := expr.(type) {
	case *ast.Ident:
		return f.Name
	case *ast.SelectorExpr:
		if ident, ok := f.X.(*ast.Ident); ok {
			return ident.Name + "." + f.Sel.Name
		}
		return f.Sel.Name
	default:
		return ""
	}
}
