// Package callgraph builds a whole-program call graph from parsed
// Elements in two passes: intra-file resolution (confidence 1.0, the
// call site and its callee are in the same parse unit, so the match
// is exact) followed by a global by-name pass for anything left
// unresolved (confidence <= 0.7 for a unique name match across files,
// 0.0, i.e. reported but left unresolved, for an ambiguous or
// missing name). Grounded on the scope-range resolution style in
// world/dataflow.go and world/dataflow_multilang.go.
package callgraph

import "cortex/internal/analysis/parse"

// Edge is one resolved (or attempted) call from caller to callee.
type Edge struct {
	Caller     string
	Callee     string
	File       string
	Line       int
	Confidence float64
}

// Graph is the resolved call graph for a set of parsed files.
type Graph struct {
	Edges []Edge
}

// globalConfidence is the confidence assigned to a callee resolved
// only by matching its bare name against a single declaration
// elsewhere in the program (no import/type information available at
// this layer to disambiguate further).
const globalConfidence = 0.7

// Build runs the two-pass resolution over every Element extracted
// from files (already grouped by file by the caller).
func Build(filesElements map[string][]parse.Element) *Graph {
	g := &Graph{}

	// declByName indexes every declared function/method by its bare
	// name for the global pass; declByFile narrows the intra-file pass.
	declByName := map[string][]declLocation{}
	declByFile := map[string]map[string]bool{}
	for file, elements := range filesElements {
		declByFile[file] = map[string]bool{}
		for _, el := range elements {
			declByFile[file][el.Name] = true
			declByName[el.Name] = append(declByName[el.Name], declLocation{file: file})
			if el.Receiver != "" {
				// also index the bare method name, since call sites
				// inside the same file often call it unqualified via
				// a local receiver variable the parser can't resolve.
				bare := el.Name[len(el.Receiver)+1:]
				declByName[bare] = append(declByName[bare], declLocation{file: file})
			}
		}
	}

	for file, elements := range filesElements {
		for _, el := range elements {
			for _, call := range el.Calls {
				name := localName(call.Callee)

				if declByFile[file][call.Callee] || declByFile[file][name] {
					g.Edges = append(g.Edges, Edge{
						Caller: el.Name, Callee: call.Callee, File: file, Line: call.Line, Confidence: 1.0,
					})
					continue
				}

				locs := uniqueFiles(declByName[name])
				switch len(locs) {
				case 0:
					g.Edges = append(g.Edges, Edge{
						Caller: el.Name, Callee: call.Callee, File: file, Line: call.Line, Confidence: 0.0,
					})
				case 1:
					g.Edges = append(g.Edges, Edge{
						Caller: el.Name, Callee: call.Callee, File: file, Line: call.Line, Confidence: globalConfidence,
					})
				default:
					// ambiguous: more than one file declares this name
					g.Edges = append(g.Edges, Edge{
						Caller: el.Name, Callee: call.Callee, File: file, Line: call.Line, Confidence: 0.0,
					})
				}
			}
		}
	}
	return g
}

type declLocation struct {
	file string
}

func uniqueFiles(locs []declLocation) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range locs {
		if !seen[l.file] {
			seen[l.file] = true
			out = append(out, l.file)
		}
	}
	return out
}

// localName strips a "Receiver.Method" or "pkg.Func" qualifier down to
// the trailing identifier, since cross-file resolution only has bare
// declaration names to match against.
func localName(callee string) string {
	for i := len(callee) - 1; i >= 0; i-- {
		if callee[i] == '.' {
			return callee[i+1:]
		}
	}
	return callee
}

// Callers returns every edge whose callee is name, across the graph.
func (g *Graph) Callers(name string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Callee == name || localName(e.Callee) == name {
			out = append(out, e)
		}
	}
	return out
}

// Callees returns every edge whose caller is name.
func (g *Graph) Callees(name string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Caller == name {
			out = append(out, e)
		}
	}
	return out
}
