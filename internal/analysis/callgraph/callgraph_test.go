package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cortex/internal/analysis/parse"
)

func TestBuildResolvesIntraFileCallsAtFullConfidence(t *testing.T) {
	files := map[string][]parse.Element{
		"a.go": {
			{Name: "helper", Kind: parse.KindFunction},
			{Name: "run", Kind: parse.KindFunction, Calls: []parse.CallSite{{Callee: "helper", Line: 5}}},
		},
	}
	g := Build(files)
	assert.Len(t, g.Edges, 1)
	assert.Equal(t, 1.0, g.Edges[0].Confidence)
}

func TestBuildResolvesGlobalCallsAtReducedConfidence(t *testing.T) {
	files := map[string][]parse.Element{
		"a.go": {
			{Name: "run", Kind: parse.KindFunction, Calls: []parse.CallSite{{Callee: "helper", Line: 5}}},
		},
		"b.go": {
			{Name: "helper", Kind: parse.KindFunction},
		},
	}
	g := Build(files)
	assert.Len(t, g.Edges, 1)
	assert.Equal(t, globalConfidence, g.Edges[0].Confidence)
}

func TestBuildMarksAmbiguousNamesZeroConfidence(t *testing.T) {
	files := map[string][]parse.Element{
		"a.go": {
			{Name: "run", Kind: parse.KindFunction, Calls: []parse.CallSite{{Callee: "helper", Line: 5}}},
		},
		"b.go": {{Name: "helper", Kind: parse.KindFunction}},
		"c.go": {{Name: "helper", Kind: parse.KindFunction}},
	}
	g := Build(files)
	assert.Equal(t, 0.0, g.Edges[0].Confidence)
}

func TestBuildMarksUnresolvedCalleeZeroConfidence(t *testing.T) {
	files := map[string][]parse.Element{
		"a.go": {
			{Name: "run", Kind: parse.KindFunction, Calls: []parse.CallSite{{Callee: "ghost", Line: 5}}},
		},
	}
	g := Build(files)
	assert.Equal(t, 0.0, g.Edges[0].Confidence)
}

func TestCallersAndCallees(t *testing.T) {
	files := map[string][]parse.Element{
		"a.go": {
			{Name: "helper", Kind: parse.KindFunction},
			{Name: "run", Kind: parse.KindFunction, Calls: []parse.CallSite{{Callee: "helper", Line: 5}}},
		},
	}
	g := Build(files)
	assert.Len(t, g.Callers("helper"), 1)
	assert.Len(t, g.Callees("run"), 1)
}
