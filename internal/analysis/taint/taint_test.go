package taint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cortex/internal/analysis/callgraph"
)

func graphOf(edges ...callgraph.Edge) *callgraph.Graph {
	return &callgraph.Graph{Edges: edges}
}

// S6: sink(getUserInput()) with no sanitizer on the path reports
// SourceType::UserInput -> SinkType::SqlQuery, unsanitized, confidence 0.75.
func TestS6UnsanitizedUserInputToSQLSink(t *testing.T) {
	g := graphOf(callgraph.Edge{Caller: "getUserInput", Callee: "sink", Confidence: 1.0})

	e := New(DefaultRegistry(), 50)
	findings := e.Analyze(g)

	assert.Len(t, findings, 1)
	assert.Equal(t, "getUserInput", findings[0].Source)
	assert.Equal(t, "sink", findings[0].Sink)
	assert.Equal(t, SinkSQLQuery, findings[0].SinkKind)
	assert.False(t, findings[0].Sanitized)
	assert.Equal(t, 0.75, findings[0].Confidence)
}

// S6 continued: inserting parameterize(...) on the path flips the
// finding to sanitized, confidence 0.3.
func TestS6SanitizedViaParameterize(t *testing.T) {
	g := graphOf(
		callgraph.Edge{Caller: "getUserInput", Callee: "parameterize", Confidence: 1.0},
		callgraph.Edge{Caller: "parameterize", Callee: "sink", Confidence: 1.0},
	)

	e := New(DefaultRegistry(), 50)
	findings := e.Analyze(g)

	assert.Len(t, findings, 1)
	assert.True(t, findings[0].Sanitized)
	assert.Equal(t, 0.3, findings[0].Confidence)
	assert.Equal(t, []string{"getUserInput", "parameterize", "sink"}, findings[0].Path)
}

func TestAnalyzeFindsNothingWithoutASource(t *testing.T) {
	g := graphOf(callgraph.Edge{Caller: "helper", Callee: "sink", Confidence: 1.0})
	e := New(DefaultRegistry(), 50)
	assert.Empty(t, e.Analyze(g))
}

func TestAnalyzeRespectsMaxDepth(t *testing.T) {
	// a long chain of unrelated hops between source and sink, deeper
	// than maxDepth, should never reach the sink.
	edges := []callgraph.Edge{{Caller: "getUserInput", Callee: "hop0", Confidence: 1.0}}
	for i := 0; i < 10; i++ {
		edges = append(edges, callgraph.Edge{Caller: hopName(i), Callee: hopName(i + 1), Confidence: 1.0})
	}
	edges = append(edges, callgraph.Edge{Caller: hopName(10), Callee: "sink", Confidence: 1.0})

	e := New(DefaultRegistry(), 3)
	findings := e.Analyze(graphOf(edges...))
	assert.Empty(t, findings)
}

func hopName(i int) string {
	return "hop" + string(rune('0'+i))
}

func TestDefaultMaxDepthAppliedWhenNonPositive(t *testing.T) {
	e := New(DefaultRegistry(), 0)
	assert.Equal(t, 50, e.maxDepth)
}
