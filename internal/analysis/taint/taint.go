// Package taint implements source->sink taint flow analysis at
// function granularity: functions are classified as sources, sinks,
// or sanitizers by name pattern, and a forward BFS over the call graph
// bounded by MAX_DEPTH looks for a path from a taint source to a sink.
// No intra-procedural pass marks tainted expressions, and no
// per-function summaries (tainted parameters, returned taint) are
// built. Grounded on the scope-range extraction style in
// world/dataflow.go.
package taint

import (
	"regexp"

	"cortex/internal/analysis/callgraph"
)

// SourceType classifies where tainted data enters the program.
type SourceType string

const (
	SourceUserInput SourceType = "user_input"
	SourceNetwork   SourceType = "network"
	SourceFile      SourceType = "file"
	SourceEnv       SourceType = "env"
)

// SinkType classifies where tainted data becomes dangerous.
type SinkType string

const (
	SinkSQLQuery   SinkType = "sql_query"
	SinkShellExec  SinkType = "shell_exec"
	SinkFileWrite  SinkType = "file_write"
	SinkHTMLOutput SinkType = "html_output"
)

// Registry entry for one source/sink/sanitizer function-name pattern.
type Rule struct {
	Pattern *regexp.Regexp
	Kind    string // SourceType, SinkType, or sanitizer target SinkType
}

// Registry is the taint function-name catalog: which functions
// introduce taint, which consume it dangerously, and which neutralize
// it for a given sink kind.
type Registry struct {
	Sources    []Rule
	Sinks      []Rule
	Sanitizers []Rule
}

// DefaultRegistry returns a reasonable built-in catalog covering
// common source/sink/sanitizer shapes.
func DefaultRegistry() *Registry {
	return &Registry{
		Sources: []Rule{
			{regexp.MustCompile(`(?i)^(getuserinput|readform|requestparam)`), string(SourceUserInput)},
			{regexp.MustCompile(`(?i)^(readrequest|httpget|networkread)`), string(SourceNetwork)},
			{regexp.MustCompile(`(?i)^(readfile|os\.readfile)`), string(SourceFile)},
			{regexp.MustCompile(`(?i)^(getenv|os\.getenv)`), string(SourceEnv)},
		},
		Sinks: []Rule{
			{regexp.MustCompile(`(?i)(query|exec).*sql|^sink$`), string(SinkSQLQuery)},
			{regexp.MustCompile(`(?i)^(exec\.command|os/exec|shell)`), string(SinkShellExec)},
			{regexp.MustCompile(`(?i)^(writefile|os\.writefile)`), string(SinkFileWrite)},
			{regexp.MustCompile(`(?i)^(render|writehtml|fprintf.*html)`), string(SinkHTMLOutput)},
		},
		Sanitizers: []Rule{
			{regexp.MustCompile(`(?i)^parameterize`), string(SinkSQLQuery)},
			{regexp.MustCompile(`(?i)^(escapeshell|shellquote)`), string(SinkShellExec)},
			{regexp.MustCompile(`(?i)^(htmlescape|sanitizehtml)`), string(SinkHTMLOutput)},
			{regexp.MustCompile(`(?i)^(sanitizepath|cleanpath)`), string(SinkFileWrite)},
		},
	}
}

func matchKind(rules []Rule, name string) (string, bool) {
	for _, r := range rules {
		if r.Pattern.MatchString(name) {
			return r.Kind, true
		}
	}
	return "", false
}

// Finding is one reported source->sink flow.
type Finding struct {
	Source     string
	Sink       string
	Path       []string // function names, source first, sink last
	SinkKind   SinkType
	Sanitized  bool
	Confidence float64
}

const (
	confidenceUnsanitized = 0.75
	confidenceSanitized   = 0.3
)

// Engine runs the bounded BFS over a callgraph.Graph looking for
// source->sink paths.
type Engine struct {
	registry *Registry
	maxDepth int
}

// New builds a taint Engine. maxDepth bounds the BFS (default 50).
func New(registry *Registry, maxDepth int) *Engine {
	if maxDepth <= 0 {
		maxDepth = 50
	}
	return &Engine{registry: registry, maxDepth: maxDepth}
}

// Analyze walks forward from every function matching a source rule,
// over g's call edges, up to maxDepth hops, reporting a Finding for
// every path that reaches a sink. A sanitizer rule matching the sink
// kind anywhere on the path downgrades the finding to sanitized.
func (e *Engine) Analyze(g *callgraph.Graph) []Finding {
	adjacency := map[string][]callgraph.Edge{}
	for _, edge := range g.Edges {
		adjacency[edge.Caller] = append(adjacency[edge.Caller], edge)
	}

	var findings []Finding
	searched := map[string]bool{}
	for _, edge := range g.Edges {
		if _, ok := matchKind(e.registry.Sources, edge.Caller); !ok || searched[edge.Caller] {
			continue
		}
		searched[edge.Caller] = true
		findings = append(findings, e.bfsFromSource(edge.Caller, adjacency)...)
	}
	return findings
}

type bfsState struct {
	node string
	path []string
}

func (e *Engine) bfsFromSource(source string, adjacency map[string][]callgraph.Edge) []Finding {
	var findings []Finding
	visited := map[string]bool{source: true}
	queue := []bfsState{{node: source, path: []string{source}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if len(cur.path) > e.maxDepth {
			continue
		}

		if sinkKind, ok := matchKind(e.registry.Sinks, cur.node); ok && cur.node != source {
			sanitized := pathSanitizes(e.registry, cur.path, SinkType(sinkKind))
			confidence := confidenceUnsanitized
			if sanitized {
				confidence = confidenceSanitized
			}
			findings = append(findings, Finding{
				Source:     source,
				Sink:       cur.node,
				Path:       append([]string{}, cur.path...),
				SinkKind:   SinkType(sinkKind),
				Sanitized:  sanitized,
				Confidence: confidence,
			})
			continue
		}

		for _, edge := range adjacency[cur.node] {
			if visited[edge.Callee] {
				continue
			}
			visited[edge.Callee] = true
			queue = append(queue, bfsState{node: edge.Callee, path: append(append([]string{}, cur.path...), edge.Callee)})
		}
	}
	return findings
}

func pathSanitizes(reg *Registry, path []string, sinkKind SinkType) bool {
	for _, node := range path {
		if kind, ok := matchKind(reg.Sanitizers, node); ok && kind == string(sinkKind) {
			return true
		}
	}
	return false
}
