package compression

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"cortex/internal/config"
	"cortex/internal/memory"
	"cortex/internal/types"
)

// Level identifies one of the four compression tiers.
type Level int

const (
	L0 Level = iota // ~10 tokens, micro-headline
	L1              // ~75 tokens, headline
	L2              // ~300 tokens, summary
	L3              // ~1000 tokens, lossless at the metadata level
)

const unassigned Level = -1

// Compressor derives L0-L3 summaries from a memory's raw content using
// extractive heuristics (sentence ranking + truncation), deliberately
// avoiding any network-bound LLM call: the embedding/summarization
// chain in this deployment is fully local and deterministic.
type Compressor struct {
	cfg config.CompressionConfig
}

// New builds a Compressor from configuration.
func New(cfg config.CompressionConfig) *Compressor {
	return &Compressor{cfg: cfg}
}

var sentenceSplit = regexp.MustCompile(`(?:[.!?]+\s+|\n+)`)

// Budget returns the token budget for a compression level.
func (c *Compressor) Budget(l Level) int {
	switch l {
	case L1:
		return c.cfg.L1Tokens
	case L2:
		return c.cfg.L2Tokens
	case L3:
		return c.cfg.L3Tokens
	default:
		return c.cfg.L0Tokens
	}
}

// Compress fills r.SummaryL1/L2/L3 from r.Content and its link
// collections, enforcing the strict per-level token budget: never
// exceed budget, and L3 is lossless at the metadata level (carries
// the id, a summary, every tag, every linked file and function, and
// every linked pattern and constraint) rather than a further
// extractive truncation of L2.
func (c *Compressor) Compress(r *memory.Record) {
	r.SummaryL1 = c.CompressTo(r, L1)
	r.SummaryL2 = c.CompressTo(r, L2)
	r.SummaryL3 = c.CompressTo(r, L3)
}

// CompressTo renders r at a single level without mutating it: L0-L2
// are extractive truncations of Content, L3 is the lossless-at-metadata
// composition built by composeL3.
func (c *Compressor) CompressTo(r *memory.Record, level Level) string {
	if level == L3 {
		return c.composeL3(r)
	}
	return c.compressToFit(r.Content, c.Budget(level))
}

// composeL3 builds the lossless-at-metadata L3 text: the memory id, a
// summary (the full Content, shrunk only when the whole composition
// overruns the L3 budget), and every
// tag, linked file, function, pattern, and constraint the memory
// carries, each on its own labeled line. The whole composition is then
// truncated to the L3 budget only as a last resort, summary first,
// metadata lines preserved as long as possible since they are what
// L3 promises never to drop.
func (c *Compressor) composeL3(r *memory.Record) string {
	budget := c.Budget(L3)

	summary := r.Content

	var b strings.Builder
	fmt.Fprintf(&b, "id: %s\n", r.ID)
	fmt.Fprintf(&b, "summary: %s\n", summary)
	writeListLine(&b, "tags", r.Tags)

	files := r.LinkedFiles
	if r.SourceFile != "" {
		files = append([]string{r.SourceFile}, files...)
	}
	writeListLine(&b, "files", files)
	writeListLine(&b, "functions", r.Functions)
	writeListLine(&b, "patterns", r.Patterns)
	writeListLine(&b, "constraints", r.Constraints)

	text := strings.TrimRight(b.String(), "\n")
	if EstimateTokens(text) <= budget {
		return text
	}

	// Over budget: shrink the summary line first, metadata lines last.
	metaBudget := budget - EstimateTokens(text) + EstimateTokens(summary)
	if metaBudget < 0 {
		metaBudget = 0
	}
	shrunkSummary := c.compressToFit(summary, metaBudget)
	text = strings.Replace(text, "summary: "+summary, "summary: "+shrunkSummary, 1)
	if EstimateTokens(text) <= budget {
		return text
	}
	return truncateToTokenBudget(text, budget)
}

func writeListLine(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: -\n", label)
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(items, ", "))
}

// BatchAssignment is one record's outcome from CompressBatchToFit: the
// level it was compressed to and the rendered text at that level.
type BatchAssignment struct {
	Record *memory.Record
	Level  Level
	Text   string
	Tokens int
}

// CompressBatchToFit packs batch into budget tokens total, following
// the priority-driven compression-ladder algorithm: sort by
// importance_weight * confidence * intent_boost descending, guarantee
// every Critical-importance memory at least an L1 summary while
// budget allows it, then greedily upgrade one compression level at a
// time in priority order as long as the running total stays within
// budget. A budget of zero (or an empty batch) returns no assignments.
func (c *Compressor) CompressBatchToFit(batch []*memory.Record, budget int, intentType string) []BatchAssignment {
	if budget <= 0 || len(batch) == 0 {
		return nil
	}

	ordered := make([]*memory.Record, len(batch))
	copy(ordered, batch)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priority(ordered[i], intentType) > priority(ordered[j], intentType)
	})

	assign := make([]BatchAssignment, len(ordered))
	for i, r := range ordered {
		assign[i] = BatchAssignment{Record: r, Level: unassigned}
	}

	total := 0

	// Critical-gets-L1-minimum guarantee, in priority order.
	for i := range assign {
		if assign[i].Record.Importance != types.ImportanceCritical {
			continue
		}
		text := c.CompressTo(assign[i].Record, L1)
		tokens := EstimateTokens(text)
		if total+tokens > budget {
			continue
		}
		assign[i].Level, assign[i].Text, assign[i].Tokens = L1, text, tokens
		total += tokens
	}

	// Greedy one-level-at-a-time upgrade.
	for {
		upgraded := false
		for i := range assign {
			next, ok := nextLevel(assign[i].Level)
			if !ok {
				continue
			}
			text := c.CompressTo(assign[i].Record, next)
			tokens := EstimateTokens(text)
			if total+(tokens-assign[i].Tokens) > budget {
				continue
			}
			total += tokens - assign[i].Tokens
			assign[i].Level, assign[i].Text, assign[i].Tokens = next, text, tokens
			upgraded = true
		}
		if !upgraded {
			break
		}
	}

	var out []BatchAssignment
	for _, a := range assign {
		if a.Level == unassigned {
			continue
		}
		out = append(out, a)
	}
	return out
}

func nextLevel(current Level) (Level, bool) {
	switch current {
	case unassigned:
		return L0, true
	case L0:
		return L1, true
	case L1:
		return L2, true
	case L2:
		return L3, true
	default:
		return L3, false
	}
}

// priority implements importance_weight * confidence * intent_boost:
// confidence defaults to a neutral 1.0 floor so a record with an
// unset Confidence is never starved purely for lacking that field.
func priority(r *memory.Record, intentType string) float64 {
	confidence := r.Confidence
	if confidence <= 0 {
		confidence = 1.0
	}
	return r.Importance.Weight() * confidence * intentBoost(r, intentType)
}

// intentBoost mirrors internal/retrieval's scorer-side intent
// matching, reimplemented locally (rather than imported) to keep
// internal/compression free of a dependency on internal/retrieval,
// which itself depends on internal/compression.
func intentBoost(r *memory.Record, intentType string) float64 {
	const boosted = 1.25
	switch intentType {
	case "debugging":
		if r.Type == "bug_report" || r.Type == "fix_record" || r.Type == "security_finding" {
			return boosted
		}
	case "implementing":
		if r.Type == "procedural" || r.Type == "pattern" || r.Type == "api_contract" {
			return boosted
		}
	case "reviewing":
		if r.Type == "review_finding" || r.Type == "constraint" || r.Type == "decision" {
			return boosted
		}
	}
	return 1.0
}

// compressToFit picks the leading sentences of content that fit
// within budget tokens, extractive-summarization style: it never
// fabricates text, only selects and truncates what is already there.
func (c *Compressor) compressToFit(content string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if EstimateTokens(content) <= budget {
		return content
	}

	sentences := sentenceSplit.Split(strings.TrimSpace(content), -1)
	var b strings.Builder
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		candidate := s
		if b.Len() > 0 {
			candidate = b.String() + ". " + s
		}
		if EstimateTokens(candidate) > budget {
			if b.Len() == 0 {
				return truncateToTokenBudget(s, budget)
			}
			break
		}
		b.Reset()
		b.WriteString(candidate)
	}
	if b.Len() == 0 {
		return truncateToTokenBudget(content, budget)
	}
	return b.String()
}

// truncateToTokenBudget hard-truncates on a word boundary so a single
// long sentence can never blow the budget.
func truncateToTokenBudget(s string, budget int) string {
	maxChars := budget * int(charsPerToken)
	if len(s) <= maxChars {
		return s
	}
	cut := s[:maxChars]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}
