package compression

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cortex/internal/config"
	"cortex/internal/memory"
	"cortex/internal/types"
)

func TestCompressNeverExceedsBudget(t *testing.T) {
	c := New(config.Default().Compression)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	long := strings.Repeat("This sentence describes a subtle invariant in the retrieval scorer. ", 80)
	r := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, long)

	c.Compress(r)

	assert.LessOrEqual(t, EstimateTokens(r.SummaryL1), c.Budget(L1))
	assert.LessOrEqual(t, EstimateTokens(r.SummaryL2), c.Budget(L2))
	assert.LessOrEqual(t, EstimateTokens(r.SummaryL3), c.Budget(L3))
}

func TestCompressLevelsAreNonDecreasingInLength(t *testing.T) {
	c := New(config.Default().Compression)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	long := strings.Repeat("Each clause adds a little more detail to the running explanation. ", 80)
	r := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, long)

	c.Compress(r)

	assert.LessOrEqual(t, len(r.SummaryL1), len(r.SummaryL2))
	assert.LessOrEqual(t, len(r.SummaryL2), len(r.SummaryL3))
}

func TestCompressShortContentPassesThrough(t *testing.T) {
	c := New(config.Default().Compression)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, "short note")

	c.Compress(r)

	assert.Equal(t, "short note", r.SummaryL1)
	assert.Equal(t, "short note", r.SummaryL2)
}

// TestCompressL3CarriesAllMetadata is the literal S1 scenario: a
// memory about a bcrypt fix, tagged no-md5, sourced from
// src/auth/hash.go, must have its L3 text contain the fact, the tag,
// and the file even though an L2-sized extract of Content would stop
// well before reaching the fact.
func TestCompressL3CarriesAllMetadata(t *testing.T) {
	c := New(config.Default().Compression)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	content := strings.Repeat("Padding sentence to push real content past the summary budget. ", 40) +
		"Switched password hashing to bcrypt because md5 is no longer acceptable."
	r := memory.New(ns, types.MemorySecurityFinding, types.ImportanceHigh, content)
	r.SourceFile = "src/auth/hash.go"
	r.Tags = []string{"no-md5"}

	text := c.CompressTo(r, L3)

	assert.Contains(t, text, "bcrypt")
	assert.Contains(t, text, "src/auth/hash.go")
	assert.Contains(t, text, "no-md5")
	assert.LessOrEqual(t, EstimateTokens(text), c.Budget(L3))
}

func TestCompressBatchToFitRespectsBudget(t *testing.T) {
	c := New(config.Default().Compression)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)

	var batch []*memory.Record
	for i := 0; i < 10; i++ {
		r := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, strings.Repeat("word ", 400))
		batch = append(batch, r)
	}

	out := c.CompressBatchToFit(batch, 200, "")

	total := 0
	for _, a := range out {
		total += a.Tokens
	}
	assert.LessOrEqual(t, total, 200)
}

func TestCompressBatchToFitEmptyBudgetReturnsNothing(t *testing.T) {
	c := New(config.Default().Compression)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)
	r := memory.New(ns, types.MemoryInsight, types.ImportanceNormal, "anything")

	out := c.CompressBatchToFit([]*memory.Record{r}, 0, "")

	assert.Empty(t, out)
}

func TestCompressBatchToFitGuaranteesCriticalL1(t *testing.T) {
	c := New(config.Default().Compression)
	ns, _ := types.ParseNamespace(types.DefaultNamespace)

	critical := memory.New(ns, types.MemorySecurityFinding, types.ImportanceCritical, strings.Repeat("word ", 400))
	var batch []*memory.Record
	for i := 0; i < 20; i++ {
		batch = append(batch, memory.New(ns, types.MemoryInsight, types.ImportanceLow, strings.Repeat("word ", 400)))
	}
	batch = append(batch, critical)

	out := c.CompressBatchToFit(batch, c.Budget(L1), "")

	var found bool
	for _, a := range out {
		if a.Record.ID == critical.ID {
			found = true
			assert.GreaterOrEqual(t, a.Level, L1)
		}
	}
	assert.True(t, found, "Critical-importance memory must receive at least an L1 summary")
}
