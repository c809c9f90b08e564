package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cortex/internal/types"
)

func TestCategorizeDetectsSecurity(t *testing.T) {
	assert.Equal(t, CategorySecurity, Categorize("this query is vulnerable to sql injection"))
}

func TestCategorizeDetectsPerformance(t *testing.T) {
	assert.Equal(t, CategoryPerformance, Categorize("this causes an n+1 query on every request"))
}

func TestCategorizeFallsBackToOther(t *testing.T) {
	assert.Equal(t, CategoryOther, Categorize("please rephrase this docstring"))
}

func TestCategoryDefaultsMapToExpectedTypeAndImportance(t *testing.T) {
	memType, importance := CategorySecurity.Defaults()
	assert.Equal(t, types.MemorySecurityFinding, memType)
	assert.Equal(t, types.ImportanceCritical, importance)

	memType, importance = CategoryNaming.Defaults()
	assert.Equal(t, types.MemoryPreference, memType)
	assert.Equal(t, types.ImportanceLow, importance)
}
