package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/config"
)

func TestRedactAPIKey(t *testing.T) {
	e := New(config.Default().Privacy)
	out, findings := e.Redact("api_key=sk-abcdefghij1234567890")
	assert.NotContains(t, out, "abcdefghij1234567890")
	require.NotEmpty(t, findings)
}

func TestRedactIsIdempotent(t *testing.T) {
	e := New(config.Default().Privacy)
	once, _ := e.Redact("password=hunter22 token=zzzzzzzzzzz")
	twice, _ := e.Redact(once)
	assert.Equal(t, once, twice)
}

func TestRedactLeavesCleanTextUnchanged(t *testing.T) {
	e := New(config.Default().Privacy)
	out, findings := e.Redact("this is a perfectly normal sentence about retries")
	assert.Equal(t, "this is a perfectly normal sentence about retries", out)
	assert.Empty(t, findings)
}

func TestSeverityDiscountedInTestContext(t *testing.T) {
	e := New(config.Default().Privacy)
	prod := e.Severity(4, "internal/auth/login.go")
	test := e.Severity(4, "internal/auth/login_test.go")
	assert.Less(t, test, prod)
}

func TestIsTestContextDetectsFixtures(t *testing.T) {
	assert.True(t, IsTestContext("internal/foo/fixtures/sample.go"))
	assert.True(t, IsTestContext("internal/foo/bar_test.go"))
	assert.False(t, IsTestContext("internal/foo/bar.go"))
}
