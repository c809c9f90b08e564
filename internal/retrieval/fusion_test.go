package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRRFFuseRanksOverlapHigher(t *testing.T) {
	sparse := []sparseCandidate{{id: "a", rank: 0}, {id: "b", rank: 1}, {id: "c", rank: 2}}
	dense := []denseCandidate{{id: "a", rank: 0}, {id: "d", rank: 1}, {id: "b", rank: 2}}

	fused := rrfFuse(60, sparse, dense)

	assert.Equal(t, "a", fused[0], "appears top of both lists, should fuse to rank 0")
	assert.Contains(t, fused, "c")
	assert.Contains(t, fused, "d")
}

func TestRRFFuseEmptyInputs(t *testing.T) {
	fused := rrfFuse(60, nil, nil)
	assert.Empty(t, fused)
}

func TestRRFFuseDefaultsKWhenNonPositive(t *testing.T) {
	sparse := []sparseCandidate{{id: "x", rank: 0}}
	fused := rrfFuse(0, sparse, nil)
	assert.Equal(t, []string{"x"}, fused)
}
