package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cortex/internal/analysis/pattern"
	"cortex/internal/config"
)

func testLearningCfg() config.LearningConfig {
	cfg := config.Default().Learning
	cfg.FPRateThreshold = 0.5
	cfg.FPRateSustainedDays = 3
	return cfg
}

func TestFPRateComputation(t *testing.T) {
	c := counters{Fixed: 2, Dismissed: 2, FalsePositives: 1}
	assert.InDelta(t, 0.25, c.FPRate(), 1e-9)
}

func TestFPRateZeroWhenNoActionedFindings(t *testing.T) {
	c := counters{FalsePositives: 0}
	assert.Equal(t, 0.0, c.FPRate())
}

func TestTrackerAutoDisablesOnSustainedHighFPRate(t *testing.T) {
	tr := NewTracker(testLearningCfg(), nil)

	days := []string{"2026-07-29", "2026-07-30", "2026-07-31"}
	for _, day := range days {
		tr.Record("detector-x", ActionFalsePositive, day)
		tr.Record("detector-x", ActionDismissed, day)
	}

	assert.True(t, tr.Disabled("detector-x"))
}

func TestTrackerDoesNotDisableOnTransientSpike(t *testing.T) {
	tr := NewTracker(testLearningCfg(), nil)

	tr.Record("detector-y", ActionFixed, "2026-07-29")
	tr.Record("detector-y", ActionFixed, "2026-07-30")
	tr.Record("detector-y", ActionFalsePositive, "2026-07-31")

	assert.False(t, tr.Disabled("detector-y"))
}

func TestTrackerAdjustsPatternConfidenceOnFeedback(t *testing.T) {
	patterns := pattern.New(config.Default().Analysis.PatternConfidence)
	tr := NewTracker(testLearningCfg(), patterns)

	tr.Record("detector-z", ActionFixed, "2026-07-31")
	p := patterns.Posterior("detector-z")
	assert.Equal(t, 2.0, p.Alpha)
	assert.Equal(t, 1.0, p.Beta)

	tr.Record("detector-z", ActionFalsePositive, "2026-07-31")
	p = patterns.Posterior("detector-z")
	assert.Equal(t, 2.0, p.Alpha)
	assert.Equal(t, 2.0, p.Beta)
}

func TestIsAbusiveDetectsDismissalFlood(t *testing.T) {
	tr := NewTracker(testLearningCfg(), nil)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	for i := 0; i < abuseThreshold+1; i++ {
		tr.RecordDismissal("detector-w", "user1", base.Add(time.Duration(i)*time.Second))
	}
	assert.True(t, tr.IsAbusive("detector-w", "user1", base.Add(10*time.Second)))
}

func TestIsAbusiveFalseForSparseDismissals(t *testing.T) {
	tr := NewTracker(testLearningCfg(), nil)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	tr.RecordDismissal("detector-w", "user2", base)
	assert.False(t, tr.IsAbusive("detector-w", "user2", base.Add(time.Second)))
}
