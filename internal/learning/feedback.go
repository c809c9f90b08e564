package learning

import (
	"time"

	"cortex/internal/analysis/pattern"
	"cortex/internal/config"
)

// ActionKind is the kind of feedback a human gave about a detector's
// finding.
type ActionKind string

const (
	ActionFixed         ActionKind = "fixed"
	ActionDismissed     ActionKind = "dismissed"
	ActionFalsePositive ActionKind = "false_positive"
)

// betaDelta maps a feedback action to the (Δα, Δβ) adjustment applied
// to the associated pattern's Beta posterior: a fix confirms the
// detector was right (Δα), a false positive disconfirms it (Δβ), and
// a plain dismissal (not flagged as wrong, just not actioned) carries
// no confidence signal either way.
var betaDelta = map[ActionKind]struct{ Alpha, Beta float64 }{
	ActionFixed:         {1, 0},
	ActionFalsePositive: {0, 1},
	ActionDismissed:     {0, 0},
}

// counters tracks one detector's outcome counts.
type counters struct {
	Fixed          int
	Dismissed      int
	FalsePositives int
}

// FPRate is false_positives / (fixed + dismissed), the denominator
// being every actioned finding regardless of outcome.
func (c counters) FPRate() float64 {
	denom := c.Fixed + c.Dismissed
	if denom == 0 {
		return 0
	}
	return float64(c.FalsePositives) / float64(denom)
}

// dailySnapshot is one day's FP rate, used to detect a sustained
// elevated rate across cfg.FPRateSustainedDays consecutive days.
type dailySnapshot struct {
	day    string
	fpRate float64
}

// Tracker tracks per-detector feedback counts and auto-disables a
// detector whose false-positive rate stays above threshold for
// cfg.FPRateSustainedDays consecutive days. It also adjusts the
// associated pattern's Beta posterior on every action.
type Tracker struct {
	cfg      config.LearningConfig
	patterns *pattern.Engine

	counts    map[string]counters
	history   map[string][]dailySnapshot
	disabled  map[string]bool
	dismissAt map[string][]time.Time // per (detector,user) dismissal timestamps for abuse detection
}

// NewTracker builds a feedback Tracker. patterns may be nil if no
// Beta-confidence adjustment is wanted.
func NewTracker(cfg config.LearningConfig, patterns *pattern.Engine) *Tracker {
	return &Tracker{
		cfg:       cfg,
		patterns:  patterns,
		counts:    map[string]counters{},
		history:   map[string][]dailySnapshot{},
		disabled:  map[string]bool{},
		dismissAt: map[string][]time.Time{},
	}
}

// Record folds one feedback action into detectorID's counters, records
// today's FP-rate snapshot, and applies the matching Beta delta to the
// detector's pattern posterior (if a pattern engine is wired in).
// day is the caller-supplied current date (YYYY-MM-DD); callers pass
// this in rather than the tracker calling time.Now() so evaluation is
// deterministic and replayable.
func (t *Tracker) Record(detectorID string, action ActionKind, day string) {
	c := t.counts[detectorID]
	switch action {
	case ActionFixed:
		c.Fixed++
	case ActionDismissed:
		c.Dismissed++
	case ActionFalsePositive:
		c.FalsePositives++
	}
	t.counts[detectorID] = c

	t.recordSnapshot(detectorID, day, c.FPRate())

	if t.patterns != nil {
		delta := betaDelta[action]
		for i := 0; i < int(delta.Alpha); i++ {
			t.patterns.Update(pattern.Observation{PatternID: detectorID, Positive: true})
		}
		for i := 0; i < int(delta.Beta); i++ {
			t.patterns.Update(pattern.Observation{PatternID: detectorID, Positive: false})
		}
	}
}

func (t *Tracker) recordSnapshot(detectorID, day string, rate float64) {
	hist := t.history[detectorID]
	if len(hist) > 0 && hist[len(hist)-1].day == day {
		hist[len(hist)-1].fpRate = rate
	} else {
		hist = append(hist, dailySnapshot{day: day, fpRate: rate})
	}
	t.history[detectorID] = hist

	if t.sustainedHighFPRate(hist) {
		t.disabled[detectorID] = true
	}
}

// sustainedHighFPRate reports whether the most recent
// cfg.FPRateSustainedDays snapshots all exceed cfg.FPRateThreshold.
func (t *Tracker) sustainedHighFPRate(hist []dailySnapshot) bool {
	window := t.cfg.FPRateSustainedDays
	if window <= 0 || len(hist) < window {
		return false
	}
	recent := hist[len(hist)-window:]
	for _, snap := range recent {
		if snap.fpRate <= t.cfg.FPRateThreshold {
			return false
		}
	}
	return true
}

// Disabled reports whether a detector has been auto-disabled by a
// sustained high false-positive rate.
func (t *Tracker) Disabled(detectorID string) bool {
	return t.disabled[detectorID]
}

// Counters returns a detector's current outcome counts.
func (t *Tracker) Counters(detectorID string) (fixed, dismissed, falsePositives int) {
	c := t.counts[detectorID]
	return c.Fixed, c.Dismissed, c.FalsePositives
}

const (
	abuseWindow     = time.Minute
	abuseThreshold  = 5
)

// RecordDismissal tracks one user's dismissal timestamps for abuse
// detection (a flood of dismissals from a single user in a short
// window, rather than real false-positive signal).
func (t *Tracker) RecordDismissal(detectorID, userID string, at time.Time) {
	key := detectorID + "\x00" + userID
	times := t.dismissAt[key]
	times = append(times, at)
	t.dismissAt[key] = times
}

// IsAbusive reports whether userID has dismissed detectorID's findings
// more than abuseThreshold times within abuseWindow, as of at.
func (t *Tracker) IsAbusive(detectorID, userID string, at time.Time) bool {
	key := detectorID + "\x00" + userID
	count := 0
	for _, ts := range t.dismissAt[key] {
		if at.Sub(ts) <= abuseWindow && !ts.After(at) {
			count++
		}
	}
	return count > abuseThreshold
}
