package gate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex/internal/config"
	"cortex/internal/types"
)

func testCfg() config.AnalysisConfig {
	return config.Default().Analysis
}

func passGate(id string, deps ...string) Gate {
	return Gate{ID: id, DependsOn: deps, Evaluate: func(ctx context.Context, in Input) ([]Finding, error) {
		return nil, nil
	}}
}

func TestNewRejectsCyclicDependsOn(t *testing.T) {
	gates := []Gate{
		{ID: "a", DependsOn: []string{"b"}, Evaluate: passGate("a").Evaluate},
		{ID: "b", DependsOn: []string{"a"}, Evaluate: passGate("b").Evaluate},
	}
	_, err := New(testCfg(), gates)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindPatternCycle))
}

func TestNewRejectsUnknownDependency(t *testing.T) {
	gates := []Gate{passGate("a", "ghost")}
	_, err := New(testCfg(), gates)
	require.Error(t, err)
}

func TestRunExecutesInDependencyOrder(t *testing.T) {
	var order []string
	gates := []Gate{
		{ID: "lint", Evaluate: func(ctx context.Context, in Input) ([]Finding, error) {
			order = append(order, "lint")
			return nil, nil
		}},
		{ID: "test", DependsOn: []string{"lint"}, Evaluate: func(ctx context.Context, in Input) ([]Finding, error) {
			order = append(order, "test")
			return nil, nil
		}},
	}
	o, err := New(testCfg(), gates)
	require.NoError(t, err)

	results := o.Run(context.Background(), Input{}, nil)
	assert.Equal(t, []string{"lint", "test"}, order)
	assert.Equal(t, StatusPassed, results[0].Status)
	assert.Equal(t, StatusPassed, results[1].Status)
}

func TestRunSkipsWhenDependencyFails(t *testing.T) {
	gates := []Gate{
		{ID: "lint", Evaluate: func(ctx context.Context, in Input) ([]Finding, error) {
			return []Finding{{ContentKey: "k1", Severity: SeverityError}}, nil
		}},
		{ID: "test", DependsOn: []string{"lint"}, Evaluate: func(ctx context.Context, in Input) ([]Finding, error) {
			t.Fatal("test gate should not run when lint failed")
			return nil, nil
		}},
	}
	o, err := New(testCfg(), gates)
	require.NoError(t, err)

	results := o.Run(context.Background(), Input{}, nil)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, StatusSkipped, results[1].Status)
}

func TestRunErrorsOnGateTimeout(t *testing.T) {
	cfg := testCfg()
	cfg.GateTimeoutSeconds = 0 // defaulted internally to 30s, so force via a gate that blocks on ctx

	gates := []Gate{
		{ID: "slow", Evaluate: func(ctx context.Context, in Input) ([]Finding, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	}
	o, err := New(cfg, gates)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already-cancelled parent forces immediate gate timeout
	results := o.Run(ctx, Input{}, nil)
	assert.Equal(t, StatusErrored, results[0].Status)
	assert.True(t, types.IsKind(results[0].Err, types.KindTimeoutExceeded))
}

func TestApplyBaselinePolicyDowngradesKnownFindings(t *testing.T) {
	cfg := testCfg()
	cfg.ProgressivePolicy = config.ProgressivePolicy{Enabled: true, DowngradeBaseline: true}

	baseline := Baseline{"known": true}
	findings := []Finding{
		{ContentKey: "known", Severity: SeverityCritical},
		{ContentKey: "new", Severity: SeverityCritical},
	}

	out := applyBaselinePolicy(findings, baseline, cfg.ProgressivePolicy)
	assert.Equal(t, SeverityError, out[0].Severity)
	assert.Equal(t, SeverityCritical, out[1].Severity)
}

func TestBaselineIsNew(t *testing.T) {
	b := Baseline{"seen": true}
	assert.False(t, b.IsNew(Finding{ContentKey: "seen"}))
	assert.True(t, b.IsNew(Finding{ContentKey: "unseen"}))
}
