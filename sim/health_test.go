package sim_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardsim/wardsim/sim"
	"github.com/wardsim/wardsim/sim/internal/testutil"
)

func TestHealth_Transition_OutcomeBands(t *testing.T) {
	// Untreated Pneumonia: cure 0.03, death 0.002.
	tests := []struct {
		name         string
		draw         float64
		wantTerminal bool
		wantOutcome  sim.Outcome
	}{
		{"below cure recovers", 0.02, true, sim.OutcomeRecovered},
		{"death band", 0.031, true, sim.OutcomeDeceased},
		{"above both stays open", 0.5, false, sim.OutcomeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.openCase(t, 1, 1, 0)
			health, src := f.health(t, testutil.Draw(tt.draw))

			terminal, err := health.Transition(context.Background(), c, testutil.At(1))

			require.NoError(t, err)
			assert.Equal(t, tt.wantTerminal, terminal)
			assert.Equal(t, tt.wantOutcome, c.Outcome)
			assert.Zero(t, src.Remaining())
			if tt.wantTerminal {
				require.Len(t, f.store.Bills(), 1)
				row := f.store.Logs()[0]
				assert.Equal(t, tt.wantOutcome, row.Outcome)
				require.NotNil(t, row.DischargedAt)
				assert.Equal(t, testutil.At(1), *row.DischargedAt)
			} else {
				assert.Empty(t, f.store.Bills())
			}
		})
	}
}

func TestHealth_Transition_AutoDischargeThresholds(t *testing.T) {
	// Pneumonia admitted at hour 0; an open tick consumes one draw of 0.9.
	diagnosedAt := func(h int) *time.Time { d := testutil.At(h); return &d }
	tests := []struct {
		name        string
		diagnosed   *time.Time
		hour        int
		wantOutcome sim.Outcome
	}{
		{"undiagnosed one hour short stays open", nil, 71, sim.OutcomeNone},
		{"undiagnosed at 72 hours is transferred", nil, 72, sim.OutcomeTransferred},
		{"diagnosed 23 hours ago stays open", diagnosedAt(2), 25, sim.OutcomeNone},
		{"diagnosed 24 hours ago recovers", diagnosedAt(2), 26, sim.OutcomeRecovered},
		{"diagnosed case is not transferred at 72 hours", diagnosedAt(60), 72, sim.OutcomeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.openCase(t, 1, 1, 0)
			c.DiagnosedAt = tt.diagnosed
			var draws []int64
			if tt.wantOutcome == sim.OutcomeNone {
				draws = append(draws, testutil.Draw(0.9))
			}
			health, src := f.health(t, draws...)

			terminal, err := health.Transition(context.Background(), c, testutil.At(tt.hour))

			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome != sim.OutcomeNone, terminal)
			assert.Equal(t, tt.wantOutcome, c.Outcome)
			assert.Zero(t, src.Remaining(), "auto-discharge happens before sampling")
			if !terminal {
				assert.Empty(t, f.store.Bills())
				return
			}
			discharge := f.rec.OfKind(sim.KindDischarge)
			require.Len(t, discharge, 1)
			assert.Equal(t, tt.hour, discharge[0].Attrs["stay_hours"])
			row := f.store.Logs()[0]
			if tt.diagnosed != nil {
				require.NotNil(t, row.DiagnosedAt)
				assert.Equal(t, *tt.diagnosed, *row.DiagnosedAt)
			}
		})
	}
}

func TestHealth_Transition_RepeatTreatmentDoesNotInflateCure(t *testing.T) {
	// GIVEN Appendicitis fully treated, with Cefazolin prescribed twice
	f := newFixture(t)
	c := f.openCase(t, 2, 1, 0)
	c.Performed = []int64{2}
	c.Administered = []int64{2, 2}
	health, _ := f.health(t, testutil.Draw(0.045))

	// WHEN the draw lands above the 0.04 cure ceiling
	terminal, err := health.Transition(context.Background(), c, testutil.At(1))

	// THEN the case stays open: no inflated cure, no death band
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Equal(t, sim.OutcomeNone, c.Outcome)
}

func TestHealth_Transition_DeferredProcedureDiagnoses(t *testing.T) {
	// GIVEN Appendicitis with the CT deferred to hour 3
	f := newFixture(t)
	c := f.openCase(t, 2, 1, 0)
	c.ScheduleProcedure(testutil.At(3), 2)
	health, _ := f.health(t, testutil.Draw(0.9), testutil.Draw(0.9))
	ctx := context.Background()

	// WHEN the hour before it is due passes, nothing runs
	terminal, err := health.Transition(ctx, c, testutil.At(2))
	require.NoError(t, err)
	require.False(t, terminal)
	assert.Empty(t, c.Performed)

	// THEN at hour 3 the procedure runs and diagnoses without prescribing
	terminal, err = health.Transition(ctx, c, testutil.At(3))
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.Equal(t, []int64{2}, c.Performed)
	require.NotNil(t, c.DiagnosedAt)
	assert.Equal(t, testutil.At(3), *c.DiagnosedAt)
	assert.Empty(t, c.Administered)
	assert.Equal(t, "2", f.store.Logs()[0].Treatment)
	assert.InDelta(t, 0.03, sim.OutcomeProbabilities(c).Cure, 1e-12)
}

func TestHealth_Transition_TerminalCaseIsNoop(t *testing.T) {
	f := newFixture(t)
	c := f.openCase(t, 3, 1, 0)
	c.Outcome = sim.OutcomeDeceased
	health, _ := f.health(t)

	terminal, err := health.Transition(context.Background(), c, testutil.At(1))

	require.NoError(t, err)
	assert.True(t, terminal)
	assert.Empty(t, f.store.Bills())
}
