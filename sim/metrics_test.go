package sim

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeStays(t *testing.T) {
	tests := []struct {
		name  string
		hours []float64
		want  stayStats
	}{
		{"no discharges", nil, stayStats{}},
		{"single stay", []float64{72}, stayStats{Count: 1, Mean: 72, Median: 72, P95: 72, Max: 72}},
		{"median is an observed stay", []float64{4, 1, 3, 2}, stayStats{Count: 4, Mean: 2.5, Median: 2, P95: 4, Max: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarizeStays(tt.hours))
		})
	}
}

func TestMetrics_ObserveFoldsCountersAndMoney(t *testing.T) {
	m := NewMetrics()
	m.Observe(Observation{Kind: KindAdmission})
	m.Observe(Observation{Kind: KindAdmission})
	m.Observe(Observation{Kind: KindPrescriptionAnomaly})
	m.Observe(Observation{Kind: KindDischarge, Attrs: map[string]any{
		"outcome":    string(OutcomeRecovered),
		"total":      decimal.RequireFromString("1784.65"),
		"stay_hours": 30,
	}})
	m.Observe(Observation{Kind: KindRestock, Attrs: map[string]any{"payment": decimal.NewFromInt(42500)}})
	m.Observe(Observation{Kind: KindPayroll, Attrs: map[string]any{"net": decimal.NewFromInt(8000)}})
	m.Observe(Observation{Kind: KindTick, Attrs: map[string]any{"active_cases": 7}})
	m.Observe(Observation{Kind: KindTick, Attrs: map[string]any{"active_cases": 3}})

	assert.Equal(t, 2, m.Admissions)
	assert.Equal(t, 1, m.PrescriptionAnomalies)
	assert.Equal(t, 1, m.TotalDischarges())
	assert.Equal(t, 7, m.PeakActiveCases)
	assert.True(t, m.Billed.Equal(decimal.RequireFromString("1784.65")))
	assert.Equal(t, []float64{30}, m.StayHours)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(string(KindAdmission))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.discharges.WithLabelValues(string(OutcomeRecovered))))
	assert.Equal(t, 42500.0, testutil.ToFloat64(m.money.WithLabelValues("supplier")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeCases))
}

func TestMetrics_Print(t *testing.T) {
	m := NewMetrics()
	m.Observe(Observation{Kind: KindDischarge, Attrs: map[string]any{
		"outcome": string(OutcomeTransferred),
		"total":   decimal.RequireFromString("1784.65"),
	}})

	var buf bytes.Buffer
	m.Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "=== Simulation Metrics ===")
	assert.Contains(t, out, "Discharged Transferred: 1")
	assert.Contains(t, out, "1,784.65")
	assert.NotContains(t, out, "Length of Stay", "no stay line without samples")
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.Observe(Observation{Kind: KindAdmission})
	path := filepath.Join(t.TempDir(), "wardsim.prom")

	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `wardsim_events_total{kind="admission"} 1`)
}
