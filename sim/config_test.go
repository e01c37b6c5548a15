package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 72, cfg.Discharge.UndiagnosedTransferHours)
	assert.Equal(t, 24, cfg.Discharge.PostDiagnosisRecoveryHours)
	assert.Equal(t, int64(50000), cfg.Inventory.RestockQuantity)
	assert.Equal(t, 6, cfg.Inventory.RestockHour)
	assert.Equal(t, 26, cfg.Payroll.PeriodsPerYear)
}

func TestLoadConfig_OverridesOnTopOfDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inventory:\n  restock_hour: 12\n  anomaly_probability: 0.5\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Inventory.RestockHour)
	assert.Equal(t, 0.5, cfg.Inventory.AnomalyProbability)
	assert.Equal(t, "Doctor", cfg.Triage.PrescriberRole, "unset sections keep defaults")
}

func TestLoadConfig_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inventory:\n  restock_hr: 12\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restock_hr")
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Arrivals.MinBedFraction = 0.5
	cfg.Arrivals.MaxBedFraction = 0.1
	cfg.Triage.NurseRole = ""
	cfg.Inventory.RestockHour = 24
	cfg.Payroll.DeductionRate = 1

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"min_bed_fraction must not exceed", "nurse_role is required", "restock_hour", "deduction_rate"} {
		assert.Contains(t, err.Error(), want)
	}
}
