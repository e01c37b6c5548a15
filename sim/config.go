package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ArrivalConfig groups arrival generation parameters.
type ArrivalConfig struct {
	MinBedFraction float64 `yaml:"min_bed_fraction"` // lower bound of the hourly arrival fraction of beds
	MaxBedFraction float64 `yaml:"max_bed_fraction"` // upper bound (exclusive)
}

// TriageConfig groups care-team and symptom selection parameters.
type TriageConfig struct {
	PrescriberRole     string  `yaml:"prescriber_role"`
	NurseRole          string  `yaml:"nurse_role"`
	PresentProbability float64 `yaml:"present_probability"` // per-symptom coin flip
}

// DischargeConfig groups the automatic discharge thresholds, in hours.
type DischargeConfig struct {
	UndiagnosedTransferHours   int `yaml:"undiagnosed_transfer_hours"`
	PostDiagnosisRecoveryHours int `yaml:"post_diagnosis_recovery_hours"`
}

// InventoryConfig groups depletion and restock parameters.
type InventoryConfig struct {
	DepletionHour      int     `yaml:"depletion_hour"` // hour of day (0-23)
	RestockHour        int     `yaml:"restock_hour"`   // hour of day (0-23)
	DepletionMin       float64 `yaml:"depletion_min"`
	DepletionMax       float64 `yaml:"depletion_max"`
	RestockQuantity    int64   `yaml:"restock_quantity"`
	AnomalyProbability float64 `yaml:"anomaly_probability"`
}

// PayrollConfig groups payroll parameters.
type PayrollConfig struct {
	PeriodsPerYear int     `yaml:"periods_per_year"`
	DeductionRate  float64 `yaml:"deduction_rate"` // flat fraction withheld from gross
}

// Config is the scenario configuration of a simulation run.
// Loaded from YAML via LoadConfig(path); zero sections fall back to DefaultConfig.
type Config struct {
	Arrivals  ArrivalConfig   `yaml:"arrivals"`
	Triage    TriageConfig    `yaml:"triage"`
	Discharge DischargeConfig `yaml:"discharge"`
	Inventory InventoryConfig `yaml:"inventory"`
	Payroll   PayrollConfig   `yaml:"payroll"`
}

// DefaultConfig returns the parameters of the reference hospital network.
func DefaultConfig() Config {
	return Config{
		Arrivals: ArrivalConfig{MinBedFraction: 0.01, MaxBedFraction: 0.03},
		Triage: TriageConfig{
			PrescriberRole:     "Doctor",
			NurseRole:          "RN",
			PresentProbability: 0.5,
		},
		Discharge: DischargeConfig{UndiagnosedTransferHours: 72, PostDiagnosisRecoveryHours: 24},
		Inventory: InventoryConfig{
			DepletionHour:      0,
			RestockHour:        6,
			DepletionMin:       0.10,
			DepletionMax:       0.35,
			RestockQuantity:    50000,
			AnomalyProbability: 0.05,
		},
		Payroll: PayrollConfig{PeriodsPerYear: 26, DeductionRate: 0.20},
	}
}

// LoadConfig reads a YAML scenario file on top of DefaultConfig.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading scenario config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing scenario config: %w", err)
	}
	return cfg, nil
}

// Validate checks that all fields are in range.
func (c Config) Validate() error {
	var errs []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Sprintf(format, args...))
		}
	}

	a := c.Arrivals
	check(isProbability(a.MinBedFraction), "arrivals.min_bed_fraction must be in [0,1], got %v", a.MinBedFraction)
	check(isProbability(a.MaxBedFraction), "arrivals.max_bed_fraction must be in [0,1], got %v", a.MaxBedFraction)
	check(a.MinBedFraction <= a.MaxBedFraction, "arrivals.min_bed_fraction must not exceed max_bed_fraction")

	t := c.Triage
	check(t.PrescriberRole != "", "triage.prescriber_role is required")
	check(t.NurseRole != "", "triage.nurse_role is required")
	check(isProbability(t.PresentProbability), "triage.present_probability must be in [0,1], got %v", t.PresentProbability)

	d := c.Discharge
	check(d.UndiagnosedTransferHours > 0, "discharge.undiagnosed_transfer_hours must be positive, got %d", d.UndiagnosedTransferHours)
	check(d.PostDiagnosisRecoveryHours > 0, "discharge.post_diagnosis_recovery_hours must be positive, got %d", d.PostDiagnosisRecoveryHours)

	i := c.Inventory
	check(i.DepletionHour >= 0 && i.DepletionHour < 24, "inventory.depletion_hour must be in [0,23], got %d", i.DepletionHour)
	check(i.RestockHour >= 0 && i.RestockHour < 24, "inventory.restock_hour must be in [0,23], got %d", i.RestockHour)
	check(isProbability(i.DepletionMin) && isProbability(i.DepletionMax) && i.DepletionMin <= i.DepletionMax,
		"inventory depletion range must satisfy 0 <= min <= max <= 1, got [%v, %v]", i.DepletionMin, i.DepletionMax)
	check(i.RestockQuantity > 0, "inventory.restock_quantity must be positive, got %d", i.RestockQuantity)
	check(isProbability(i.AnomalyProbability), "inventory.anomaly_probability must be in [0,1], got %v", i.AnomalyProbability)

	p := c.Payroll
	check(p.PeriodsPerYear > 0, "payroll.periods_per_year must be positive, got %d", p.PeriodsPerYear)
	check(p.DeductionRate >= 0 && p.DeductionRate < 1, "payroll.deduction_rate must be in [0,1), got %v", p.DeductionRate)

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func isProbability(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
