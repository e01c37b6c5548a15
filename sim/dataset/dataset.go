// Package dataset defines the YAML format of a pre-built hospital network:
// reference catalogs, the patient population, stock levels and pay schedules.
// Stores are seeded from a Dataset; the engine never reads one directly.
package dataset

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wardsim/wardsim/sim"
)

// DefaultPayFrequencyHours is the bi-weekly cadence given to employees whose
// schedule is filled in by FillPayroll.
const DefaultPayFrequencyHours = 14 * 24

// Dataset is the top-level dataset document.
// Loaded from YAML via Load(path).
type Dataset struct {
	Facilities     []Facility      `yaml:"facilities"`
	Patients       []Patient       `yaml:"patients"`
	Staff          []Staff         `yaml:"staff"`
	Conditions     []Condition     `yaml:"conditions"`
	Symptoms       []Symptom       `yaml:"symptoms"`
	Medications    []Medication    `yaml:"medications"`
	Procedures     []Procedure     `yaml:"procedures"`
	InsurancePlans []InsurancePlan `yaml:"insurance_plans"`
	Suppliers      []Supplier      `yaml:"suppliers"`
	Inventory      []Inventory     `yaml:"inventory"`
	Payroll        []PaySchedule   `yaml:"payroll,omitempty"`
}

type Facility struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Location string `yaml:"location,omitempty"`
	Beds     int    `yaml:"beds"`
}

type Patient struct {
	ID                    int64  `yaml:"id"`
	Name                  string `yaml:"name,omitempty"`
	Age                   int    `yaml:"age"`
	Race                  string `yaml:"race,omitempty"`
	PreExistingConditions string `yaml:"pre_existing_conditions,omitempty"`
}

type Staff struct {
	ID         int64           `yaml:"id"`
	Name       string          `yaml:"name,omitempty"`
	FacilityID int64           `yaml:"facility_id"`
	Role       string          `yaml:"role"`
	Integrity  float64         `yaml:"integrity"`
	Salary     decimal.Decimal `yaml:"salary"`
}

type Condition struct {
	ID                  int64   `yaml:"id"`
	Name                string  `yaml:"name"`
	MortalityPerHour    float64 `yaml:"mortality_per_hour"`
	CurabilityPerHour   float64 `yaml:"curability_per_hour"`
	RequiredProcedures  []int64 `yaml:"required_procedures,omitempty"`
	RequiredMedications []int64 `yaml:"required_medications,omitempty"`
	Symptoms            []int64 `yaml:"symptoms,omitempty"` // may name ids absent from the symptom catalog
}

type Symptom struct {
	ID           int64  `yaml:"id"`
	Name         string `yaml:"name"`
	Severity     int    `yaml:"severity"`
	ProcedureID  int64  `yaml:"procedure_id,omitempty"`
	MedicationID int64  `yaml:"medication_id,omitempty"`
	Quantity     int    `yaml:"quantity,omitempty"`
}

type Medication struct {
	ID       int64           `yaml:"id"`
	Name     string          `yaml:"name"`
	UnitCost decimal.Decimal `yaml:"unit_cost"`
}

type Procedure struct {
	ID   int64           `yaml:"id"`
	Name string          `yaml:"name"`
	Cost decimal.Decimal `yaml:"cost"`
}

type InsurancePlan struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type Supplier struct {
	ID          int64   `yaml:"id"`
	Name        string  `yaml:"name"`
	Medications []int64 `yaml:"medications"`
}

type Inventory struct {
	FacilityID   int64 `yaml:"facility_id"`
	MedicationID int64 `yaml:"medication_id"`
	CurrentStock int64 `yaml:"current_stock"`
	MinimumStock int64 `yaml:"minimum_stock"`
}

type PaySchedule struct {
	EmployeeID     int64      `yaml:"employee_id"`
	NextDue        time.Time  `yaml:"next_due"`
	LastPayment    *time.Time `yaml:"last_payment,omitempty"`
	FrequencyHours int        `yaml:"frequency_hours"`
}

// Load reads and validates a dataset file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	ds, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Decode parses and validates a dataset document.
func Decode(r io.Reader) (*Dataset, error) {
	var ds Dataset
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&ds); err != nil {
		return nil, fmt.Errorf("parsing dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// FillPayroll gives every employee without a schedule one that first comes
// due at start and repeats every frequencyHours. Returns the number added.
func (d *Dataset) FillPayroll(start time.Time, frequencyHours int) int {
	scheduled := make(map[int64]bool, len(d.Payroll))
	for _, p := range d.Payroll {
		scheduled[p.EmployeeID] = true
	}
	added := 0
	for _, s := range d.Staff {
		if scheduled[s.ID] {
			continue
		}
		d.Payroll = append(d.Payroll, PaySchedule{
			EmployeeID:     s.ID,
			NextDue:        start,
			FrequencyHours: frequencyHours,
		})
		added++
	}
	return added
}

// Catalog converts the reference data into the engine's indexed snapshot.
func (d *Dataset) Catalog() *sim.Catalog {
	c := &sim.Catalog{
		Symptoms:            make(map[int64]sim.Symptom, len(d.Symptoms)),
		Medications:         make(map[int64]sim.Medication, len(d.Medications)),
		Procedures:          make(map[int64]sim.Procedure, len(d.Procedures)),
		SupplierMedications: make(map[int64][]int64),
	}
	for _, f := range d.Facilities {
		c.Facilities = append(c.Facilities, sim.Facility{ID: f.ID, Name: f.Name, Beds: f.Beds})
	}
	for _, cond := range d.Conditions {
		c.Conditions = append(c.Conditions, sim.Condition{
			ID:                  cond.ID,
			Name:                cond.Name,
			MortalityPerHour:    cond.MortalityPerHour,
			CurabilityPerHour:   cond.CurabilityPerHour,
			RequiredProcedures:  append([]int64(nil), cond.RequiredProcedures...),
			RequiredMedications: append([]int64(nil), cond.RequiredMedications...),
			SymptomIDs:          append([]int64(nil), cond.Symptoms...),
		})
	}
	for _, s := range d.Symptoms {
		c.Symptoms[s.ID] = sim.Symptom{
			ID:               s.ID,
			Name:             s.Name,
			Severity:         s.Severity,
			ProcedureID:      s.ProcedureID,
			MedicationID:     s.MedicationID,
			StandardQuantity: s.Quantity,
		}
	}
	for _, m := range d.Medications {
		c.Medications[m.ID] = sim.Medication{ID: m.ID, Name: m.Name, UnitCost: m.UnitCost}
	}
	for _, p := range d.Procedures {
		c.Procedures[p.ID] = sim.Procedure{ID: p.ID, Name: p.Name, Cost: p.Cost}
	}
	for _, ins := range d.InsurancePlans {
		c.InsurancePlans = append(c.InsurancePlans, ins.ID)
	}
	for _, s := range d.Staff {
		c.Staff = append(c.Staff, sim.StaffMember{
			ID:           s.ID,
			FacilityID:   s.FacilityID,
			Role:         s.Role,
			Integrity:    s.Integrity,
			AnnualSalary: s.Salary,
		})
	}
	for _, sup := range d.Suppliers {
		for _, med := range sup.Medications {
			c.SupplierMedications[med] = append(c.SupplierMedications[med], sup.ID)
		}
	}
	return c.Index()
}

// SimPatients converts the population into engine patients.
func (d *Dataset) SimPatients() []sim.Patient {
	out := make([]sim.Patient, len(d.Patients))
	for i, p := range d.Patients {
		out[i] = sim.Patient{ID: p.ID, Age: p.Age, Race: p.Race, PreExistingConditions: p.PreExistingConditions}
	}
	return out
}
