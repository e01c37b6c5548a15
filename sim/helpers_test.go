package sim_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardsim/wardsim/sim"
	"github.com/wardsim/wardsim/sim/dataset"
	"github.com/wardsim/wardsim/sim/internal/testutil"
	"github.com/wardsim/wardsim/sim/store/memory"
)

// fixture is the small reference network wired to an in-memory store.
type fixture struct {
	ds      *dataset.Dataset
	store   *memory.Store
	catalog *sim.Catalog
	rec     *sim.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return fixtureFrom(t, testutil.LoadSmall(t))
}

func fixtureFrom(t *testing.T, ds *dataset.Dataset) *fixture {
	t.Helper()
	store := memory.New(ds)
	catalog, err := store.LoadCatalog(context.Background())
	require.NoError(t, err)
	return &fixture{ds: ds, store: store, catalog: catalog, rec: &sim.Recorder{}}
}

func (f *fixture) condition(t *testing.T, id int64) *sim.Condition {
	t.Helper()
	for i := range f.catalog.Conditions {
		if f.catalog.Conditions[i].ID == id {
			return &f.catalog.Conditions[i]
		}
	}
	t.Fatalf("condition %d not in catalog", id)
	return nil
}

// openCase admits a case at facility 1 without going through triage, so the
// test controls the condition, prescriber and present symptoms.
func (f *fixture) openCase(t *testing.T, conditionID, prescriberID int64, hour int, symptoms ...int64) *sim.Case {
	t.Helper()
	now := testutil.At(hour)
	logID, err := f.store.OpenCaseLog(context.Background(), sim.CaseLog{
		PatientID:    5,
		FacilityID:   1,
		At:           now,
		Status:       sim.StatusAdmitted,
		PrescriberID: prescriberID,
		NurseID:      3,
	})
	require.NoError(t, err)

	c := &sim.Case{
		Patient:         sim.Patient{ID: 5, Age: 59},
		FacilityID:      1,
		AdmittedAt:      now,
		Condition:       f.condition(t, conditionID),
		PrescriberID:    prescriberID,
		NurseID:         3,
		InsurancePlanID: 1,
		LogID:           logID,
	}
	for _, id := range symptoms {
		s, ok := f.catalog.Symptom(id)
		require.True(t, ok, "symptom %d", id)
		c.SymptomIDs = append(c.SymptomIDs, id)
		c.PresentSymptoms = append(c.PresentSymptoms, sim.SymptomInstance{
			SymptomID:        s.ID,
			Severity:         s.Severity,
			ProcedureID:      s.ProcedureID,
			MedicationID:     s.MedicationID,
			StandardQuantity: s.StandardQuantity,
		})
	}
	return c
}

func (f *fixture) health(t *testing.T, values ...int64) (*sim.HealthEngine, *testutil.ScriptedSource) {
	t.Helper()
	rng, src := testutil.Scripted(t, values...)
	billing := sim.NewBillingSettlement(f.catalog, f.store, f.rec)
	return sim.NewHealthEngine(sim.DefaultConfig().Discharge, f.store, billing, rng, f.rec), src
}

// prescribe records a prescription for the fixture patient (5) in the store.
func (f *fixture) prescribe(t *testing.T, medicationID int64, qty, hour int) {
	t.Helper()
	_, err := f.store.RecordPrescription(context.Background(), sim.Prescription{
		PatientID:    5,
		FacilityID:   1,
		EmployeeID:   2,
		MedicationID: medicationID,
		Quantity:     qty,
		At:           testutil.At(hour),
	})
	require.NoError(t, err)
}
