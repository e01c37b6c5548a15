package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// StatusAdmitted is the daily-log status written at admission.
const StatusAdmitted = "Admitted"

// TriageService turns an arrival into an open Case.
type TriageService struct {
	cfg     TriageConfig
	catalog *Catalog
	store   CaseStore
	rng     *rand.Rand
	obs     Observer
}

// NewTriageService wires triage to its catalog, store and random stream.
func NewTriageService(cfg TriageConfig, catalog *Catalog, store CaseStore, rng *rand.Rand, obs Observer) *TriageService {
	if obs == nil {
		obs = NopObserver{}
	}
	return &TriageService{cfg: cfg, catalog: catalog, store: store, rng: rng, obs: obs}
}

// Admit performs triage for a patient at a facility and opens the case log.
// Returns ErrNoEligibleStaff if the facility cannot field a care team and
// ErrMissingReference if the condition or insurance catalogs are empty.
func (t *TriageService) Admit(ctx context.Context, facilityID int64, patient Patient, now time.Time) (*Case, error) {
	if len(t.catalog.Conditions) == 0 {
		return nil, fmt.Errorf("admit patient %d: no conditions: %w", patient.ID, ErrMissingReference)
	}
	cond := &t.catalog.Conditions[t.rng.Intn(len(t.catalog.Conditions))]

	entries := t.resolveSymptoms(cond, patient, now)
	present := t.selectPresent(entries)

	if len(t.catalog.InsurancePlans) == 0 {
		return nil, fmt.Errorf("admit patient %d: no insurance plans: %w", patient.ID, ErrMissingReference)
	}
	insurance := t.catalog.InsurancePlans[t.rng.Intn(len(t.catalog.InsurancePlans))]

	prescriber, err := t.pick(facilityID, t.cfg.PrescriberRole)
	if err != nil {
		return nil, err
	}
	nurse, err := t.pick(facilityID, t.cfg.NurseRole)
	if err != nil {
		return nil, err
	}

	logID, err := t.store.OpenCaseLog(ctx, CaseLog{
		PatientID:    patient.ID,
		FacilityID:   facilityID,
		At:           now,
		Status:       StatusAdmitted,
		PrescriberID: prescriber.ID,
		NurseID:      nurse.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("open case log for patient %d: %w", patient.ID, err)
	}

	symptomIDs := make([]int64, len(entries))
	for i, e := range entries {
		symptomIDs[i] = e.SymptomID
	}

	c := &Case{
		Patient:         patient,
		FacilityID:      facilityID,
		AdmittedAt:      now,
		Condition:       cond,
		SymptomIDs:      symptomIDs,
		PresentSymptoms: present,
		PrescriberID:    prescriber.ID,
		NurseID:         nurse.ID,
		InsurancePlanID: insurance,
		LogID:           logID,
		Deferred:        NewDeferredQueue(),
	}

	t.obs.Observe(Observation{Kind: KindAdmission, At: now, Attrs: map[string]any{
		"patient_id":       patient.ID,
		"facility_id":      facilityID,
		"log_id":           logID,
		"age":              patient.Age,
		"race":             patient.Race,
		"condition_id":     cond.ID,
		"present_symptoms": len(present),
		"insurance_id":     insurance,
		"prescriber_id":    prescriber.ID,
		"nurse_id":         nurse.ID,
	}})
	return c, nil
}

// resolveSymptoms copies catalog metadata for each of the condition's
// symptoms. Unresolvable ids are skipped; if none resolve, a single fallback
// entry backed by the first required procedure and medication is returned so
// the case still receives care.
func (t *TriageService) resolveSymptoms(cond *Condition, patient Patient, now time.Time) []SymptomInstance {
	var entries []SymptomInstance
	for _, id := range cond.SymptomIDs {
		s, ok := t.catalog.Symptom(id)
		if !ok {
			t.obs.Observe(Observation{Kind: KindSymptomUnresolved, At: now, Attrs: map[string]any{
				"patient_id":   patient.ID,
				"condition_id": cond.ID,
				"symptom_id":   id,
			}})
			continue
		}
		entries = append(entries, SymptomInstance{
			SymptomID:        s.ID,
			Severity:         s.Severity,
			ProcedureID:      s.ProcedureID,
			MedicationID:     s.MedicationID,
			StandardQuantity: s.StandardQuantity,
		})
	}
	if len(entries) > 0 {
		return entries
	}

	fallback := SymptomInstance{SymptomID: -1, Severity: 1, StandardQuantity: 1}
	if len(cond.RequiredProcedures) > 0 {
		fallback.ProcedureID = cond.RequiredProcedures[0]
	}
	if len(cond.RequiredMedications) > 0 {
		fallback.MedicationID = cond.RequiredMedications[0]
	}
	t.obs.Observe(Observation{Kind: KindFallbackSymptom, At: now, Attrs: map[string]any{
		"patient_id":    patient.ID,
		"condition_id":  cond.ID,
		"procedure_id":  fallback.ProcedureID,
		"medication_id": fallback.MedicationID,
	}})
	return []SymptomInstance{fallback}
}

// selectPresent flips an independent coin per entry and forces one at random
// if none came up.
func (t *TriageService) selectPresent(entries []SymptomInstance) []SymptomInstance {
	var present []SymptomInstance
	for _, e := range entries {
		if t.rng.Float64() < t.cfg.PresentProbability {
			present = append(present, e)
		}
	}
	if len(present) == 0 {
		present = append(present, entries[t.rng.Intn(len(entries))])
	}
	return present
}

func (t *TriageService) pick(facilityID int64, role string) (StaffMember, error) {
	staff := t.catalog.StaffAt(facilityID, role)
	if len(staff) == 0 {
		return StaffMember{}, fmt.Errorf("facility %d has no %q: %w", facilityID, role, ErrNoEligibleStaff)
	}
	return staff[t.rng.Intn(len(staff))], nil
}
