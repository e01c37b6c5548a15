package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// AnomalyOverprescribe is the prescription anomaly type for doubled quantities.
const AnomalyOverprescribe = "overprescribe"

// TreatmentScheduler issues the admission-time prescriptions and procedures.
type TreatmentScheduler struct {
	catalog *Catalog
	store   CaseStore
	rng     *rand.Rand
	obs     Observer
}

// NewTreatmentScheduler wires treatment to its catalog, store and random stream.
func NewTreatmentScheduler(catalog *Catalog, store CaseStore, rng *rand.Rand, obs Observer) *TreatmentScheduler {
	if obs == nil {
		obs = NopObserver{}
	}
	return &TreatmentScheduler{catalog: catalog, store: store, rng: rng, obs: obs}
}

// Schedule treats every present symptom of a freshly triaged case. It runs
// once per case; later calls are no-ops.
//
// Medications are drawn against the prescriber's integrity score: a draw
// below the score doubles the quantity and records an anomaly. Procedures run
// immediately; the first one that satisfies a diagnostic requirement sets the
// diagnosis time and auto-prescribes one unit of every required medication.
func (s *TreatmentScheduler) Schedule(ctx context.Context, c *Case, now time.Time) error {
	if c.treated {
		return nil
	}
	c.treated = true

	prescriber, ok := s.catalog.StaffMember(c.PrescriberID)
	if !ok {
		return fmt.Errorf("prescriber %d: %w", c.PrescriberID, ErrMissingReference)
	}

	for _, sym := range c.PresentSymptoms {
		if sym.MedicationID != 0 && sym.StandardQuantity > 0 {
			qty := sym.StandardQuantity
			anomalous := s.rng.Float64() < prescriber.Integrity
			if anomalous {
				qty = sym.StandardQuantity * 2
			}
			id, err := s.prescribe(ctx, c, sym.MedicationID, qty, now)
			if err != nil {
				return err
			}
			if anomalous {
				if err := s.store.RecordPrescriptionAnomaly(ctx, PrescriptionAnomaly{
					PrescriptionID:   id,
					EmployeeID:       prescriber.ID,
					MedicationID:     sym.MedicationID,
					Type:             AnomalyOverprescribe,
					PrescribedQty:    qty,
					StandardQuantity: sym.StandardQuantity,
					At:               now,
				}); err != nil {
					return fmt.Errorf("record prescription anomaly %d: %w", id, err)
				}
				s.obs.Observe(Observation{Kind: KindPrescriptionAnomaly, At: now, Attrs: map[string]any{
					"prescription_id":   id,
					"patient_id":        c.Patient.ID,
					"employee_id":       prescriber.ID,
					"integrity":         prescriber.Integrity,
					"medication_id":     sym.MedicationID,
					"prescribed_qty":    qty,
					"standard_quantity": sym.StandardQuantity,
				}})
			}
		}

		if sym.ProcedureID != 0 {
			if err := performProcedure(ctx, s.store, s.obs, c, sym.ProcedureID, now); err != nil {
				return err
			}
			if c.requiresProcedure(sym.ProcedureID) && c.diagnose(now) {
				s.obs.Observe(diagnosisObservation(c, sym.ProcedureID, now))
				for _, med := range c.Condition.RequiredMedications {
					if _, err := s.prescribe(ctx, c, med, 1, now); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// prescribe records a prescription and marks the medication administered.
func (s *TreatmentScheduler) prescribe(ctx context.Context, c *Case, medicationID int64, qty int, now time.Time) (int64, error) {
	if _, ok := s.catalog.Medication(medicationID); !ok {
		return 0, fmt.Errorf("prescribe for patient %d: medication %d: %w", c.Patient.ID, medicationID, ErrMissingReference)
	}
	id, err := s.store.RecordPrescription(ctx, Prescription{
		PatientID:    c.Patient.ID,
		FacilityID:   c.FacilityID,
		EmployeeID:   c.PrescriberID,
		MedicationID: medicationID,
		Quantity:     qty,
		At:           now,
	})
	if err != nil {
		return 0, fmt.Errorf("record prescription for patient %d: %w", c.Patient.ID, err)
	}
	c.Administered = append(c.Administered, medicationID)
	c.Prescriptions = append(c.Prescriptions, PrescriptionLine{PrescriptionID: id, MedicationID: medicationID, Quantity: qty})
	s.obs.Observe(Observation{Kind: KindPrescription, At: now, Attrs: map[string]any{
		"prescription_id": id,
		"patient_id":      c.Patient.ID,
		"medication_id":   medicationID,
		"quantity":        qty,
	}})
	return id, nil
}

// performProcedure appends the procedure to the case's treatment log and its
// performed list. Shared by admission-time treatment and deferred events.
func performProcedure(ctx context.Context, store CaseStore, obs Observer, c *Case, procedureID int64, now time.Time) error {
	if err := store.AppendTreatment(ctx, c.LogID, procedureID); err != nil {
		return fmt.Errorf("log procedure %d for patient %d: %w", procedureID, c.Patient.ID, err)
	}
	c.Performed = append(c.Performed, procedureID)
	obs.Observe(Observation{Kind: KindProcedure, At: now, Attrs: map[string]any{
		"patient_id":   c.Patient.ID,
		"log_id":       c.LogID,
		"procedure_id": procedureID,
	}})
	return nil
}

func diagnosisObservation(c *Case, procedureID int64, now time.Time) Observation {
	return Observation{Kind: KindDiagnosis, At: now, Attrs: map[string]any{
		"patient_id":   c.Patient.ID,
		"condition_id": c.Condition.ID,
		"procedure_id": procedureID,
		"hours":        int(now.Sub(c.AdmittedAt).Hours()),
	}}
}
