// Defines the Case struct that models one patient's hospital episode, from
// admission through diagnosis to a terminal outcome.

package sim

import (
	"time"
)

// Outcome is the terminal state of a case. The zero value means the case is
// still open.
type Outcome string

const (
	OutcomeNone        Outcome = ""
	OutcomeRecovered   Outcome = "Recovered"
	OutcomeDeceased    Outcome = "Deceased"
	OutcomeTransferred Outcome = "Transferred"
)

// Phase names reported by Case.Phase for open cases. Terminal cases report
// their Outcome.
const (
	PhaseAdmitted  = "Admitted"
	PhaseDiagnosed = "Diagnosed"
)

// SymptomInstance is a symptom copied into a case at triage.
type SymptomInstance struct {
	SymptomID        int64 // -1 for the synthesized fallback
	Severity         int
	ProcedureID      int64
	MedicationID     int64
	StandardQuantity int
}

// PrescriptionLine is a quantity of medication prescribed during the case.
type PrescriptionLine struct {
	PrescriptionID int64
	MedicationID   int64
	Quantity       int
}

// Case models a single hospital episode.
//
// The fields above the divider are fixed at triage; the rest are mutated by
// treatment, health transitions and billing. The driver owns every case
// exclusively and drops it once Outcome is set.
type Case struct {
	Patient         Patient
	FacilityID      int64
	AdmittedAt      time.Time
	Condition       *Condition
	SymptomIDs      []int64 // every symptom entry assigned for the condition
	PresentSymptoms []SymptomInstance
	PrescriberID    int64
	NurseID         int64
	InsurancePlanID int64
	LogID           int64

	// ---- mutable state ----

	DiagnosedAt   *time.Time
	Administered  []int64 // medication ids, in administration order
	Prescriptions []PrescriptionLine
	Performed     []int64 // procedure ids, in execution order
	Deferred      *DeferredQueue
	Outcome       Outcome
	DischargedAt  *time.Time

	treated bool
	settled bool
}

// Phase returns Admitted, Diagnosed or the terminal outcome.
func (c *Case) Phase() string {
	switch {
	case c.Outcome != OutcomeNone:
		return string(c.Outcome)
	case c.DiagnosedAt != nil:
		return PhaseDiagnosed
	default:
		return PhaseAdmitted
	}
}

// Active reports whether the case has not reached a terminal outcome.
func (c *Case) Active() bool {
	return c.Outcome == OutcomeNone
}

// Diagnosed reports whether a qualifying procedure has been performed.
func (c *Case) Diagnosed() bool {
	return c.DiagnosedAt != nil
}

// ScheduleProcedure queues a procedure for execution at a later tick.
func (c *Case) ScheduleProcedure(at time.Time, procedureID int64) {
	if c.Deferred == nil {
		c.Deferred = NewDeferredQueue()
	}
	c.Deferred.Schedule(DeferredEvent{At: at, Kind: DeferredProcedure, ProcedureID: procedureID})
}

// requiresProcedure reports whether id is one of the condition's detector procedures.
func (c *Case) requiresProcedure(id int64) bool {
	return containsID(c.Condition.RequiredProcedures, id)
}

// diagnose sets the diagnosis time if unset and reports whether it did.
func (c *Case) diagnose(now time.Time) bool {
	if c.DiagnosedAt != nil {
		return false
	}
	t := now
	c.DiagnosedAt = &t
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
