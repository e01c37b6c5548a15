package sim

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BillingSettlement closes out a case that reached a terminal outcome.
type BillingSettlement struct {
	catalog *Catalog
	store   CaseStore
	obs     Observer
}

// NewBillingSettlement wires billing to its catalog and store.
func NewBillingSettlement(catalog *Catalog, store CaseStore, obs Observer) *BillingSettlement {
	if obs == nil {
		obs = NopObserver{}
	}
	return &BillingSettlement{catalog: catalog, store: store, obs: obs}
}

// Settle bills the case and finalizes its daily log. Medication charges are
// quantity × unit cost over every prescription recorded for the patient,
// earlier stays included; procedure charges count each distinct procedure
// performed in this stay once, matching the bill's procedure links.
func (b *BillingSettlement) Settle(ctx context.Context, c *Case, now time.Time) (*Bill, error) {
	if c.settled {
		return nil, fmt.Errorf("settle patient %d: %w", c.Patient.ID, ErrAlreadySettled)
	}

	medCost, err := b.medicationCost(ctx, c)
	if err != nil {
		return nil, err
	}
	procedures := distinctIDs(c.Performed)
	procCost := decimal.Zero
	for _, id := range procedures {
		p, ok := b.catalog.Procedure(id)
		if !ok {
			return nil, fmt.Errorf("settle patient %d: procedure %d: %w", c.Patient.ID, id, ErrMissingReference)
		}
		procCost = procCost.Add(p.Cost)
	}

	bill := &Bill{
		PatientID:       c.Patient.ID,
		FacilityID:      c.FacilityID,
		LogID:           c.LogID,
		InsurancePlanID: c.InsurancePlanID,
		Total:           medCost.Add(procCost),
		ProcedureIDs:    procedures,
		At:              now,
	}
	id, err := b.store.CreateBill(ctx, *bill)
	if err != nil {
		return nil, fmt.Errorf("create bill for patient %d: %w", c.Patient.ID, err)
	}
	bill.ID = id

	if err := b.store.CloseCaseLog(ctx, CaseLogClosure{
		LogID:        c.LogID,
		Outcome:      c.Outcome,
		PrescriberID: c.PrescriberID,
		NurseID:      c.NurseID,
		DiagnosedAt:  c.DiagnosedAt,
		Treatment:    joinIDs(c.Performed),
		Prescription: joinIDs(c.Administered),
		DischargedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("close case log %d: %w", c.LogID, err)
	}
	c.settled = true

	b.obs.Observe(Observation{Kind: KindDischarge, At: now, Attrs: map[string]any{
		"patient_id":   c.Patient.ID,
		"facility_id":  c.FacilityID,
		"log_id":       c.LogID,
		"bill_id":      id,
		"outcome":      string(c.Outcome),
		"total":        bill.Total,
		"stay_hours":   int(now.Sub(c.AdmittedAt).Hours()),
		"diagnosed":    c.Diagnosed(),
		"insurance_id": c.InsurancePlanID,
	}})
	return bill, nil
}

func (b *BillingSettlement) medicationCost(ctx context.Context, c *Case) (decimal.Decimal, error) {
	lines, err := b.store.PatientPrescriptions(ctx, c.Patient.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("settle patient %d: %w", c.Patient.ID, err)
	}
	total := decimal.Zero
	for _, line := range lines {
		m, ok := b.catalog.Medication(line.MedicationID)
		if !ok {
			return decimal.Zero, fmt.Errorf("settle patient %d: medication %d: %w", c.Patient.ID, line.MedicationID, ErrMissingReference)
		}
		total = total.Add(m.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total, nil
}

func distinctIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	var out []int64
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// joinIDs renders ids as "1,2,3"; empty input yields "".
func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
