package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Probabilities is the per-tick outcome distribution of an open case.
type Probabilities struct {
	Cure           float64
	Death          float64
	CureMultiplier float64
	Effective      int
	TotalRequired  int
}

// OutcomeProbabilities computes the hourly cure and death probabilities of a
// case from how much of its required treatment has been delivered.
//
// effective is |performed ∩ required procedures| + |administered ∩ required
// medications|, so a repeated procedure or a second prescription of the same
// drug counts once and effective never exceeds the required total. With no
// required treatments the cure multiplier is 1. Death risk is the full
// mortality rate until at least one required treatment lands.
func OutcomeProbabilities(c *Case) Probabilities {
	cond := c.Condition
	procedures := distinctIDs(cond.RequiredProcedures)
	medications := distinctIDs(cond.RequiredMedications)
	total := len(procedures) + len(medications)
	effective := countDelivered(procedures, c.Performed) + countDelivered(medications, c.Administered)

	mul := 1.0
	if total > 0 {
		mul = 1 + float64(effective)/float64(total)
	}
	death := cond.MortalityPerHour
	if effective > 0 {
		death = cond.MortalityPerHour * (1 - float64(effective)/float64(total))
	}
	return Probabilities{
		Cure:           cond.CurabilityPerHour * mul,
		Death:          death,
		CureMultiplier: mul,
		Effective:      effective,
		TotalRequired:  total,
	}
}

// countDelivered reports how many of the required ids appear in delivered.
func countDelivered(required, delivered []int64) int {
	n := 0
	for _, id := range required {
		if containsID(delivered, id) {
			n++
		}
	}
	return n
}

// HealthEngine advances each open case by one tick.
type HealthEngine struct {
	cfg     DischargeConfig
	store   CaseStore
	billing *BillingSettlement
	rng     *rand.Rand
	obs     Observer
}

// NewHealthEngine wires the state machine to its store, billing and random stream.
func NewHealthEngine(cfg DischargeConfig, store CaseStore, billing *BillingSettlement, rng *rand.Rand, obs Observer) *HealthEngine {
	if obs == nil {
		obs = NopObserver{}
	}
	return &HealthEngine{cfg: cfg, store: store, billing: billing, rng: rng, obs: obs}
}

// Transition applies one tick to the case:
//  1. automatic discharge (undiagnosed past the transfer threshold, or
//     diagnosed past the recovery threshold)
//  2. execution of deferred events due by now
//  3. outcome sampling
//
// A terminal transition settles the bill and reports terminal = true; the
// caller must drop the case from its active set.
func (h *HealthEngine) Transition(ctx context.Context, c *Case, now time.Time) (bool, error) {
	if !c.Active() {
		return true, nil
	}

	transferAfter := time.Duration(h.cfg.UndiagnosedTransferHours) * time.Hour
	recoverAfter := time.Duration(h.cfg.PostDiagnosisRecoveryHours) * time.Hour
	switch {
	case c.DiagnosedAt == nil && now.Sub(c.AdmittedAt) >= transferAfter:
		return true, h.terminate(ctx, c, OutcomeTransferred, now)
	case c.DiagnosedAt != nil && now.Sub(*c.DiagnosedAt) >= recoverAfter:
		return true, h.terminate(ctx, c, OutcomeRecovered, now)
	}

	if c.Deferred != nil {
		for _, ev := range c.Deferred.PopDue(now) {
			if ev.Kind != DeferredProcedure {
				continue
			}
			if err := performProcedure(ctx, h.store, h.obs, c, ev.ProcedureID, now); err != nil {
				return false, err
			}
			if c.requiresProcedure(ev.ProcedureID) && c.diagnose(now) {
				h.obs.Observe(diagnosisObservation(c, ev.ProcedureID, now))
			}
		}
	}

	p := OutcomeProbabilities(c)
	r := h.rng.Float64()
	switch {
	case r < p.Cure:
		return true, h.terminate(ctx, c, OutcomeRecovered, now)
	case r < p.Cure+p.Death:
		return true, h.terminate(ctx, c, OutcomeDeceased, now)
	}
	return false, nil
}

func (h *HealthEngine) terminate(ctx context.Context, c *Case, outcome Outcome, now time.Time) error {
	c.Outcome = outcome
	t := now
	c.DischargedAt = &t
	if _, err := h.billing.Settle(ctx, c, now); err != nil {
		return fmt.Errorf("discharge patient %d as %s: %w", c.Patient.ID, outcome, err)
	}
	return nil
}
