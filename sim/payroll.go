package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NotesPayroll is the note written on every payroll log.
const NotesPayroll = "Bi-weekly salaried payout"

// PayrollScheduler pays every employee whose schedule has come due.
type PayrollScheduler struct {
	cfg   PayrollConfig
	store PayrollStore
	obs   Observer
}

// NewPayrollScheduler wires payroll to its store.
func NewPayrollScheduler(cfg PayrollConfig, store PayrollStore, obs Observer) *PayrollScheduler {
	if obs == nil {
		obs = NopObserver{}
	}
	return &PayrollScheduler{cfg: cfg, store: store, obs: obs}
}

// Pay computes the gross and net amounts of one pay period.
func (s *PayrollScheduler) Pay(annualSalary decimal.Decimal) (gross, net decimal.Decimal) {
	gross = annualSalary.Div(decimal.NewFromInt(int64(s.cfg.PeriodsPerYear)))
	net = gross.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(s.cfg.DeductionRate)))
	return gross, net
}

// Run pays every due entry once. Each claim is a compare-and-set on the
// entry's next_due, so an entry already advanced by a concurrent run is
// skipped rather than paid twice. Returns the number of payments made.
func (s *PayrollScheduler) Run(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.DuePayroll(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due payroll: %w", err)
	}
	paid := 0
	for _, e := range due {
		gross, net := s.Pay(e.AnnualSalary)
		d := PayrollDisbursement{
			EmployeeID:  e.EmployeeID,
			FacilityID:  e.FacilityID,
			ExpectedDue: e.NextDue,
			NextDue:     e.NextDue.Add(time.Duration(e.FrequencyHours) * time.Hour),
			PaidAt:      now,
			Gross:       gross,
			Net:         net,
			Notes:       NotesPayroll,
		}
		won, err := s.store.ClaimPayroll(ctx, d)
		if err != nil {
			return paid, fmt.Errorf("pay employee %d: %w", e.EmployeeID, err)
		}
		if !won {
			continue
		}
		paid++
		s.obs.Observe(Observation{Kind: KindPayroll, At: now, Attrs: map[string]any{
			"employee_id": e.EmployeeID,
			"facility_id": e.FacilityID,
			"gross":       gross,
			"net":         net,
			"due":         e.NextDue,
			"next_due":    d.NextDue,
		}})
	}
	return paid, nil
}
