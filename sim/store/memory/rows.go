package memory

import "github.com/wardsim/wardsim/sim"

// Copies of the written tables, for inspection after a run.

func (s *Store) Logs() []LogRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogRow(nil), s.logs...)
}

func (s *Store) Prescriptions() []PrescriptionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PrescriptionRow(nil), s.prescriptions...)
}

func (s *Store) PrescriptionAnomalies() []sim.PrescriptionAnomaly {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sim.PrescriptionAnomaly(nil), s.prescriptionAnomalies...)
}

func (s *Store) Bills() []sim.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sim.Bill(nil), s.bills...)
}

func (s *Store) SupplyOrders() []SupplyOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SupplyOrder(nil), s.orders...)
}

func (s *Store) SupplyAnomalies() []SupplyAnomalyRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SupplyAnomalyRow(nil), s.supplyAnomalies...)
}

func (s *Store) Payments() []Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Payment(nil), s.payments...)
}

func (s *Store) PayrollLogs() []sim.PayrollDisbursement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sim.PayrollDisbursement(nil), s.payrollLogs...)
}

// PayrollSchedule returns the current pay schedule, ordered by employee.
func (s *Store) PayrollSchedule() []sim.PayrollEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sim.PayrollEntry(nil), s.payroll...)
}

// Stock returns the current stock of a medication at a facility.
func (s *Store) Stock(facilityID, medicationID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.invIndex[invKey{facilityID, medicationID}]
	if !ok {
		return 0, false
	}
	return s.inventory[i].CurrentStock, true
}
