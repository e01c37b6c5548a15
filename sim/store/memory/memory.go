// Package memory implements sim.Repository in process memory. It is seeded
// from a dataset and keeps every written row so runs can be inspected.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wardsim/wardsim/sim"
	"github.com/wardsim/wardsim/sim/dataset"
)

// ErrNotFound is returned when a write names a row that does not exist.
var ErrNotFound = errors.New("row not found")

// LogRow is a patient daily-log row.
type LogRow struct {
	ID int64
	sim.CaseLog
	Outcome      sim.Outcome
	DiagnosedAt  *time.Time
	Treatment    string
	Prescription string
	DischargedAt *time.Time
}

// PrescriptionRow is a stored prescription.
type PrescriptionRow struct {
	ID int64
	sim.Prescription
}

// SupplyOrder is the order row written for every restock.
type SupplyOrder struct {
	ID         int64
	FacilityID int64
	SupplierID int64
	At         time.Time
}

// SupplyAnomalyRow is an anomaly attached to a supply order.
type SupplyAnomalyRow struct {
	OrderID      int64
	MedicationID int64
	sim.SupplyAnomaly
}

// Payment is a supplier payment.
type Payment struct {
	FacilityID  int64
	SupplierID  int64
	Amount      decimal.Decimal
	At          time.Time
	Description string
}

// Store is an in-memory sim.Repository. It is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	ds       *dataset.Dataset
	staff    map[int64]dataset.Staff
	invIndex map[invKey]int

	inventory             []sim.InventoryRecord
	payroll               []sim.PayrollEntry
	logs                  []LogRow
	prescriptions         []PrescriptionRow
	prescriptionAnomalies []sim.PrescriptionAnomaly
	bills                 []sim.Bill
	orders                []SupplyOrder
	supplyAnomalies       []SupplyAnomalyRow
	payments              []Payment
	payrollLogs           []sim.PayrollDisbursement
}

type invKey struct{ facility, medication int64 }

var _ sim.Repository = (*Store)(nil)

// New seeds a store from a dataset. The dataset is not modified.
func New(ds *dataset.Dataset) *Store {
	s := &Store{
		ds:       ds,
		staff:    make(map[int64]dataset.Staff, len(ds.Staff)),
		invIndex: make(map[invKey]int, len(ds.Inventory)),
	}
	for _, st := range ds.Staff {
		s.staff[st.ID] = st
	}
	for _, inv := range ds.Inventory {
		s.invIndex[invKey{inv.FacilityID, inv.MedicationID}] = len(s.inventory)
		s.inventory = append(s.inventory, sim.InventoryRecord{
			FacilityID:   inv.FacilityID,
			MedicationID: inv.MedicationID,
			CurrentStock: inv.CurrentStock,
			MinimumStock: inv.MinimumStock,
		})
	}
	for _, p := range ds.Payroll {
		st := s.staff[p.EmployeeID]
		s.payroll = append(s.payroll, sim.PayrollEntry{
			EmployeeID:     p.EmployeeID,
			FacilityID:     st.FacilityID,
			AnnualSalary:   st.Salary,
			LastPayment:    p.LastPayment,
			NextDue:        p.NextDue,
			FrequencyHours: p.FrequencyHours,
		})
	}
	sort.Slice(s.payroll, func(i, j int) bool { return s.payroll[i].EmployeeID < s.payroll[j].EmployeeID })
	return s
}

// Load reads a dataset file and seeds a store from it.
func Load(path string) (*Store, error) {
	ds, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	return New(ds), nil
}

func (s *Store) LoadCatalog(context.Context) (*sim.Catalog, error) {
	return s.ds.Catalog(), nil
}

func (s *Store) Patients(context.Context) ([]sim.Patient, error) {
	return s.ds.SimPatients(), nil
}

func (s *Store) OpenCaseLog(_ context.Context, log sim.CaseLog) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.logs) + 1)
	s.logs = append(s.logs, LogRow{ID: id, CaseLog: log})
	return id, nil
}

func (s *Store) AppendTreatment(_ context.Context, logID, procedureID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, err := s.logRow(logID)
	if err != nil {
		return err
	}
	if row.Treatment != "" {
		row.Treatment += ","
	}
	row.Treatment += strconv.FormatInt(procedureID, 10)
	return nil
}

func (s *Store) RecordPrescription(_ context.Context, p sim.Prescription) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.prescriptions) + 1)
	s.prescriptions = append(s.prescriptions, PrescriptionRow{ID: id, Prescription: p})
	return id, nil
}

func (s *Store) PatientPrescriptions(_ context.Context, patientID int64) ([]sim.PrescriptionLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sim.PrescriptionLine
	for _, p := range s.prescriptions {
		if p.PatientID == patientID {
			out = append(out, sim.PrescriptionLine{PrescriptionID: p.ID, MedicationID: p.MedicationID, Quantity: p.Quantity})
		}
	}
	return out, nil
}

func (s *Store) RecordPrescriptionAnomaly(_ context.Context, a sim.PrescriptionAnomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.PrescriptionID < 1 || a.PrescriptionID > int64(len(s.prescriptions)) {
		return fmt.Errorf("prescription %d: %w", a.PrescriptionID, ErrNotFound)
	}
	s.prescriptionAnomalies = append(s.prescriptionAnomalies, a)
	return nil
}

func (s *Store) CreateBill(_ context.Context, b sim.Bill) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = int64(len(s.bills) + 1)
	b.ProcedureIDs = append([]int64(nil), b.ProcedureIDs...)
	s.bills = append(s.bills, b)
	return b.ID, nil
}

func (s *Store) CloseCaseLog(_ context.Context, c sim.CaseLogClosure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, err := s.logRow(c.LogID)
	if err != nil {
		return err
	}
	discharged := c.DischargedAt
	row.Outcome = c.Outcome
	row.PrescriberID = c.PrescriberID
	row.NurseID = c.NurseID
	row.DiagnosedAt = c.DiagnosedAt
	row.Treatment = c.Treatment
	row.Prescription = c.Prescription
	row.DischargedAt = &discharged
	return nil
}

func (s *Store) logRow(id int64) (*LogRow, error) {
	if id < 1 || id > int64(len(s.logs)) {
		return nil, fmt.Errorf("daily log %d: %w", id, ErrNotFound)
	}
	return &s.logs[id-1], nil
}

func (s *Store) InventoryLevels(context.Context) ([]sim.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sim.InventoryRecord(nil), s.inventory...), nil
}

func (s *Store) SetStock(_ context.Context, facilityID, medicationID, stock int64) error {
	if stock < 0 {
		return fmt.Errorf("facility %d medication %d: stock %d below zero", facilityID, medicationID, stock)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.invIndex[invKey{facilityID, medicationID}]
	if !ok {
		return fmt.Errorf("inventory facility %d medication %d: %w", facilityID, medicationID, ErrNotFound)
	}
	s.inventory[i].CurrentStock = stock
	return nil
}

func (s *Store) RecordRestock(_ context.Context, r sim.RestockReceipt) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.invIndex[invKey{r.FacilityID, r.MedicationID}]
	if !ok {
		return 0, fmt.Errorf("inventory facility %d medication %d: %w", r.FacilityID, r.MedicationID, ErrNotFound)
	}
	orderID := int64(len(s.orders) + 1)
	s.orders = append(s.orders, SupplyOrder{ID: orderID, FacilityID: r.FacilityID, SupplierID: r.SupplierID, At: r.At})
	if r.Anomaly != nil {
		s.supplyAnomalies = append(s.supplyAnomalies, SupplyAnomalyRow{OrderID: orderID, MedicationID: r.MedicationID, SupplyAnomaly: *r.Anomaly})
	}
	s.inventory[i].CurrentStock += r.ReceivedQuantity
	s.payments = append(s.payments, Payment{
		FacilityID:  r.FacilityID,
		SupplierID:  r.SupplierID,
		Amount:      r.Payment,
		At:          r.At,
		Description: r.Description,
	})
	return orderID, nil
}

func (s *Store) DuePayroll(_ context.Context, now time.Time) ([]sim.PayrollEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []sim.PayrollEntry
	for _, e := range s.payroll {
		if !e.NextDue.After(now) {
			due = append(due, e)
		}
	}
	return due, nil
}

func (s *Store) ClaimPayroll(_ context.Context, d sim.PayrollDisbursement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payroll {
		e := &s.payroll[i]
		if e.EmployeeID != d.EmployeeID {
			continue
		}
		if !e.NextDue.Equal(d.ExpectedDue) {
			return false, nil
		}
		paid := d.PaidAt
		e.LastPayment = &paid
		e.NextDue = d.NextDue
		s.payrollLogs = append(s.payrollLogs, d)
		return true, nil
	}
	return false, fmt.Errorf("payroll schedule for employee %d: %w", d.EmployeeID, ErrNotFound)
}
