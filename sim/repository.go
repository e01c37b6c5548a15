package sim

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CaseLog is the initial daily-log row written at admission.
type CaseLog struct {
	PatientID    int64
	FacilityID   int64
	At           time.Time
	Status       string
	PrescriberID int64
	NurseID      int64
}

// CaseLogClosure finalizes a case's daily-log row at discharge.
type CaseLogClosure struct {
	LogID        int64
	Outcome      Outcome
	PrescriberID int64
	NurseID      int64
	DiagnosedAt  *time.Time
	Treatment    string // comma-joined performed procedure ids
	Prescription string // comma-joined administered medication ids
	DischargedAt time.Time
}

// Prescription is a medication order written by a prescriber.
type Prescription struct {
	PatientID    int64
	FacilityID   int64
	EmployeeID   int64
	MedicationID int64
	Quantity     int
	At           time.Time
}

// PrescriptionAnomaly records a prescription that deviates from standard quantity.
type PrescriptionAnomaly struct {
	PrescriptionID   int64
	EmployeeID       int64
	MedicationID     int64
	Type             string
	PrescribedQty    int
	StandardQuantity int
	At               time.Time
}

// Bill is the settlement of a discharged case.
type Bill struct {
	ID              int64
	PatientID       int64
	FacilityID      int64
	LogID           int64
	InsurancePlanID int64
	Total           decimal.Decimal
	ProcedureIDs    []int64 // distinct, in first-performed order
	At              time.Time
}

// InventoryRecord is the stock level of one medication at one facility.
type InventoryRecord struct {
	FacilityID   int64
	MedicationID int64
	CurrentStock int64
	MinimumStock int64
}

// SupplyAnomaly describes a deliberate deviation on a supply order.
type SupplyAnomaly struct {
	Type              string
	ExpectedQuantity  int64
	ReceivedQuantity  int64
	ExpectedUnitPrice decimal.Decimal
	PaidUnitPrice     decimal.Decimal
	Notes             string
}

// RestockReceipt is everything a single restock commits: the supply order,
// the optional anomaly, the stock increment and the supplier payment.
type RestockReceipt struct {
	FacilityID        int64
	MedicationID      int64
	SupplierID        int64
	RequestedQuantity int64
	ReceivedQuantity  int64
	ExpectedUnitPrice decimal.Decimal
	PaidUnitPrice     decimal.Decimal
	Payment           decimal.Decimal
	Description       string
	Anomaly           *SupplyAnomaly
	At                time.Time
}

// PayrollEntry is an employee's pay schedule.
type PayrollEntry struct {
	EmployeeID     int64
	FacilityID     int64
	AnnualSalary   decimal.Decimal
	LastPayment    *time.Time
	NextDue        time.Time
	FrequencyHours int
}

// PayrollDisbursement is one salary payment together with the schedule
// advance it claims.
type PayrollDisbursement struct {
	EmployeeID  int64
	FacilityID  int64
	ExpectedDue time.Time // the next_due value the claim was computed against
	NextDue     time.Time
	PaidAt      time.Time
	Gross       decimal.Decimal
	Net         decimal.Decimal
	Notes       string
}

// CatalogReader loads the read-only reference data.
type CatalogReader interface {
	LoadCatalog(ctx context.Context) (*Catalog, error)
	Patients(ctx context.Context) ([]Patient, error)
}

// CaseStore persists the case lifecycle. Every method is its own transaction.
type CaseStore interface {
	OpenCaseLog(ctx context.Context, log CaseLog) (int64, error)
	AppendTreatment(ctx context.Context, logID, procedureID int64) error
	RecordPrescription(ctx context.Context, p Prescription) (int64, error)
	RecordPrescriptionAnomaly(ctx context.Context, a PrescriptionAnomaly) error
	// PatientPrescriptions lists every prescription recorded for the patient,
	// across all of their stays, in id order.
	PatientPrescriptions(ctx context.Context, patientID int64) ([]PrescriptionLine, error)
	// CreateBill writes the bill and its procedure links, returning the bill id.
	CreateBill(ctx context.Context, b Bill) (int64, error)
	CloseCaseLog(ctx context.Context, c CaseLogClosure) error
}

// InventoryStore persists medication stock.
type InventoryStore interface {
	InventoryLevels(ctx context.Context) ([]InventoryRecord, error)
	SetStock(ctx context.Context, facilityID, medicationID, stock int64) error
	// RecordRestock commits a restock atomically and returns the supply order id.
	RecordRestock(ctx context.Context, r RestockReceipt) (int64, error)
}

// PayrollStore persists pay schedules and payroll logs.
type PayrollStore interface {
	DuePayroll(ctx context.Context, now time.Time) ([]PayrollEntry, error)
	// ClaimPayroll advances the schedule and logs the payment only if the
	// entry's next_due still equals d.ExpectedDue. It reports whether the
	// claim won.
	ClaimPayroll(ctx context.Context, d PayrollDisbursement) (bool, error)
}

// Repository is the full persistence contract of the engine.
type Repository interface {
	CatalogReader
	CaseStore
	InventoryStore
	PayrollStore
}
