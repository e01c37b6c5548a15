package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardsim/wardsim/sim"
	"github.com/wardsim/wardsim/sim/dataset"
)

// openTestStores returns a migrated, seeded SQLite store, plus a Postgres one
// when WARDSIM_TEST_POSTGRES_DSN points at an empty database.
func openTestStores(t *testing.T) map[Dialect]*Store {
	t.Helper()
	ctx := context.Background()
	ds, err := dataset.Load("../../dataset/testdata/small.yaml")
	require.NoError(t, err)

	stores := map[Dialect]*Store{}
	lite, err := Open(ctx, SQLite, filepath.Join(t.TempDir(), "wardsim.db"))
	require.NoError(t, err)
	stores[SQLite] = lite
	if dsn := os.Getenv("WARDSIM_TEST_POSTGRES_DSN"); dsn != "" {
		pg, err := Open(ctx, Postgres, dsn)
		require.NoError(t, err)
		tables := Tables()
		for i := len(tables) - 1; i >= 0; i-- {
			_, err := pg.DB().ExecContext(ctx, "DROP TABLE IF EXISTS "+tables[i]+" CASCADE")
			require.NoError(t, err)
		}
		stores[Postgres] = pg
	}
	for _, s := range stores {
		s := s
		t.Cleanup(func() { _ = s.Close() })
		require.NoError(t, s.Migrate(ctx))
		require.NoError(t, s.Migrate(ctx), "migrate is idempotent")
		require.NoError(t, s.Import(ctx, ds))
	}
	return stores
}

func TestRebind(t *testing.T) {
	pg := New(nil, Postgres)
	lite := New(nil, SQLite)
	q := `UPDATE t SET a = ? WHERE b = ? AND c = ?`
	assert.Equal(t, `UPDATE t SET a = $1 WHERE b = $2 AND c = $3`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (\n  x INT\n);\n\nCREATE INDEX i ON a (x);\n")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (\n  x INT\n);", stmts[0])
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("SQLite")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)
	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestStore_LoadCatalogMatchesDataset(t *testing.T) {
	ds, err := dataset.Load("../../dataset/testdata/small.yaml")
	require.NoError(t, err)
	want := ds.Catalog()

	for dialect, s := range openTestStores(t) {
		t.Run(string(dialect), func(t *testing.T) {
			got, err := s.LoadCatalog(context.Background())
			require.NoError(t, err)

			assert.Equal(t, want.Facilities, got.Facilities)
			assert.Equal(t, want.InsurancePlans, got.InsurancePlans)
			assert.Equal(t, want.SupplierMedications, got.SupplierMedications)
			require.Len(t, got.Conditions, len(want.Conditions))
			for i := range want.Conditions {
				assert.Equal(t, want.Conditions[i].SymptomIDs, got.Conditions[i].SymptomIDs)
				assert.Equal(t, want.Conditions[i].RequiredProcedures, got.Conditions[i].RequiredProcedures)
			}
			for id, m := range want.Medications {
				assert.True(t, m.UnitCost.Equal(got.Medications[id].UnitCost), "medication %d unit cost", id)
			}
			assert.Equal(t, want.Symptoms, got.Symptoms)
			require.Len(t, got.Staff, len(want.Staff))
			assert.Equal(t, "Doctor", got.Staff[0].Role)
			assert.True(t, decimal.NewFromInt(260000).Equal(got.Staff[0].AnnualSalary))

			patients, err := s.Patients(context.Background())
			require.NoError(t, err)
			assert.Equal(t, ds.SimPatients(), patients)
		})
	}
}

func TestStore_CaseLifecycle(t *testing.T) {
	for dialect, s := range openTestStores(t) {
		t.Run(string(dialect), func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2025, 1, 6, 5, 0, 0, 0, time.UTC)

			logID, err := s.OpenCaseLog(ctx, sim.CaseLog{PatientID: 2, FacilityID: 1, At: now, Status: sim.StatusAdmitted, PrescriberID: 1, NurseID: 3})
			require.NoError(t, err)
			require.NoError(t, s.AppendTreatment(ctx, logID, 1))
			require.NoError(t, s.AppendTreatment(ctx, logID, 1))

			var treatment string
			require.NoError(t, s.DB().QueryRowContext(ctx, s.rebind(`SELECT treatment FROM patient_daily_logs WHERE log_id = ?`), logID).Scan(&treatment))
			assert.Equal(t, "1,1", treatment)

			rxID, err := s.RecordPrescription(ctx, sim.Prescription{PatientID: 2, FacilityID: 1, EmployeeID: 1, MedicationID: 1, Quantity: 28, At: now})
			require.NoError(t, err)
			require.NoError(t, s.RecordPrescriptionAnomaly(ctx, sim.PrescriptionAnomaly{
				PrescriptionID: rxID, EmployeeID: 1, MedicationID: 1, Type: sim.AnomalyOverprescribe,
				PrescribedQty: 28, StandardQuantity: 14, At: now,
			}))

			_, err = s.RecordPrescription(ctx, sim.Prescription{PatientID: 3, FacilityID: 1, EmployeeID: 1, MedicationID: 2, Quantity: 5, At: now})
			require.NoError(t, err)
			_, err = s.RecordPrescription(ctx, sim.Prescription{PatientID: 2, FacilityID: 1, EmployeeID: 2, MedicationID: 4, Quantity: 2, At: now})
			require.NoError(t, err)
			history, err := s.PatientPrescriptions(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, []sim.PrescriptionLine{
				{PrescriptionID: rxID, MedicationID: 1, Quantity: 28},
				{PrescriptionID: rxID + 2, MedicationID: 4, Quantity: 2},
			}, history)

			billID, err := s.CreateBill(ctx, sim.Bill{
				PatientID: 2, FacilityID: 1, LogID: logID, InsurancePlanID: 1,
				Total: decimal.RequireFromString("333.80"), ProcedureIDs: []int64{1}, At: now,
			})
			require.NoError(t, err)
			var links int
			require.NoError(t, s.DB().QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM billing_procedures WHERE bill_id = ?`), billID).Scan(&links))
			assert.Equal(t, 1, links)

			discharged := now.Add(3 * time.Hour)
			require.NoError(t, s.CloseCaseLog(ctx, sim.CaseLogClosure{
				LogID: logID, Outcome: sim.OutcomeRecovered, PrescriberID: 1, NurseID: 3,
				DiagnosedAt: &now, Treatment: "1,1", Prescription: "1", DischargedAt: discharged,
			}))
			var outcome string
			var diagnosis time.Time
			require.NoError(t, s.DB().QueryRowContext(ctx, s.rebind(`SELECT outcome, diagnosis FROM patient_daily_logs WHERE log_id = ?`), logID).
				Scan(&outcome, &timeScanner{dst: &diagnosis}))
			assert.Equal(t, "Recovered", outcome)
			assert.True(t, now.Equal(diagnosis))

			assert.ErrorIs(t, s.AppendTreatment(ctx, 9999, 1), ErrNotFound)
		})
	}
}

func TestStore_StockNeverNegative(t *testing.T) {
	for dialect, s := range openTestStores(t) {
		t.Run(string(dialect), func(t *testing.T) {
			ctx := context.Background()
			assert.Error(t, s.SetStock(ctx, 1, 1, -5), "check constraint rejects negative stock")
			require.NoError(t, s.SetStock(ctx, 1, 1, 0))
			levels, err := s.InventoryLevels(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), levels[0].CurrentStock)
		})
	}
}

func TestStore_RecordRestock(t *testing.T) {
	for dialect, s := range openTestStores(t) {
		t.Run(string(dialect), func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2025, 1, 6, 6, 0, 0, 0, time.UTC)

			orderID, err := s.RecordRestock(ctx, sim.RestockReceipt{
				FacilityID: 1, MedicationID: 1, SupplierID: 1,
				RequestedQuantity: 50000, ReceivedQuantity: 55000,
				ExpectedUnitPrice: decimal.RequireFromString("0.85"),
				PaidUnitPrice:     decimal.RequireFromString("0.765"),
				Payment:           decimal.RequireFromString("42075"),
				Description:       sim.DescriptionRestock,
				Anomaly: &sim.SupplyAnomaly{
					Type: "Over-delivery, Underpayment", ExpectedQuantity: 50000, ReceivedQuantity: 55000,
					ExpectedUnitPrice: decimal.RequireFromString("0.85"), PaidUnitPrice: decimal.RequireFromString("0.765"),
					Notes: "Auto-detected supply anomaly",
				},
				At: now,
			})
			require.NoError(t, err)

			levels, err := s.InventoryLevels(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(95000), levels[0].CurrentStock)

			var anomalyOrder int64
			var paid decimal.Decimal
			require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT order_id, paid_unit_price FROM supply_anomalies`).Scan(&anomalyOrder, &paid))
			assert.Equal(t, orderID, anomalyOrder)
			assert.True(t, decimal.RequireFromString("0.765").Equal(paid))

			var amount decimal.Decimal
			var desc string
			require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT amount, description FROM payments`).Scan(&amount, &desc))
			assert.True(t, decimal.NewFromInt(42075).Equal(amount))
			assert.Equal(t, "Inventory restock", desc)
		})
	}
}

func TestStore_ClaimPayroll_PaysEachPeriodOnce(t *testing.T) {
	for dialect, s := range openTestStores(t) {
		t.Run(string(dialect), func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2025, 1, 6, 4, 0, 0, 0, time.UTC)

			due, err := s.DuePayroll(ctx, now)
			require.NoError(t, err)
			require.Len(t, due, 2)
			e := due[1]
			assert.Equal(t, int64(3), e.EmployeeID)
			assert.Equal(t, int64(1), e.FacilityID)
			assert.Nil(t, e.LastPayment)
			assert.Equal(t, time.Date(2025, 1, 6, 3, 0, 0, 0, time.UTC), e.NextDue)

			d := sim.PayrollDisbursement{
				EmployeeID: e.EmployeeID, FacilityID: e.FacilityID,
				ExpectedDue: e.NextDue, NextDue: e.NextDue.Add(336 * time.Hour), PaidAt: now,
				Gross: decimal.NewFromInt(3500), Net: decimal.NewFromInt(2800), Notes: sim.NotesPayroll,
			}
			won, err := s.ClaimPayroll(ctx, d)
			require.NoError(t, err)
			assert.True(t, won)
			won, err = s.ClaimPayroll(ctx, d)
			require.NoError(t, err)
			assert.False(t, won, "stale next_due loses the claim")

			var logs int
			require.NoError(t, s.DB().QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM payroll_logs WHERE employee_id = ?`), e.EmployeeID).Scan(&logs))
			assert.Equal(t, 1, logs)

			due, err = s.DuePayroll(ctx, now)
			require.NoError(t, err)
			require.Len(t, due, 1)
			assert.Equal(t, int64(1), due[0].EmployeeID)
		})
	}
}
