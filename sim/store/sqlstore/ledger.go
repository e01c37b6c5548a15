package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/wardsim/wardsim/sim"
)

func (s *Store) insertReturning(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, s.rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) OpenCaseLog(ctx context.Context, log sim.CaseLog) (int64, error) {
	return s.insertReturning(ctx, s.db, `
		INSERT INTO patient_daily_logs (patient_id, hospital_id, simulation_timestamp, status, doctor_id, nurse_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING log_id`,
		log.PatientID, log.FacilityID, s.ts(log.At), log.Status, nullInt(log.PrescriberID), nullInt(log.NurseID))
}

func (s *Store) AppendTreatment(ctx context.Context, logID, procedureID int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE patient_daily_logs
		SET treatment = COALESCE(treatment || ',', '') || ?
		WHERE log_id = ?`), strconv.FormatInt(procedureID, 10), logID)
	if err != nil {
		return err
	}
	return expectRow(res, "daily log", logID)
}

func (s *Store) RecordPrescription(ctx context.Context, p sim.Prescription) (int64, error) {
	return s.insertReturning(ctx, s.db, `
		INSERT INTO prescriptions (patient_id, hospital_id, employee_id, medication_id, quantity_prescribed, simulation_timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING prescription_id`,
		p.PatientID, p.FacilityID, p.EmployeeID, p.MedicationID, p.Quantity, s.ts(p.At))
}

func (s *Store) PatientPrescriptions(ctx context.Context, patientID int64) ([]sim.PrescriptionLine, error) {
	var out []sim.PrescriptionLine
	err := s.each(ctx, `
		SELECT prescription_id, medication_id, quantity_prescribed
		FROM prescriptions
		WHERE patient_id = ?
		ORDER BY prescription_id`, func(r *sql.Rows) error {
		var l sim.PrescriptionLine
		if err := r.Scan(&l.PrescriptionID, &l.MedicationID, &l.Quantity); err != nil {
			return err
		}
		out = append(out, l)
		return nil
	}, patientID)
	if err != nil {
		return nil, fmt.Errorf("prescriptions of patient %d: %w", patientID, err)
	}
	return out, nil
}

func (s *Store) RecordPrescriptionAnomaly(ctx context.Context, a sim.PrescriptionAnomaly) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO prescription_anomalies
		  (prescription_id, employee_id, medication_id, anomaly_type, prescribed_quantity, standard_quantity, notes, simulation_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		a.PrescriptionID, a.EmployeeID, a.MedicationID, a.Type, a.PrescribedQty, a.StandardQuantity,
		"Quantity exceeds standard dose", s.ts(a.At))
	return err
}

func (s *Store) CreateBill(ctx context.Context, b sim.Bill) (int64, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.insertReturning(ctx, tx, `
			INSERT INTO billing (patient_id, hospital_id, log_id, insurance_id, total_cost, simulation_timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING bill_id`,
			b.PatientID, b.FacilityID, nullInt(b.LogID), nullInt(b.InsurancePlanID), b.Total, s.ts(b.At))
		if err != nil {
			return err
		}
		for _, proc := range b.ProcedureIDs {
			if _, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO billing_procedures (bill_id, procedure_id)
				VALUES (?, ?)
				ON CONFLICT DO NOTHING`), id, proc); err != nil {
				return fmt.Errorf("link procedure %d: %w", proc, err)
			}
		}
		return nil
	})
	return id, err
}

func (s *Store) CloseCaseLog(ctx context.Context, c sim.CaseLogClosure) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE patient_daily_logs
		SET outcome = ?, doctor_id = ?, nurse_id = ?, diagnosis = ?,
		    treatment = ?, prescription = ?, discharged_at = ?
		WHERE log_id = ?`),
		string(c.Outcome), nullInt(c.PrescriberID), nullInt(c.NurseID), s.nullTS(c.DiagnosedAt),
		nullString(c.Treatment), nullString(c.Prescription), s.ts(c.DischargedAt), c.LogID)
	if err != nil {
		return err
	}
	return expectRow(res, "daily log", c.LogID)
}

func (s *Store) InventoryLevels(ctx context.Context) ([]sim.InventoryRecord, error) {
	var out []sim.InventoryRecord
	err := s.each(ctx, `
		SELECT hospital_id, medication_id, current_stock, minimum_stock
		FROM inventory
		ORDER BY inventory_id`, func(r *sql.Rows) error {
		var rec sim.InventoryRecord
		if err := r.Scan(&rec.FacilityID, &rec.MedicationID, &rec.CurrentStock, &rec.MinimumStock); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (s *Store) SetStock(ctx context.Context, facilityID, medicationID, stock int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE inventory SET current_stock = ?
		WHERE hospital_id = ? AND medication_id = ?`), stock, facilityID, medicationID)
	if err != nil {
		return err
	}
	return expectRow(res, "inventory for medication", medicationID)
}

func (s *Store) RecordRestock(ctx context.Context, r sim.RestockReceipt) (int64, error) {
	var orderID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		orderID, err = s.insertReturning(ctx, tx, `
			INSERT INTO supply_orders (hospital_id, supplier_id, simulation_timestamp)
			VALUES (?, ?, ?)
			RETURNING order_id`, r.FacilityID, r.SupplierID, s.ts(r.At))
		if err != nil {
			return fmt.Errorf("insert supply order: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO supply_order_items (order_id, medication_id, requested_quantity, received_quantity, unit_price)
			VALUES (?, ?, ?, ?, ?)`),
			orderID, r.MedicationID, r.RequestedQuantity, r.ReceivedQuantity, r.PaidUnitPrice); err != nil {
			return fmt.Errorf("insert supply order item: %w", err)
		}
		if a := r.Anomaly; a != nil {
			if _, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO supply_anomalies
				  (order_id, medication_id, anomaly_type, expected_quantity, received_quantity,
				   expected_unit_price, paid_unit_price, notes)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				orderID, r.MedicationID, a.Type, a.ExpectedQuantity, a.ReceivedQuantity,
				a.ExpectedUnitPrice, a.PaidUnitPrice, a.Notes); err != nil {
				return fmt.Errorf("insert supply anomaly: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE inventory SET current_stock = current_stock + ?
			WHERE hospital_id = ? AND medication_id = ?`), r.ReceivedQuantity, r.FacilityID, r.MedicationID)
		if err != nil {
			return fmt.Errorf("increment stock: %w", err)
		}
		if err := expectRow(res, "inventory for medication", r.MedicationID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO payments (hospital_id, supplier_id, amount, simulation_timestamp, description)
			VALUES (?, ?, ?, ?, ?)`),
			r.FacilityID, r.SupplierID, r.Payment, s.ts(r.At), r.Description); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		return nil
	})
	return orderID, err
}

func (s *Store) DuePayroll(ctx context.Context, now time.Time) ([]sim.PayrollEntry, error) {
	var out []sim.PayrollEntry
	err := s.each(ctx, `
		SELECT ps.employee_id,
		       (SELECT MIN(eh.hospital_id) FROM employee_hospital eh WHERE eh.employee_id = ps.employee_id),
		       e.salary, ps.last_payment, ps.next_due, ps.frequency_hours
		FROM payroll_schedule ps
		JOIN employees e ON e.employee_id = ps.employee_id
		WHERE ps.next_due <= ?
		ORDER BY ps.employee_id`, func(r *sql.Rows) error {
		var e sim.PayrollEntry
		var facility sql.NullInt64
		var last time.Time
		lastScan := timeScanner{dst: &last}
		if err := r.Scan(&e.EmployeeID, &facility, &e.AnnualSalary, &lastScan, &timeScanner{dst: &e.NextDue}, &e.FrequencyHours); err != nil {
			return err
		}
		e.FacilityID = facility.Int64
		if lastScan.valid {
			e.LastPayment = &last
		}
		out = append(out, e)
		return nil
	}, s.ts(now))
	return out, err
}

// ClaimPayroll advances the schedule with a compare-and-set on next_due and
// logs the payment in the same transaction.
func (s *Store) ClaimPayroll(ctx context.Context, d sim.PayrollDisbursement) (bool, error) {
	won := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE payroll_schedule
			SET last_payment = ?, next_due = ?
			WHERE employee_id = ? AND next_due = ?`),
			s.ts(d.PaidAt), s.ts(d.NextDue), d.EmployeeID, s.ts(d.ExpectedDue))
		if err != nil {
			return fmt.Errorf("advance schedule: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO payroll_logs (employee_id, hospital_id, simulation_timestamp, gross_salary, net_salary, notes)
			VALUES (?, ?, ?, ?, ?, ?)`),
			d.EmployeeID, nullInt(d.FacilityID), s.ts(d.PaidAt), d.Gross, d.Net, d.Notes); err != nil {
			return fmt.Errorf("insert payroll log: %w", err)
		}
		won = true
		return nil
	})
	return won, err
}

func expectRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
