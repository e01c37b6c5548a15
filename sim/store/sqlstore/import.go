package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wardsim/wardsim/sim/dataset"
)

// prescribingRoles are the role titles flagged can_prescribe on import.
var prescribingRoles = map[string]bool{"Doctor": true, "RN": true, "Pharmacist": true}

// Import writes a dataset into an empty, migrated database in a single
// transaction.
func (s *Store) Import(ctx context.Context, ds *dataset.Dataset) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		exec := func(what, query string, args ...any) error {
			if _, err := tx.ExecContext(ctx, s.rebind(query), args...); err != nil {
				return fmt.Errorf("import %s: %w", what, err)
			}
			return nil
		}

		for _, f := range ds.Facilities {
			if err := exec("hospital", `INSERT INTO hospitals (hospital_id, name, location, num_beds) VALUES (?, ?, ?, ?)`,
				f.ID, f.Name, f.Location, f.Beds); err != nil {
				return err
			}
		}
		for _, st := range ds.Staff {
			if err := exec("role", `INSERT INTO roles (title, can_prescribe) VALUES (?, ?) ON CONFLICT (title) DO NOTHING`,
				st.Role, prescribingRoles[st.Role]); err != nil {
				return err
			}
			if err := exec("employee", `
				INSERT INTO employees (employee_id, full_name, role_id, salary, integrity_score)
				VALUES (?, ?, (SELECT role_id FROM roles WHERE title = ?), ?, ?)`,
				st.ID, st.Name, st.Role, st.Salary, st.Integrity); err != nil {
				return err
			}
			if err := exec("employee hospital", `INSERT INTO employee_hospital (employee_id, hospital_id) VALUES (?, ?)`,
				st.ID, st.FacilityID); err != nil {
				return err
			}
		}
		for _, p := range ds.Patients {
			if err := exec("patient", `
				INSERT INTO patients (patient_id, full_name, age, race, pre_existing_conditions)
				VALUES (?, ?, ?, ?, ?)`, p.ID, p.Name, p.Age, p.Race, p.PreExistingConditions); err != nil {
				return err
			}
		}
		for _, ins := range ds.InsurancePlans {
			if err := exec("insurance provider", `INSERT INTO insurance_providers (insurance_id, name) VALUES (?, ?)`,
				ins.ID, ins.Name); err != nil {
				return err
			}
		}
		for _, m := range ds.Medications {
			if err := exec("medication", `INSERT INTO medications (medication_id, name, unit_cost) VALUES (?, ?, ?)`,
				m.ID, m.Name, m.UnitCost); err != nil {
				return err
			}
		}
		for _, p := range ds.Procedures {
			if err := exec("procedure", `INSERT INTO procedures (procedure_id, name, cost) VALUES (?, ?, ?)`,
				p.ID, p.Name, p.Cost); err != nil {
				return err
			}
		}
		for _, sym := range ds.Symptoms {
			if err := exec("symptom", `
				INSERT INTO symptoms (symptom_id, name, severity, procedure_id, medication_id, quantity)
				VALUES (?, ?, ?, ?, ?, ?)`,
				sym.ID, sym.Name, sym.Severity, nullInt(sym.ProcedureID), nullInt(sym.MedicationID), sym.Quantity); err != nil {
				return err
			}
		}
		for _, c := range ds.Conditions {
			if err := exec("condition", `
				INSERT INTO conditions (condition_id, name, mortality_per_hour, curability)
				VALUES (?, ?, ?, ?)`, c.ID, c.Name, c.MortalityPerHour, c.CurabilityPerHour); err != nil {
				return err
			}
			for i, id := range c.Symptoms {
				if err := exec("condition symptom", `INSERT INTO condition_symptoms (condition_id, position, symptom_id) VALUES (?, ?, ?)`,
					c.ID, i, id); err != nil {
					return err
				}
			}
			for i, id := range c.RequiredProcedures {
				if err := exec("condition procedure", `INSERT INTO condition_procedures (condition_id, procedure_id, position) VALUES (?, ?, ?)`,
					c.ID, id, i); err != nil {
					return err
				}
			}
			for i, id := range c.RequiredMedications {
				if err := exec("condition medication", `INSERT INTO condition_medications (condition_id, medication_id, position) VALUES (?, ?, ?)`,
					c.ID, id, i); err != nil {
					return err
				}
			}
		}
		for _, sup := range ds.Suppliers {
			if err := exec("supplier", `INSERT INTO suppliers (supplier_id, name) VALUES (?, ?)`, sup.ID, sup.Name); err != nil {
				return err
			}
			for _, med := range sup.Medications {
				if err := exec("supplier medication", `INSERT INTO supplier_medications (supplier_id, medication_id) VALUES (?, ?)`,
					sup.ID, med); err != nil {
					return err
				}
			}
		}
		for _, inv := range ds.Inventory {
			if err := exec("inventory", `
				INSERT INTO inventory (hospital_id, medication_id, current_stock, minimum_stock)
				VALUES (?, ?, ?, ?)`, inv.FacilityID, inv.MedicationID, inv.CurrentStock, inv.MinimumStock); err != nil {
				return err
			}
		}
		for _, p := range ds.Payroll {
			if err := exec("payroll schedule", `
				INSERT INTO payroll_schedule (employee_id, last_payment, next_due, frequency_hours)
				VALUES (?, ?, ?, ?)`, p.EmployeeID, s.nullTS(p.LastPayment), s.ts(p.NextDue), p.FrequencyHours); err != nil {
				return err
			}
		}
		return nil
	})
}
