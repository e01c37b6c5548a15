package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wardsim/wardsim/sim"
)

// LoadCatalog reads every reference table into an indexed snapshot.
func (s *Store) LoadCatalog(ctx context.Context) (*sim.Catalog, error) {
	c := &sim.Catalog{
		Symptoms:            make(map[int64]sim.Symptom),
		Medications:         make(map[int64]sim.Medication),
		Procedures:          make(map[int64]sim.Procedure),
		SupplierMedications: make(map[int64][]int64),
	}

	if err := s.each(ctx, `SELECT hospital_id, name, num_beds FROM hospitals ORDER BY hospital_id`, func(r *sql.Rows) error {
		var f sim.Facility
		if err := r.Scan(&f.ID, &f.Name, &f.Beds); err != nil {
			return err
		}
		c.Facilities = append(c.Facilities, f)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load hospitals: %w", err)
	}

	conditions := make(map[int64]int)
	if err := s.each(ctx, `SELECT condition_id, name, mortality_per_hour, curability FROM conditions ORDER BY condition_id`, func(r *sql.Rows) error {
		var cond sim.Condition
		if err := r.Scan(&cond.ID, &cond.Name, &cond.MortalityPerHour, &cond.CurabilityPerHour); err != nil {
			return err
		}
		conditions[cond.ID] = len(c.Conditions)
		c.Conditions = append(c.Conditions, cond)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load conditions: %w", err)
	}

	links := []struct {
		query string
		add   func(cond *sim.Condition, id int64)
	}{
		{
			`SELECT condition_id, symptom_id FROM condition_symptoms ORDER BY condition_id, position`,
			func(cond *sim.Condition, id int64) { cond.SymptomIDs = append(cond.SymptomIDs, id) },
		},
		{
			`SELECT condition_id, procedure_id FROM condition_procedures ORDER BY condition_id, position`,
			func(cond *sim.Condition, id int64) { cond.RequiredProcedures = append(cond.RequiredProcedures, id) },
		},
		{
			`SELECT condition_id, medication_id FROM condition_medications ORDER BY condition_id, position`,
			func(cond *sim.Condition, id int64) { cond.RequiredMedications = append(cond.RequiredMedications, id) },
		},
	}
	for _, l := range links {
		if err := s.each(ctx, l.query, func(r *sql.Rows) error {
			var condID, id int64
			if err := r.Scan(&condID, &id); err != nil {
				return err
			}
			if i, ok := conditions[condID]; ok {
				l.add(&c.Conditions[i], id)
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("load condition links: %w", err)
		}
	}

	if err := s.each(ctx, `SELECT symptom_id, name, severity, procedure_id, medication_id, quantity FROM symptoms`, func(r *sql.Rows) error {
		var sym sim.Symptom
		var proc, med sql.NullInt64
		if err := r.Scan(&sym.ID, &sym.Name, &sym.Severity, &proc, &med, &sym.StandardQuantity); err != nil {
			return err
		}
		sym.ProcedureID = proc.Int64
		sym.MedicationID = med.Int64
		c.Symptoms[sym.ID] = sym
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load symptoms: %w", err)
	}

	if err := s.each(ctx, `SELECT medication_id, name, unit_cost FROM medications`, func(r *sql.Rows) error {
		var m sim.Medication
		if err := r.Scan(&m.ID, &m.Name, &m.UnitCost); err != nil {
			return err
		}
		c.Medications[m.ID] = m
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load medications: %w", err)
	}

	if err := s.each(ctx, `SELECT procedure_id, name, cost FROM procedures`, func(r *sql.Rows) error {
		var p sim.Procedure
		if err := r.Scan(&p.ID, &p.Name, &p.Cost); err != nil {
			return err
		}
		c.Procedures[p.ID] = p
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load procedures: %w", err)
	}

	if err := s.each(ctx, `SELECT insurance_id FROM insurance_providers ORDER BY insurance_id`, func(r *sql.Rows) error {
		var id int64
		if err := r.Scan(&id); err != nil {
			return err
		}
		c.InsurancePlans = append(c.InsurancePlans, id)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load insurance providers: %w", err)
	}

	if err := s.each(ctx, `
		SELECT e.employee_id, eh.hospital_id, r.title, e.integrity_score, e.salary
		FROM employees e
		JOIN roles r ON r.role_id = e.role_id
		JOIN employee_hospital eh ON eh.employee_id = e.employee_id
		ORDER BY e.employee_id, eh.hospital_id`, func(r *sql.Rows) error {
		var st sim.StaffMember
		if err := r.Scan(&st.ID, &st.FacilityID, &st.Role, &st.Integrity, &st.AnnualSalary); err != nil {
			return err
		}
		c.Staff = append(c.Staff, st)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}

	if err := s.each(ctx, `SELECT supplier_id, medication_id FROM supplier_medications ORDER BY supplier_id`, func(r *sql.Rows) error {
		var supplier, med int64
		if err := r.Scan(&supplier, &med); err != nil {
			return err
		}
		c.SupplierMedications[med] = append(c.SupplierMedications[med], supplier)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load supplier medications: %w", err)
	}

	return c.Index(), nil
}

// Patients reads the population in id order.
func (s *Store) Patients(ctx context.Context) ([]sim.Patient, error) {
	var out []sim.Patient
	if err := s.each(ctx, `SELECT patient_id, age, race, pre_existing_conditions FROM patients ORDER BY patient_id`, func(r *sql.Rows) error {
		var p sim.Patient
		if err := r.Scan(&p.ID, &p.Age, &p.Race, &p.PreExistingConditions); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	return out, nil
}
