package dataset

import (
	"fmt"
	"strings"
)

// Validate checks identifier uniqueness and cross-references. Condition
// symptom ids are deliberately not checked: an unresolvable symptom is a
// data-quality case the engine handles at triage.
func (d *Dataset) Validate() error {
	var errs []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Sprintf(format, args...))
		}
	}

	facilities := ids(len(d.Facilities), func(i int) int64 { return d.Facilities[i].ID }, "facility", check)
	medications := ids(len(d.Medications), func(i int) int64 { return d.Medications[i].ID }, "medication", check)
	procedures := ids(len(d.Procedures), func(i int) int64 { return d.Procedures[i].ID }, "procedure", check)
	staff := ids(len(d.Staff), func(i int) int64 { return d.Staff[i].ID }, "staff", check)
	ids(len(d.Patients), func(i int) int64 { return d.Patients[i].ID }, "patient", check)
	ids(len(d.Conditions), func(i int) int64 { return d.Conditions[i].ID }, "condition", check)
	ids(len(d.Symptoms), func(i int) int64 { return d.Symptoms[i].ID }, "symptom", check)
	ids(len(d.InsurancePlans), func(i int) int64 { return d.InsurancePlans[i].ID }, "insurance plan", check)
	ids(len(d.Suppliers), func(i int) int64 { return d.Suppliers[i].ID }, "supplier", check)

	for _, f := range d.Facilities {
		check(f.Beds >= 0, "facility %d: beds must be non-negative, got %d", f.ID, f.Beds)
	}
	for _, s := range d.Staff {
		check(facilities[s.FacilityID], "staff %d: unknown facility %d", s.ID, s.FacilityID)
		check(s.Role != "", "staff %d: role is required", s.ID)
		check(s.Integrity >= 0 && s.Integrity <= 1, "staff %d: integrity must be in [0,1], got %v", s.ID, s.Integrity)
		check(!s.Salary.IsNegative(), "staff %d: salary must be non-negative", s.ID)
	}
	for _, m := range d.Medications {
		check(!m.UnitCost.IsNegative(), "medication %d: unit_cost must be non-negative", m.ID)
	}
	for _, p := range d.Procedures {
		check(!p.Cost.IsNegative(), "procedure %d: cost must be non-negative", p.ID)
	}
	for _, c := range d.Conditions {
		check(c.MortalityPerHour >= 0 && c.MortalityPerHour <= 1, "condition %d: mortality_per_hour must be in [0,1]", c.ID)
		check(c.CurabilityPerHour >= 0 && c.CurabilityPerHour <= 1, "condition %d: curability_per_hour must be in [0,1]", c.ID)
		for _, p := range c.RequiredProcedures {
			check(procedures[p], "condition %d: unknown required procedure %d", c.ID, p)
		}
		for _, m := range c.RequiredMedications {
			check(medications[m], "condition %d: unknown required medication %d", c.ID, m)
		}
	}
	for _, s := range d.Symptoms {
		check(s.ProcedureID == 0 || procedures[s.ProcedureID], "symptom %d: unknown procedure %d", s.ID, s.ProcedureID)
		check(s.MedicationID == 0 || medications[s.MedicationID], "symptom %d: unknown medication %d", s.ID, s.MedicationID)
		check(s.Quantity >= 0, "symptom %d: quantity must be non-negative, got %d", s.ID, s.Quantity)
	}
	for _, s := range d.Suppliers {
		for _, m := range s.Medications {
			check(medications[m], "supplier %d: unknown medication %d", s.ID, m)
		}
	}
	type stockKey struct{ facility, medication int64 }
	stock := make(map[stockKey]bool, len(d.Inventory))
	for _, inv := range d.Inventory {
		k := stockKey{inv.FacilityID, inv.MedicationID}
		check(!stock[k], "inventory: duplicate record for facility %d medication %d", inv.FacilityID, inv.MedicationID)
		stock[k] = true
		check(facilities[inv.FacilityID], "inventory: unknown facility %d", inv.FacilityID)
		check(medications[inv.MedicationID], "inventory: unknown medication %d", inv.MedicationID)
		check(inv.CurrentStock >= 0 && inv.MinimumStock >= 0,
			"inventory facility %d medication %d: stock levels must be non-negative", inv.FacilityID, inv.MedicationID)
	}
	scheduled := make(map[int64]bool, len(d.Payroll))
	for _, p := range d.Payroll {
		check(staff[p.EmployeeID], "payroll: unknown employee %d", p.EmployeeID)
		check(!scheduled[p.EmployeeID], "payroll: duplicate schedule for employee %d", p.EmployeeID)
		scheduled[p.EmployeeID] = true
		check(p.FrequencyHours > 0, "payroll employee %d: frequency_hours must be positive, got %d", p.EmployeeID, p.FrequencyHours)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid dataset: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ids collects a table's identifiers, reporting duplicates and non-positive ids.
func ids(n int, id func(int) int64, table string, check func(bool, string, ...any)) map[int64]bool {
	seen := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		v := id(i)
		check(v > 0, "%s ids must be positive, got %d", table, v)
		check(!seen[v], "duplicate %s id %d", table, v)
		seen[v] = true
	}
	return seen
}
