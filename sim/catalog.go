package sim

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Facility is a hospital in the network.
type Facility struct {
	ID   int64
	Name string
	Beds int
}

// Patient carries the demographics of a member of the synthetic population.
type Patient struct {
	ID                    int64
	Age                   int
	Race                  string
	PreExistingConditions string
}

// StaffMember is an employee rostered at a facility.
type StaffMember struct {
	ID           int64
	FacilityID   int64
	Role         string
	Integrity    float64 // probability in [0,1] of an over-prescription draw
	AnnualSalary decimal.Decimal
}

// Condition is an immutable catalog entry describing an illness.
type Condition struct {
	ID                  int64
	Name                string
	MortalityPerHour    float64
	CurabilityPerHour   float64
	RequiredProcedures  []int64
	RequiredMedications []int64
	SymptomIDs          []int64 // possible symptoms; ids may fail to resolve
}

// Symptom is the catalog metadata for a symptom. ProcedureID and MedicationID
// are 0 when the symptom carries no linked treatment.
type Symptom struct {
	ID               int64
	Name             string
	Severity         int
	ProcedureID      int64
	MedicationID     int64
	StandardQuantity int
}

// Medication is a catalog medication with its unit cost.
type Medication struct {
	ID       int64
	Name     string
	UnitCost decimal.Decimal
}

// Procedure is a catalog procedure with its cost.
type Procedure struct {
	ID   int64
	Name string
	Cost decimal.Decimal
}

// Catalog is a read-only snapshot of the reference data, loaded once per run.
// Slices are kept in a stable order so that seeded draws are reproducible.
type Catalog struct {
	Facilities          []Facility
	Conditions          []Condition
	Symptoms            map[int64]Symptom
	Medications         map[int64]Medication
	Procedures          map[int64]Procedure
	InsurancePlans      []int64
	Staff               []StaffMember
	SupplierMedications map[int64][]int64 // medication id -> supplier ids

	roster map[rosterKey][]StaffMember
}

type rosterKey struct {
	facility int64
	role     string
}

// Index sorts the catalog into its canonical order and builds lookup tables.
// Repositories call it before handing the catalog out.
func (c *Catalog) Index() *Catalog {
	sort.Slice(c.Facilities, func(i, j int) bool { return c.Facilities[i].ID < c.Facilities[j].ID })
	sort.Slice(c.Conditions, func(i, j int) bool { return c.Conditions[i].ID < c.Conditions[j].ID })
	sort.Slice(c.InsurancePlans, func(i, j int) bool { return c.InsurancePlans[i] < c.InsurancePlans[j] })
	sort.Slice(c.Staff, func(i, j int) bool { return c.Staff[i].ID < c.Staff[j].ID })
	for _, suppliers := range c.SupplierMedications {
		sort.Slice(suppliers, func(i, j int) bool { return suppliers[i] < suppliers[j] })
	}
	if c.Symptoms == nil {
		c.Symptoms = make(map[int64]Symptom)
	}
	if c.Medications == nil {
		c.Medications = make(map[int64]Medication)
	}
	if c.Procedures == nil {
		c.Procedures = make(map[int64]Procedure)
	}
	if c.SupplierMedications == nil {
		c.SupplierMedications = make(map[int64][]int64)
	}

	c.roster = make(map[rosterKey][]StaffMember)
	for _, s := range c.Staff {
		k := rosterKey{facility: s.FacilityID, role: s.Role}
		c.roster[k] = append(c.roster[k], s)
	}
	return c
}

// StaffAt returns the staff rostered at a facility in the given role.
func (c *Catalog) StaffAt(facilityID int64, role string) []StaffMember {
	if c.roster == nil {
		c.Index()
	}
	return c.roster[rosterKey{facility: facilityID, role: role}]
}

// SuppliersFor returns the suppliers known to carry a medication.
func (c *Catalog) SuppliersFor(medicationID int64) []int64 {
	return c.SupplierMedications[medicationID]
}

func (c *Catalog) Medication(id int64) (Medication, bool) {
	m, ok := c.Medications[id]
	return m, ok
}

func (c *Catalog) Procedure(id int64) (Procedure, bool) {
	p, ok := c.Procedures[id]
	return p, ok
}

func (c *Catalog) Symptom(id int64) (Symptom, bool) {
	s, ok := c.Symptoms[id]
	return s, ok
}

// StaffMember looks up an employee by id.
func (c *Catalog) StaffMember(id int64) (StaffMember, bool) {
	i := sort.Search(len(c.Staff), func(i int) bool { return c.Staff[i].ID >= id })
	if i < len(c.Staff) && c.Staff[i].ID == id {
		return c.Staff[i], true
	}
	return StaffMember{}, false
}
