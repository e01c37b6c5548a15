package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SmallDataset(t *testing.T) {
	ds, err := Load("testdata/small.yaml")
	require.NoError(t, err)

	assert.Len(t, ds.Facilities, 2)
	assert.Len(t, ds.Patients, 12)
	assert.True(t, decimal.RequireFromString("0.85").Equal(ds.Medications[0].UnitCost))
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), ds.Payroll[0].NextDue.UTC())
	assert.Equal(t, []int64{3, 99}, ds.Conditions[1].Symptoms, "unresolvable symptom ids survive loading")
}

func TestDecode_UnknownFieldRejected(t *testing.T) {
	_, err := Decode(strings.NewReader("facilities:\n  - {id: 1, name: A, bedz: 3}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bedz")
}

func TestValidate_CrossReferences(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "staff at unknown facility",
			doc:  "staff:\n  - {id: 1, facility_id: 9, role: RN, integrity: 0, salary: '1'}\n",
			want: "unknown facility 9",
		},
		{
			name: "duplicate facility",
			doc:  "facilities:\n  - {id: 1, name: A, beds: 1}\n  - {id: 1, name: B, beds: 1}\n",
			want: "duplicate facility id 1",
		},
		{
			name: "required medication missing",
			doc:  "conditions:\n  - {id: 1, name: X, mortality_per_hour: 0, curability_per_hour: 0, required_medications: [7]}\n",
			want: "unknown required medication 7",
		},
		{
			name: "integrity out of range",
			doc: "facilities:\n  - {id: 1, name: A, beds: 1}\n" +
				"staff:\n  - {id: 1, facility_id: 1, role: RN, integrity: 1.5, salary: '1'}\n",
			want: "integrity must be in [0,1]",
		},
		{
			name: "negative stock",
			doc: "facilities:\n  - {id: 1, name: A, beds: 1}\n" +
				"medications:\n  - {id: 1, name: M, unit_cost: '1'}\n" +
				"inventory:\n  - {facility_id: 1, medication_id: 1, current_stock: -1, minimum_stock: 0}\n",
			want: "stock levels must be non-negative",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestFillPayroll_OnlyMissingEmployees(t *testing.T) {
	ds, err := Load("testdata/small.yaml")
	require.NoError(t, err)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	added := ds.FillPayroll(start, DefaultPayFrequencyHours)

	assert.Equal(t, 4, added)
	assert.Len(t, ds.Payroll, 6)
	assert.Equal(t, 0, ds.FillPayroll(start, DefaultPayFrequencyHours), "second fill is a no-op")
	for _, p := range ds.Payroll[2:] {
		assert.Equal(t, start, p.NextDue)
		assert.Equal(t, 336, p.FrequencyHours)
	}
}

func TestCatalog_IndexesReferenceData(t *testing.T) {
	ds, err := Load("testdata/small.yaml")
	require.NoError(t, err)

	c := ds.Catalog()

	assert.Equal(t, []int64{1, 2}, c.SuppliersFor(1))
	assert.Empty(t, c.SuppliersFor(4))
	assert.Len(t, c.StaffAt(1, "Doctor"), 2)
	assert.Len(t, c.StaffAt(2, "RN"), 1)
	sym, ok := c.Symptom(3)
	require.True(t, ok)
	assert.Equal(t, 6, sym.StandardQuantity)
	_, ok = c.Symptom(99)
	assert.False(t, ok)
	assert.Len(t, ds.SimPatients(), 12)
}
