package trace

import (
	"sort"
	"time"
)

// Event kinds the summary looks at. They mirror the engine's observation kinds.
const (
	kindAdmission           = "admission"
	kindPrescription        = "prescription"
	kindPrescriptionAnomaly = "prescription_anomaly"
	kindDischarge           = "discharge"
	kindRestock             = "restock"
	kindSupplyAnomaly       = "supply_anomaly"
)

// Summary aggregates statistics from a trace.
type Summary struct {
	Events     int
	RunIDs     []string       // distinct, sorted
	ByKind     map[string]int // kind → count
	Outcomes   map[string]int // discharge outcome → count
	First      time.Time
	Last       time.Time
	Admissions int

	// Anomaly rates are anomalous events over their parent events; 0 when
	// the parent count is 0.
	PrescriptionAnomalyRate float64
	SupplyAnomalyRate       float64

	// Flagged counts prescription anomalies per prescriber id.
	Flagged map[int64]int
}

// Summarize computes aggregate statistics from trace records.
// Safe for nil or empty input (returns zero-value fields).
func Summarize(records []Record) *Summary {
	s := &Summary{
		ByKind:   make(map[string]int),
		Outcomes: make(map[string]int),
		Flagged:  make(map[int64]int),
	}
	runs := make(map[string]bool)
	for _, r := range records {
		s.Events++
		s.ByKind[r.Kind]++
		if id := r.String("run_id"); id != "" {
			runs[id] = true
		}
		if s.First.IsZero() || r.At.Before(s.First) {
			s.First = r.At
		}
		if r.At.After(s.Last) {
			s.Last = r.At
		}
		switch r.Kind {
		case kindDischarge:
			s.Outcomes[r.String("outcome")]++
		case kindPrescriptionAnomaly:
			s.Flagged[r.Int("employee_id")]++
		}
	}
	for id := range runs {
		s.RunIDs = append(s.RunIDs, id)
	}
	sort.Strings(s.RunIDs)

	s.Admissions = s.ByKind[kindAdmission]
	s.PrescriptionAnomalyRate = rate(s.ByKind[kindPrescriptionAnomaly], s.ByKind[kindPrescription])
	s.SupplyAnomalyRate = rate(s.ByKind[kindSupplyAnomaly], s.ByKind[kindRestock])
	return s
}

// Kinds returns the observed kinds sorted by name.
func (s *Summary) Kinds() []string {
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func rate(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of)
}
