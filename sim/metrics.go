// Tracks run-wide counters and totals: admissions, outcomes, anomalies,
// restocks, payroll and money flows.

package sim

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// stayStats summarizes length of stay in hours over discharged cases.
type stayStats struct {
	Count  int
	Mean   float64
	Median float64
	P95    float64
	Max    float64
}

// summarizeStays reports nearest-rank percentiles: every value is an observed stay.
func summarizeStays(hours []float64) stayStats {
	if len(hours) == 0 {
		return stayStats{}
	}
	sorted := append([]float64(nil), hours...)
	sort.Float64s(sorted)
	sum := 0.0
	for _, h := range sorted {
		sum += h
	}
	rank := func(p float64) float64 {
		i := int(math.Ceil(p*float64(len(sorted)))) - 1
		return sorted[max(i, 0)]
	}
	return stayStats{
		Count:  len(sorted),
		Mean:   sum / float64(len(sorted)),
		Median: rank(0.50),
		P95:    rank(0.95),
		Max:    sorted[len(sorted)-1],
	}
}

// Metrics aggregates the observations of a run for final reporting and
// exports them as Prometheus collectors on a private registry.
type Metrics struct {
	mu sync.Mutex

	Admissions            int
	Discharges            map[Outcome]int
	Prescriptions         int
	PrescriptionAnomalies int
	Procedures            int
	Diagnoses             int
	Restocks              int
	RestocksSkipped       int
	SupplyAnomalies       int
	PayrollPayments       int
	Ticks                 int
	PeakActiveCases       int

	Billed       decimal.Decimal // sum of bill totals
	SupplierPaid decimal.Decimal // sum of restock payments
	PayrollNet   decimal.Decimal // sum of net salary paid

	StayHours []float64 // length of stay of every discharged case

	registry    *prometheus.Registry
	events      *prometheus.CounterVec
	discharges  *prometheus.CounterVec
	money       *prometheus.CounterVec
	activeCases prometheus.Gauge
	stay        prometheus.Histogram
}

// NewMetrics creates an empty Metrics with its collectors registered.
func NewMetrics() *Metrics {
	m := &Metrics{
		Discharges:   make(map[Outcome]int),
		Billed:       decimal.Zero,
		SupplierPaid: decimal.Zero,
		PayrollNet:   decimal.Zero,
		registry:     prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wardsim",
			Name:      "events_total",
			Help:      "Engine observations by kind.",
		}, []string{"kind"}),
		discharges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wardsim",
			Name:      "discharges_total",
			Help:      "Discharged cases by outcome.",
		}, []string{"outcome"}),
		money: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wardsim",
			Name:      "money_total",
			Help:      "Money moved by flow: billed, supplier or payroll_net.",
		}, []string{"flow"}),
		activeCases: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wardsim",
			Name:      "active_cases",
			Help:      "Open cases at the end of the last tick.",
		}),
		stay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wardsim",
			Name:      "length_of_stay_hours",
			Help:      "Hours from admission to discharge.",
			Buckets:   []float64{1, 2, 4, 8, 12, 24, 48, 72, 96},
		}),
	}
	m.registry.MustRegister(m.events, m.discharges, m.money, m.activeCases, m.stay)
	return m
}

// Registry returns the registry holding the run's collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the collectors in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Observe folds an observation into the counters.
func (m *Metrics) Observe(o Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events.WithLabelValues(string(o.Kind)).Inc()
	switch o.Kind {
	case KindAdmission:
		m.Admissions++
	case KindPrescription:
		m.Prescriptions++
	case KindPrescriptionAnomaly:
		m.PrescriptionAnomalies++
	case KindProcedure:
		m.Procedures++
	case KindDiagnosis:
		m.Diagnoses++
	case KindDischarge:
		outcome, _ := o.Attrs["outcome"].(string)
		m.Discharges[Outcome(outcome)]++
		m.discharges.WithLabelValues(outcome).Inc()
		if total, ok := o.Attrs["total"].(decimal.Decimal); ok {
			m.Billed = m.Billed.Add(total)
			m.money.WithLabelValues("billed").Add(total.InexactFloat64())
		}
		if h, ok := o.Attrs["stay_hours"].(int); ok {
			m.StayHours = append(m.StayHours, float64(h))
			m.stay.Observe(float64(h))
		}
	case KindRestock:
		m.Restocks++
		if p, ok := o.Attrs["payment"].(decimal.Decimal); ok {
			m.SupplierPaid = m.SupplierPaid.Add(p)
			m.money.WithLabelValues("supplier").Add(p.InexactFloat64())
		}
	case KindRestockSkipped:
		m.RestocksSkipped++
	case KindSupplyAnomaly:
		m.SupplyAnomalies++
	case KindPayroll:
		m.PayrollPayments++
		if net, ok := o.Attrs["net"].(decimal.Decimal); ok {
			m.PayrollNet = m.PayrollNet.Add(net)
			m.money.WithLabelValues("payroll_net").Add(net.InexactFloat64())
		}
	case KindTick:
		m.Ticks++
		if n, ok := o.Attrs["active_cases"].(int); ok {
			m.activeCases.Set(float64(n))
			m.PeakActiveCases = max(m.PeakActiveCases, n)
		}
	}
}

// TotalDischarges sums discharges over all outcomes.
func (m *Metrics) TotalDischarges() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.Discharges {
		n += v
	}
	return n
}

// Print writes the end-of-run summary.
func (m *Metrics) Print(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stay := summarizeStays(m.StayHours)
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Ticks                 : %s\n", humanize.Comma(int64(m.Ticks)))
	fmt.Fprintf(w, "Admissions            : %s\n", humanize.Comma(int64(m.Admissions)))
	fmt.Fprintf(w, "Peak Active Cases     : %s\n", humanize.Comma(int64(m.PeakActiveCases)))
	for _, o := range []Outcome{OutcomeRecovered, OutcomeDeceased, OutcomeTransferred} {
		fmt.Fprintf(w, "%-22s: %s\n", "Discharged "+string(o), humanize.Comma(int64(m.Discharges[o])))
	}
	fmt.Fprintf(w, "Diagnoses             : %s\n", humanize.Comma(int64(m.Diagnoses)))
	fmt.Fprintf(w, "Prescriptions         : %s (%s anomalous)\n",
		humanize.Comma(int64(m.Prescriptions)), humanize.Comma(int64(m.PrescriptionAnomalies)))
	fmt.Fprintf(w, "Procedures            : %s\n", humanize.Comma(int64(m.Procedures)))
	fmt.Fprintf(w, "Restocks              : %s (%s anomalous, %s skipped)\n",
		humanize.Comma(int64(m.Restocks)), humanize.Comma(int64(m.SupplyAnomalies)), humanize.Comma(int64(m.RestocksSkipped)))
	fmt.Fprintf(w, "Payroll Payments      : %s\n", humanize.Comma(int64(m.PayrollPayments)))
	fmt.Fprintf(w, "Billed                : %s\n", money(m.Billed))
	fmt.Fprintf(w, "Supplier Payments     : %s\n", money(m.SupplierPaid))
	fmt.Fprintf(w, "Payroll Net           : %s\n", money(m.PayrollNet))
	if stay.Count > 0 {
		fmt.Fprintf(w, "Length of Stay (h)    : mean %.2f  p50 %.1f  p95 %.1f  max %.0f\n",
			stay.Mean, stay.Median, stay.P95, stay.Max)
	}
}

func money(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}
