package sim

import (
	"io"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// ObservationKind names a structured engine event.
type ObservationKind string

const (
	KindAdmission           ObservationKind = "admission"
	KindSymptomUnresolved   ObservationKind = "symptom_unresolved"
	KindFallbackSymptom     ObservationKind = "fallback_symptom"
	KindPrescription        ObservationKind = "prescription"
	KindPrescriptionAnomaly ObservationKind = "prescription_anomaly"
	KindProcedure           ObservationKind = "procedure"
	KindDiagnosis           ObservationKind = "diagnosis"
	KindDischarge           ObservationKind = "discharge"
	KindDepletion           ObservationKind = "depletion"
	KindRestock             ObservationKind = "restock"
	KindRestockSkipped      ObservationKind = "restock_skipped"
	KindSupplyAnomaly       ObservationKind = "supply_anomaly"
	KindPayroll             ObservationKind = "payroll"
	KindTick                ObservationKind = "tick"
)

// Observation is a single structured event emitted by the engine.
type Observation struct {
	Kind  ObservationKind
	At    time.Time
	Attrs map[string]any
}

// Observer receives engine events. Implementations must not retain Attrs
// beyond the call unless they copy it.
type Observer interface {
	Observe(o Observation)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Observation)

func (f ObserverFunc) Observe(o Observation) { f(o) }

// NopObserver discards every observation.
type NopObserver struct{}

func (NopObserver) Observe(Observation) {}

// MultiObserver fans each observation out to every wrapped observer in order.
type MultiObserver []Observer

func (m MultiObserver) Observe(o Observation) {
	for _, obs := range m {
		obs.Observe(o)
	}
}

// LogObserver writes observations as logrus entries. Anomalies log at warn,
// data-quality skips and tick summaries at debug, everything else at info.
type LogObserver struct {
	Logger logrus.FieldLogger
}

// NewLogObserver wraps a logger. A nil logger uses the logrus standard logger.
func NewLogObserver(l logrus.FieldLogger) *LogObserver {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogObserver{Logger: l}
}

func (l *LogObserver) Observe(o Observation) {
	entry := l.Logger.WithFields(logrus.Fields(o.Attrs)).
		WithField("event", string(o.Kind)).
		WithField("sim_time", o.At.Format(time.RFC3339))
	switch o.Kind {
	case KindPrescriptionAnomaly, KindSupplyAnomaly, KindRestockSkipped:
		entry.Warn(string(o.Kind))
	case KindSymptomUnresolved, KindTick, KindDepletion:
		entry.Debug(string(o.Kind))
	default:
		entry.Info(string(o.Kind))
	}
}

// Recorder keeps every observation in memory.
type Recorder struct {
	mu           sync.Mutex
	observations []Observation
}

func (r *Recorder) Observe(o Observation) {
	attrs := make(map[string]any, len(o.Attrs))
	for k, v := range o.Attrs {
		attrs[k] = v
	}
	o.Attrs = attrs
	r.mu.Lock()
	r.observations = append(r.observations, o)
	r.mu.Unlock()
}

// All returns a copy of the recorded observations.
func (r *Recorder) All() []Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Observation, len(r.observations))
	copy(out, r.observations)
	return out
}

// OfKind returns the recorded observations of one kind.
func (r *Recorder) OfKind(kind ObservationKind) []Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Observation
	for _, o := range r.observations {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

// withRunID stamps every observation with the run identifier.
type withRunID struct {
	runID string
	next  Observer
}

// Observe leaves the caller's Attrs map untouched.
func (w withRunID) Observe(o Observation) {
	attrs := make(map[string]any, len(o.Attrs)+1)
	for k, v := range o.Attrs {
		attrs[k] = v
	}
	attrs["run_id"] = w.runID
	o.Attrs = attrs
	w.next.Observe(o)
}

// TraceWriter streams observations as JSON lines.
type TraceWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

// NewTraceWriter writes one JSON object per observation to w.
func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{enc: json.NewEncoder(w)}
}

type traceLine struct {
	Kind  ObservationKind `json:"kind"`
	At    time.Time       `json:"at"`
	Attrs map[string]any  `json:"attrs,omitempty"`
}

func (t *TraceWriter) Observe(o Observation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}
	t.err = t.enc.Encode(traceLine{Kind: o.Kind, At: o.At, Attrs: o.Attrs})
}

// Err returns the first write error, if any.
func (t *TraceWriter) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
