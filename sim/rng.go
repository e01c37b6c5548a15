package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the master seed of a run. The same key, scenario config
// and dataset reproduce the same admissions, outcomes, bills and ledger rows.
type SimulationKey int64

// NewSimulationKey wraps a CLI seed.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Random streams, one per engine component.
const (
	SubsystemArrivals  = "arrivals"  // arrival counts, patient sampling
	SubsystemTriage    = "triage"    // condition, symptoms, insurance, care team
	SubsystemTreatment = "treatment" // over-prescription draw
	SubsystemHealth    = "health"    // hourly cure/death draw
	SubsystemInventory = "inventory" // depletion, supplier choice, supply anomalies
)

// Subsystems lists every stream the driver derives, in construction order.
var Subsystems = []string{SubsystemArrivals, SubsystemTriage, SubsystemTreatment, SubsystemHealth, SubsystemInventory}

// PartitionedRNG hands each component its own *rand.Rand seeded with
// key XOR fnv1a64(name). A component drawing more or fewer values (an extra
// restock, a skipped symptom) leaves every other stream untouched.
//
// Not safe for concurrent use; the driver owns it.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand, len(Subsystems))}
}

// ForSubsystem returns the stream for name, creating it on first use.
// Repeated calls return the same instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if r, ok := p.streams[name]; ok {
		return r
	}
	r := rand.New(rand.NewSource(p.seedFor(name)))
	p.streams[name] = r
	return r
}

func (p *PartitionedRNG) Key() SimulationKey { return p.key }

func (p *PartitionedRNG) seedFor(name string) int64 {
	return int64(p.key) ^ fnv1a64(name)
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

// uniform draws from [lo, hi).
func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
