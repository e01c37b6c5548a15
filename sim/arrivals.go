package sim

import (
	"math/rand"
)

// Arrival is a patient showing up at a facility.
type Arrival struct {
	FacilityID int64
	Patient    Patient
}

// ArrivalGenerator draws each tick's new patients.
type ArrivalGenerator struct {
	cfg        ArrivalConfig
	facilities []Facility
	population []Patient
	rng        *rand.Rand
}

// NewArrivalGenerator creates a generator over a fixed population.
func NewArrivalGenerator(cfg ArrivalConfig, facilities []Facility, population []Patient, rng *rand.Rand) *ArrivalGenerator {
	return &ArrivalGenerator{cfg: cfg, facilities: facilities, population: population, rng: rng}
}

// Count returns how many patients arrive at a facility this tick:
// max(1, int(beds × U[min, max))).
func (g *ArrivalGenerator) Count(f Facility) int {
	n := int(float64(f.Beds) * uniform(g.rng, g.cfg.MinBedFraction, g.cfg.MaxBedFraction))
	return max(1, n)
}

// Generate returns this tick's arrivals, facility by facility. Patients are
// sampled without replacement within a facility; the count is capped by the
// population size.
func (g *ArrivalGenerator) Generate() []Arrival {
	var arrivals []Arrival
	for _, f := range g.facilities {
		n := g.Count(f)
		for _, p := range g.sample(n) {
			arrivals = append(arrivals, Arrival{FacilityID: f.ID, Patient: p})
		}
	}
	return arrivals
}

// sample picks n distinct patients with a partial Fisher-Yates shuffle. Only
// swapped positions are tracked, so cost is O(n) regardless of population size.
func (g *ArrivalGenerator) sample(n int) []Patient {
	size := len(g.population)
	n = min(n, size)
	if n == 0 {
		return nil
	}
	swapped := make(map[int]int, n)
	at := func(i int) int {
		if v, ok := swapped[i]; ok {
			return v
		}
		return i
	}
	out := make([]Patient, n)
	for i := 0; i < n; i++ {
		j := i + g.rng.Intn(size-i)
		vi, vj := at(i), at(j)
		swapped[i], swapped[j] = vj, vi
		out[i] = g.population[vj]
	}
	return out
}
