package sim

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

// === PartitionedRNG Tests ===

func TestPartitionedRNG_SeedFor_XorsKeyWithNameHash(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"zero key yields the bare hash", 0},
		{"negative key", -1},
		{"extreme key", math.MinInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPartitionedRNG(NewSimulationKey(tt.seed))
			if got, want := p.seedFor(SubsystemTriage), tt.seed^fnv1a64(SubsystemTriage); got != want {
				t.Errorf("seedFor(triage) = %d, want %d", got, want)
			}
		})
	}
}

func TestPartitionedRNG_SameKeyReplaysStream(t *testing.T) {
	// BDD: two runs with seed 42 see the same hourly health draws
	first := NewPartitionedRNG(NewSimulationKey(42)).ForSubsystem(SubsystemHealth)
	second := NewPartitionedRNG(NewSimulationKey(42)).ForSubsystem(SubsystemHealth)

	for hour := 0; hour < 24; hour++ {
		if a, b := first.Float64(), second.Float64(); a != b {
			t.Fatalf("hour %d: draws %v and %v differ", hour, a, b)
		}
	}
}

func TestPartitionedRNG_RestockDrawsLeaveHealthStreamAlone(t *testing.T) {
	busy := NewPartitionedRNG(NewSimulationKey(42))
	quiet := NewPartitionedRNG(NewSimulationKey(42))

	inv := busy.ForSubsystem(SubsystemInventory)
	for i := 0; i < 10; i++ {
		inv.Intn(3)
	}

	if a, b := busy.ForSubsystem(SubsystemHealth).Float64(), quiet.ForSubsystem(SubsystemHealth).Float64(); a != b {
		t.Errorf("health stream shifted by inventory draws: %v vs %v", a, b)
	}
}

func TestPartitionedRNG_DistinctSubsystemsDiffer(t *testing.T) {
	p := NewPartitionedRNG(NewSimulationKey(7))
	seen := make(map[float64]string)
	for _, name := range Subsystems {
		v := p.ForSubsystem(name).Float64()
		if other, ok := seen[v]; ok {
			t.Errorf("subsystems %q and %q produced the same first draw %v", name, other, v)
		}
		seen[v] = name
	}
}

func TestPartitionedRNG_Caching(t *testing.T) {
	p := NewPartitionedRNG(NewSimulationKey(42))
	if p.ForSubsystem(SubsystemTriage) != p.ForSubsystem(SubsystemTriage) {
		t.Error("ForSubsystem returned different instances for the same name")
	}
	if p.Key() != NewSimulationKey(42) {
		t.Errorf("Key() = %d, want 42", p.Key())
	}
}

func TestUniform_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := uniform(rng, 0.10, 0.35)
		if v < 0.10 || v >= 0.35 {
			t.Fatalf("uniform draw %v outside [0.10, 0.35)", v)
		}
	}
}

// === DeferredQueue Tests ===

func TestDeferredQueue_PopDueOrdersByTimeThenFIFO(t *testing.T) {
	base := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	q := NewDeferredQueue()
	q.Schedule(DeferredEvent{At: base.Add(2 * time.Hour), Kind: DeferredProcedure, ProcedureID: 3})
	q.Schedule(DeferredEvent{At: base.Add(time.Hour), Kind: DeferredProcedure, ProcedureID: 1})
	q.Schedule(DeferredEvent{At: base.Add(time.Hour), Kind: DeferredProcedure, ProcedureID: 2})
	q.Schedule(DeferredEvent{At: base.Add(5 * time.Hour), Kind: DeferredProcedure, ProcedureID: 4})

	due := q.PopDue(base.Add(2 * time.Hour))

	got := make([]int64, len(due))
	for i, e := range due {
		got[i] = e.ProcedureID
	}
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("PopDue returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("PopDue returned %v, want %v", got, want)
		}
	}
	next, ok := q.Peek()
	if !ok || next.ProcedureID != 4 {
		t.Errorf("Peek after PopDue = %+v, %v; want procedure 4", next, ok)
	}
	if len(q.PopDue(base)) != 0 {
		t.Error("PopDue before any due time returned events")
	}
}
