// sim/simulator.go
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Simulator is the core object that holds simulation time, the open cases and
// the subsystems driven on every tick.
type Simulator struct {
	// Clock is the simulated time of the next tick. It always sits on the hour.
	Clock time.Time
	Start time.Time
	End   time.Time
	// RunID is stamped on every observation of the run.
	RunID     string
	StepCount int
	// Active holds the open cases in admission order. Terminal cases are
	// dropped at the end of the tick that settles them.
	Active  []*Case
	Metrics *Metrics
	Logger  logrus.FieldLogger

	cfg     Config
	catalog *Catalog
	rng     *PartitionedRNG
	obs     Observer

	arrivals  *ArrivalGenerator
	triage    *TriageService
	treatment *TreatmentScheduler
	health    *HealthEngine
	inventory *InventoryManager
	payroll   *PayrollScheduler
}

// NewSimulator validates the configuration, loads the catalog and population
// once, and wires every subsystem to its own partition of the seeded RNG.
// start is truncated to the hour; the run covers [start, start+hours).
func NewSimulator(ctx context.Context, cfg Config, repo Repository, start time.Time, hours int, seed int64, obs Observer) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hours <= 0 {
		return nil, fmt.Errorf("hours must be positive, got %d", hours)
	}
	catalog, err := repo.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	catalog.Index()
	population, err := repo.Patients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}

	start = start.Truncate(time.Hour)
	metrics := NewMetrics()
	runID := uuid.NewString()
	var sink Observer = metrics
	if obs != nil {
		sink = MultiObserver{metrics, obs}
	}
	sink = withRunID{runID: runID, next: sink}

	rng := NewPartitionedRNG(NewSimulationKey(seed))
	billing := NewBillingSettlement(catalog, repo, sink)
	s := &Simulator{
		Clock:     start,
		Start:     start,
		End:       start.Add(time.Duration(hours) * time.Hour),
		RunID:     runID,
		Metrics:   metrics,
		Logger:    logrus.StandardLogger(),
		cfg:       cfg,
		catalog:   catalog,
		rng:       rng,
		obs:       sink,
		arrivals:  NewArrivalGenerator(cfg.Arrivals, catalog.Facilities, population, rng.ForSubsystem(SubsystemArrivals)),
		triage:    NewTriageService(cfg.Triage, catalog, repo, rng.ForSubsystem(SubsystemTriage), sink),
		treatment: NewTreatmentScheduler(catalog, repo, rng.ForSubsystem(SubsystemTreatment), sink),
		health:    NewHealthEngine(cfg.Discharge, repo, billing, rng.ForSubsystem(SubsystemHealth), sink),
		inventory: NewInventoryManager(cfg.Inventory, catalog, repo, rng.ForSubsystem(SubsystemInventory), sink),
		payroll:   NewPayrollScheduler(cfg.Payroll, repo, sink),
	}
	return s, nil
}

// Catalog returns the reference snapshot the run was started with.
func (sim *Simulator) Catalog() *Catalog { return sim.catalog }

// Done reports whether the clock has reached the end of the run.
func (sim *Simulator) Done() bool { return !sim.Clock.Before(sim.End) }

// Step executes one tick at Clock and advances Clock by an hour:
//  1. arrivals are triaged into new cases
//  2. the new cases receive their initial treatment
//  3. inventory depletion and restock run at their hours of day
//  4. due payroll is paid
//  5. every open case takes one health transition, in admission order
//
// Any error is fatal to the run.
func (sim *Simulator) Step(ctx context.Context) error {
	now := sim.Clock

	arrivals := sim.arrivals.Generate()
	admitted := make([]*Case, 0, len(arrivals))
	for _, a := range arrivals {
		c, err := sim.triage.Admit(ctx, a.FacilityID, a.Patient, now)
		if err != nil {
			return fmt.Errorf("tick %s: %w", now.Format(time.RFC3339), err)
		}
		admitted = append(admitted, c)
	}
	for _, c := range admitted {
		if err := sim.treatment.Schedule(ctx, c, now); err != nil {
			return fmt.Errorf("tick %s: treat patient %d: %w", now.Format(time.RFC3339), c.Patient.ID, err)
		}
	}
	sim.Active = append(sim.Active, admitted...)

	if sim.inventory.DepletionDue(now) {
		if _, err := sim.inventory.Deplete(ctx, now); err != nil {
			return fmt.Errorf("tick %s: %w", now.Format(time.RFC3339), err)
		}
	}
	restocked := 0
	if sim.inventory.RestockDue(now) {
		n, err := sim.inventory.CheckRestock(ctx, now)
		if err != nil {
			return fmt.Errorf("tick %s: %w", now.Format(time.RFC3339), err)
		}
		restocked = n
	}

	paid, err := sim.payroll.Run(ctx, now)
	if err != nil {
		return fmt.Errorf("tick %s: %w", now.Format(time.RFC3339), err)
	}

	open := sim.Active[:0]
	discharged := 0
	for _, c := range sim.Active {
		terminal, err := sim.health.Transition(ctx, c, now)
		if err != nil {
			return fmt.Errorf("tick %s: %w", now.Format(time.RFC3339), err)
		}
		if terminal {
			discharged++
			continue
		}
		open = append(open, c)
	}
	clear(sim.Active[len(open):])
	sim.Active = open

	sim.obs.Observe(Observation{Kind: KindTick, At: now, Attrs: map[string]any{
		"step":         sim.StepCount,
		"admitted":     len(admitted),
		"discharged":   discharged,
		"active_cases": len(sim.Active),
		"restocked":    restocked,
		"payroll_paid": paid,
	}})
	sim.Logger.Debugf("[tick %05d] %s admitted=%d discharged=%d active=%d",
		sim.StepCount, now.Format(time.RFC3339), len(admitted), discharged, len(sim.Active))

	sim.StepCount++
	sim.Clock = now.Add(time.Hour)
	return nil
}

// Run steps until the end of the run or the first fatal error.
func (sim *Simulator) Run(ctx context.Context) error {
	sim.Logger.Infof("[tick %05d] Simulation %s started at %s", sim.StepCount, sim.RunID, sim.Start.Format(time.RFC3339))
	for !sim.Done() {
		if err := sim.Step(ctx); err != nil {
			return err
		}
	}
	sim.Logger.Infof("[tick %05d] Simulation ended with %d open cases", sim.StepCount, len(sim.Active))
	return nil
}
