// Package sim provides the hourly hospital-network simulation engine.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - case.go: Case lifecycle (admitted → diagnosed → recovered/deceased/transferred)
//   - health.go: the per-tick state machine and its outcome probabilities
//   - simulator.go: the tick loop and the order subsystems run in
//
// # Architecture
//
// The sim package holds the engine and the persistence contract; storage
// lives in sub-packages:
//   - sim/store/memory/: in-process Repository built from a dataset
//   - sim/store/sqlstore/: Postgres and SQLite Repository over database/sql
//   - sim/dataset/: YAML dataset format shared by the stores
//   - sim/export/: CSV table dumps and object-storage upload
//
// # Key Interfaces
//
// Components receive only the narrow store interfaces they use:
//   - CatalogReader: reference data and the patient population
//   - CaseStore: daily logs, prescriptions, anomalies and bills
//   - InventoryStore: stock levels and restocks
//   - PayrollStore: due schedules and compare-and-set claims
//   - Observer: structured engine events (logging, metrics, traces)
//
// Every stochastic subsystem draws from its own partition of PartitionedRNG,
// so a run is reproducible from its seed, configuration and dataset.
package sim
