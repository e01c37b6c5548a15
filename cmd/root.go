package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wardsim/wardsim/sim"
	"github.com/wardsim/wardsim/sim/dataset"
	"github.com/wardsim/wardsim/sim/store/memory"
)

const storeMemory = "memory"

var (
	// CLI flags for the run command
	startFlag   string // RFC3339 start of the run
	hours       int    // Number of hourly ticks
	seed        int64  // Master seed of the partitioned RNG
	configPath  string // Scenario YAML overriding defaults
	storeName   string // memory, postgres or sqlite
	datasetPath string // Dataset YAML for the memory store
	logLevel    string // Log verbosity level
	metricsFile string // Prometheus textfile output
	traceFile   string // JSON-lines observation trace
	envFile     string // Optional .env with connection settings
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "wardsim",
	Short: "Hourly simulation of a hospital network's clinical and financial ledger",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
	SilenceUsage: true,
}

// runOptions carries everything runSimulation needs from the flags.
type runOptions struct {
	Start       time.Time
	Hours       int
	Seed        int64
	ConfigPath  string
	Store       string
	DatasetPath string
	MetricsFile string
	TraceFile   string
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the hospital simulation",
	Run: func(cmd *cobra.Command, args []string) {
		start, err := parseStart(startFlag)
		if err != nil {
			logrus.Fatalf("Invalid --start: %v", err)
		}
		storeCfg, err := LoadStoreConfig(envFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts := runOptions{
			Start:       start,
			Hours:       hours,
			Seed:        seed,
			ConfigPath:  configPath,
			Store:       storeName,
			DatasetPath: datasetPath,
			MetricsFile: metricsFile,
			TraceFile:   traceFile,
		}
		wallStart := time.Now()
		if _, err := runSimulation(cmd.Context(), opts, storeCfg, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(wallStart).Round(time.Millisecond))
	},
}

// parseStart reads an RFC3339 time; empty means the current hour.
func parseStart(v string) (time.Time, error) {
	if v == "" {
		return time.Now().UTC().Truncate(time.Hour), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// runSimulation opens the store, runs every tick and prints the summary to out.
func runSimulation(ctx context.Context, opts runOptions, storeCfg *StoreConfig, out io.Writer) (*sim.Simulator, error) {
	cfg := sim.DefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := sim.LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	repo, closeRepo, err := openRepository(ctx, opts, storeCfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeRepo() }()

	observers := sim.MultiObserver{sim.NewLogObserver(logrus.StandardLogger())}
	var tw *sim.TraceWriter
	if opts.TraceFile != "" {
		f, err := os.Create(opts.TraceFile)
		if err != nil {
			return nil, fmt.Errorf("create trace file: %w", err)
		}
		defer func() { _ = f.Close() }()
		tw = sim.NewTraceWriter(f)
		observers = append(observers, tw)
	}

	logrus.Infof("Starting simulation: store=%s start=%s hours=%d seed=%d",
		opts.Store, opts.Start.Format(time.RFC3339), opts.Hours, opts.Seed)
	s, err := sim.NewSimulator(ctx, cfg, repo, opts.Start, opts.Hours, opts.Seed, observers)
	if err != nil {
		return nil, err
	}
	if err := s.Run(ctx); err != nil {
		return s, err
	}
	if tw != nil {
		if err := tw.Err(); err != nil {
			return s, fmt.Errorf("write trace: %w", err)
		}
	}

	s.Metrics.Print(out)
	if opts.MetricsFile != "" {
		if err := s.Metrics.WriteTextfile(opts.MetricsFile); err != nil {
			return s, err
		}
	}
	return s, nil
}

// openRepository returns the selected store. The memory store is seeded from
// the dataset, with a bi-weekly schedule starting at the run start for every
// unscheduled employee.
func openRepository(ctx context.Context, opts runOptions, storeCfg *StoreConfig) (sim.Repository, func() error, error) {
	if opts.Store == storeMemory {
		if opts.DatasetPath == "" {
			return nil, nil, fmt.Errorf("--dataset is required for the memory store")
		}
		ds, err := dataset.Load(opts.DatasetPath)
		if err != nil {
			return nil, nil, err
		}
		ds.FillPayroll(opts.Start.Truncate(time.Hour), dataset.DefaultPayFrequencyHours)
		return memory.New(ds), func() error { return nil }, nil
	}
	s, err := openSQLStore(ctx, opts.Store, storeCfg)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file with DB_* and S3_* settings")

	runCmd.Flags().StringVar(&startFlag, "start", "", "RFC3339 start time; truncated to the hour (default: current hour)")
	runCmd.Flags().IntVar(&hours, "hours", 24, "Number of hourly ticks to simulate")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed of the simulation")
	runCmd.Flags().StringVar(&configPath, "config", "", "Scenario YAML overriding the default parameters")
	runCmd.Flags().StringVar(&storeName, "store", storeMemory, "Store backend: memory, postgres or sqlite")
	runCmd.Flags().StringVar(&datasetPath, "dataset", "", "Dataset YAML (required for the memory store)")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	runCmd.Flags().StringVar(&traceFile, "trace-file", "", "Write every observation as JSON lines to this file")

	rootCmd.AddCommand(runCmd)
}
