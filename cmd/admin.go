package cmd

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wardsim/wardsim/sim/dataset"
	"github.com/wardsim/wardsim/sim/export"
	"github.com/wardsim/wardsim/sim/store/sqlstore"
)

var (
	// CLI flags shared by migrate, load and export
	adminStore   string // postgres or sqlite
	loadDataset  string // Dataset YAML to import
	loadStart    string // First due time of filled-in pay schedules
	exportDir    string // Directory receiving <table>.csv
	exportBucket string // Optional S3 bucket
	exportPrefix string // Object key prefix; a fresh run id when empty
)

// s3ClientFactory builds the uploader used by export. Swapped out in tests.
type s3ClientFactory func(ctx context.Context, cfg export.S3Config) (export.Putter, error)

func defaultS3Client(ctx context.Context, cfg export.S3Config) (export.Putter, error) {
	return export.NewS3Client(ctx, cfg)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema to a SQL store",
	Run: func(cmd *cobra.Command, args []string) {
		storeCfg, err := LoadStoreConfig(envFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := migrateStore(cmd.Context(), adminStore, storeCfg); err != nil {
			logrus.Fatalf("Migration failed: %v", err)
		}
		logrus.Infof("Schema applied to %s store.", adminStore)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Import a YAML dataset into a SQL store",
	Run: func(cmd *cobra.Command, args []string) {
		start, err := parseStart(loadStart)
		if err != nil {
			logrus.Fatalf("Invalid --start: %v", err)
		}
		storeCfg, err := LoadStoreConfig(envFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := loadIntoStore(cmd.Context(), adminStore, loadDataset, start, storeCfg); err != nil {
			logrus.Fatalf("Load failed: %v", err)
		}
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump every table to CSV and optionally upload to S3",
	Run: func(cmd *cobra.Command, args []string) {
		storeCfg, err := LoadStoreConfig(envFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if _, err := exportStore(cmd.Context(), adminStore, exportDir, exportBucket, exportPrefix, storeCfg, defaultS3Client); err != nil {
			logrus.Fatalf("Export failed: %v", err)
		}
	},
}

func migrateStore(ctx context.Context, name string, storeCfg *StoreConfig) error {
	s, err := openSQLStore(ctx, name, storeCfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return s.Migrate(ctx)
}

// loadIntoStore migrates the store and imports the dataset. Employees
// without a pay schedule get a bi-weekly one first due at start.
func loadIntoStore(ctx context.Context, name, datasetPath string, start time.Time, storeCfg *StoreConfig) error {
	if datasetPath == "" {
		return fmt.Errorf("--dataset is required")
	}
	ds, err := dataset.Load(datasetPath)
	if err != nil {
		return err
	}
	added := ds.FillPayroll(start.Truncate(time.Hour), dataset.DefaultPayFrequencyHours)

	s, err := openSQLStore(ctx, name, storeCfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	if err := s.Import(ctx, ds); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"facilities":      len(ds.Facilities),
		"patients":        len(ds.Patients),
		"staff":           len(ds.Staff),
		"payroll_filled":  added,
		"inventory_items": len(ds.Inventory),
	}).Info("Dataset imported")
	return nil
}

// exportStore writes every table to dir and, with a bucket, uploads the files
// under prefix. Returns the uploaded object keys.
func exportStore(ctx context.Context, name, dir, bucket, prefix string, storeCfg *StoreConfig, newClient s3ClientFactory) ([]string, error) {
	s, err := openSQLStore(ctx, name, storeCfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	files, err := export.Tables(ctx, s.DB(), sqlstore.Tables(), dir)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Exported %d tables to %s", len(files), dir)
	if bucket == "" {
		return nil, nil
	}

	if prefix == "" {
		prefix = path.Join("wardsim", uuid.NewString())
	}
	s3cfg := storeCfg.S3(bucket, prefix)
	client, err := newClient(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	keys, err := export.Upload(ctx, client, s3cfg, files)
	if err != nil {
		return keys, err
	}
	logrus.Infof("Uploaded %d objects to s3://%s/%s", len(keys), bucket, prefix)
	return keys, nil
}

func init() {
	for _, c := range []*cobra.Command{migrateCmd, loadCmd, exportCmd} {
		c.Flags().StringVar(&adminStore, "store", string(sqlstore.SQLite), "SQL store: postgres or sqlite")
		rootCmd.AddCommand(c)
	}
	loadCmd.Flags().StringVar(&loadDataset, "dataset", "", "Dataset YAML to import")
	loadCmd.Flags().StringVar(&loadStart, "start", "", "RFC3339 first due time of filled-in pay schedules (default: current hour)")
	exportCmd.Flags().StringVar(&exportDir, "out", "export", "Directory receiving one CSV per table")
	exportCmd.Flags().StringVar(&exportBucket, "s3-bucket", "", "Upload the CSV files to this bucket")
	exportCmd.Flags().StringVar(&exportPrefix, "s3-prefix", "", "Object key prefix (default: wardsim/<random id>)")
}
