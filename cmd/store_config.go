package cmd

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/spf13/viper"

	"github.com/wardsim/wardsim/sim/export"
	"github.com/wardsim/wardsim/sim/store/sqlstore"
)

// StoreConfig holds connection settings read from the environment and an
// optional .env file.
type StoreConfig struct {
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`
	S3Region    string `mapstructure:"S3_REGION"`
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3PathStyle bool   `mapstructure:"S3_PATH_STYLE"`
}

var storeConfigKeys = []string{
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"SQLITE_PATH", "S3_REGION", "S3_ENDPOINT", "S3_PATH_STYLE",
}

// LoadStoreConfig reads settings from envFile (if present) and the process
// environment, which takes precedence.
func LoadStoreConfig(envFile string) (*StoreConfig, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "wardsim")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "wardsim.db")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PATH_STYLE", false)

	for _, key := range storeConfigKeys {
		_ = v.BindEnv(key)
	}

	// A missing .env file is fine.
	_ = v.ReadInConfig()

	cfg := &StoreConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal store config: %w", err)
	}
	return cfg, nil
}

// PostgresDSN builds a pgx connection URL.
func (c *StoreConfig) PostgresDSN() (string, error) {
	if c.DBUser == "" {
		return "", fmt.Errorf("DB_USER is required for the postgres store")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String(), nil
}

// DSN returns the connection string for a SQL dialect.
func (c *StoreConfig) DSN(d sqlstore.Dialect) (string, error) {
	if d == sqlstore.SQLite {
		return c.SQLitePath, nil
	}
	return c.PostgresDSN()
}

// S3 returns the object-storage target for an export.
func (c *StoreConfig) S3(bucket, prefix string) export.S3Config {
	return export.S3Config{
		Region:    c.S3Region,
		Bucket:    bucket,
		Prefix:    prefix,
		Endpoint:  c.S3Endpoint,
		PathStyle: c.S3PathStyle,
	}
}

// openSQLStore resolves the dialect name and connects.
func openSQLStore(ctx context.Context, name string, cfg *StoreConfig) (*sqlstore.Store, error) {
	dialect, err := sqlstore.ParseDialect(name)
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.DSN(dialect)
	if err != nil {
		return nil, err
	}
	return sqlstore.Open(ctx, dialect, dsn)
}
