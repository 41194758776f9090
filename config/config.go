package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"library-ledger/library"
)

const envPrefix = "LIBRARY_"

// Config holds everything the CLI and the HTTP server need to open a library.
type Config struct {
	DataDir        string `yaml:"data_dir"`
	Backend        string `yaml:"backend"`
	DBFile         string `yaml:"db_file"`
	LoanPeriodDays int    `yaml:"loan_period_days"`
	Username       string `yaml:"username"`
	PasswordHash   string `yaml:"password_hash"`
	ListenAddr     string `yaml:"listen_addr"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		DataDir:        "data",
		Backend:        library.BackendCSV,
		DBFile:         "library.db",
		LoanPeriodDays: 14,
		Username:       library.DefaultUsername,
		ListenAddr:     ":8080",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load applies the YAML file at path (skipped when path is empty) and then
// the LIBRARY_* environment variables on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DATA_DIR":      &c.DataDir,
		"BACKEND":       &c.Backend,
		"DB_FILE":       &c.DBFile,
		"USERNAME":      &c.Username,
		"PASSWORD_HASH": &c.PasswordHash,
		"LISTEN_ADDR":   &c.ListenAddr,
		"LOG_LEVEL":     &c.LogLevel,
		"LOG_FORMAT":    &c.LogFormat,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := lookup(envPrefix + "LOAN_PERIOD_DAYS"); ok {
		days, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sLOAN_PERIOD_DAYS: %w", envPrefix, err)
		}
		c.LoanPeriodDays = days
	}
	return nil
}

// Validate rejects values no backend or logger can work with.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Backend) {
	case library.BackendCSV, library.BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", library.ErrUnknownBackend, c.Backend))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.LoanPeriodDays <= 0 {
		errs = append(errs, fmt.Errorf("loan_period_days must be positive, got %d", c.LoanPeriodDays))
	}
	if strings.TrimSpace(c.Username) == "" {
		errs = append(errs, errors.New("username must not be empty"))
	}
	return errors.Join(errs...)
}

// Options turns the configuration into library options. An empty password
// hash is replaced by a hash of library.DefaultPassword.
func (c Config) Options(logger library.Logger) ([]library.Option, error) {
	hash := []byte(c.PasswordHash)
	if len(hash) == 0 {
		var err error
		if hash, err = library.HashPassword(library.DefaultPassword); err != nil {
			return nil, err
		}
	}
	return []library.Option{
		library.WithLogger(logger),
		library.WithLoanPeriod(c.LoanPeriodDays),
		library.WithCredentials(c.Username, hash),
	}, nil
}
