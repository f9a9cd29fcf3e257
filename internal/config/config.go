package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/n0roo/trail-trekker/internal/schema"
)

const (
	// DefaultDBPath is the database file written by a bare run
	DefaultDBPath = "trail_trekker.db"
	// DefaultDataDir holds the source CSV files
	DefaultDataDir = "data"
	// DefaultConfigFile is read from the working directory when present
	DefaultConfigFile = "trail_trekker.yaml"
)

// Table names, in load order
const (
	TableFeatures      = "features"
	TablePlans         = "plans"
	TableCustomers     = "customers"
	TablePlanFeatures  = "plan_features"
	TableSubscriptions = "subscriptions"
)

// Tables returns the table names in load order
func Tables() []string {
	return []string{TableFeatures, TablePlans, TableCustomers, TablePlanFeatures, TableSubscriptions}
}

// Config represents trail_trekker.yaml
type Config struct {
	DBPath  string                 `yaml:"db_path"`
	DataDir string                 `yaml:"data_dir"`
	Tables  map[string]TableConfig `yaml:"tables,omitempty"`
}

// TableConfig overrides the source file or pins the column types of one table
type TableConfig struct {
	File    string          `yaml:"file,omitempty"`
	Columns []schema.Column `yaml:"columns,omitempty"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		DBPath:  DefaultDBPath,
		DataDir: DefaultDataDir,
		Tables:  map[string]TableConfig{},
	}
}

// Load reads a config file on top of the defaults.
// A missing file is only an error when the path was given explicitly.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("설정 파일 읽기 실패: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("설정 파일 파싱 실패 (%s): %w", path, err)
	}
	if cfg.Tables == nil {
		cfg.Tables = map[string]TableConfig{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects empty paths and unknown tables
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path가 비어 있습니다")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir가 비어 있습니다")
	}

	known := make(map[string]bool)
	for _, t := range Tables() {
		known[t] = true
	}

	var names []string
	for name := range c.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !known[name] {
			return fmt.Errorf("알 수 없는 테이블: %s", name)
		}
		if cols := c.Tables[name].Columns; len(cols) > 0 {
			if _, err := schema.NewFixed(cols...); err != nil {
				return fmt.Errorf("%s 스키마: %w", name, err)
			}
		}
	}
	return nil
}

// FilePath returns the CSV path for a table
func (c *Config) FilePath(table string) string {
	if tc, ok := c.Tables[table]; ok && tc.File != "" {
		if filepath.IsAbs(tc.File) {
			return tc.File
		}
		return filepath.Join(c.DataDir, tc.File)
	}
	return filepath.Join(c.DataDir, table+".csv")
}

// Schemas builds the inferrer registry from the configured fixed schemas
func (c *Config) Schemas() (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for name, tc := range c.Tables {
		if len(tc.Columns) == 0 {
			continue
		}
		fixed, err := schema.NewFixed(tc.Columns...)
		if err != nil {
			return nil, fmt.Errorf("%s 스키마: %w", name, err)
		}
		reg.Set(name, fixed)
	}
	return reg, nil
}
