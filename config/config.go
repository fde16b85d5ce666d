// Package config loads the b3irpf configuration: defaults, then TOML files,
// then a .env file and IRPF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/etnz/irpf"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// Config represents the application configuration.
type Config struct {
	Ledger   LedgerConfig    `toml:"ledger"`
	Storage  StorageConfig   `toml:"storage"`
	Logging  LoggingConfig   `toml:"logging"`
	Report   ReportConfig    `toml:"report"`
	TaxRates []TaxRateConfig `toml:"tax_rates"`
}

// LedgerConfig locates the JSONL ledger.
type LedgerConfig struct {
	Path string `toml:"path"`
}

// StorageConfig locates the SQLite database of snapshots and registry rows.
type StorageConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ReportConfig holds the default report options.
type ReportConfig struct {
	Institution   string `toml:"institution"`
	Consolidation string `toml:"consolidation"`
}

// TaxRateConfig is a tax table as written in the configuration file.
type TaxRateConfig struct {
	ValidFrom      string             `toml:"valid_from"`
	DarfMin        float64            `toml:"darf_min"`
	StockExemption float64            `toml:"stock_exemption"`
	Rates          map[string]float64 `toml:"rates"`
}

// LoadFromFiles loads configuration with priority:
// defaults -> file1 -> file2 -> ... -> .env -> env.
// Missing files are skipped.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies IRPF_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if path := os.Getenv("IRPF_LEDGER"); path != "" {
		config.Ledger.Path = path
	}
	if path := os.Getenv("IRPF_DB"); path != "" {
		config.Storage.Path = path
	}
	if level := os.Getenv("IRPF_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("IRPF_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if institution := os.Getenv("IRPF_INSTITUTION"); institution != "" {
		config.Report.Institution = institution
	}
}

// Rates converts the configured tax tables. An empty configuration yields the
// default table.
func (c *Config) Rates() (irpf.TaxRates, error) {
	if len(c.TaxRates) == 0 {
		return irpf.TaxRates{irpf.DefaultTaxRate()}, nil
	}
	var rates irpf.TaxRates
	for i, tc := range c.TaxRates {
		from, err := irpf.ParseDate(tc.ValidFrom)
		if err != nil {
			return nil, fmt.Errorf("tax_rates[%d]: invalid valid_from: %w", i, err)
		}
		rate := irpf.DefaultTaxRate()
		rate.ValidFrom = from
		if tc.DarfMin > 0 {
			rate.DarfMin = irpf.BR(tc.DarfMin)
		}
		if tc.StockExemption > 0 {
			rate.StockExemption = irpf.BR(tc.StockExemption)
		}
		// sorted for stable error messages.
		codes := make([]string, 0, len(tc.Rates))
		for code := range tc.Rates {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			category, err := irpf.ParseCategory(code)
			if err != nil {
				return nil, fmt.Errorf("tax_rates[%d]: %w", i, err)
			}
			rate.Rates[category] = decimal.NewFromFloat(tc.Rates[code])
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

// Consolidation parses the default consolidation of the reports.
func (c *Config) Consolidation() (irpf.Consolidation, error) {
	return irpf.ParseConsolidation(c.Report.Consolidation)
}
