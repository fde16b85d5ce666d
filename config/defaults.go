package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Path: "irpf.jsonl",
		},
		Storage: StorageConfig{
			Path: "irpf.db",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Report: ReportConfig{
			Consolidation: "yearly",
		},
	}
}
