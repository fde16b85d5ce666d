// Package cmd implements the CLI application computing the IRPF of a ledger.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/etnz/irpf"
	"github.com/etnz/irpf/config"
	"github.com/etnz/irpf/store"
	"github.com/google/subcommands"
	"github.com/phuslu/log"
)

// Commands are the subcommands of the application.
var Commands = []subcommands.Command{
	&reportCmd{},
	&statsCmd{},
	&taxCmd{},
	&fmtCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "irpf.toml", "Path to the TOML configuration file")
var ledgerFile = flag.String("l", "", "Path to the ledger file (JSONL format), overrides the configuration")
var dbFile = flag.String("db", "", "Path to the SQLite database, overrides the configuration")
var verbose = flag.Bool("v", false, "Log debug messages")

// app holds what every command needs.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

// loadApp loads the configuration and applies the global flags.
func loadApp() (*app, error) {
	cfg, err := config.LoadFromFiles(*configFile)
	if err != nil {
		return nil, err
	}
	if *ledgerFile != "" {
		cfg.Ledger.Path = *ledgerFile
	}
	if *dbFile != "" {
		cfg.Storage.Path = *dbFile
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	return &app{cfg: cfg, logger: config.NewLogger(cfg.Logging, os.Stderr)}, nil
}

// decodeLedger reads the ledger, an empty one when the file does not exist.
func (a *app) decodeLedger() (*irpf.Ledger, error) {
	f, err := os.Open(a.cfg.Ledger.Path)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Warn().Str("path", a.cfg.Ledger.Path).Msg("ledger does not exist, using an empty ledger instead")
		return irpf.NewLedger(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ledger, err := irpf.DecodeLedger(f)
	if err != nil {
		return nil, fmt.Errorf("decoding ledger %q: %w", a.cfg.Ledger.Path, err)
	}
	a.logger.Debug().Str("path", a.cfg.Ledger.Path).Int("records", ledger.Len()).Msg("ledger decoded")
	return ledger, nil
}

func (a *app) openDB() (*store.DB, error) {
	return store.Open(a.cfg.Storage.Path, a.logger)
}

// reportOptions returns the collaborators of the reports.
func (a *app) reportOptions(db *store.DB) ([]irpf.ReportOption, error) {
	rates, err := a.cfg.Rates()
	if err != nil {
		return nil, err
	}
	return []irpf.ReportOption{
		irpf.WithSnapshots(db),
		irpf.WithRegistry(db),
		irpf.WithTaxRates(rates),
		irpf.WithLogger(a.logger),
	}, nil
}

// fail prints err and returns the failure status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}
