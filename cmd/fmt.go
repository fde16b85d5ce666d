package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/irpf"
	"github.com/google/subcommands"
)

type fmtCmd struct {
	check bool
}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the ledger file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `b3irpf fmt [-check]

  Validates and formats the ledger file. This command reads all records,
  validates them, sorts them by date, and writes them back in a canonical
  JSONL format: the asset declarations first, then the records.

Usage Examples:
# Writes to the ledger file.
$ b3irpf fmt

`
}

func (c *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.check, "check", false, "Only report whether the ledger is formatted, do not write it.")
}

func (c *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := loadApp()
	if err != nil {
		return fail(err)
	}
	path := a.cfg.Ledger.Path
	original, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	ledger, err := irpf.DecodeLedger(bytes.NewReader(original))
	if err != nil {
		return fail(fmt.Errorf("could not load ledger %q: %w", path, err))
	}

	var formatted bytes.Buffer
	if err := irpf.EncodeLedger(&formatted, ledger); err != nil {
		return fail(err)
	}
	if bytes.Equal(original, formatted.Bytes()) {
		fmt.Fprintf(os.Stderr, "Ledger %q is already formatted.\n", path)
		return subcommands.ExitSuccess
	}
	if c.check {
		fmt.Fprintf(os.Stderr, "Ledger %q is not formatted.\n", path)
		return subcommands.ExitFailure
	}
	if err := os.WriteFile(path, formatted.Bytes(), 0644); err != nil {
		return fail(fmt.Errorf("saving formatted ledger %q: %w", path, err))
	}
	fmt.Fprintf(os.Stderr, "Formatted ledger %q (%d records).\n", path, ledger.Len())
	return subcommands.ExitSuccess
}
