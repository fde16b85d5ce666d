package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/irpf"
	"github.com/etnz/irpf/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type taxCmd struct {
	periodFlags
	outputFlags
	add         bool
	remove      string
	category    string
	ticker      string
	total       string
	rate        string
	description string
}

func (*taxCmd) Name() string { return "tax" }
func (*taxCmd) Synopsis() string {
	return "lists, adds or removes the tax records folded in the monthly stats"
}
func (*taxCmd) Usage() string {
	return `b3irpf tax [-y <year> | -m <month>]
b3irpf tax -add -m <month> -category <category> -total <amount> [-rate <percent>] [-ticker <ticker>] [-description <text>]
b3irpf tax -rm <id>

  Tax records are the taxes computed outside of the ledger, day trade for
  instance. Unpaid records are added to the tax of their month by the stats
  command. With a rate, the tax is the percentage of the total, otherwise the
  total is the tax itself.

Usage Examples:
# 15% of a R$ 1000 gain in march 2024.
$ b3irpf tax -add -m 2024-03 -category STOCK -total 1000 -rate 15 -description "day trade"

`
}

func (c *taxCmd) SetFlags(f *flag.FlagSet) {
	c.periodFlags.SetFlags(f)
	c.outputFlags.SetFlags(f)
	f.BoolVar(&c.add, "add", false, "Add a tax record to the month selected by -m.")
	f.StringVar(&c.remove, "rm", "", "Remove the tax record with this id.")
	f.StringVar(&c.category, "category", "STOCK", "Category of the added record.")
	f.StringVar(&c.ticker, "ticker", "", "Ticker of the added record.")
	f.StringVar(&c.total, "total", "", "Total of the added record.")
	f.StringVar(&c.rate, "rate", "0", "Rate in percent applied to the total of the added record.")
	f.StringVar(&c.description, "description", "", "Description of the added record.")
}

// record returns the tax record described by the flags.
func (c *taxCmd) record() (irpf.TaxRecord, error) {
	if c.month == "" {
		return irpf.TaxRecord{}, fmt.Errorf("-add requires -m")
	}
	rng, err := c.Range(irpf.Today())
	if err != nil {
		return irpf.TaxRecord{}, err
	}
	category, err := irpf.ParseCategory(c.category)
	if err != nil {
		return irpf.TaxRecord{}, err
	}
	total, err := decimal.NewFromString(c.total)
	if err != nil {
		return irpf.TaxRecord{}, fmt.Errorf("invalid -total %q: %w", c.total, err)
	}
	rate, err := decimal.NewFromString(c.rate)
	if err != nil {
		return irpf.TaxRecord{}, fmt.Errorf("invalid -rate %q: %w", c.rate, err)
	}
	if total.IsNegative() || rate.IsNegative() {
		return irpf.TaxRecord{}, fmt.Errorf("total and rate cannot be negative")
	}
	return irpf.TaxRecord{
		Date:        rng.To,
		Category:    category,
		Ticker:      irpf.NormalizeTicker(c.ticker),
		Total:       irpf.BR(total),
		Rate:        rate,
		Description: c.description,
	}, nil
}

func (c *taxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := loadApp()
	if err != nil {
		return fail(err)
	}
	db, err := a.openDB()
	if err != nil {
		return fail(err)
	}
	defer db.Close()

	switch {
	case c.add:
		record, err := c.record()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		if record, err = db.AddTax(ctx, record); err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stderr, "Added %s tax record %s of %s\n", record.Category.Code(), record.ID, record.Value())
		return subcommands.ExitSuccess
	case c.remove != "":
		if err := db.DeleteTax(ctx, c.remove); err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stderr, "Removed tax record %s\n", c.remove)
		return subcommands.ExitSuccess
	}

	rng, err := c.Range(irpf.Today())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	records, err := db.AllTaxes(ctx, rng)
	if err != nil {
		return fail(err)
	}
	if err := c.print(os.Stdout, renderer.TaxesMarkdown(records), records); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
