package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/irpf"
	"github.com/etnz/irpf/renderer"
	"github.com/google/subcommands"
)

type reportCmd struct {
	periodFlags
	filterFlags
	outputFlags
	save bool
}

func (*reportCmd) Name() string { return "report" }
func (*reportCmd) Synopsis() string {
	return "replays the ledger and prints the average cost position of every asset"
}
func (*reportCmd) Usage() string {
	return `b3irpf report [-y <year> | -m <month> | -from <date> [-to <date>]] [-institution <name>] [-ticker <ticker>] [-categories <list>] [-save] [-json] [-path <jsonpath>]

  Replays, day after day, the negotiations, earnings and corporate actions of
  the period, seeded by the positions saved at the end of the previous period.
  Bonus and subscription figures are recorded in the database on their
  entitlement dates.

Usage Examples:
# Positions at the end of 2024.
$ b3irpf report -y 2024

# Average price of PETR4 as JSON.
$ b3irpf report -y 2024 -ticker PETR4 -path '$[0].asset.buy'

`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	c.periodFlags.SetFlags(f)
	c.filterFlags.SetFlags(f)
	c.outputFlags.SetFlags(f)
	f.BoolVar(&c.save, "save", false, "Save the positions of the closed months of the period.")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := loadApp()
	if err != nil {
		return fail(err)
	}
	rng, err := c.Range(irpf.Today())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	opts, err := c.Options(a.cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	ledger, err := a.decodeLedger()
	if err != nil {
		return fail(err)
	}
	db, err := a.openDB()
	if err != nil {
		return fail(err)
	}
	defer db.Close()
	reportOpts, err := a.reportOptions(db)
	if err != nil {
		return fail(err)
	}

	months := irpf.NewNegotiationReportMonth(ledger, reportOpts...)
	if err := months.Generate(ctx, rng.From, rng.To, opts); err != nil {
		return fail(err)
	}
	if c.save {
		saved, err := irpf.SavePositions(ctx, db, months)
		if err != nil {
			return fail(err)
		}
		a.logger.Info().Int("positions", saved).Msg("positions saved")
	}

	results := months.Compile()
	if err := c.print(os.Stdout, renderer.NegotiationMarkdown(rng, results), results); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
