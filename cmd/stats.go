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

type statsCmd struct {
	periodFlags
	filterFlags
	outputFlags
	save bool
}

func (*statsCmd) Name() string { return "stats" }
func (*statsCmd) Synopsis() string {
	return "computes the monthly capital gains tax of every category"
}
func (*statsCmd) Usage() string {
	return `b3irpf stats [-y <year> | -m <month> | -from <date> [-to <date>]] [-institution <name>] [-categories <list>] [-save] [-json] [-path <jsonpath>]

  Computes, month after month, the sales, the capital gains, the compensated
  losses and the tax due of every category. Taxes under the DARF minimum are
  carried to the next month. With -save, the positions and the statistics of
  the closed months are saved and the tax records paid off are marked as paid.

Usage Examples:
$ b3irpf stats -y 2024 -consolidation monthly -save

`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	c.periodFlags.SetFlags(f)
	c.filterFlags.SetFlags(f)
	c.outputFlags.SetFlags(f)
	f.BoolVar(&c.save, "save", false, "Save the positions and statistics of the closed months, and pay the settled tax records.")
}

// monthStats is the JSON form of a month.
type monthStats struct {
	Month string        `json:"month"`
	Stats []*irpf.Stats `json:"stats"`
}

type statsOutput struct {
	Months []monthStats      `json:"months"`
	Total  []*irpf.Stats     `json:"total"`
	Groups []irpf.StatsGroup `json:"groups"`
}

func (c *statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if opts.Ticker != "" {
		fmt.Fprintln(os.Stderr, "stats cannot be restricted to a ticker")
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
	stats := irpf.NewStatsReports(reportOpts...)
	if err := stats.Generate(ctx, months); err != nil {
		return fail(err)
	}
	if c.save {
		positions, err := irpf.SavePositions(ctx, db, months)
		if err != nil {
			return fail(err)
		}
		statistics, err := irpf.SaveStatistics(ctx, db, stats)
		if err != nil {
			return fail(err)
		}
		a.logger.Info().Int("positions", positions).Int("statistics", statistics).Msg("snapshots saved")
	}

	out := statsOutput{Total: stats.Compile(), Groups: stats.CompileGroups()}
	for _, report := range stats.Reports() {
		out.Months = append(out.Months, monthStats{Month: report.Negotiation().Range().Identifier(), Stats: report.Results()})
	}
	if err := c.print(os.Stdout, renderer.StatsMarkdown(stats), out); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
