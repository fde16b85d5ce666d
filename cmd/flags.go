package cmd

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/etnz/irpf"
	"github.com/etnz/irpf/config"
)

// periodFlags select the range of a report: a year, a month, explicit dates
// or the current period.
type periodFlags struct {
	year   string
	month  string
	from   string
	to     string
	period string
}

func (p *periodFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.year, "y", "", "Year of the report (e.g. 2024). Defaults to the current year.")
	f.StringVar(&p.month, "m", "", "Month of the report (e.g. 2024-03). Overrides -y.")
	f.StringVar(&p.from, "from", "", "First day of a custom range. Overrides -y and -m.")
	f.StringVar(&p.to, "to", "", "Last day of a custom range (defaults to the end of the -period of -from).")
	f.StringVar(&p.period, "period", "year", "Period of the report when no year nor month is given (day, month, year).")
}

// Range returns the selected range, relative to today.
func (p *periodFlags) Range(today irpf.Date) (irpf.Range, error) {
	period := irpf.Yearly
	if p.period != "" {
		var err error
		if period, err = irpf.ParsePeriod(p.period); err != nil {
			return irpf.Range{}, fmt.Errorf("invalid -period: %w", err)
		}
	}
	switch {
	case p.from != "":
		from, err := irpf.ParseDate(p.from)
		if err != nil {
			return irpf.Range{}, fmt.Errorf("invalid -from: %w", err)
		}
		to := from.EndOf(period)
		if p.to != "" {
			if to, err = irpf.ParseDate(p.to); err != nil {
				return irpf.Range{}, fmt.Errorf("invalid -to: %w", err)
			}
		}
		return irpf.NewRange(from, to), nil
	case p.month != "":
		on, err := irpf.ParseDate(p.month)
		if err != nil {
			return irpf.Range{}, fmt.Errorf("invalid -m: %w", err)
		}
		return irpf.NewRange(on.StartOf(irpf.Monthly), on.EndOf(irpf.Monthly)), nil
	case p.year != "":
		y, err := strconv.Atoi(strings.TrimSpace(p.year))
		if err != nil || y < 1900 {
			return irpf.Range{}, fmt.Errorf("invalid -y %q", p.year)
		}
		on := irpf.NewDate(y, 1, 1)
		return irpf.NewRange(on, on.EndOf(irpf.Yearly)), nil
	default:
		return period.Range(today), nil
	}
}

// filterFlags restrict a report.
type filterFlags struct {
	institution   string
	ticker        string
	categories    string
	consolidation string
}

func (p *filterFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.institution, "institution", "", "Restrict to an institution, overrides the configuration.")
	f.StringVar(&p.ticker, "ticker", "", "Restrict to a ticker.")
	f.StringVar(&p.categories, "categories", "", "Comma separated categories (STOCK, FII, BDR, STOCK_SUBSCRIPTION_RIGHTS, FII_SUBSCRIPTION_RIGHTS).")
	f.StringVar(&p.consolidation, "consolidation", "", "Snapshot consolidation (yearly, monthly), overrides the configuration.")
}

// Options returns the report options, defaults taken from cfg.
func (p *filterFlags) Options(cfg *config.Config) (irpf.Options, error) {
	categories, err := irpf.ParseCategories(p.categories)
	if err != nil {
		return irpf.Options{}, err
	}
	consolidation := cfg.Report.Consolidation
	if p.consolidation != "" {
		consolidation = p.consolidation
	}
	c, err := irpf.ParseConsolidation(consolidation)
	if err != nil {
		return irpf.Options{}, err
	}
	institution := cfg.Report.Institution
	if p.institution != "" {
		institution = p.institution
	}
	return irpf.Options{
		Filter: irpf.Filter{
			Institution: institution,
			Ticker:      irpf.NormalizeTicker(p.ticker),
			Categories:  categories,
		},
		Consolidation: c,
	}, nil
}

// outputFlags choose how a report is printed.
type outputFlags struct {
	json     bool
	path     string
	markdown bool
}

func (p *outputFlags) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.json, "json", false, "Print the report as JSON.")
	f.StringVar(&p.path, "path", "", "JSONPath query applied to the JSON report (e.g. $[0].asset.buy). Implies -json.")
	f.BoolVar(&p.markdown, "md", false, "Print raw markdown instead of rendering it for the terminal.")
}
