package irpf

import (
	"cmp"
	"io"
	"slices"

	"github.com/phuslu/log"
)

// Options of a report generation.
type Options struct {
	Filter
	// Consolidation chooses the date of the Position and Statistic snapshots
	// seeding the period. Defaults to ConsolidationYearly.
	Consolidation Consolidation
	// AssetsPosition seeds the period from assets in memory instead of the
	// persisted positions.
	AssetsPosition *AssetsPosition
}

// AssetsPosition is the state of the assets at the end of a day.
type AssetsPosition struct {
	On     Date
	Assets []*Assets
}

// Result is the outcome of a report for a ticker.
type Result struct {
	Ticker      string  `json:"ticker"`
	Institution string  `json:"institution,omitempty"`
	Instance    *Asset  `json:"instance,omitempty"`
	Asset       *Assets `json:"asset"`
}

// categoryName returns the display name used to sort results, unregistered
// tickers come first.
func (r Result) categoryName() string {
	if r.Instance == nil {
		return ""
	}
	return r.Instance.Category.String()
}

// sortResults sorts by category name then ticker.
func sortResults(results []Result) {
	slices.SortFunc(results, func(a, b Result) int {
		return cmp.Or(cmp.Compare(a.categoryName(), b.categoryName()), cmp.Compare(a.Ticker, b.Ticker))
	})
}

// ReportOption configures the collaborators of a report.
type ReportOption func(*settings)

type settings struct {
	snapshots Snapshots
	registry  Registry
	logger    *log.Logger
	today     Date
	rates     TaxRates
}

func newSettings(opts []ReportOption) settings {
	s := settings{
		logger: &log.Logger{Level: log.ErrorLevel, Writer: &log.IOWriter{Writer: io.Discard}},
		today:  Today(),
		rates:  TaxRates{DefaultTaxRate()},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithSnapshots reads the seeding positions, statistics and tax records from s.
func WithSnapshots(s Snapshots) ReportOption { return func(o *settings) { o.snapshots = s } }

// WithRegistry reads and writes the bonus and subscription registry in r.
// Without a registry bonuses and subscriptions computed from the registry are
// ignored.
func WithRegistry(r Registry) ReportOption { return func(o *settings) { o.registry = r } }

// WithLogger sets the logger, nothing is logged by default.
func WithLogger(l *log.Logger) ReportOption { return func(o *settings) { o.logger = l } }

// WithToday sets the current date, used to know whether a period is closed.
func WithToday(d Date) ReportOption { return func(o *settings) { o.today = d } }

// WithTaxRates sets the tax table.
func WithTaxRates(rates TaxRates) ReportOption {
	return func(o *settings) {
		if len(rates) > 0 {
			o.rates = rates
		}
	}
}

// BaseReport holds what every report knows about its generation.
type BaseReport struct {
	settings
	start, end Date
	options    Options
}

// Range returns the generated range.
func (r *BaseReport) Range() Range { return Range{From: r.start, To: r.end} }

// Options returns the options of the last generation.
func (r *BaseReport) Options() Options { return r.options }

// IsClosed reports whether the month of the end of the report is over.
func (r *BaseReport) IsClosed() bool { return r.end.EndOf(Monthly).Before(r.today) }
