package irpf

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// NegotiationReportMonth generates one NegotiationReport per month, each month
// seeded with the assets the previous month ended with.
type NegotiationReportMonth struct {
	source  Source
	opts    []ReportOption
	reports []*NegotiationReport
}

// NewNegotiationReportMonth returns a multi-month report. opts are handed over
// to every monthly report.
func NewNegotiationReportMonth(source Source, opts ...ReportOption) *NegotiationReportMonth {
	return &NegotiationReportMonth{source: source, opts: opts}
}

// Generate splits the range in months and generates them in order.
func (m *NegotiationReportMonth) Generate(ctx context.Context, start, end Date, opts Options) error {
	m.reports = nil
	for month := range NewRange(start, end).Months() {
		if prev := m.Last(); prev != nil {
			ending := make([]*Assets, 0, len(prev.results))
			for _, res := range prev.results {
				ending = append(ending, res.Asset)
			}
			opts.AssetsPosition = &AssetsPosition{On: prev.end, Assets: ending}
		}
		report := NewNegotiationReport(m.source, m.opts...)
		if _, err := report.Generate(ctx, month.From, month.To, opts); err != nil {
			return fmt.Errorf("generating %s: %w", month.Identifier(), err)
		}
		m.reports = append(m.reports, report)
	}
	return nil
}

// Reports returns the monthly reports, in chronological order.
func (m *NegotiationReportMonth) Reports() []*NegotiationReport { return m.reports }

// Last returns the last monthly report, nil before generation.
func (m *NegotiationReportMonth) Last() *NegotiationReport {
	if len(m.reports) == 0 {
		return nil
	}
	return m.reports[len(m.reports)-1]
}

// Compile merges the monthly results in a single result per ticker: the
// activity of every month and the position held at the end.
func (m *NegotiationReportMonth) Compile() []Result {
	compiled := make(map[string]*Assets)
	for _, report := range m.reports {
		for _, res := range report.results {
			if a, ok := compiled[res.Ticker]; ok {
				a.Update(res.Asset)
				continue
			}
			compiled[res.Ticker] = res.Asset.clone()
		}
	}
	results := make([]Result, 0, len(compiled))
	for _, ticker := range slices.Sorted(maps.Keys(compiled)) {
		a := compiled[ticker]
		results = append(results, Result{Ticker: ticker, Institution: a.Institution, Instance: a.Instance, Asset: a})
	}
	sortResults(results)
	return results
}
