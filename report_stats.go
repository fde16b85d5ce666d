package irpf

import (
	"context"
	"fmt"
	"slices"
)

// StatsReport computes the statistics and the taxes of each category from
// the results of a NegotiationReport, usually a month.
type StatsReport struct {
	BaseReport
	negotiation *NegotiationReport
	taxTable    *rateCache
	results     map[Category]*Stats
}

// NewStatsReport returns the stats of a generated negotiation report.
func NewStatsReport(negotiation *NegotiationReport, opts ...ReportOption) *StatsReport {
	return &StatsReport{
		BaseReport:  BaseReport{settings: newSettings(opts)},
		negotiation: negotiation,
	}
}

// compensation lists, per category, the categories whose cumulative losses
// are consumed by its profits, in order.
var compensation = []struct {
	category Category
	from     []Category
}{
	{CategoryStock, []Category{CategoryStock, CategoryBDR}},
	{CategoryBDR, []Category{CategoryBDR, CategoryStock}},
	{CategoryFII, []Category{CategoryFII}},
	{CategoryStockSubscriptionRights, []Category{CategoryStockSubscriptionRights, CategoryStock, CategoryBDR}},
	{CategoryFIISubscriptionRights, []Category{CategoryFIISubscriptionRights, CategoryStock, CategoryBDR}},
}

// Generate computes the stats. previous is the report of the month before,
// nil to seed the carried losses and taxes from the persisted statistics.
func (r *StatsReport) Generate(ctx context.Context, previous *StatsReport) error {
	rng := r.negotiation.Range()
	r.start, r.end, r.options = rng.From, rng.To, r.negotiation.Options()
	if r.taxTable == nil {
		r.taxTable = newRateCache(r.rates)
	}

	// every category is seeded, compensation reads categories the filter excludes.
	r.results = make(map[Category]*Stats)
	for _, c := range Categories() {
		s, err := r.seed(ctx, c, previous)
		if err != nil {
			return err
		}
		r.results[c] = s
	}

	for _, res := range r.negotiation.Results() {
		// unregistered tickers cannot be categorized.
		if res.Instance == nil {
			continue
		}
		s, ok := r.results[res.Instance.Category]
		if !ok {
			return fmt.Errorf("%w: %s of %s", ErrMissingCategory, res.Instance.Category.Code(), res.Ticker)
		}
		a := res.Asset
		s.Buy = s.Buy.Add(a.Period.Buy.Total)
		s.Sell = s.Sell.Add(a.Sell.Total).Add(a.Sell.Fraction.Total)
		s.Tax = s.Tax.Add(a.Period.Buy.Tax).Add(a.Sell.Tax)
		s.IRRF = s.IRRF.Add(a.Sell.IRRF)
		s.Profits = s.Profits.Add(a.Sell.Profits)
		s.Losses = s.Losses.Add(a.Sell.Losses)
		s.Patrimony = s.Patrimony.Add(a.Buy.Total)
		s.Bonus = s.Bonus.Add(a.Bonus.Total)
	}

	for _, s := range r.results {
		if net := s.Net(); net.IsNegative() {
			s.CumulativeLosses = s.CumulativeLosses.Add(net)
		}
	}

	rate := r.taxTable.at(r.start)
	if err := r.generateTaxes(rate); err != nil {
		return err
	}
	return r.generateResidualTaxes(ctx, rate)
}

// seed returns the stats of a category with the losses and residual taxes
// carried from the previous month.
func (r *StatsReport) seed(ctx context.Context, c Category, previous *StatsReport) (*Stats, error) {
	s := NewStats(c)
	if previous != nil {
		if p, ok := previous.results[c]; ok {
			s.CumulativeLosses = p.CumulativeLosses
			s.Taxes.Residual = p.ResidualTaxes
			s.residualItems = p.residualItems
		}
		return s, nil
	}
	if r.snapshots == nil {
		return s, nil
	}
	consolidation := r.options.Consolidation
	on := consolidation.PositionDate(r.start)
	stat, err := r.snapshots.Statistic(ctx, on, consolidation, c, r.options.Institution)
	if err != nil {
		return nil, fmt.Errorf("loading %s statistic on %s: %w", c.Code(), on, err)
	}
	if stat != nil {
		s.CumulativeLosses = stat.CumulativeLosses
		s.Taxes.Residual = stat.ResidualTaxes
	}
	return s, nil
}

// generateTaxes computes the tax of the month of each category.
func (r *StatsReport) generateTaxes(rate TaxRate) error {
	for _, rule := range compensation {
		s := r.results[rule.category]
		s.Taxes.Rate = rate.Rate(rule.category)

		profit := s.Net()
		if !profit.IsPositive() {
			continue
		}
		if rule.category == CategoryStock && s.Sell.LessThanOrEqual(rate.StockExemption) {
			s.ExemptProfit = profit
			continue
		}
		taxable, err := r.compensate(s, profit, rule.from...)
		if err != nil {
			return err
		}
		s.Taxes.Taxable = taxable
		due := taxable.Percent(s.Taxes.Rate).Sub(s.IRRF)
		if due.IsPositive() {
			s.Taxes.Value = due
		}
	}
	return nil
}

// compensate consumes the cumulative losses of categories, in order, up to
// profit and returns the profit left to tax.
func (r *StatsReport) compensate(s *Stats, profit Money, categories ...Category) (Money, error) {
	for _, c := range categories {
		if !profit.IsPositive() {
			break
		}
		other, ok := r.results[c]
		if !ok {
			return Money{}, fmt.Errorf("%w: %s", ErrMissingCategory, c.Code())
		}
		if !other.CumulativeLosses.IsNegative() {
			continue
		}
		used := profit.Min(other.CumulativeLosses.Neg())
		other.CumulativeLosses = other.CumulativeLosses.Add(used)
		s.CompensatedLosses = s.CompensatedLosses.Add(used)
		profit = profit.Sub(used)
	}
	return profit, nil
}

// generateResidualTaxes folds the tax records of the month and decides what is
// payable: under the DARF minimum the tax is carried to the next month. Only a
// closed month has anything payable.
func (r *StatsReport) generateResidualTaxes(ctx context.Context, rate TaxRate) error {
	closed := r.IsClosed()
	for _, c := range Categories() {
		s := r.results[c]
		pending := slices.Clone(s.residualItems)
		if r.snapshots != nil {
			records, err := r.snapshots.Taxes(ctx, r.Range(), c)
			if err != nil {
				return fmt.Errorf("loading %s taxes: %w", c.Code(), err)
			}
			for _, rec := range records {
				s.Taxes.Items = append(s.Taxes.Items, rec)
				if rec.Paid {
					s.Taxes.Paid = s.Taxes.Paid.Add(rec.Value())
					continue
				}
				s.Taxes.Value = s.Taxes.Value.Add(rec.Value())
				pending = append(pending, rec)
			}
		}
		s.Taxes.Total = s.Taxes.Residual.Add(s.Taxes.Value)
		if closed && s.Taxes.Total.IsPositive() && s.Taxes.Total.GreaterThanOrEqual(rate.DarfMin) {
			s.Taxes.Payable = s.Taxes.Total
			s.Taxes.Settles = pending
			s.ResidualTaxes = Money{}
			s.residualItems = nil
			continue
		}
		s.ResidualTaxes = s.Taxes.Total
		s.residualItems = pending
	}
	return nil
}

// Get returns the stats of a category.
func (r *StatsReport) Get(c Category) (*Stats, error) {
	s, ok := r.results[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingCategory, c.Code())
	}
	return s, nil
}

// Results returns the stats of the categories requested, in category order.
func (r *StatsReport) Results() []*Stats {
	return filterStats(r.results, r.options.Categories)
}

// Negotiation returns the report the stats were computed from.
func (r *StatsReport) Negotiation() *NegotiationReport { return r.negotiation }

func filterStats(results map[Category]*Stats, categories []Category) []*Stats {
	var list []*Stats
	for _, c := range Categories() {
		if len(categories) > 0 && !slices.Contains(categories, c) {
			continue
		}
		if s, ok := results[c]; ok {
			list = append(list, s)
		}
	}
	return list
}

// StatsReports chains a StatsReport per month.
type StatsReports struct {
	opts    []ReportOption
	reports []*StatsReport
}

// NewStatsReports returns the stats of a multi-month report. opts are handed
// over to every monthly report.
func NewStatsReports(opts ...ReportOption) *StatsReports {
	return &StatsReports{opts: opts}
}

// Generate computes the stats of every month of a generated
// NegotiationReportMonth, each month carrying the losses and taxes of the
// previous one.
func (s *StatsReports) Generate(ctx context.Context, months *NegotiationReportMonth) error {
	s.reports = nil
	rates := newRateCache(newSettings(s.opts).rates)
	var previous *StatsReport
	for _, negotiation := range months.Reports() {
		report := NewStatsReport(negotiation, s.opts...)
		report.taxTable = rates
		if err := report.Generate(ctx, previous); err != nil {
			return fmt.Errorf("generating stats of %s: %w", negotiation.Range().Identifier(), err)
		}
		s.reports = append(s.reports, report)
		previous = report
	}
	return nil
}

// Reports returns the monthly stats, in chronological order.
func (s *StatsReports) Reports() []*StatsReport { return s.reports }

// Compile merges the months in a single stats per category requested.
func (s *StatsReports) Compile() []*Stats {
	compiled := make(map[Category]*Stats)
	var categories []Category
	for _, report := range s.reports {
		categories = report.options.Categories
		for c, st := range report.results {
			if cs, ok := compiled[c]; ok {
				cs.Update(st)
				continue
			}
			compiled[c] = st.clone()
		}
	}
	return filterStats(compiled, categories)
}

// CompileAll merges every month and every category requested.
func (s *StatsReports) CompileAll() *Stats {
	all := &Stats{}
	for _, st := range s.Compile() {
		all.Add(st)
	}
	return all
}

// StatsGroup is the stats of the categories declared together.
type StatsGroup struct {
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
	Stats      *Stats     `json:"stats"`
}

var statsGroups = []StatsGroup{
	{Name: "OPERAÇÕES COMUNS", Categories: []Category{CategoryStock, CategoryBDR, CategoryStockSubscriptionRights}},
	{Name: "FII OU FIAGRO", Categories: []Category{CategoryFII, CategoryFIISubscriptionRights}},
}

// CompileGroups merges every month by declaration group: common operations
// and real estate funds.
func (s *StatsReports) CompileGroups() []StatsGroup {
	compiled := s.Compile()
	groups := make([]StatsGroup, 0, len(statsGroups))
	for _, g := range statsGroups {
		g.Stats = &Stats{}
		for _, st := range compiled {
			if slices.Contains(g.Categories, st.Category) {
				g.Stats.Add(st)
			}
		}
		groups = append(groups, g)
	}
	return groups
}
