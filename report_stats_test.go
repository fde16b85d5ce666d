package irpf

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

// statsReport returns a report holding every category, as Generate seeds it.
func statsReport(stats ...*Stats) *StatsReport {
	r := &StatsReport{results: make(map[Category]*Stats)}
	for _, c := range Categories() {
		r.results[c] = NewStats(c)
	}
	for _, s := range stats {
		r.results[s.Category] = s
	}
	return r
}

func TestStatsReport_generateTaxes(t *testing.T) {
	type want struct {
		category    Category
		taxable     Money
		value       Money
		exempt      Money
		compensated Money
		cumulative  Money
	}
	tests := []struct {
		name  string
		stats []*Stats
		want  []want
	}{
		{
			name:  "stock exempt up to the limit",
			stats: []*Stats{{Category: CategoryStock, Sell: R(20000), Profits: R(1000)}},
			want:  []want{{category: CategoryStock, exempt: R(1000)}},
		},
		{
			name:  "stock taxed over the limit",
			stats: []*Stats{{Category: CategoryStock, Sell: R(20000.01), Profits: R(1000)}},
			want:  []want{{category: CategoryStock, taxable: R(1000), value: R(150)}},
		},
		{
			name:  "loss larger than profit",
			stats: []*Stats{{Category: CategoryStock, Sell: R(30000), Profits: R(300), CumulativeLosses: R(-500)}},
			want:  []want{{category: CategoryStock, compensated: R(300), cumulative: R(-200)}},
		},
		{
			name:  "profit larger than loss",
			stats: []*Stats{{Category: CategoryStock, Sell: R(30000), Profits: R(800), CumulativeLosses: R(-500)}},
			want:  []want{{category: CategoryStock, taxable: R(300), value: R(45), compensated: R(500)}},
		},
		{
			name: "bdr compensates stock losses",
			stats: []*Stats{
				{Category: CategoryStock, CumulativeLosses: R(-400)},
				{Category: CategoryBDR, Sell: R(5000), Profits: R(1000)},
			},
			want: []want{
				{category: CategoryBDR, taxable: R(600), value: R(90), compensated: R(400)},
				{category: CategoryStock},
			},
		},
		{
			name: "stock compensates bdr losses",
			stats: []*Stats{
				{Category: CategoryStock, Sell: R(25000), Profits: R(1000)},
				{Category: CategoryBDR, CumulativeLosses: R(-100)},
			},
			want: []want{
				{category: CategoryStock, taxable: R(900), value: R(135), compensated: R(100)},
				{category: CategoryBDR},
			},
		},
		{
			name: "fii compensates its own losses only",
			stats: []*Stats{
				{Category: CategoryStock, CumulativeLosses: R(-400)},
				{Category: CategoryFII, Sell: R(5000), Profits: R(1000), CumulativeLosses: R(-100)},
			},
			want: []want{
				{category: CategoryFII, taxable: R(900), value: R(180), compensated: R(100)},
				{category: CategoryStock, cumulative: R(-400)},
			},
		},
		{
			name: "subscription rights chain",
			stats: []*Stats{
				{Category: CategoryStock, CumulativeLosses: R(-30)},
				{Category: CategoryBDR, CumulativeLosses: R(-50)},
				{Category: CategoryStockSubscriptionRights, Sell: R(1000), Profits: R(200), CumulativeLosses: R(-10)},
			},
			want: []want{
				{category: CategoryStockSubscriptionRights, taxable: R(110), value: R(16.5), compensated: R(90)},
				{category: CategoryStock},
				{category: CategoryBDR},
			},
		},
		{
			name:  "irrf deducted",
			stats: []*Stats{{Category: CategoryStock, Sell: R(30000), Profits: R(1000), IRRF: R(1.5)}},
			want:  []want{{category: CategoryStock, taxable: R(1000), value: R(148.5)}},
		},
		{
			name:  "irrf larger than tax",
			stats: []*Stats{{Category: CategoryFII, Sell: R(30000), Profits: R(10), IRRF: R(5)}},
			want:  []want{{category: CategoryFII, taxable: R(10)}},
		},
		{
			name:  "net loss",
			stats: []*Stats{{Category: CategoryStock, Sell: R(30000), Profits: R(100), Losses: R(-300), CumulativeLosses: R(-200)}},
			want:  []want{{category: CategoryStock, cumulative: R(-200)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := statsReport(tt.stats...)
			if err := r.generateTaxes(DefaultTaxRate()); err != nil {
				t.Fatalf("generateTaxes() unexpected error: %v", err)
			}
			for _, w := range tt.want {
				s, err := r.Get(w.category)
				if err != nil {
					t.Fatalf("Get(%s) unexpected error: %v", w.category.Code(), err)
				}
				name := w.category.Code() + " "
				assertMoney(t, name+"taxable", s.Taxes.Taxable, w.taxable)
				assertMoney(t, name+"tax", s.Taxes.Value, w.value)
				assertMoney(t, name+"exempt profit", s.ExemptProfit, w.exempt)
				assertMoney(t, name+"compensated losses", s.CompensatedLosses, w.compensated)
				assertMoney(t, name+"cumulative losses", s.CumulativeLosses, w.cumulative)
			}
		})
	}
}

func TestStatsReport_Rates(t *testing.T) {
	r := statsReport()
	if err := r.generateTaxes(DefaultTaxRate()); err != nil {
		t.Fatalf("generateTaxes() unexpected error: %v", err)
	}
	want := map[Category]int64{
		CategoryStock:                   15,
		CategoryFII:                     20,
		CategoryBDR:                     15,
		CategoryStockSubscriptionRights: 15,
		CategoryFIISubscriptionRights:   20,
	}
	for c, rate := range want {
		if got := r.results[c].Taxes.Rate; got.IntPart() != rate {
			t.Errorf("%s rate = %s, want %d", c.Code(), got, rate)
		}
	}
}

// monthlyStats generates the stats of the months from start to end of an
// empty ledger.
func monthlyStats(t *testing.T, store *MemoryStore, start, end string, opts ...ReportOption) *StatsReports {
	t.Helper()
	ctx := context.Background()
	months := NewNegotiationReportMonth(NewLedger(), opts...)
	if err := months.Generate(ctx, MustParse(start), MustParse(end), Options{Consolidation: ConsolidationMonthly}); err != nil {
		t.Fatalf("NegotiationReportMonth.Generate() unexpected error: %v", err)
	}
	stats := NewStatsReports(append([]ReportOption{WithSnapshots(store)}, opts...)...)
	if err := stats.Generate(ctx, months); err != nil {
		t.Fatalf("StatsReports.Generate() unexpected error: %v", err)
	}
	return stats
}

func TestStatsReports_Residual(t *testing.T) {
	store := NewMemoryStore()
	for _, on := range []string{"2024-01-15", "2024-02-15", "2024-03-15"} {
		store.AddTax(TaxRecord{Date: MustParse(on), Category: CategoryStock, Total: R(4), Description: "DARF"})
	}
	stats := monthlyStats(t, store, "2024-01-01", "2024-03-31", WithToday(MustParse("2024-06-01")))

	tests := []struct {
		month    int
		residual Money
		payable  Money
		carried  Money
	}{
		{0, Money{}, Money{}, R(4)},
		{1, R(4), Money{}, R(8)},
		{2, R(8), R(12), Money{}},
	}
	for _, tt := range tests {
		s, err := stats.Reports()[tt.month].Get(CategoryStock)
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		assertMoney(t, "residual", s.Taxes.Residual, tt.residual)
		assertMoney(t, "payable", s.Taxes.Payable, tt.payable)
		assertMoney(t, "carried", s.ResidualTaxes, tt.carried)
	}
	last, _ := stats.Reports()[2].Get(CategoryStock)
	if len(last.Taxes.Settles) != 3 {
		t.Errorf("len(Settles) = %d, want the 3 records", len(last.Taxes.Settles))
	}

	ctx := context.Background()
	saved, err := SaveStatistics(ctx, store, stats)
	if err != nil {
		t.Fatalf("SaveStatistics() unexpected error: %v", err)
	}
	if want := 3 * len(Categories()); saved != want {
		t.Errorf("SaveStatistics() saved %d, want %d", saved, want)
	}
	records, _ := store.Taxes(ctx, NewRange(MustParse("2024-01-01"), MustParse("2024-12-31")), CategoryStock)
	for _, rec := range records {
		if !rec.Paid || rec.PaidOn != MustParse("2024-03-31") {
			t.Errorf("record %s paid = %v on %s, want paid on 2024-03-31", rec.Date, rec.Paid, rec.PaidOn)
		}
	}
	stat, _ := store.Statistic(ctx, MustParse("2024-02-29"), ConsolidationMonthly, CategoryStock, "")
	if stat == nil {
		t.Fatalf("Statistic(2024-02-29) not saved")
	}
	assertMoney(t, "saved residual", stat.ResidualTaxes, R(8))

	// a rerun finds the records paid.
	stats = monthlyStats(t, store, "2024-01-01", "2024-03-31", WithToday(MustParse("2024-06-01")))
	last, _ = stats.Reports()[2].Get(CategoryStock)
	assertMoney(t, "payable after payment", last.Taxes.Payable, Money{})
	assertMoney(t, "paid", last.Taxes.Paid, R(4))
}

func TestStatsReports_OpenMonth(t *testing.T) {
	store := NewMemoryStore()
	store.AddTax(TaxRecord{Date: MustParse("2024-03-10"), Category: CategoryFII, Total: R(100), Rate: decimal.NewFromInt(20)})
	stats := monthlyStats(t, store, "2024-03-01", "2024-03-31", WithToday(MustParse("2024-03-20")))

	s, _ := stats.Reports()[0].Get(CategoryFII)
	assertMoney(t, "value", s.Taxes.Value, R(20))
	assertMoney(t, "payable", s.Taxes.Payable, Money{})
	assertMoney(t, "carried", s.ResidualTaxes, R(20))

	saved, err := SaveStatistics(context.Background(), store, stats)
	if err != nil {
		t.Fatalf("SaveStatistics() unexpected error: %v", err)
	}
	if saved != 0 {
		t.Errorf("SaveStatistics() saved %d statistics of an open month", saved)
	}
}

func TestStatsReports_Seeded(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	err := store.SaveStatistic(ctx, Statistic{
		Date: MustParse("2024-02-29"), Consolidation: ConsolidationMonthly, Category: CategoryStock,
		CumulativeLosses: R(-70), ResidualTaxes: R(6), IsValid: true,
	})
	if err != nil {
		t.Fatalf("SaveStatistic() unexpected error: %v", err)
	}
	stats := monthlyStats(t, store, "2024-03-01", "2024-03-31", WithToday(MustParse("2024-06-01")))

	s, _ := stats.Reports()[0].Get(CategoryStock)
	assertMoney(t, "cumulative losses", s.CumulativeLosses, R(-70))
	assertMoney(t, "residual", s.Taxes.Residual, R(6))
	assertMoney(t, "carried", s.ResidualTaxes, R(6))
}

func TestStatsReport_Generate(t *testing.T) {
	l := newTestLedger(t)
	if err := l.AppendNegotiation(
		buy("2024-01-05", "PETR4", 1000, 20, 10),
		sell("2024-01-20", "PETR4", 1000, 25, 10),
		buy("2024-01-05", "HGLG11", 10, 160, 0),
		sell("2024-01-25", "HGLG11", 5, 150, 0),
		buy("2024-01-08", "UNKN3", 10, 10, 0),
	); err != nil {
		t.Fatalf("AppendNegotiation() unexpected error: %v", err)
	}
	ctx := context.Background()
	negotiation := NewNegotiationReport(l)
	if _, err := negotiation.Generate(ctx, MustParse("2024-01-01"), MustParse("2024-01-31"), Options{}); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	report := NewStatsReport(negotiation, WithToday(MustParse("2024-03-01")))
	if err := report.Generate(ctx, nil); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	stock, _ := report.Get(CategoryStock)
	// bought at 20.01, sold at 24.99 net of taxes.
	assertMoney(t, "stock sells", stock.Sell, R(25000))
	assertMoney(t, "stock profits", stock.Profits, R(4980))
	assertMoney(t, "stock tax", stock.Taxes.Value, R(747))
	assertMoney(t, "stock payable", stock.Taxes.Payable, R(747))

	fii, _ := report.Get(CategoryFII)
	assertMoney(t, "fii losses", fii.Losses, R(-50))
	assertMoney(t, "fii cumulative losses", fii.CumulativeLosses, R(-50))
	assertMoney(t, "fii patrimony", fii.Patrimony, R(800))
	assertMoney(t, "fii buys", fii.Buy, R(1600))

	if got := len(report.Results()); got != len(Categories()) {
		t.Errorf("len(Results()) = %d, want every category", got)
	}
}

func TestStatsReports_CompileGroups(t *testing.T) {
	l := newTestLedger(t)
	if err := l.AppendNegotiation(
		buy("2024-01-05", "PETR4", 10, 10, 0),
		sell("2024-02-05", "PETR4", 10, 12, 0),
		buy("2024-01-05", "AAPL34", 10, 10, 0),
		sell("2024-03-05", "AAPL34", 10, 9, 0),
		buy("2024-01-05", "HGLG11", 10, 100, 0),
		sell("2024-03-05", "HGLG11", 10, 101, 0),
	); err != nil {
		t.Fatalf("AppendNegotiation() unexpected error: %v", err)
	}
	ctx := context.Background()
	months := NewNegotiationReportMonth(l)
	if err := months.Generate(ctx, MustParse("2024-01-01"), MustParse("2024-03-31"), Options{}); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	stats := NewStatsReports(WithToday(MustParse("2024-06-01")))
	if err := stats.Generate(ctx, months); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	groups := stats.CompileGroups()
	if len(groups) != 2 {
		t.Fatalf("len(CompileGroups()) = %d, want 2", len(groups))
	}
	common, fii := groups[0].Stats, groups[1].Stats
	assertMoney(t, "common profits", common.Profits, R(20))
	assertMoney(t, "common losses", common.Losses, R(-10))
	assertMoney(t, "common sells", common.Sell, R(210))
	assertMoney(t, "fii profits", fii.Profits, R(10))
	assertMoney(t, "fii tax", fii.Taxes.Value, R(2))
	// under the DARF minimum.
	assertMoney(t, "fii residual", fii.ResidualTaxes, R(2))

	all := stats.CompileAll()
	assertMoney(t, "all sells", all.Sell, R(1220))
}
