package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/etnz/irpf"
	"github.com/shopspring/decimal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_Positions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	jan := irpf.MustParse("2024-01-31")

	positions := []irpf.Position{
		{Ticker: "PETR4", Quantity: irpf.Q(100), Total: irpf.BR(1005.5), Tax: irpf.BR(5.5), IsValid: true},
		{Ticker: "VALE3", Institution: "XP", Quantity: irpf.Q(10), Total: irpf.BR(600), IsValid: true},
		{Ticker: "ITSA4", Quantity: irpf.Q(0), IsValid: true},
		{Ticker: "BBAS3", Quantity: irpf.Q(1), Total: irpf.BR(30), IsValid: false},
	}
	for i := range positions {
		positions[i].Date, positions[i].Consolidation = jan, irpf.ConsolidationYearly
	}
	monthly := irpf.Position{Ticker: "PETR4", Date: jan, Consolidation: irpf.ConsolidationMonthly, Quantity: irpf.Q(1), Total: irpf.BR(1), IsValid: true}
	for _, p := range append(positions, monthly) {
		if err := db.SavePosition(ctx, p); err != nil {
			t.Fatalf("SavePosition() unexpected error: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter irpf.Filter
		want   []string
	}{
		{"all", irpf.Filter{}, []string{"PETR4", "VALE3"}},
		{"ticker", irpf.Filter{Ticker: "vale3"}, []string{"VALE3"}},
		{"institution", irpf.Filter{Institution: "Clear"}, []string{"PETR4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Positions(ctx, jan, irpf.ConsolidationYearly, tt.filter)
			if err != nil {
				t.Fatalf("Positions() unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Positions() = %v, want %v", got, tt.want)
			}
			for i, p := range got {
				if p.Ticker != tt.want[i] {
					t.Errorf("Positions()[%d] = %s, want %s", i, p.Ticker, tt.want[i])
				}
			}
		})
	}

	got, _ := db.Positions(ctx, jan, irpf.ConsolidationYearly, irpf.Filter{Ticker: "PETR4"})
	if p := got[0]; !p.Total.Equal(irpf.BR(1005.5)) || !p.Tax.Equal(irpf.BR(5.5)) || !p.Quantity.Equal(irpf.Q(100)) {
		t.Errorf("Positions() = %+v, want the saved figures", p)
	}

	// saving again replaces the row.
	updated := positions[0]
	updated.Quantity = irpf.Q(50)
	if err := db.SavePosition(ctx, updated); err != nil {
		t.Fatalf("SavePosition() unexpected error: %v", err)
	}
	got, _ = db.Positions(ctx, jan, irpf.ConsolidationYearly, irpf.Filter{Ticker: "PETR4"})
	if len(got) != 1 || !got[0].Quantity.Equal(irpf.Q(50)) {
		t.Errorf("Positions() after update = %v, want 50 shares", got)
	}
}

func TestDB_InvalidatePositions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for _, on := range []string{"2023-12-31", "2024-01-31", "2024-02-29"} {
		for _, ticker := range []string{"PETR4", "VALE3"} {
			p := irpf.Position{Ticker: ticker, Date: irpf.MustParse(on), Consolidation: irpf.ConsolidationMonthly, Quantity: irpf.Q(1), IsValid: true}
			if err := db.SavePosition(ctx, p); err != nil {
				t.Fatalf("SavePosition() unexpected error: %v", err)
			}
		}
	}
	err := db.InvalidatePositions(ctx, irpf.MustParse("2023-12-31"), irpf.ConsolidationMonthly, irpf.Filter{Ticker: "PETR4"})
	if err != nil {
		t.Fatalf("InvalidatePositions() unexpected error: %v", err)
	}

	tests := []struct {
		on   string
		want int
	}{
		{"2023-12-31", 2},
		{"2024-01-31", 1},
		{"2024-02-29", 1},
	}
	for _, tt := range tests {
		got, err := db.Positions(ctx, irpf.MustParse(tt.on), irpf.ConsolidationMonthly, irpf.Filter{})
		if err != nil {
			t.Fatalf("Positions() unexpected error: %v", err)
		}
		if len(got) != tt.want {
			t.Errorf("Positions(%s) = %v, want %d valid positions", tt.on, got, tt.want)
		}
	}
}

func TestDB_Statistics(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	jan, feb := irpf.MustParse("2024-01-31"), irpf.MustParse("2024-02-29")

	for _, on := range []irpf.Date{jan, feb} {
		s := irpf.Statistic{
			Date:             on,
			Consolidation:    irpf.ConsolidationMonthly,
			Category:         irpf.CategoryFII,
			CumulativeLosses: irpf.BR(-50),
			ResidualTaxes:    irpf.BR(4.2),
			Patrimony:        irpf.BR(800),
			IsValid:          true,
		}
		if err := db.SaveStatistic(ctx, s); err != nil {
			t.Fatalf("SaveStatistic() unexpected error: %v", err)
		}
	}

	s, err := db.Statistic(ctx, jan, irpf.ConsolidationMonthly, irpf.CategoryFII, "")
	if err != nil {
		t.Fatalf("Statistic() unexpected error: %v", err)
	}
	if s == nil {
		t.Fatalf("Statistic() = nil, want the saved statistic")
	}
	if !s.CumulativeLosses.Equal(irpf.BR(-50)) || !s.ResidualTaxes.Equal(irpf.BR(4.2)) || !s.Patrimony.Equal(irpf.BR(800)) {
		t.Errorf("Statistic() = %+v, want the saved figures", s)
	}

	if s, _ := db.Statistic(ctx, jan, irpf.ConsolidationMonthly, irpf.CategoryStock, ""); s != nil {
		t.Errorf("Statistic() of another category = %+v, want nil", s)
	}

	if err := db.InvalidateStatistics(ctx, jan, irpf.ConsolidationMonthly, ""); err != nil {
		t.Fatalf("InvalidateStatistics() unexpected error: %v", err)
	}
	if s, _ := db.Statistic(ctx, feb, irpf.ConsolidationMonthly, irpf.CategoryFII, ""); s != nil {
		t.Errorf("Statistic() after invalidation = %+v, want nil", s)
	}
	if s, _ := db.Statistic(ctx, jan, irpf.ConsolidationMonthly, irpf.CategoryFII, ""); s == nil {
		t.Errorf("Statistic() before the invalidation date = nil, want it kept")
	}
}

func TestDB_Taxes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	records := []irpf.TaxRecord{
		{Date: irpf.MustParse("2024-01-31"), Category: irpf.CategoryStock, Total: irpf.BR(100), Rate: decimal.NewFromInt(15), Description: "day trade"},
		{Date: irpf.MustParse("2024-02-29"), Category: irpf.CategoryStock, Total: irpf.BR(4)},
		{Date: irpf.MustParse("2024-02-29"), Category: irpf.CategoryFII, Total: irpf.BR(8)},
	}
	var ids []string
	for _, r := range records {
		added, err := db.AddTax(ctx, r)
		if err != nil {
			t.Fatalf("AddTax() unexpected error: %v", err)
		}
		if added.ID == "" {
			t.Fatalf("AddTax() did not set an id")
		}
		ids = append(ids, added.ID)
	}

	q1 := irpf.NewRange(irpf.MustParse("2024-01-01"), irpf.MustParse("2024-03-31"))
	stock, err := db.Taxes(ctx, q1, irpf.CategoryStock)
	if err != nil {
		t.Fatalf("Taxes() unexpected error: %v", err)
	}
	if len(stock) != 2 {
		t.Fatalf("Taxes() = %v, want 2 stock records", stock)
	}
	if got := stock[0].Value(); !got.Equal(irpf.BR(15)) {
		t.Errorf("Value() = %s, want R$15,00", got)
	}
	if stock[0].Description != "day trade" || stock[0].Paid {
		t.Errorf("Taxes()[0] = %+v, want the unpaid day trade record", stock[0])
	}

	if err := db.PayTaxes(ctx, ids[:2], irpf.MustParse("2024-03-31")); err != nil {
		t.Fatalf("PayTaxes() unexpected error: %v", err)
	}
	all, err := db.AllTaxes(ctx, q1)
	if err != nil {
		t.Fatalf("AllTaxes() unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("AllTaxes() = %v, want 3 records", all)
	}
	for _, r := range all {
		wantPaid := r.Category == irpf.CategoryStock
		if r.Paid != wantPaid {
			t.Errorf("%s tax of %s paid = %v, want %v", r.Category, r.Date, r.Paid, wantPaid)
		}
		if wantPaid && r.PaidOn != irpf.MustParse("2024-03-31") {
			t.Errorf("PaidOn = %s, want 2024-03-31", r.PaidOn)
		}
	}

	if err := db.DeleteTax(ctx, ids[2]); err != nil {
		t.Fatalf("DeleteTax() unexpected error: %v", err)
	}
	if err := db.DeleteTax(ctx, ids[2]); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("DeleteTax() of a missing record = %v, want sql.ErrNoRows", err)
	}
}

func TestDB_Registry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	info := irpf.BonusInfo{
		BonusID:      "bonus-1",
		Ticker:       "XPTO3",
		FromQuantity: irpf.Q(100),
		FromTotal:    irpf.BR(1000),
		Quantity:     irpf.Q(10),
		Total:        irpf.BR(50),
	}
	tests := []struct {
		name  string
		info  func() irpf.BonusInfo
		saved bool
	}{
		{"new", func() irpf.BonusInfo { return info }, true},
		{"unchanged", func() irpf.BonusInfo { return info }, false},
		{"updated", func() irpf.BonusInfo { i := info; i.Quantity = irpf.Q(12); return i }, true},
		{"other institution", func() irpf.BonusInfo { i := info; i.Institution = "XP"; return i }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved, err := db.SaveBonusInfo(ctx, tt.info())
			if err != nil {
				t.Fatalf("SaveBonusInfo() unexpected error: %v", err)
			}
			if saved != tt.saved {
				t.Errorf("SaveBonusInfo() = %v, want %v", saved, tt.saved)
			}
		})
	}

	got, err := db.BonusInfo(ctx, "bonus-1", "")
	if err != nil {
		t.Fatalf("BonusInfo() unexpected error: %v", err)
	}
	if got == nil || !got.Quantity.Equal(irpf.Q(12)) || !got.FromTotal.Equal(irpf.BR(1000)) {
		t.Errorf("BonusInfo() = %+v, want the updated row", got)
	}
	if got, err := db.BonusInfo(ctx, "bonus-2", ""); got != nil || err != nil {
		t.Errorf("BonusInfo() of an unknown bonus = %+v, %v, want nil, nil", got, err)
	}
	if got, err := db.SubscriptionInfo(ctx, "sub-2", ""); got != nil || err != nil {
		t.Errorf("SubscriptionInfo() of an unknown subscription = %+v, %v, want nil, nil", got, err)
	}

	sub := irpf.SubscriptionInfo{
		SubscriptionID: "sub-1",
		Ticker:         "XPTO3",
		FromQuantity:   irpf.Q(100),
		FromTotal:      irpf.BR(1000),
		Quantity:       irpf.Q(10),
		Total:          irpf.BR(80),
	}
	for i, want := range []bool{true, false} {
		saved, err := db.SaveSubscriptionInfo(ctx, sub)
		if err != nil {
			t.Fatalf("SaveSubscriptionInfo() unexpected error: %v", err)
		}
		if saved != want {
			t.Errorf("SaveSubscriptionInfo() #%d = %v, want %v", i, saved, want)
		}
	}
	if got, _ := db.SubscriptionInfo(ctx, "sub-1", ""); got == nil || !got.Total.Equal(irpf.BR(80)) {
		t.Errorf("SubscriptionInfo() = %+v, want the saved row", got)
	}
}

func TestDB_NegotiationReport(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	l := irpf.NewLedger()
	if err := l.Declare(irpf.Asset{Ticker: "XPTO3", Name: "Xpto", Category: irpf.CategoryStock}); err != nil {
		t.Fatalf("Declare() unexpected error: %v", err)
	}
	err := l.AppendNegotiation(irpf.Negotiation{
		Date: irpf.MustParse("2024-01-05"), Kind: irpf.KindBuy, Ticker: "XPTO3",
		Quantity: irpf.Q(100), Price: irpf.BR(10),
	})
	if err != nil {
		t.Fatalf("AppendNegotiation() unexpected error: %v", err)
	}
	err = l.AppendBonus(irpf.Bonus{
		ID: "bonus-1", Ticker: "XPTO3",
		DateCom: irpf.MustParse("2024-01-10"), Date: irpf.MustParse("2024-01-15"),
		Proportion: decimal.NewFromInt(10), BaseValue: irpf.BR(5),
	})
	if err != nil {
		t.Fatalf("AppendBonus() unexpected error: %v", err)
	}

	opts := []irpf.ReportOption{irpf.WithRegistry(db), irpf.WithSnapshots(db), irpf.WithToday(irpf.MustParse("2024-03-15"))}
	months := irpf.NewNegotiationReportMonth(l, opts...)
	err = months.Generate(ctx, irpf.MustParse("2024-01-01"), irpf.MustParse("2024-02-29"), irpf.Options{Consolidation: irpf.ConsolidationMonthly})
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if _, err := irpf.SavePositions(ctx, db, months); err != nil {
		t.Fatalf("SavePositions() unexpected error: %v", err)
	}

	feb, err := db.Positions(ctx, irpf.MustParse("2024-02-29"), irpf.ConsolidationMonthly, irpf.Filter{})
	if err != nil {
		t.Fatalf("Positions() unexpected error: %v", err)
	}
	if len(feb) != 1 || !feb[0].Quantity.Equal(irpf.Q(110)) || !feb[0].Total.Equal(irpf.BR(1050)) {
		t.Errorf("Positions() = %v, want 110 XPTO3 costing R$1.050,00", feb)
	}

	// march is seeded by the february snapshot.
	report := irpf.NewNegotiationReport(l, opts...)
	results, err := report.Generate(ctx, irpf.MustParse("2024-03-01"), irpf.MustParse("2024-03-31"), irpf.Options{Consolidation: irpf.ConsolidationMonthly})
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if len(results) != 1 || !results[0].Asset.Buy.Quantity.Equal(irpf.Q(110)) {
		t.Errorf("Generate() = %v, want the seeded 110 XPTO3", results)
	}
}
