package irpf

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLedger_Source(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	xp := buy("2024-01-05", "PETR4", 10, 30, 0)
	xp.Institution = "XP"
	rico := buy("2024-01-06", "petr4f", 1, 30, 0)
	rico.Institution = "RICO"
	if err := l.AppendNegotiation(xp, rico); err != nil {
		t.Fatalf("AppendNegotiation() unexpected error: %v", err)
	}
	if err := l.AppendBonus(Bonus{ID: "b1", Ticker: "PETR4", DateCom: MustParse("2024-01-30"), Date: MustParse("2024-02-05"), Proportion: decimal.NewFromInt(10), BaseValue: R(5)}); err != nil {
		t.Fatalf("AppendBonus() unexpected error: %v", err)
	}
	if err := l.AppendSubscription(Subscription{ID: "s1", Ticker: "XPTO3", ReceiptTicker: "XPTO13", DateCom: MustParse("2024-01-10"), Date: MustParse("2024-03-10"), Proportion: decimal.NewFromInt(10), Price: R(8)}); err != nil {
		t.Fatalf("AppendSubscription() unexpected error: %v", err)
	}
	if err := l.AppendAssetConvert(AssetConvert{Origin: "XPTO3", Target: "XPTO11", Date: MustParse("2024-04-01"), FactorFrom: 1, FactorTo: 1}); err != nil {
		t.Fatalf("AppendAssetConvert() unexpected error: %v", err)
	}

	january := NewRange(MustParse("2024-01-01"), MustParse("2024-01-31"))
	february := NewRange(MustParse("2024-02-01"), MustParse("2024-02-29"))
	march := NewRange(MustParse("2024-03-01"), MustParse("2024-03-31"))
	april := NewRange(MustParse("2024-04-01"), MustParse("2024-04-30"))

	t.Run("negotiations by institution", func(t *testing.T) {
		list, _ := l.Negotiations(ctx, january, Filter{Institution: "rico"})
		if len(list) != 1 || list[0].Ticker != "PETR4" {
			t.Errorf("Negotiations() = %v, want the normalized RICO buy", list)
		}
	})
	t.Run("bonus by either date", func(t *testing.T) {
		for _, r := range []Range{january, february} {
			list, _ := l.Bonuses(ctx, r, Filter{Institution: "XP", Ticker: "PETR4"})
			if len(list) != 1 {
				t.Errorf("Bonuses(%s) = %d bonuses, want 1", r.Identifier(), len(list))
			}
		}
		if list, _ := l.Bonuses(ctx, march, Filter{}); len(list) != 0 {
			t.Errorf("Bonuses(2024-03) = %d bonuses, want 0", len(list))
		}
	})
	t.Run("subscription by receipt ticker", func(t *testing.T) {
		list, _ := l.Subscriptions(ctx, march, Filter{Ticker: "XPTO13"})
		if len(list) != 1 {
			t.Errorf("Subscriptions() = %d subscriptions, want 1", len(list))
		}
	})
	t.Run("convert by target", func(t *testing.T) {
		list, _ := l.AssetConverts(ctx, april, Filter{Ticker: "XPTO11"})
		if len(list) != 1 {
			t.Errorf("AssetConverts() = %d converts, want 1", len(list))
		}
	})
	t.Run("span", func(t *testing.T) {
		span, ok := l.Span()
		if !ok || span.From != MustParse("2024-01-05") || span.To != MustParse("2024-04-01") {
			t.Errorf("Span() = %v, %v, want 2024-01-05 to 2024-04-01", span, ok)
		}
	})
}

func TestLedger_Declare(t *testing.T) {
	l := NewLedger()
	if err := l.Declare(Asset{Ticker: "PETR4", Category: CategoryStock}, Asset{Ticker: "HGLG11", Category: CategoryFII}); err != nil {
		t.Fatalf("Declare() unexpected error: %v", err)
	}
	if err := l.Declare(Asset{Ticker: "XXX"}); err == nil {
		t.Errorf("Declare() without category expected an error")
	}
	var tickers []string
	for a := range l.Assets() {
		tickers = append(tickers, a.Ticker)
	}
	if len(tickers) != 2 || tickers[0] != "HGLG11" || tickers[1] != "PETR4" {
		t.Errorf("Assets() = %v, want [HGLG11 PETR4]", tickers)
	}
}

func TestNormalizeTicker(t *testing.T) {
	tests := map[string]string{
		"petr4":   "PETR4",
		"PETR4F":  "PETR4",
		" vale3f": "VALE3",
		"HGLG11":  "HGLG11",
	}
	for in, want := range tests {
		if got := NormalizeTicker(in); got != want {
			t.Errorf("NormalizeTicker(%q) = %q, want %q", in, got, want)
		}
	}
}
