package irpf

import (
	"context"
	"testing"
)

// R is a helper for test to create reais from const.
func R(v float64) Money { return BR(v) }

func buy(on, ticker string, quantity, price, tax float64) Negotiation {
	return Negotiation{Date: MustParse(on), Kind: KindBuy, Ticker: ticker, Quantity: Q(quantity), Price: R(price), Tax: R(tax)}
}

func sell(on, ticker string, quantity, price, tax float64) Negotiation {
	return Negotiation{Date: MustParse(on), Kind: KindSell, Ticker: ticker, Quantity: Q(quantity), Price: R(price), Tax: R(tax)}
}

func assertMoney(t *testing.T, name string, got, want Money) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s (%s), want %s", name, got, got.Decimal(), want)
	}
}

func assertQuantity(t *testing.T, name string, got, want Quantity) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

// find returns the result of a ticker, nil if absent.
func find(results []Result, ticker string) *Assets {
	for _, r := range results {
		if r.Ticker == ticker {
			return r.Asset
		}
	}
	return nil
}

// newTestLedger returns a ledger declaring the assets used in tests.
func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := NewLedger()
	err := l.Declare(
		Asset{Ticker: "PETR4", Name: "Petrobras", Category: CategoryStock},
		Asset{Ticker: "VALE3", Name: "Vale", Category: CategoryStock},
		Asset{Ticker: "XPTO3", Name: "Xpto", Category: CategoryStock},
		Asset{Ticker: "XPTO11", Name: "Xpto Units", Category: CategoryStock},
		Asset{Ticker: "HGLG11", Name: "CSHG Logística", Category: CategoryFII},
		Asset{Ticker: "AAPL34", Name: "Apple BDR", Category: CategoryBDR},
	)
	if err != nil {
		t.Fatalf("Declare() unexpected error: %v", err)
	}
	return l
}

// countingRegistry counts the rows actually written to a registry.
type countingRegistry struct {
	Registry
	writes int
}

func (c *countingRegistry) SaveBonusInfo(ctx context.Context, info BonusInfo) (bool, error) {
	saved, err := c.Registry.SaveBonusInfo(ctx, info)
	if saved {
		c.writes++
	}
	return saved, err
}

func (c *countingRegistry) SaveSubscriptionInfo(ctx context.Context, info SubscriptionInfo) (bool, error) {
	saved, err := c.Registry.SaveSubscriptionInfo(ctx, info)
	if saved {
		c.writes++
	}
	return saved, err
}
