package irpf

import (
	"slices"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// TaxRate is the swing trade tax table in force from a date.
type TaxRate struct {
	ValidFrom Date
	// DarfMin is the smallest tax paid, smaller amounts are carried to the next month.
	DarfMin Money
	// StockExemption is the monthly stock sales under which stock profits are exempt.
	StockExemption Money
	// Rates in percent, per category.
	Rates map[Category]decimal.Decimal
}

// DefaultTaxRate returns the rates in force since 2005.
func DefaultTaxRate() TaxRate {
	return TaxRate{
		ValidFrom:      NewDate(2005, 1, 1),
		DarfMin:        BR(10),
		StockExemption: BR(20000),
		Rates: map[Category]decimal.Decimal{
			CategoryStock:                   decimal.NewFromInt(15),
			CategoryFII:                     decimal.NewFromInt(20),
			CategoryBDR:                     decimal.NewFromInt(15),
			CategoryStockSubscriptionRights: decimal.NewFromInt(15),
			CategoryFIISubscriptionRights:   decimal.NewFromInt(20),
		},
	}
}

// Rate returns the rate of a category, the default rate when unset.
func (t TaxRate) Rate(c Category) decimal.Decimal {
	if r, ok := t.Rates[c]; ok {
		return r
	}
	return DefaultTaxRate().Rates[c]
}

// TaxRates is a tax table history.
type TaxRates []TaxRate

// At returns the table in force on a date: the latest one valid from that
// date, or the oldest one for dates before any table.
func (t TaxRates) At(d Date) TaxRate {
	if len(t) == 0 {
		return DefaultTaxRate()
	}
	sorted := slices.SortedFunc(slices.Values(t), func(a, b TaxRate) int {
		return a.ValidFrom.time().Compare(b.ValidFrom.time())
	})
	found := sorted[0]
	for _, rate := range sorted {
		if rate.ValidFrom.After(d) {
			break
		}
		found = rate
	}
	return found
}

// rateCache memoizes the table lookups of a generation by month.
type rateCache struct {
	rates TaxRates
	c     *cache.Cache
}

func newRateCache(rates TaxRates) *rateCache {
	return &rateCache{rates: rates, c: cache.New(cache.NoExpiration, 0)}
}

func (r *rateCache) at(d Date) TaxRate {
	key := d.Format("2006-01")
	if v, ok := r.c.Get(key); ok {
		return v.(TaxRate)
	}
	rate := r.rates.At(d)
	r.c.Set(key, rate, cache.NoExpiration)
	return rate
}
