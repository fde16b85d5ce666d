package irpf

import "github.com/shopspring/decimal"

// TaxDue is the tax computed for a category in a month.
type TaxDue struct {
	Rate     decimal.Decimal `json:"rate"`
	Taxable  Money           `json:"taxable"`  // profit left after loss compensation
	Value    Money           `json:"value"`    // tax of the month, IRRF deducted, unpaid records included
	Residual Money           `json:"residual"` // carried from the previous months
	Total    Money           `json:"total"`
	Payable  Money           `json:"payable"` // due this month, zero under the DARF minimum
	Paid     Money           `json:"paid"`
	Items    []TaxRecord     `json:"items,omitempty"`
	// Settles lists the unpaid records paid off by the payable amount,
	// including those carried with the residual.
	Settles []TaxRecord `json:"-"`
}

// Stats aggregates the results of a tax category.
type Stats struct {
	Category          Category `json:"category"`
	Buy               Money    `json:"buy"`
	Sell              Money    `json:"sell"`
	Tax               Money    `json:"tax"`
	IRRF              Money    `json:"irrf"`
	Profits           Money    `json:"profits"`
	Losses            Money    `json:"losses"`
	ExemptProfit      Money    `json:"exempt_profit"`
	CumulativeLosses  Money    `json:"cumulative_losses"`  // zero or negative, carried forward
	CompensatedLosses Money    `json:"compensated_losses"` // losses absorbed by this period profits
	Patrimony         Money    `json:"patrimony"`
	Bonus             Money    `json:"bonus"`
	Taxes             TaxDue   `json:"taxes"`
	ResidualTaxes     Money    `json:"residual_taxes"` // carried to the next month

	residualItems []TaxRecord // unpaid records carried with ResidualTaxes
}

// NewStats returns empty stats for a category.
func NewStats(c Category) *Stats { return &Stats{Category: c} }

// Net returns profits and losses of the period together.
func (s *Stats) Net() Money { return s.Profits.Add(s.Losses) }

// Update merges the stats of a later period: flows add up, carried figures
// become the later ones.
func (s *Stats) Update(o *Stats) {
	s.sumFlows(o)
	s.CumulativeLosses = o.CumulativeLosses
	s.ResidualTaxes = o.ResidualTaxes
	s.Patrimony = o.Patrimony
	s.Taxes.Rate = o.Taxes.Rate
	s.Taxes.Total = s.Taxes.Residual.Add(s.Taxes.Value)
	s.residualItems = o.residualItems
}

// Add sums the stats of another category.
func (s *Stats) Add(o *Stats) {
	s.sumFlows(o)
	s.CumulativeLosses = s.CumulativeLosses.Add(o.CumulativeLosses)
	s.ResidualTaxes = s.ResidualTaxes.Add(o.ResidualTaxes)
	s.Patrimony = s.Patrimony.Add(o.Patrimony)
	s.Taxes.Residual = s.Taxes.Residual.Add(o.Taxes.Residual)
	s.Taxes.Total = s.Taxes.Total.Add(o.Taxes.Total)
}

func (s *Stats) sumFlows(o *Stats) {
	s.Buy = s.Buy.Add(o.Buy)
	s.Sell = s.Sell.Add(o.Sell)
	s.Tax = s.Tax.Add(o.Tax)
	s.IRRF = s.IRRF.Add(o.IRRF)
	s.Profits = s.Profits.Add(o.Profits)
	s.Losses = s.Losses.Add(o.Losses)
	s.ExemptProfit = s.ExemptProfit.Add(o.ExemptProfit)
	s.CompensatedLosses = s.CompensatedLosses.Add(o.CompensatedLosses)
	s.Bonus = s.Bonus.Add(o.Bonus)
	s.Taxes.Taxable = s.Taxes.Taxable.Add(o.Taxes.Taxable)
	s.Taxes.Value = s.Taxes.Value.Add(o.Taxes.Value)
	s.Taxes.Payable = s.Taxes.Payable.Add(o.Taxes.Payable)
	s.Taxes.Paid = s.Taxes.Paid.Add(o.Taxes.Paid)
	s.Taxes.Items = append(s.Taxes.Items, o.Taxes.Items...)
	s.Taxes.Settles = append(s.Taxes.Settles, o.Taxes.Settles...)
}

// clone returns a copy of s that can be updated without changing s.
func (s *Stats) clone() *Stats {
	c := *s
	c.Taxes.Items = append([]TaxRecord(nil), s.Taxes.Items...)
	c.Taxes.Settles = append([]TaxRecord(nil), s.Taxes.Settles...)
	return &c
}
