package irpf

// Buy is the running buy lot of an asset: every share held, at average cost.
type Buy struct {
	Quantity Quantity `json:"quantity"`
	Total    Money    `json:"total"` // cost of the held shares, taxes included
	Tax      Money    `json:"tax"`
	Date     Date     `json:"date,omitzero"`
}

// AvgPrice returns the average cost of a whole share, zero when no whole
// share is held.
func (b Buy) AvgPrice() Money { return b.Total.Div(b.Quantity.Floor()) }

// AvgTax returns the average tax paid per whole share.
func (b Buy) AvgTax() Money { return b.Tax.Div(b.Quantity.Floor()) }

// Update adds the figures of o.
func (b *Buy) Update(o Buy) {
	b.Quantity = b.Quantity.Add(o.Quantity)
	b.Total = b.Total.Add(o.Total)
	b.Tax = b.Tax.Add(o.Tax)
	if o.Date.After(b.Date) {
		b.Date = o.Date
	}
}

// add accumulates a purchase.
func (b *Buy) add(quantity Quantity, total, tax Money) {
	b.Quantity = b.Quantity.Add(quantity)
	b.Total = b.Total.Add(total)
	b.Tax = b.Tax.Add(tax)
}

// remove takes quantity shares out of the lot at average cost, returning the
// cost and the tax removed.
func (b *Buy) remove(quantity Quantity) (Money, Money) {
	if quantity.GreaterThan(b.Quantity) {
		quantity = b.Quantity
	}
	total := b.AvgPrice().Mul(quantity)
	tax := b.AvgTax().Mul(quantity)
	if quantity.Equal(b.Quantity) {
		total, tax = b.Total, b.Tax
	}
	b.Quantity = b.Quantity.Sub(quantity)
	b.Total = b.Total.Sub(total)
	b.Tax = b.Tax.Sub(tax)
	return total, tax
}

// Amount is a quantity of shares and their value, used for the fractions sold
// in auctions and the shares received in bonus.
type Amount struct {
	Quantity Quantity `json:"quantity"`
	Total    Money    `json:"total"`
}

func (f *Amount) Update(o Amount) {
	f.Quantity = f.Quantity.Add(o.Quantity)
	f.Total = f.Total.Add(o.Total)
}

// Sell accumulates the sales of an asset and the capital gains they realized.
type Sell struct {
	Quantity Quantity `json:"quantity"`
	Total    Money    `json:"total"`
	Tax      Money    `json:"tax"`
	IRRF     Money    `json:"irrf"`
	Profits  Money    `json:"profits"`
	Losses   Money    `json:"losses"`   // zero or negative
	Fraction Amount   `json:"fraction"` // shares fractions sold in auctions
}

// Capital returns the net capital gain of the sales.
func (s Sell) Capital() Money { return s.Profits.Add(s.Losses) }

func (s *Sell) Update(o Sell) {
	s.Quantity = s.Quantity.Add(o.Quantity)
	s.Total = s.Total.Add(o.Total)
	s.Tax = s.Tax.Add(o.Tax)
	s.IRRF = s.IRRF.Add(o.IRRF)
	s.Profits = s.Profits.Add(o.Profits)
	s.Losses = s.Losses.Add(o.Losses)
	s.Fraction.Update(o.Fraction)
}

// PeriodActivity holds what happened within the report range only, apart
// from the figures carried by the seeding position.
type PeriodActivity struct {
	Buy Buy `json:"buy"`
}

func (p *PeriodActivity) Update(o PeriodActivity) { p.Buy.Update(o.Buy) }
