package irpf

// Assets is the running state of a ticker within a report period.
//
// It is seeded from a Position snapshot (or created on first reference) and
// mutated day after day by the NegotiationReport.
type Assets struct {
	Ticker      string           `json:"ticker"`
	Institution string           `json:"institution,omitempty"`
	Instance    *Asset           `json:"instance,omitempty"`
	Buy         Buy              `json:"buy"`
	Sell        Sell             `json:"sell"`
	Credit      Events           `json:"credit"`
	Debit       Events           `json:"debit"`
	Events      []CorporateEvent `json:"events,omitempty"`
	Bonus       Amount           `json:"bonus"` // shares received in bonus
	Position    *Position        `json:"position,omitempty"`
	Items       []Negotiation    `json:"-"`
	Period      PeriodActivity   `json:"period"`
}

// NewAssets returns an empty Assets.
func NewAssets(ticker, institution string, instance *Asset) *Assets {
	return &Assets{Ticker: ticker, Institution: institution, Instance: instance}
}

// assetsFromPosition returns an Assets seeded by a snapshot.
func assetsFromPosition(p Position, institution string, instance *Asset) *Assets {
	if p.Institution != "" {
		institution = p.Institution
	}
	a := NewAssets(p.Ticker, institution, instance)
	a.Position = &p
	a.Buy = Buy{Quantity: p.Quantity, Total: p.Total, Tax: p.Tax, Date: p.Date}
	return a
}

// IsPositionInterval reports whether date is already reflected by the
// seeding position.
func (a *Assets) IsPositionInterval(date Date) bool {
	return a.Position != nil && !date.After(a.Position.Date)
}

// Category returns the category of the registered asset.
func (a *Assets) Category() (Category, bool) {
	if a.Instance == nil {
		return 0, false
	}
	return a.Instance.Category, true
}

// IsEmpty reports whether nothing is held nor happened on the asset.
func (a *Assets) IsEmpty() bool {
	return a.Buy.Quantity.IsZero() && a.Sell.Quantity.IsZero() && a.Sell.Fraction.Total.IsZero() &&
		a.Credit.Len() == 0 && a.Debit.Len() == 0
}

// Snapshot returns the position held, as it would be saved on a date.
func (a *Assets) Snapshot(on Date, c Consolidation) Position {
	return Position{
		Ticker:        a.Ticker,
		Institution:   a.Institution,
		Date:          on,
		Consolidation: c,
		Quantity:      a.Buy.Quantity,
		Total:         a.Buy.Total,
		Tax:           a.Buy.Tax,
		IsValid:       true,
	}
}

// consolidate applies a buy or a sell at average cost.
func (a *Assets) consolidate(n Negotiation) {
	a.Items = append(a.Items, n)
	total := n.Total()
	switch n.Kind {
	case KindBuy:
		a.Buy.add(n.Quantity, total.Add(n.Tax), n.Tax)
		a.Buy.Date = n.Date
		a.Period.Buy.add(n.Quantity, total.Add(n.Tax), n.Tax)
		a.Period.Buy.Date = n.Date

	case KindSell:
		a.Sell.Quantity = a.Sell.Quantity.Add(n.Quantity)
		a.Sell.Total = a.Sell.Total.Add(total)
		a.Sell.Tax = a.Sell.Tax.Add(n.Tax)
		a.Sell.IRRF = a.Sell.IRRF.Add(n.IRRF)

		sellAvgPrice := total.Sub(n.Tax).Div(n.Quantity)
		buyAvgPrice := a.Buy.AvgPrice()
		buyAvgTax := a.Buy.AvgTax()

		capital := sellAvgPrice.Sub(buyAvgPrice).Mul(n.Quantity)
		if capital.IsNegative() {
			a.Sell.Losses = a.Sell.Losses.Add(capital)
		} else {
			a.Sell.Profits = a.Sell.Profits.Add(capital)
		}

		// the average price is preserved, the principal follows the whole shares held.
		a.Buy.Quantity = a.Buy.Quantity.Sub(n.Quantity)
		if a.Buy.Quantity.IsNegative() {
			a.Buy.Quantity = Quantity{}
		}
		held := a.Buy.Quantity.Floor()
		a.Buy.Total = buyAvgPrice.Mul(held)
		a.Buy.Tax = buyAvgTax.Mul(held)
	}
}

// applyEarnings records an earnings in the credit or debit ledger and applies
// its side effects.
func (a *Assets) applyEarnings(e Earnings) {
	slug := e.KindSlug()
	ledger := &a.Credit
	if e.IsDebit() {
		ledger = &a.Debit
	}
	ledger.Get(slug, e.Kind).add(e)

	if a.IsPositionInterval(e.Date) {
		return
	}
	if e.IsCredit() && slug == EarningsFractionAuction {
		a.Sell.Fraction.Update(Amount{Quantity: e.Quantity, Total: e.Total})
	}
	// bonificacao_em_ativos is incorporated through the bonus registry and
	// fracao_em_ativos debits do not change the lot.
}

// applyEvent rescales the buy lot for a split or an inplit. The fractional
// part of quantity/from is taken out of the cost at the average price before
// the event, it is sold in auction and reported as a fraction.
func (a *Assets) applyEvent(ev AssetEvent) CorporateEvent {
	avgPrice := a.Buy.AvgPrice()
	avgTax := a.Buy.AvgTax()
	from, to := Q(ev.FactorFrom), Q(ev.FactorTo)

	q := a.Buy.Quantity.Div(from)
	fraction := avgPrice.Mul(q.Frac())

	a.Buy.Total = a.Buy.Total.Sub(fraction)
	a.Buy.Tax = a.Buy.Tax.Sub(avgTax.Mul(q.Frac()))
	a.Buy.Quantity = q.Floor().Mul(to)

	title := "Desdobramento"
	kind := EventSplit
	if ev.Kind == Inplit {
		title, kind = "Grupamento", EventInplit
	}
	return CorporateEvent{
		Date:     ev.DateCom,
		Kind:     kind,
		Title:    title,
		Quantity: a.Buy.Quantity,
		Value:    a.Buy.Total,
		Fraction: fraction,
	}
}

// Update merges the activity of a later period into a, the buy lot becomes
// the later one.
func (a *Assets) Update(o *Assets) {
	if a.Instance == nil {
		a.Instance = o.Instance
	}
	a.Buy = o.Buy
	a.Sell.Update(o.Sell)
	a.Credit.Update(o.Credit)
	a.Debit.Update(o.Debit)
	a.Events = append(a.Events, o.Events...)
	a.Bonus.Update(o.Bonus)
	a.Items = append(a.Items, o.Items...)
	a.Period.Update(o.Period)
	if a.Position == nil {
		a.Position = o.Position
	}
}

// clone returns a copy of a that can be updated without changing a.
func (a *Assets) clone() *Assets {
	c := *a
	c.Credit, c.Debit = Events{}, Events{}
	c.Credit.Update(a.Credit)
	c.Debit.Update(a.Debit)
	c.Events = append([]CorporateEvent(nil), a.Events...)
	c.Items = append([]Negotiation(nil), a.Items...)
	return &c
}
