package irpf

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
)

// entry is a ledger record with the date it is sorted by.
type entry struct {
	date    Date
	command CommandType
	record  any
}

// Ledger is an in-memory Source: the assets declared and the records of an
// investor, kept in chronological order.
type Ledger struct {
	assets  map[string]Asset // index assets by ticker
	entries []entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{assets: make(map[string]Asset)}
}

// Declare registers an asset.
func (l *Ledger) Declare(assets ...Asset) error {
	for _, a := range assets {
		a.Ticker = NormalizeTicker(a.Ticker)
		if a.Ticker == "" {
			return fmt.Errorf("declaring asset %q: missing ticker", a.Name)
		}
		if a.Category < CategoryStock || a.Category > CategoryFIISubscriptionRights {
			return fmt.Errorf("declaring asset %s: %w", a.Ticker, ErrUnknownCategory)
		}
		l.assets[a.Ticker] = a
	}
	return nil
}

// AppendNegotiation appends buys and sells.
func (l *Ledger) AppendNegotiation(negotiations ...Negotiation) error {
	for _, n := range negotiations {
		n.Ticker = NormalizeTicker(n.Ticker)
		if err := n.Validate(); err != nil {
			return fmt.Errorf("%s %s on %s: %w", n.Kind, n.Ticker, n.Date, err)
		}
		cmd := CmdBuy
		if n.IsSell() {
			cmd = CmdSell
		}
		l.append(entry{n.Date, cmd, n})
	}
	return nil
}

// AppendEarnings appends earnings.
func (l *Ledger) AppendEarnings(earnings ...Earnings) error {
	for _, e := range earnings {
		e.Ticker = NormalizeTicker(e.Ticker)
		if e.Flow != Credit && e.Flow != Debit {
			return fmt.Errorf("earnings %s on %s: unknown flow %d", e.Ticker, e.Date, e.Flow)
		}
		l.append(entry{e.Date, CmdEarning, e})
	}
	return nil
}

// AppendBonus appends bonuses.
func (l *Ledger) AppendBonus(bonuses ...Bonus) error {
	for _, b := range bonuses {
		b.Ticker = NormalizeTicker(b.Ticker)
		if b.ID == "" {
			return fmt.Errorf("bonus %s on %s: missing id", b.Ticker, b.DateCom)
		}
		if b.Date.Before(b.DateCom) {
			return fmt.Errorf("bonus %s: incorporated on %s before its entitlement date %s", b.ID, b.Date, b.DateCom)
		}
		l.append(entry{b.DateCom, CmdBonus, b})
	}
	return nil
}

// AppendSubscription appends subscriptions.
func (l *Ledger) AppendSubscription(subscriptions ...Subscription) error {
	for _, s := range subscriptions {
		s.Ticker = NormalizeTicker(s.Ticker)
		s.ReceiptTicker = NormalizeTicker(s.ReceiptTicker)
		if s.ID == "" {
			return fmt.Errorf("subscription %s on %s: missing id", s.Ticker, s.DateCom)
		}
		if s.Date.Before(s.DateCom) {
			return fmt.Errorf("subscription %s: incorporated on %s before its entitlement date %s", s.ID, s.Date, s.DateCom)
		}
		l.append(entry{s.DateCom, CmdSubscription, s})
	}
	return nil
}

// AppendAssetEvent appends splits and inplits.
func (l *Ledger) AppendAssetEvent(events ...AssetEvent) error {
	for _, e := range events {
		e.Ticker = NormalizeTicker(e.Ticker)
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%s of %s on %s: %w", e.Kind, e.Ticker, e.DateCom, err)
		}
		cmd := CmdSplit
		if e.Kind == Inplit {
			cmd = CmdInplit
		}
		l.append(entry{e.DateCom, cmd, e})
	}
	return nil
}

// AppendAssetConvert appends conversions.
func (l *Ledger) AppendAssetConvert(converts ...AssetConvert) error {
	for _, c := range converts {
		c.Origin, c.Target = NormalizeTicker(c.Origin), NormalizeTicker(c.Target)
		if err := c.Validate(); err != nil {
			return fmt.Errorf("convert on %s: %w", c.Date, err)
		}
		l.append(entry{c.Date, CmdConvert, c})
	}
	return nil
}

// append inserts e after every entry of the same day or before.
func (l *Ledger) append(e entry) {
	i, _ := slices.BinarySearchFunc(l.entries, e.date, func(x entry, d Date) int {
		if x.date.After(d) {
			return 1
		}
		return -1
	})
	l.entries = slices.Insert(l.entries, i, e)
}

// Assets iterates over the declared assets sorted by ticker.
func (l *Ledger) Assets() iter.Seq[Asset] {
	return func(yield func(Asset) bool) {
		for _, t := range slices.Sorted(maps.Keys(l.assets)) {
			if !yield(l.assets[t]) {
				return
			}
		}
	}
}

// Len returns the number of records, declarations excluded.
func (l *Ledger) Len() int { return len(l.entries) }

// Span returns the range from the oldest to the newest record.
func (l *Ledger) Span() (Range, bool) {
	if len(l.entries) == 0 {
		return Range{}, false
	}
	r := Range{From: l.entries[0].date, To: l.entries[len(l.entries)-1].date}
	// incorporation and conversion dates can be after the last entry date.
	for _, e := range l.entries {
		switch v := e.record.(type) {
		case Bonus:
			r.To = maxDate(r.To, v.Date)
		case Subscription:
			r.To = maxDate(r.To, v.Date)
		}
	}
	return r, true
}

func maxDate(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

// records iterates over the records of type T.
func records[T any](l *Ledger) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, e := range l.entries {
			if v, ok := e.record.(T); ok && !yield(v) {
				return
			}
		}
	}
}

func (l *Ledger) Asset(_ context.Context, ticker string) (*Asset, error) {
	a, ok := l.assets[NormalizeTicker(ticker)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (l *Ledger) Negotiations(_ context.Context, r Range, f Filter) ([]Negotiation, error) {
	var list []Negotiation
	for n := range records[Negotiation](l) {
		if r.Contains(n.Date) && f.MatchTicker(n.Ticker, n.Institution) {
			list = append(list, n)
		}
	}
	return list, nil
}

func (l *Ledger) Earnings(_ context.Context, r Range, f Filter) ([]Earnings, error) {
	var list []Earnings
	for e := range records[Earnings](l) {
		if r.Contains(e.Date) && f.MatchTicker(e.Ticker, e.Institution) {
			list = append(list, e)
		}
	}
	return list, nil
}

func (l *Ledger) Bonuses(_ context.Context, r Range, f Filter) ([]Bonus, error) {
	var list []Bonus
	for b := range records[Bonus](l) {
		if (r.Contains(b.DateCom) || r.Contains(b.Date)) && f.MatchTicker(b.Ticker, "") {
			list = append(list, b)
		}
	}
	return list, nil
}

func (l *Ledger) Subscriptions(_ context.Context, r Range, f Filter) ([]Subscription, error) {
	var list []Subscription
	for s := range records[Subscription](l) {
		if !r.Contains(s.DateCom) && !r.Contains(s.Date) {
			continue
		}
		if f.MatchTicker(s.Ticker, "") || (s.ReceiptTicker != "" && f.MatchTicker(s.ReceiptTicker, "")) {
			list = append(list, s)
		}
	}
	return list, nil
}

func (l *Ledger) AssetEvents(_ context.Context, r Range, f Filter) ([]AssetEvent, error) {
	var list []AssetEvent
	for e := range records[AssetEvent](l) {
		if r.Contains(e.DateCom) && f.MatchTicker(e.Ticker, "") {
			list = append(list, e)
		}
	}
	return list, nil
}

func (l *Ledger) AssetConverts(_ context.Context, r Range, f Filter) ([]AssetConvert, error) {
	var list []AssetConvert
	for c := range records[AssetConvert](l) {
		if r.Contains(c.Date) && (f.MatchTicker(c.Origin, "") || f.MatchTicker(c.Target, "")) {
			list = append(list, c)
		}
	}
	return list, nil
}

// check that a Ledger is a Source.
var _ Source = (*Ledger)(nil)

