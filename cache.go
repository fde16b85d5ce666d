package irpf

import (
	"context"
	"fmt"
)

// runCache groups every record a NegotiationReport needs by date, so that a
// Generate call queries its Source once instead of once per day.
//
// It lives for a single Generate call.
type runCache struct {
	source Source

	negotiations           map[Date][]Negotiation
	earnings               map[Date][]Earnings
	bonusesByDate          map[Date][]Bonus
	bonusesByDateCom       map[Date][]Bonus
	subscriptionsByDate    map[Date][]Subscription
	subscriptionsByDateCom map[Date][]Subscription
	eventsByDateCom        map[Date][]AssetEvent
	converts               map[Date][]AssetConvert

	receipts  map[string]string // receipt ticker to subscribed ticker
	instances map[string]*Asset
}

func newRunCache(ctx context.Context, source Source, r Range, f Filter) (*runCache, error) {
	c := &runCache{
		source:                 source,
		negotiations:           make(map[Date][]Negotiation),
		earnings:               make(map[Date][]Earnings),
		bonusesByDate:          make(map[Date][]Bonus),
		bonusesByDateCom:       make(map[Date][]Bonus),
		subscriptionsByDate:    make(map[Date][]Subscription),
		subscriptionsByDateCom: make(map[Date][]Subscription),
		eventsByDateCom:        make(map[Date][]AssetEvent),
		converts:               make(map[Date][]AssetConvert),
		receipts:               make(map[string]string),
		instances:              make(map[string]*Asset),
	}
	// categories are checked against the asset instances by the report.
	f.Categories = nil

	negotiations, err := source.Negotiations(ctx, r, f)
	if err != nil {
		return nil, fmt.Errorf("loading negotiations: %w", err)
	}
	for _, n := range negotiations {
		n.Ticker = NormalizeTicker(n.Ticker)
		c.negotiations[n.Date] = append(c.negotiations[n.Date], n)
	}

	earnings, err := source.Earnings(ctx, r, f)
	if err != nil {
		return nil, fmt.Errorf("loading earnings: %w", err)
	}
	for _, e := range earnings {
		e.Ticker = NormalizeTicker(e.Ticker)
		c.earnings[e.Date] = append(c.earnings[e.Date], e)
	}

	bonuses, err := source.Bonuses(ctx, r, f)
	if err != nil {
		return nil, fmt.Errorf("loading bonuses: %w", err)
	}
	for _, b := range bonuses {
		b.Ticker = NormalizeTicker(b.Ticker)
		if r.Contains(b.Date) {
			c.bonusesByDate[b.Date] = append(c.bonusesByDate[b.Date], b)
		}
		if r.Contains(b.DateCom) {
			c.bonusesByDateCom[b.DateCom] = append(c.bonusesByDateCom[b.DateCom], b)
		}
	}

	subscriptions, err := source.Subscriptions(ctx, r, f)
	if err != nil {
		return nil, fmt.Errorf("loading subscriptions: %w", err)
	}
	for _, s := range subscriptions {
		s.Ticker = NormalizeTicker(s.Ticker)
		s.ReceiptTicker = NormalizeTicker(s.ReceiptTicker)
		if s.ReceiptTicker != "" {
			c.receipts[s.ReceiptTicker] = s.Ticker
		}
		if r.Contains(s.Date) {
			c.subscriptionsByDate[s.Date] = append(c.subscriptionsByDate[s.Date], s)
		}
		if r.Contains(s.DateCom) {
			c.subscriptionsByDateCom[s.DateCom] = append(c.subscriptionsByDateCom[s.DateCom], s)
		}
	}

	events, err := source.AssetEvents(ctx, r, f)
	if err != nil {
		return nil, fmt.Errorf("loading asset events: %w", err)
	}
	for _, e := range events {
		e.Ticker = NormalizeTicker(e.Ticker)
		c.eventsByDateCom[e.DateCom] = append(c.eventsByDateCom[e.DateCom], e)
	}

	converts, err := source.AssetConverts(ctx, r, f)
	if err != nil {
		return nil, fmt.Errorf("loading asset converts: %w", err)
	}
	for _, cv := range converts {
		cv.Origin, cv.Target = NormalizeTicker(cv.Origin), NormalizeTicker(cv.Target)
		c.converts[cv.Date] = append(c.converts[cv.Date], cv)
	}
	return c, nil
}

// asset returns the registered asset of a ticker, nil when unknown.
func (c *runCache) asset(ctx context.Context, ticker string) (*Asset, error) {
	if a, ok := c.instances[ticker]; ok {
		return a, nil
	}
	a, err := c.source.Asset(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("loading asset %s: %w", ticker, err)
	}
	c.instances[ticker] = a
	return a, nil
}

// categoryAsset returns the asset deciding the category of a ticker: the
// ticker itself, or the subscribed asset for a receipt ticker.
func (c *runCache) categoryAsset(ctx context.Context, ticker string, instance *Asset) (*Asset, error) {
	if instance != nil {
		return instance, nil
	}
	if subscribed, ok := c.receipts[ticker]; ok {
		return c.asset(ctx, subscribed)
	}
	return nil, nil
}
