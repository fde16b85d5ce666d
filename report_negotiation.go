package irpf

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// NegotiationReport replays, day after day, the negotiations and corporate
// actions of a period and keeps an average cost position per ticker.
type NegotiationReport struct {
	BaseReport
	source  Source
	results []Result
}

// NewNegotiationReport returns a report reading its records from source.
func NewNegotiationReport(source Source, opts ...ReportOption) *NegotiationReport {
	return &NegotiationReport{
		BaseReport: BaseReport{settings: newSettings(opts)},
		source:     source,
	}
}

// Results returns the results of the last generation.
func (r *NegotiationReport) Results() []Result { return r.results }

// assetsMap is the working set of a generation, by ticker.
type assetsMap map[string]*Assets

// Generate replays every day from start to end, both included, and returns
// one result per ticker seeded or touched, sorted by category name and ticker.
func (r *NegotiationReport) Generate(ctx context.Context, start, end Date, opts Options) ([]Result, error) {
	if opts.Consolidation == 0 {
		opts.Consolidation = ConsolidationYearly
	}
	rng := NewRange(start, end)
	r.start, r.end, r.options = rng.From, rng.To, opts

	cache, err := newRunCache(ctx, r.source, rng, opts.Filter)
	if err != nil {
		return nil, err
	}
	assets, err := r.assetsPosition(ctx, cache, rng.From, opts)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("from", rng.From.String()).Str("to", rng.To.String()).Int("seeded", len(assets)).Msg("generating negotiation report")

	for day := range rng.Days() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.applyAssetConvert(ctx, cache, day, assets); err != nil {
			return nil, err
		}
		if err := r.addBonus(ctx, cache, day, assets); err != nil {
			return nil, err
		}
		if err := r.addSubscription(ctx, cache, day, assets); err != nil {
			return nil, err
		}
		if err := r.consolidate(ctx, cache, day, assets); err != nil {
			return nil, err
		}
		r.applyEarnings(cache, day, assets)
		r.applyEvents(cache, day, assets)
		if err := r.registryBonus(ctx, cache, day, assets); err != nil {
			return nil, err
		}
		if err := r.registrySubscription(ctx, cache, day, assets); err != nil {
			return nil, err
		}
	}

	results := make([]Result, 0, len(assets))
	for _, ticker := range slices.Sorted(maps.Keys(assets)) {
		a := assets[ticker]
		results = append(results, Result{Ticker: ticker, Institution: a.Institution, Instance: a.Instance, Asset: a})
	}
	sortResults(results)
	r.results = results
	return results, nil
}

// assetsPosition returns the working set seeded with the positions held the
// day before start. Assets in memory were admitted by the period they come
// from, only persisted positions are checked against the category filter.
func (r *NegotiationReport) assetsPosition(ctx context.Context, cache *runCache, start Date, opts Options) (assetsMap, error) {
	var positions []Position
	chained := opts.AssetsPosition != nil
	switch {
	case chained:
		for _, a := range opts.AssetsPosition.Assets {
			positions = append(positions, a.Snapshot(opts.AssetsPosition.On, opts.Consolidation))
		}
	case r.snapshots != nil:
		var err error
		on := opts.Consolidation.PositionDate(start)
		positions, err = r.snapshots.Positions(ctx, on, opts.Consolidation, opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("loading positions on %s: %w", on, err)
		}
	}

	assets := make(assetsMap)
	for _, p := range positions {
		if p.Quantity.IsZero() {
			continue
		}
		p.Ticker = NormalizeTicker(p.Ticker)
		instance, err := cache.asset(ctx, p.Ticker)
		if err != nil {
			return nil, err
		}
		if !opts.MatchTicker(p.Ticker, p.Institution) {
			continue
		}
		if !chained {
			categorized, err := cache.categoryAsset(ctx, p.Ticker, instance)
			if err != nil {
				return nil, err
			}
			if !opts.MatchCategory(categorized) {
				continue
			}
		}
		assets[p.Ticker] = assetsFromPosition(p, opts.Institution, instance)
	}
	return assets, nil
}

// get returns the assets of a ticker, creating it when it matches the filter.
func (r *NegotiationReport) get(ctx context.Context, cache *runCache, assets assetsMap, ticker string, filtered bool) (*Assets, error) {
	if a, ok := assets[ticker]; ok {
		return a, nil
	}
	instance, err := cache.asset(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if filtered {
		categorized, err := cache.categoryAsset(ctx, ticker, instance)
		if err != nil {
			return nil, err
		}
		if !r.options.MatchCategory(categorized) {
			return nil, nil
		}
	}
	a := NewAssets(ticker, r.options.Institution, instance)
	assets[ticker] = a
	return a, nil
}

// applyAssetConvert moves the converted positions from their origin ticker to
// their target ticker.
func (r *NegotiationReport) applyAssetConvert(ctx context.Context, cache *runCache, day Date, assets assetsMap) error {
	for _, cv := range cache.converts[day] {
		origin, ok := assets[cv.Origin]
		if !ok || !origin.Buy.Quantity.IsPositive() || origin.IsPositionInterval(day) {
			continue
		}
		// the target follows the origin even when its category is filtered out.
		target, err := r.get(ctx, cache, assets, cv.Target, false)
		if err != nil {
			return err
		}

		quantity := origin.Buy.Quantity
		if cv.Limit.IsPositive() && cv.Limit.LessThan(quantity) {
			quantity = cv.Limit
		}
		total, tax := origin.Buy.remove(quantity)
		converted := quantity.Mul(Q(cv.FactorTo)).Div(Q(cv.FactorFrom))
		target.Buy.add(converted, total, tax)
		target.Buy.Date = day

		origin.Events = append(origin.Events, CorporateEvent{
			Date: day, Kind: EventConvert, Title: "Conversão para " + cv.Target, Quantity: quantity.Smart(), Value: total,
		})
		target.Events = append(target.Events, CorporateEvent{
			Date: day, Kind: EventConvert, Title: "Conversão de " + cv.Origin, Quantity: converted.Smart(), Value: total,
		})
		r.logger.Debug().Str("origin", cv.Origin).Str("target", cv.Target).Stringer("quantity", quantity).Msg("asset converted")

		// a fully converted origin leaves the working set, unless it still has
		// activity to report in this period.
		if origin.Buy.Quantity.IsZero() && origin.Sell.Quantity.IsZero() && origin.Credit.Len() == 0 && origin.Debit.Len() == 0 {
			delete(assets, cv.Origin)
		}
	}
	return nil
}

// addBonus incorporates the bonus shares registered on the entitlement date.
func (r *NegotiationReport) addBonus(ctx context.Context, cache *runCache, day Date, assets assetsMap) error {
	for _, b := range cache.bonusesByDate[day] {
		a, ok := assets[b.Ticker]
		if !ok || a.IsPositionInterval(day) {
			continue
		}
		if r.registry == nil {
			r.logger.Warn().Str("ticker", b.Ticker).Str("bonus", b.ID).Msg("no registry, bonus ignored")
			continue
		}
		info, err := r.registry.BonusInfo(ctx, b.ID, a.Institution)
		if err != nil {
			return fmt.Errorf("loading bonus %s of %s: %w", b.ID, b.Ticker, err)
		}
		if info == nil {
			r.logger.Warn().Str("ticker", b.Ticker).Str("bonus", b.ID).Str("date_com", b.DateCom.String()).Msg("bonus not registered on its entitlement date")
			continue
		}
		if !info.Active() {
			continue
		}
		a.Buy.add(info.Quantity, info.Total, Money{})
		a.Bonus.Update(Amount{Quantity: info.Quantity, Total: info.Total})
	}
	return nil
}

// addSubscription incorporates the subscribed shares: the receipt ticker lot
// is folded into the subscribed ticker, or the registered subscription when
// no receipt was negotiated.
func (r *NegotiationReport) addSubscription(ctx context.Context, cache *runCache, day Date, assets assetsMap) error {
	for _, s := range cache.subscriptionsByDate[day] {
		if receipt, ok := assets[s.ReceiptTicker]; ok && s.ReceiptTicker != "" && receipt.Buy.Quantity.IsPositive() {
			if receipt.IsPositionInterval(day) {
				continue
			}
			target, err := r.get(ctx, cache, assets, s.Ticker, false)
			if err != nil {
				return err
			}
			lot := receipt.Buy
			target.Buy.add(lot.Quantity, lot.Total, lot.Tax)
			target.Buy.Date = day
			receipt.Buy = Buy{Date: day}
			target.Events = append(target.Events, CorporateEvent{
				Date: day, Kind: EventSubscription, Title: "Subscrição de " + s.ReceiptTicker, Quantity: lot.Quantity.Smart(), Value: lot.Total,
			})
			continue
		}

		a, ok := assets[s.Ticker]
		if !ok || a.IsPositionInterval(day) || r.registry == nil {
			continue
		}
		info, err := r.registry.SubscriptionInfo(ctx, s.ID, a.Institution)
		if err != nil {
			return fmt.Errorf("loading subscription %s of %s: %w", s.ID, s.Ticker, err)
		}
		if info == nil || !info.Active() {
			continue
		}
		a.Buy.add(info.Quantity, info.Total, Money{})
		a.Buy.Date = day
		a.Events = append(a.Events, CorporateEvent{
			Date: day, Kind: EventSubscription, Title: "Subscrição", Quantity: info.Quantity.Smart(), Value: info.Total,
		})
	}
	return nil
}

// consolidate applies the negotiations of the day.
func (r *NegotiationReport) consolidate(ctx context.Context, cache *runCache, day Date, assets assetsMap) error {
	for _, n := range cache.negotiations[day] {
		a, err := r.get(ctx, cache, assets, n.Ticker, true)
		if err != nil {
			return err
		}
		if a == nil || a.IsPositionInterval(n.Date) {
			continue
		}
		a.consolidate(n)
	}
	return nil
}

// applyEarnings records the earnings of the day on the assets held.
func (r *NegotiationReport) applyEarnings(cache *runCache, day Date, assets assetsMap) {
	for _, e := range cache.earnings[day] {
		a, ok := assets[e.Ticker]
		if !ok {
			continue
		}
		a.applyEarnings(e)
		if e.IsDebit() && e.KindSlug() == EarningsFractionInAssets && !a.IsPositionInterval(day) {
			r.logger.Debug().Str("ticker", e.Ticker).Stringer("quantity", e.Quantity).Msg("fraction debit left out of the position")
		}
	}
}

// applyEvents applies the splits and inplits whose entitlement date is today.
func (r *NegotiationReport) applyEvents(cache *runCache, day Date, assets assetsMap) {
	for _, ev := range cache.eventsByDateCom[day] {
		a, ok := assets[ev.Ticker]
		if !ok || a.Buy.Quantity.IsZero() || a.IsPositionInterval(ev.DateCom) {
			continue
		}
		a.Events = append(a.Events, a.applyEvent(ev))
	}
}

// registryBonus saves the bonus computed from the position held on its
// entitlement date.
func (r *NegotiationReport) registryBonus(ctx context.Context, cache *runCache, day Date, assets assetsMap) error {
	if r.registry == nil {
		return nil
	}
	for _, b := range cache.bonusesByDateCom[day] {
		a, ok := assets[b.Ticker]
		if !ok || a.IsPositionInterval(day) {
			continue
		}
		quantity := a.Buy.Quantity.MulPercent(b.Proportion).Floor()
		info := BonusInfo{
			BonusID:      b.ID,
			Ticker:       b.Ticker,
			Institution:  a.Institution,
			FromQuantity: a.Buy.Quantity,
			FromTotal:    a.Buy.Total,
			Quantity:     quantity,
			Total:        b.BaseValue.Mul(quantity),
		}
		saved, err := r.registry.SaveBonusInfo(ctx, info)
		if err != nil {
			return fmt.Errorf("saving bonus %s of %s: %w", b.ID, b.Ticker, err)
		}
		if saved {
			r.logger.Debug().Str("ticker", b.Ticker).Str("bonus", b.ID).Stringer("quantity", quantity).Msg("bonus registered")
		}
		if info.Active() {
			a.Events = append(a.Events, CorporateEvent{
				Date: day, Kind: EventBonus, Title: "Bonificação", Quantity: quantity.Smart(), Value: info.Total,
			})
		}
	}
	return nil
}

// registrySubscription saves the subscription computed from the position held
// on its entitlement date.
func (r *NegotiationReport) registrySubscription(ctx context.Context, cache *runCache, day Date, assets assetsMap) error {
	if r.registry == nil {
		return nil
	}
	for _, s := range cache.subscriptionsByDateCom[day] {
		a, ok := assets[s.Ticker]
		if !ok || a.IsPositionInterval(day) {
			continue
		}
		quantity := s.Quantity
		if !quantity.IsPositive() {
			quantity = a.Buy.Quantity.MulPercent(s.Proportion).Floor()
		}
		info := SubscriptionInfo{
			SubscriptionID: s.ID,
			Ticker:         s.Ticker,
			Institution:    a.Institution,
			FromQuantity:   a.Buy.Quantity,
			FromTotal:      a.Buy.Total,
			Quantity:       quantity,
			Total:          s.Price.Mul(quantity),
		}
		saved, err := r.registry.SaveSubscriptionInfo(ctx, info)
		if err != nil {
			return fmt.Errorf("saving subscription %s of %s: %w", s.ID, s.Ticker, err)
		}
		if saved {
			r.logger.Debug().Str("ticker", s.Ticker).Str("subscription", s.ID).Stringer("quantity", quantity).Msg("subscription registered")
		}
		if info.Active() {
			a.Events = append(a.Events, CorporateEvent{
				Date: day, Kind: EventSubscription, Title: "Direito de subscrição", Quantity: quantity.Smart(), Value: info.Total,
			})
		}
	}
	return nil
}
