package irpf

import (
	"context"
	"slices"
	"strings"
)

// Filter restricts a report to an institution, a ticker or a set of categories.
// The zero Filter matches everything.
type Filter struct {
	Institution string
	Ticker      string
	Categories  []Category
}

// MatchTicker checks the ticker and institution parts of the filter. An empty
// institution on the record matches any institution filter, corporate actions
// are not bound to a custodian.
func (f Filter) MatchTicker(ticker, institution string) bool {
	if f.Ticker != "" && !strings.EqualFold(f.Ticker, ticker) {
		return false
	}
	if f.Institution != "" && institution != "" && !strings.EqualFold(f.Institution, institution) {
		return false
	}
	return true
}

// MatchCategory checks the category part of the filter. Unregistered assets
// never match a category filter.
func (f Filter) MatchCategory(asset *Asset) bool {
	if len(f.Categories) == 0 {
		return true
	}
	return asset != nil && slices.Contains(f.Categories, asset.Category)
}

// Match checks every part of the filter.
func (f Filter) Match(asset *Asset, ticker, institution string) bool {
	return f.MatchTicker(ticker, institution) && f.MatchCategory(asset)
}

// Source gives access to the transactions and corporate actions replayed by
// the reports. Every method returns the records dated within the range and
// matching the filter, in chronological order.
//
// Bonuses and Subscriptions are returned when either their entitlement date
// or their incorporation date falls within the range.
//
// Category filters are applied by the reports themselves, a Source can ignore
// Filter.Categories.
type Source interface {
	// Asset returns the registered asset, or nil if the ticker is unknown.
	Asset(ctx context.Context, ticker string) (*Asset, error)
	Negotiations(ctx context.Context, r Range, f Filter) ([]Negotiation, error)
	Earnings(ctx context.Context, r Range, f Filter) ([]Earnings, error)
	Bonuses(ctx context.Context, r Range, f Filter) ([]Bonus, error)
	Subscriptions(ctx context.Context, r Range, f Filter) ([]Subscription, error)
	AssetEvents(ctx context.Context, r Range, f Filter) ([]AssetEvent, error)
	AssetConverts(ctx context.Context, r Range, f Filter) ([]AssetConvert, error)
}

// Snapshots gives access to the persisted snapshots used to seed a period.
type Snapshots interface {
	// Positions returns the valid, non empty, positions saved on a date.
	Positions(ctx context.Context, on Date, c Consolidation, f Filter) ([]Position, error)
	// Statistic returns the valid statistic of a category saved on a date, or nil.
	Statistic(ctx context.Context, on Date, c Consolidation, category Category, institution string) (*Statistic, error)
	// Taxes returns the tax records of a category dated within the range.
	Taxes(ctx context.Context, r Range, category Category) ([]TaxRecord, error)
}

// Registry stores the figures computed on bonus and subscription entitlement
// dates. Save methods create the row, or update it when its figures differ,
// and report whether anything was written. Concurrent saves of the same row
// must be serialized by the implementation.
type Registry interface {
	BonusInfo(ctx context.Context, bonusID, institution string) (*BonusInfo, error)
	SaveBonusInfo(ctx context.Context, info BonusInfo) (bool, error)
	SubscriptionInfo(ctx context.Context, subscriptionID, institution string) (*SubscriptionInfo, error)
	SaveSubscriptionInfo(ctx context.Context, info SubscriptionInfo) (bool, error)
}

// SnapshotWriter persists the snapshots produced by the reports.
type SnapshotWriter interface {
	SavePosition(ctx context.Context, p Position) error
	// InvalidatePositions flags as invalid every position saved after a date.
	InvalidatePositions(ctx context.Context, after Date, c Consolidation, f Filter) error
	SaveStatistic(ctx context.Context, s Statistic) error
	// InvalidateStatistics flags as invalid every statistic saved after a date.
	InvalidateStatistics(ctx context.Context, after Date, c Consolidation, institution string) error
	// PayTaxes marks tax records as paid.
	PayTaxes(ctx context.Context, ids []string, on Date) error
}
