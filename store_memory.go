package irpf

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

type positionKey struct {
	ticker, institution string
	date                Date
	consolidation       Consolidation
}

type statisticKey struct {
	category      Category
	institution   string
	date          Date
	consolidation Consolidation
}

type registryKey struct{ id, institution string }

// MemoryStore keeps snapshots, tax records and the registry in memory.
// It is safe for concurrent use.
type MemoryStore struct {
	mu            sync.Mutex
	positions     map[positionKey]Position
	statistics    map[statisticKey]Statistic
	taxes         []TaxRecord
	bonuses       map[registryKey]BonusInfo
	subscriptions map[registryKey]SubscriptionInfo
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions:     make(map[positionKey]Position),
		statistics:    make(map[statisticKey]Statistic),
		bonuses:       make(map[registryKey]BonusInfo),
		subscriptions: make(map[registryKey]SubscriptionInfo),
	}
}

func (m *MemoryStore) Positions(_ context.Context, on Date, c Consolidation, f Filter) ([]Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []Position
	for k, p := range m.positions {
		if k.date != on || k.consolidation != c || !p.IsValid || p.Quantity.IsZero() {
			continue
		}
		if f.MatchTicker(p.Ticker, p.Institution) {
			list = append(list, p)
		}
	}
	slices.SortFunc(list, func(a, b Position) int { return cmp.Compare(a.Ticker, b.Ticker) })
	return list, nil
}

func (m *MemoryStore) Statistic(_ context.Context, on Date, c Consolidation, category Category, institution string) (*Statistic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statistics[statisticKey{category, institution, on, c}]
	if !ok || !s.IsValid {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Taxes(_ context.Context, r Range, category Category) ([]TaxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []TaxRecord
	for _, t := range m.taxes {
		if t.Category == category && r.Contains(t.Date) {
			list = append(list, t)
		}
	}
	return list, nil
}

// AddTax stores a tax record, giving it an id when it has none.
func (m *MemoryStore) AddTax(t TaxRecord) TaxRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m.taxes = append(m.taxes, t)
	return t
}

func (m *MemoryStore) PayTaxes(_ context.Context, ids []string, on Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.taxes {
		if slices.Contains(ids, t.ID) {
			m.taxes[i].Paid = true
			m.taxes[i].PaidOn = on
		}
	}
	return nil
}

func (m *MemoryStore) SavePosition(_ context.Context, p Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[positionKey{p.Ticker, p.Institution, p.Date, p.Consolidation}] = p
	return nil
}

func (m *MemoryStore) InvalidatePositions(_ context.Context, after Date, c Consolidation, f Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, p := range m.positions {
		if k.consolidation == c && k.date.After(after) && f.MatchTicker(p.Ticker, p.Institution) {
			p.IsValid = false
			m.positions[k] = p
		}
	}
	return nil
}

func (m *MemoryStore) SaveStatistic(_ context.Context, s Statistic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statistics[statisticKey{s.Category, s.Institution, s.Date, s.Consolidation}] = s
	return nil
}

func (m *MemoryStore) InvalidateStatistics(_ context.Context, after Date, c Consolidation, institution string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.statistics {
		if k.consolidation == c && k.date.After(after) && k.institution == institution {
			s.IsValid = false
			m.statistics[k] = s
		}
	}
	return nil
}

func (m *MemoryStore) BonusInfo(_ context.Context, bonusID, institution string) (*BonusInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.bonuses[registryKey{bonusID, institution}]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (m *MemoryStore) SaveBonusInfo(_ context.Context, info BonusInfo) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := registryKey{info.BonusID, info.Institution}
	if old, ok := m.bonuses[key]; ok && old.Equal(info) {
		return false, nil
	}
	m.bonuses[key] = info
	return true, nil
}

func (m *MemoryStore) SubscriptionInfo(_ context.Context, subscriptionID, institution string) (*SubscriptionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.subscriptions[registryKey{subscriptionID, institution}]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (m *MemoryStore) SaveSubscriptionInfo(_ context.Context, info SubscriptionInfo) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := registryKey{info.SubscriptionID, info.Institution}
	if old, ok := m.subscriptions[key]; ok && old.Equal(info) {
		return false, nil
	}
	m.subscriptions[key] = info
	return true, nil
}

// check that a MemoryStore implements every store interface.
var (
	_ Snapshots      = (*MemoryStore)(nil)
	_ Registry       = (*MemoryStore)(nil)
	_ SnapshotWriter = (*MemoryStore)(nil)
)
