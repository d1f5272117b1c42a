package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
)

// Ensure MockRateStore implements RateStore and RateTransactor
var (
	_ driven.RateStore      = (*MockRateStore)(nil)
	_ driven.RateTransactor = (*MockRateStore)(nil)
)

// MockRateStore is an in-memory RateStore for testing.
// WithinTx snapshots the rows and restores them if fn fails, so rollbacks are observable.
type MockRateStore struct {
	txMu   sync.Mutex
	mu     sync.RWMutex
	rows   []*domain.InsuranceRate
	nextID int64

	// Custom behavior hooks (optional)
	InsertManyErr error
	UpdateErr     error
	Err           error

	// Commits and Rollbacks count finished transactions
	Commits   int
	Rollbacks int
}

// NewMockRateStore creates a new MockRateStore
func NewMockRateStore() *MockRateStore {
	return &MockRateStore{}
}

func (m *MockRateStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store driven.RateStore) error) error {
	if m.Err != nil {
		return m.Err
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := copyRows(m.rows)
	nextID := m.nextID
	m.mu.RUnlock()

	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.rows = snapshot
		m.nextID = nextID
		m.Rollbacks++
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.Commits++
	m.mu.Unlock()
	return nil
}

func (m *MockRateStore) FindByID(ctx context.Context, id int64) (*domain.InsuranceRate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.rows {
		if row.ID == id {
			r := *row
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockRateStore) FindByFilter(ctx context.Context, filter domain.RateFilter) ([]*domain.InsuranceRate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := []*domain.InsuranceRate{}
	for _, row := range m.rows {
		if filter.Matches(row) {
			r := *row
			result = append(result, &r)
		}
	}
	return result, nil
}

func (m *MockRateStore) FindByKey(ctx context.Context, date, cargoType string, rate float64) (*domain.InsuranceRate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.rows {
		if row.SameKey(date, cargoType, rate) {
			r := *row
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockRateStore) Insert(ctx context.Context, rate *domain.InsuranceRate) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(rate)
	return nil
}

func (m *MockRateStore) InsertMany(ctx context.Context, rates []*domain.InsuranceRate) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rate := range rates {
		// Fail halfway through so rollback is exercised
		if m.InsertManyErr != nil && i == len(rates)/2 {
			return m.InsertManyErr
		}
		m.insertLocked(rate)
	}
	if m.InsertManyErr != nil && len(rates) == 0 {
		return m.InsertManyErr
	}
	return nil
}

func (m *MockRateStore) Update(ctx context.Context, rate *domain.InsuranceRate) error {
	if m.Err != nil {
		return m.Err
	}
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == rate.ID {
			row.Rate = rate.Rate
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockRateStore) DeleteByID(ctx context.Context, id int64) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID == id {
			m.rows = append(m.rows[:i:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Count returns the number of stored rows
func (m *MockRateStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// All returns copies of every stored row in insertion order
func (m *MockRateStore) All() []*domain.InsuranceRate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRows(m.rows)
}

// insertLocked assigns an ID and stores a copy. Caller holds mu.
func (m *MockRateStore) insertLocked(rate *domain.InsuranceRate) {
	m.nextID++
	rate.ID = m.nextID
	if rate.CreatedDate.IsZero() {
		rate.CreatedDate = time.Now()
	}
	r := *rate
	m.rows = append(m.rows, &r)
}

func copyRows(rows []*domain.InsuranceRate) []*domain.InsuranceRate {
	out := make([]*domain.InsuranceRate, 0, len(rows))
	for _, row := range rows {
		r := *row
		out = append(out, &r)
	}
	return out
}
