package driven

import (
	"context"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

// RateStore handles insurance rate persistence (PostgreSQL).
// Transactions are owned by the caller through RateTransactor.
type RateStore interface {
	// FindByID retrieves a rate by ID, domain.ErrNotFound if absent
	FindByID(ctx context.Context, id int64) (*domain.InsuranceRate, error)

	// FindByFilter returns rows matching every set filter field, in insertion order
	FindByFilter(ctx context.Context, filter domain.RateFilter) ([]*domain.InsuranceRate, error)

	// FindByKey returns the row with exactly this (date, cargo_type, rate),
	// domain.ErrNotFound if absent. Inside a transaction it also serializes
	// concurrent callers on the same key until commit.
	FindByKey(ctx context.Context, date, cargoType string, rate float64) (*domain.InsuranceRate, error)

	// Insert stores a new rate and assigns ID and CreatedDate
	Insert(ctx context.Context, rate *domain.InsuranceRate) error

	// InsertMany stores rates in slice order and assigns their IDs
	InsertMany(ctx context.Context, rates []*domain.InsuranceRate) error

	// Update persists the rate field of an existing row
	Update(ctx context.Context, rate *domain.InsuranceRate) error

	// DeleteByID removes a row. Deleting a missing row is not an error.
	DeleteByID(ctx context.Context, id int64) error
}

// RateTransactor runs work against a transaction-bound RateStore.
// The transaction commits if fn returns nil and rolls back otherwise.
type RateTransactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store RateStore) error) error
}
