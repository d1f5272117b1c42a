package driving

import (
	"context"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

// InsuranceService manages insurance rates
type InsuranceService interface {
	// Query returns rates matching every set filter field
	Query(ctx context.Context, filter domain.RateFilter) ([]*domain.InsuranceRate, error)

	// Get retrieves a rate by ID
	Get(ctx context.Context, id int64) (*domain.InsuranceRate, error)

	// Calculate applies the rate identified by req.ID to req.Price
	Calculate(ctx context.Context, req domain.CalculationRequest) (*domain.Calculation, error)

	// Update changes the rate of an existing row
	Update(ctx context.Context, req domain.UpdateRateRequest) (*domain.InsuranceRate, error)

	// Delete removes a row; deleting a missing row succeeds
	Delete(ctx context.Context, id int64) error

	// Upsert creates the (date, cargo type, rate) row unless it already exists
	Upsert(ctx context.Context, date, cargoType string, rate float64) (*domain.InsuranceRate, error)

	// BatchCreate inserts every item of the payload in one transaction and
	// dispatches an audit batch on behalf of actorID after commit
	BatchCreate(ctx context.Context, actorID int64, payload domain.UploadPayload) ([]*domain.InsuranceRate, error)
}
