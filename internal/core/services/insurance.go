package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driving"
)

// Ensure insuranceService implements InsuranceService
var _ driving.InsuranceService = (*insuranceService)(nil)

// insuranceService implements the InsuranceService interface
type insuranceService struct {
	store   driven.RateStore
	tx      driven.RateTransactor
	auditor driven.AuditDispatcher
	topic   string
	entity  string
}

// NewInsuranceService creates a new InsuranceService.
// auditor may be nil, in which case batch creation is not audited.
func NewInsuranceService(
	store driven.RateStore,
	tx driven.RateTransactor,
	auditor driven.AuditDispatcher,
) driving.InsuranceService {
	return &insuranceService{
		store:   store,
		tx:      tx,
		auditor: auditor,
		topic:   domain.AuditTopicInsurance,
		entity:  domain.AuditEntityInsurance,
	}
}

// Query returns rates matching the filter in storage order
func (s *insuranceService) Query(ctx context.Context, filter domain.RateFilter) ([]*domain.InsuranceRate, error) {
	return s.store.FindByFilter(ctx, filter.Normalize())
}

// Get retrieves a rate by ID
func (s *insuranceService) Get(ctx context.Context, id int64) (*domain.InsuranceRate, error) {
	return s.store.FindByID(ctx, id)
}

// Calculate returns price * rate for the rate identified by req.ID
func (s *insuranceService) Calculate(ctx context.Context, req domain.CalculationRequest) (*domain.Calculation, error) {
	rate, err := s.store.FindByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Calculation{Total: req.Price * rate.Rate}, nil
}

// Update changes the rate of an existing row. Updates are not audited.
func (s *insuranceService) Update(ctx context.Context, req domain.UpdateRateRequest) (*domain.InsuranceRate, error) {
	var updated *domain.InsuranceRate
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store driven.RateStore) error {
		rate, err := store.FindByID(ctx, req.ID)
		if err != nil {
			return err
		}
		rate.Rate = req.NewRate
		if err := store.Update(ctx, rate); err != nil {
			return err
		}
		updated = rate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a row if present
func (s *insuranceService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteByID(ctx, id)
}

// Upsert returns the existing (date, cargoType, rate) row or creates it
func (s *insuranceService) Upsert(ctx context.Context, date, cargoType string, rate float64) (*domain.InsuranceRate, error) {
	var result *domain.InsuranceRate
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store driven.RateStore) error {
		existing, err := store.FindByKey(ctx, date, cargoType, rate)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		created := &domain.InsuranceRate{
			CargoType: cargoType,
			Rate:      rate,
			Date:      date,
		}
		if err := store.Insert(ctx, created); err != nil {
			return err
		}
		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BatchCreate inserts every payload item without de-duplication.
// The audit batch is dispatched only after the transaction commits.
func (s *insuranceService) BatchCreate(ctx context.Context, actorID int64, payload domain.UploadPayload) ([]*domain.InsuranceRate, error) {
	rates := payload.Flatten()

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store driven.RateStore) error {
		return store.InsertMany(ctx, rates)
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil && len(rates) > 0 {
		s.auditor.Dispatch(ctx, domain.NewAuditBatch(s.topic, actorID, s.entity, rates))
	}

	return rates, nil
}
