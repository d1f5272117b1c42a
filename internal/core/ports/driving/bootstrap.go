package driving

import (
	"context"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

// BootstrapResult summarises what a deploy run changed
type BootstrapResult struct {
	Skipped          bool `json:"skipped"`
	Roles            int  `json:"roles"`
	AdminCreated     bool `json:"admin_created"`
	InsuranceApplied int  `json:"insurance_applied"`
}

// Bootstrapper applies seed data and the default administrator
type Bootstrapper interface {
	Deploy(ctx context.Context, seed *domain.SeedData) (*BootstrapResult, error)
}
