package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driving"
)

// Ensure bootstrapper implements Bootstrapper
var _ driving.Bootstrapper = (*bootstrapper)(nil)

const (
	deployLockName = "deploy"
	deployLockTTL  = 5 * time.Minute
)

// BootstrapConfig holds dependencies for the deploy step
type BootstrapConfig struct {
	Auth          driving.AuthService
	Insurance     driving.InsuranceService
	Lock          driven.DistributedLock // optional
	AdminUsername string
	AdminPassword string
	Logger        *slog.Logger
}

type bootstrapper struct {
	auth          driving.AuthService
	insurance     driving.InsuranceService
	lock          driven.DistributedLock
	adminUsername string
	adminPassword string
	logger        *slog.Logger
}

// NewBootstrapper creates the deploy step that seeds roles, the default
// administrator and insurance rates.
func NewBootstrapper(cfg BootstrapConfig) driving.Bootstrapper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &bootstrapper{
		auth:          cfg.Auth,
		insurance:     cfg.Insurance,
		lock:          cfg.Lock,
		adminUsername: cfg.AdminUsername,
		adminPassword: cfg.AdminPassword,
		logger:        logger,
	}
}

// Deploy applies the seed. Roles and rates go through the idempotent upsert
// paths, so running it twice leaves the database unchanged.
func (b *bootstrapper) Deploy(ctx context.Context, seed *domain.SeedData) (*driving.BootstrapResult, error) {
	if seed == nil {
		seed = &domain.SeedData{}
	}

	if b.lock != nil {
		acquired, err := b.lock.Acquire(ctx, deployLockName, deployLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire deploy lock: %w", err)
		}
		if !acquired {
			b.logger.Info("deploy already running on another instance, skipping")
			return &driving.BootstrapResult{Skipped: true}, nil
		}
		defer func() {
			if err := b.lock.Release(context.WithoutCancel(ctx), deployLockName); err != nil {
				b.logger.Warn("failed to release deploy lock", "error", err)
			}
		}()
	}

	result := &driving.BootstrapResult{}

	for _, role := range seed.Roles {
		if _, err := b.auth.UpsertRole(ctx, role.ID, role.Name); err != nil {
			return nil, fmt.Errorf("upsert role %q: %w", role.Name, err)
		}
		result.Roles++
	}

	created, err := b.ensureAdmin(ctx)
	if err != nil {
		return nil, err
	}
	result.AdminCreated = created

	for _, day := range seed.Insurance {
		for _, item := range day.Items {
			if _, err := b.insurance.Upsert(ctx, day.Date, item.CargoType, item.Rate); err != nil {
				return nil, fmt.Errorf("upsert insurance %s/%s: %w", day.Date, item.CargoType, err)
			}
			result.InsuranceApplied++
		}
	}

	b.logger.Info("initial data created",
		"roles", result.Roles,
		"admin_created", result.AdminCreated,
		"insurance", result.InsuranceApplied,
	)
	return result, nil
}

// ensureAdmin creates the default administrator unless it exists
func (b *bootstrapper) ensureAdmin(ctx context.Context) (bool, error) {
	if b.adminUsername == "" {
		return false, nil
	}

	_, err := b.auth.GetUserByUsername(ctx, b.adminUsername)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("look up admin: %w", err)
	}

	_, err = b.auth.CreateUser(ctx, domain.CreateUserRequest{
		Username: b.adminUsername,
		Password: b.adminPassword,
		RoleName: domain.RoleAdmin,
		IsActive: true,
	})
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
