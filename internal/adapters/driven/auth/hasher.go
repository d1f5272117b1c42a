package auth

import (
	"context"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
)

// Ensure Hasher implements PasswordHasher
var _ driven.PasswordHasher = (*Hasher)(nil)

// Hasher hashes and verifies passwords with bcrypt.
// bcrypt is CPU bound, so work runs on a bounded pool of goroutines and the
// caller only waits for the result.
type Hasher struct {
	cost int
	pool *semaphore.Weighted
}

// NewHasher creates a bcrypt hasher with the default cost and a pool as wide
// as GOMAXPROCS
func NewHasher() *Hasher {
	return NewHasherWithCost(bcrypt.DefaultCost, 0)
}

// NewHasherWithCost creates a bcrypt hasher with a custom cost.
// workers <= 0 uses GOMAXPROCS.
func NewHasherWithCost(cost, workers int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Hasher{
		cost: cost,
		pool: semaphore.NewWeighted(int64(workers)),
	}
}

// Hash generates a bcrypt digest. The digest embeds the algorithm and cost.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	type result struct {
		hash []byte
		err  error
	}

	if err := h.pool.Acquire(ctx, 1); err != nil {
		return "", err
	}

	done := make(chan result, 1)
	go func() {
		defer h.pool.Release(1)
		hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
		done <- result{hash: hash, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		return string(r.hash), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Verify reports whether password matches digest.
// Malformed digests and cancelled contexts verify as false.
func (h *Hasher) Verify(ctx context.Context, password, digest string) bool {
	if err := h.pool.Acquire(ctx, 1); err != nil {
		return false
	}

	done := make(chan bool, 1)
	go func() {
		defer h.pool.Release(1)
		done <- bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	}()

	select {
	case ok := <-done:
		return ok
	case <-ctx.Done():
		return false
	}
}

// Cost returns the bcrypt cost used for new digests
func (h *Hasher) Cost() int {
	return h.cost
}
