package driving

import (
	"context"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

// AuditPublisher publishes audit lines for created records.
// Failures are logged and never returned.
type AuditPublisher interface {
	PublishBatch(ctx context.Context, batch domain.AuditBatch)
}
