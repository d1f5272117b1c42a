package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driving"
)

// Ensure auditPublisher implements AuditPublisher
var _ driving.AuditPublisher = (*auditPublisher)(nil)

// AuditPublisherConfig holds dependencies for the audit publisher
type AuditPublisherConfig struct {
	Producer driven.EventProducer
	Logger   *slog.Logger
	Now      func() time.Time
}

// auditPublisher formats audit lines and ships them as one batch per call
type auditPublisher struct {
	producer driven.EventProducer
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuditPublisher creates a new AuditPublisher
func NewAuditPublisher(cfg AuditPublisherConfig) driving.AuditPublisher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &auditPublisher{
		producer: cfg.Producer,
		logger:   logger,
		now:      now,
	}
}

// PublishBatch sends one audit line per record to the first available
// partition of the batch topic. Errors are logged, never returned.
func (p *auditPublisher) PublishBatch(ctx context.Context, batch domain.AuditBatch) {
	logger := p.logger.With(
		"topic", batch.Topic,
		"actor_id", batch.ActorID,
		"entity", batch.Entity,
		"records", len(batch.RecordIDs),
	)

	if err := p.publish(ctx, batch, logger); err != nil {
		logger.Error("audit publish failed", "error", err)
	}
}

func (p *auditPublisher) publish(ctx context.Context, batch domain.AuditBatch, logger *slog.Logger) error {
	if len(batch.RecordIDs) == 0 {
		return nil
	}

	session, err := p.producer.Open(ctx)
	if err != nil {
		return fmt.Errorf("open producer: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("failed to close producer session", "error", closeErr)
		}
	}()

	partitions, err := session.Partitions(ctx, batch.Topic)
	if err != nil {
		return fmt.Errorf("list partitions: %w", err)
	}
	if len(partitions) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNoPartitions, batch.Topic)
	}
	partition := partitions[0]

	messages := make([]domain.AuditMessage, 0, len(batch.RecordIDs))
	for _, id := range batch.RecordIDs {
		at := p.now()
		line := domain.FormatAuditLine(domain.AuditCreated, batch.ActorID, batch.Entity, id, at)
		messages = append(messages, domain.AuditMessage{Value: []byte(line), Time: at})
	}

	if err := session.SendBatch(ctx, batch.Topic, partition, messages); err != nil {
		return fmt.Errorf("send batch to partition %d: %w", partition, err)
	}

	logger.Info(fmt.Sprintf("%d messages sent to partition %d", len(messages), partition))
	return nil
}
