package driven

import (
	"context"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

// EventProducer opens short-lived sessions against the message transport
// (Kafka or Redis Streams). Every session must be closed by the caller.
type EventProducer interface {
	Open(ctx context.Context) (ProducerSession, error)
}

// ProducerSession is one acquired transport handle
type ProducerSession interface {
	// Partitions lists the partitions of topic currently available, in the
	// order the transport reports them
	Partitions(ctx context.Context, topic string) ([]int, error)

	// SendBatch writes all messages to one partition in a single network
	// operation and returns once the transport has buffered them
	SendBatch(ctx context.Context, topic string, partition int, messages []domain.AuditMessage) error

	// Close releases the session
	Close() error
}

// AuditDispatcher hands audit batches to background publishing.
// Dispatch never blocks on the transport and never fails the caller.
type AuditDispatcher interface {
	Dispatch(ctx context.Context, batch domain.AuditBatch)
}
