package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
)

// Ensure mocks implement the audit ports
var (
	_ driven.EventProducer   = (*MockEventProducer)(nil)
	_ driven.ProducerSession = (*mockProducerSession)(nil)
	_ driven.AuditDispatcher = (*MockAuditDispatcher)(nil)
)

// SentBatch records one SendBatch call
type SentBatch struct {
	Topic     string
	Partition int
	Messages  []domain.AuditMessage
}

// MockEventProducer records sessions and batches in memory
type MockEventProducer struct {
	mu sync.Mutex

	// TopicPartitions lists the partitions reported per topic
	TopicPartitions map[string][]int

	// Custom behavior hooks (optional)
	OpenErr       error
	PartitionsErr error
	SendErr       error

	Opened int
	Closed int
	Sent   []SentBatch
}

// NewMockEventProducer creates a producer whose topics report the given partitions
func NewMockEventProducer(partitions map[string][]int) *MockEventProducer {
	if partitions == nil {
		partitions = map[string][]int{}
	}
	return &MockEventProducer{TopicPartitions: partitions}
}

func (m *MockEventProducer) Open(ctx context.Context) (driven.ProducerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	m.Opened++
	return &mockProducerSession{producer: m}, nil
}

// SentBatches returns a copy of the recorded batches
func (m *MockEventProducer) SentBatches() []SentBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentBatch, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// Counts returns how many sessions were opened and closed
func (m *MockEventProducer) Counts() (opened, closed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Opened, m.Closed
}

type mockProducerSession struct {
	producer *MockEventProducer
	closed   bool
}

func (s *mockProducerSession) Partitions(ctx context.Context, topic string) ([]int, error) {
	s.producer.mu.Lock()
	defer s.producer.mu.Unlock()
	if s.producer.PartitionsErr != nil {
		return nil, s.producer.PartitionsErr
	}
	return append([]int(nil), s.producer.TopicPartitions[topic]...), nil
}

func (s *mockProducerSession) SendBatch(ctx context.Context, topic string, partition int, messages []domain.AuditMessage) error {
	s.producer.mu.Lock()
	defer s.producer.mu.Unlock()
	if s.producer.SendErr != nil {
		return s.producer.SendErr
	}
	s.producer.Sent = append(s.producer.Sent, SentBatch{
		Topic:     topic,
		Partition: partition,
		Messages:  append([]domain.AuditMessage(nil), messages...),
	})
	return nil
}

func (s *mockProducerSession) Close() error {
	s.producer.mu.Lock()
	defer s.producer.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.producer.Closed++
	}
	return nil
}

// MockAuditDispatcher records dispatched batches synchronously
type MockAuditDispatcher struct {
	mu      sync.Mutex
	batches []domain.AuditBatch
}

// NewMockAuditDispatcher creates a new MockAuditDispatcher
func NewMockAuditDispatcher() *MockAuditDispatcher {
	return &MockAuditDispatcher{}
}

func (m *MockAuditDispatcher) Dispatch(ctx context.Context, batch domain.AuditBatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, batch)
}

// Batches returns a copy of the dispatched batches
func (m *MockAuditDispatcher) Batches() []domain.AuditBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditBatch, len(m.batches))
	copy(out, m.batches)
	return out
}
