package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.EventProducer   = (*Producer)(nil)
	_ driven.ProducerSession = (*session)(nil)
)

// DefaultDialTimeout bounds connecting to a broker
const DefaultDialTimeout = 10 * time.Second

// Config configures a Producer
type Config struct {
	// BootstrapServers is a comma separated host:port list
	BootstrapServers string

	// DialTimeout bounds each broker connection attempt
	DialTimeout time.Duration

	// ClientID identifies this service to the brokers
	ClientID string
}

// Producer publishes audit batches to Kafka partitions.
// Each Open dials a bootstrap broker; the session's Close tears every
// connection down again.
type Producer struct {
	brokers []string
	dialer  *kafka.Dialer
}

// NewProducer creates a Kafka producer
func NewProducer(cfg Config) (*Producer, error) {
	brokers := ParseBootstrapServers(cfg.BootstrapServers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka bootstrap servers are required")
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	return &Producer{
		brokers: brokers,
		dialer: &kafka.Dialer{
			ClientID:  cfg.ClientID,
			Timeout:   timeout,
			DualStack: true,
		},
	}, nil
}

// ParseBootstrapServers splits a comma separated broker list, dropping blanks
func ParseBootstrapServers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Brokers returns the bootstrap broker addresses
func (p *Producer) Brokers() []string {
	return append([]string(nil), p.brokers...)
}

// Open connects to the first reachable bootstrap broker
func (p *Producer) Open(ctx context.Context) (driven.ProducerSession, error) {
	var errs []error
	for _, broker := range p.brokers {
		conn, err := p.dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		return &session{producer: p, broker: broker, conn: conn}, nil
	}
	return nil, fmt.Errorf("connect to kafka: %w", errors.Join(errs...))
}

// session holds the bootstrap connection for one publish
type session struct {
	producer *Producer
	broker   string
	conn     *kafka.Conn
}

// Partitions returns the topic's partition IDs in metadata order.
// An unknown topic has no partitions.
func (s *session) Partitions(ctx context.Context, topic string) ([]int, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetDeadline(deadline)
	}

	found, err := s.conn.ReadPartitions(topic)
	if err != nil {
		if errors.Is(err, kafka.UnknownTopicOrPartition) {
			return nil, nil
		}
		return nil, fmt.Errorf("read partitions for %s: %w", topic, err)
	}

	partitions := make([]int, 0, len(found))
	for _, p := range found {
		if p.Topic == topic {
			partitions = append(partitions, p.ID)
		}
	}
	return partitions, nil
}

// SendBatch writes every message to the partition leader in one produce request
func (s *session) SendBatch(ctx context.Context, topic string, partition int, messages []domain.AuditMessage) error {
	if len(messages) == 0 {
		return nil
	}

	leader, err := s.producer.dialer.DialLeader(ctx, "tcp", s.broker, topic, partition)
	if err != nil {
		return fmt.Errorf("dial leader for %s/%d: %w", topic, partition, err)
	}
	defer leader.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = leader.SetWriteDeadline(deadline)
	}

	batch := make([]kafka.Message, 0, len(messages))
	for _, m := range messages {
		batch = append(batch, kafka.Message{Value: m.Value, Time: m.Time})
	}

	if _, err := leader.WriteMessages(batch...); err != nil {
		return fmt.Errorf("write to %s/%d: %w", topic, partition, err)
	}
	return nil
}

// Close closes the bootstrap connection
func (s *session) Close() error {
	err := s.conn.Close()
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, net.ErrClosed) {
		return nil
	}
	return err
}
