package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.EventProducer   = (*StreamProducer)(nil)
	_ driven.ProducerSession = (*streamSession)(nil)
)

const (
	// DefaultStreamPrefix namespaces audit keys
	DefaultStreamPrefix = "insurance-calc:audit:"

	// partitionsSuffix names the sorted set listing a topic's partitions
	partitionsSuffix = ":partitions"
)

// StreamProducerConfig configures a StreamProducer
type StreamProducerConfig struct {
	// Prefix namespaces every key; defaults to DefaultStreamPrefix
	Prefix string

	// MaxLen caps each partition stream (approximate trim); 0 keeps everything
	MaxLen int64
}

// StreamProducer publishes audit messages to Redis streams.
// A topic is a sorted set of partition numbers; each partition is its own
// stream, "{prefix}{topic}:{partition}".
type StreamProducer struct {
	client *redis.Client
	prefix string
	maxLen int64
}

// NewStreamProducer creates a Redis streams producer
func NewStreamProducer(client *redis.Client, cfg StreamProducerConfig) (*StreamProducer, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultStreamPrefix
	}
	return &StreamProducer{
		client: client,
		prefix: prefix,
		maxLen: cfg.MaxLen,
	}, nil
}

// EnsureTopic registers partitions 0..partitions-1 for topic.
// Existing partitions are left untouched.
func (p *StreamProducer) EnsureTopic(ctx context.Context, topic string, partitions int) error {
	if partitions <= 0 {
		return fmt.Errorf("topic %s: partitions must be positive", topic)
	}
	members := make([]redis.Z, 0, partitions)
	for i := 0; i < partitions; i++ {
		members = append(members, redis.Z{Score: float64(i), Member: strconv.Itoa(i)})
	}
	if err := p.client.ZAddNX(ctx, p.partitionsKey(topic), members...).Err(); err != nil {
		return fmt.Errorf("register partitions for %s: %w", topic, err)
	}
	return nil
}

// Open checks out a dedicated connection for one publish.
// The session must be closed to return it to the pool.
func (p *StreamProducer) Open(ctx context.Context) (driven.ProducerSession, error) {
	conn := p.client.Conn()
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &streamSession{producer: p, conn: conn}, nil
}

// StreamKey returns the stream holding one partition of topic
func (p *StreamProducer) StreamKey(topic string, partition int) string {
	return p.prefix + topic + ":" + strconv.Itoa(partition)
}

func (p *StreamProducer) partitionsKey(topic string) string {
	return p.prefix + topic + partitionsSuffix
}

// streamSession is one acquired connection
type streamSession struct {
	producer *StreamProducer
	conn     *redis.Conn
}

// Partitions lists the topic's partitions in ascending order
func (s *streamSession) Partitions(ctx context.Context, topic string) ([]int, error) {
	members, err := s.conn.ZRange(ctx, s.producer.partitionsKey(topic), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list partitions for %s: %w", topic, err)
	}

	partitions := make([]int, 0, len(members))
	for _, m := range members {
		n, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("topic %s: bad partition %q", topic, m)
		}
		partitions = append(partitions, n)
	}
	return partitions, nil
}

// SendBatch appends every message to the partition stream in one MULTI/EXEC
func (s *streamSession) SendBatch(ctx context.Context, topic string, partition int, messages []domain.AuditMessage) error {
	if len(messages) == 0 {
		return nil
	}

	stream := s.producer.StreamKey(topic, partition)
	_, err := s.conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, msg := range messages {
			args := &redis.XAddArgs{
				Stream: stream,
				Values: map[string]interface{}{
					"value": string(msg.Value),
					"ts":    msg.Time.UnixMicro(),
				},
			}
			if s.producer.maxLen > 0 {
				args.MaxLen = s.producer.maxLen
				args.Approx = true
			}
			pipe.XAdd(ctx, args)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append to %s: %w", stream, err)
	}
	return nil
}

// Close returns the connection to the pool
func (s *streamSession) Close() error {
	return s.conn.Close()
}
