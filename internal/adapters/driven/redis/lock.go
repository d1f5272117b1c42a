package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "insurance-calc:lock:"

// Lock guards the deploy step when Redis is configured, so that only one
// replica seeds roles, the administrator and rates. The key holds this
// process's owner ID and expires on its own if the process dies mid-deploy.
type Lock struct {
	client  *redis.Client
	ownerID string
}

// NewLock returns a deploy lock on client
func NewLock(client *redis.Client) *Lock {
	return &Lock{
		client:  client,
		ownerID: generateOwnerID(),
	}
}

// generateOwnerID identifies this process as hostname:pid:random
func generateOwnerID() string {
	hostname, _ := os.Hostname()
	randomBytes := make([]byte, 8)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(randomBytes))
}

// Acquire claims name for ttl. A second deploy, even from this process,
// gets false until the holder releases or the key expires.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	result, err := l.client.SetNX(ctx, lockPrefix+name, l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return result, nil
}

// releaseScript deletes the key only while it still holds the caller's owner ID,
// so a deploy that overran its TTL cannot drop a successor's claim
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Release hands name back once the deploy finishes. A lock that expired or
// belongs to another replica is left alone.
func (l *Lock) Release(ctx context.Context, name string) error {
	_, err := releaseScript.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Ping reports whether Redis is reachable for deploy coordination
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID is the value written into keys this process holds
func (l *Lock) OwnerID() string {
	return l.ownerID
}
