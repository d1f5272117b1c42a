package domain

import (
	"fmt"
	"time"
)

// AuditAction is the verb used in an audit line
type AuditAction string

const (
	AuditCreated AuditAction = "created"
	AuditUpdated AuditAction = "updated"
	AuditDeleted AuditAction = "deleted"
)

const (
	// AuditTopicInsurance is the topic insurance mutations are published to
	AuditTopicInsurance = "insurance"

	// AuditEntityInsurance names insurance rows in audit lines
	AuditEntityInsurance = "insurance"

	// AuditTimestampLayout renders audit timestamps with microseconds
	AuditTimestampLayout = "2006-01-02 15:04:05.000000"
)

// Auditable is a persisted record that can be referenced by an audit line
type Auditable interface {
	AuditID() int64
}

// AuditBatch describes the records created by one mutation.
// RecordIDs keep the order in which the records were created.
type AuditBatch struct {
	Topic     string  `json:"topic"`
	ActorID   int64   `json:"actor_id"`
	Entity    string  `json:"entity"`
	RecordIDs []int64 `json:"record_ids"`
}

// NewAuditBatch builds a batch from created records, preserving their order
func NewAuditBatch[T Auditable](topic string, actorID int64, entity string, records []T) AuditBatch {
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.AuditID())
	}
	return AuditBatch{
		Topic:     topic,
		ActorID:   actorID,
		Entity:    entity,
		RecordIDs: ids,
	}
}

// AuditMessage is one encoded audit line ready for a transport
type AuditMessage struct {
	Value []byte
	Time  time.Time
}

// FormatAuditLine renders the human-readable audit line for one record
func FormatAuditLine(action AuditAction, actorID int64, entity string, recordID int64, at time.Time) string {
	return fmt.Sprintf("User with ID %d has %s %s with ID %d at %s",
		actorID, action, entity, recordID, at.Format(AuditTimestampLayout))
}
