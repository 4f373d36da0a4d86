package models

import (
	"time"
)

// ReconEventRecord is the transactional outbox row behind the event stream:
// written in the same transaction as its AuditEvent, published to Pub/Sub by
// the dispatcher after commit. At-least-once; consumers dedupe on
// audit_event_id.
type ReconEventRecord struct {
	ID           int        `gorm:"primary_key;index:idx_recon_outbox_dispatch,priority:3" json:"id"`
	AuditEventId int        `gorm:"not null;index" json:"audit_event_id"`
	UnitId       int        `gorm:"not null;index" json:"unit_id"`
	EntityId     int        `gorm:"not null" json:"entity_id"`
	Period       string     `gorm:"size:7;not null" json:"period"`
	FromStatus   UnitStatus `gorm:"size:20;not null" json:"from_status"`
	ToStatus     UnitStatus `gorm:"size:20;not null" json:"to_status"`
	ActorName    string     `gorm:"size:100" json:"actor_name"`
	Payload      []byte     `gorm:"type:json" json:"payload"`

	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_recon_outbox_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_recon_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`

	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
