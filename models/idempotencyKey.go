package models

import "time"

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// IdempotencyKey provides durable, DB-backed idempotency for worker handlers.
// Unique constraint: (handler_name, message_id).
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	HandlerName string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"handler_name"`
	MessageId   string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"message_id"`
	Status      IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	LastError   *string           `gorm:"type:text" json:"last_error"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubmissionFingerprint makes ingestion idempotent per (entity, period,
// source): the SHA-256 of the canonicalized record set. Resubmitting an
// identical payload is a no-op; a changed hash triggers a re-run (or a
// successor unit when the current one is terminal).
type SubmissionFingerprint struct {
	ID          int          `gorm:"primary_key" json:"id"`
	EntityId    int          `gorm:"not null;index:uniq_submission,unique" json:"entity_id"`
	Period      string       `gorm:"size:7;not null;index:uniq_submission,unique" json:"period"`
	Source      RecordSource `gorm:"size:10;not null;index:uniq_submission,unique" json:"source"`
	PayloadHash string       `gorm:"size:64;not null" json:"payload_hash"`
	UnitId      int          `gorm:"not null;index" json:"unit_id"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}
