package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEvent is the append-only transition log. Compliance requirement: no
// code path updates or deletes rows in this table; a completed unit's history
// grows only through these records.
type AuditEvent struct {
	ID            int        `gorm:"primary_key" json:"id"`
	UnitId        int        `gorm:"not null;index" json:"unit_id"`
	ActorId       int        `gorm:"not null" json:"actor_id"`
	ActorName     string     `gorm:"size:100;not null" json:"actor_name"`
	FromStatus    UnitStatus `gorm:"size:20;not null" json:"from_status"`
	ToStatus      UnitStatus `gorm:"size:20;not null" json:"to_status"`
	Payload       []byte     `gorm:"type:json" json:"payload"`
	CorrelationId string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

// TransitionPayload is the snapshot carried on every audit event: the unit's
// money state at the moment of transition.
type TransitionPayload struct {
	PlatformAmount string `json:"platform_amount"`
	EntityAmount   string `json:"entity_amount"`
	Difference     string `json:"difference"`
	Confidence     string `json:"confidence"`
	Note           string `json:"note,omitempty"`
}

// RecordAuditEvent writes the audit row and its outbox mirror inside the
// caller's transaction. Publishing to Pub/Sub happens after commit via the
// dispatcher, so a rolled-back transition emits nothing.
func RecordAuditEvent(tx *gorm.DB, unit *ReconciliationUnit, from UnitStatus, to UnitStatus, note string) error {
	ctx := tx.Statement.Context
	actorId, actorName := utils.ActorFromContext(ctx)

	payload := TransitionPayload{
		PlatformAmount: unit.PlatformAmount.String(),
		EntityAmount:   unit.EntityAmount.String(),
		Difference:     unit.Difference.String(),
		Confidence:     unit.Confidence.String(),
		Note:           note,
	}
	payloadInByte, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := AuditEvent{
		UnitId:        unit.ID,
		ActorId:       actorId,
		ActorName:     actorName,
		FromStatus:    from,
		ToStatus:      to,
		Payload:       payloadInByte,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	if err := tx.Create(&event).Error; err != nil {
		return err
	}

	record := ReconEventRecord{
		AuditEventId:  event.ID,
		UnitId:        unit.ID,
		EntityId:      unit.EntityId,
		Period:        unit.Period,
		FromStatus:    from,
		ToStatus:      to,
		ActorName:     actorName,
		Payload:       payloadInByte,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: event.CorrelationId,
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func GetAuditEventsByUnit(ctx context.Context, unitId int) ([]*AuditEvent, error) {
	db := config.GetDB()
	var results []*AuditEvent

	err := db.WithContext(ctx).
		Where("unit_id = ?", unitId).
		Order("created_at ASC, id ASC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CountAuditEventsByUnit backs the idempotence property tests: a no-op
// resubmission must not grow the log.
func CountAuditEventsByUnit(ctx context.Context, unitId int) (int64, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&AuditEvent{}).Where("unit_id = ?", unitId).Count(&count).Error
	return count, err
}
