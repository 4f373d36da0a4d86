package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Dispute tracks the investigation sub-lifecycle of a disputed unit.
// A unit accumulates closed disputes over its history but holds at most one
// open dispute at a time (enforced by HasOpenDispute under the unit lock).
type Dispute struct {
	ID     int           `gorm:"primary_key" json:"id"`
	UnitId int           `gorm:"not null;index:idx_dispute_unit_status,priority:1" json:"unit_id"`
	Status DisputeStatus `gorm:"size:10;not null;index:idx_dispute_unit_status,priority:2" json:"status"`
	Reason string        `gorm:"size:500;not null" json:"reason"`

	// EvidenceRefs are opaque references (document ids, URLs) owned by the
	// external document store; the engine never fetches them.
	EvidenceRefs []byte `gorm:"type:json" json:"evidence_refs"`

	Resolution *string `gorm:"size:500" json:"resolution"`
	// RevisedEntityAmount, when set by the resolution, replaces the unit's
	// entity amount and the difference is recomputed.
	RevisedEntityAmount *decimal.Decimal `gorm:"type:decimal(20,4)" json:"revised_entity_amount"`

	OpenedById   int        `gorm:"not null" json:"opened_by_id"`
	OpenedByName string     `gorm:"size:100" json:"opened_by_name"`
	OpenedAt     time.Time  `gorm:"autoCreateTime" json:"opened_at"`
	ResolvedById *int       `json:"resolved_by_id"`
	ResolvedBy   *string    `gorm:"size:100" json:"resolved_by"`
	ResolvedAt   *time.Time `json:"resolved_at"`
}

func GetDispute(ctx context.Context, id int) (*Dispute, error) {
	db := config.GetDB()
	var result Dispute

	err := db.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func HasOpenDispute(tx *gorm.DB, unitId int) (bool, error) {
	var count int64
	err := tx.Model(&Dispute{}).
		Where("unit_id = ? AND status = ?", unitId, DisputeStatusOpen).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func GetDisputesByUnit(ctx context.Context, unitId int) ([]*Dispute, error) {
	db := config.GetDB()
	var results []*Dispute

	err := db.WithContext(ctx).
		Where("unit_id = ?", unitId).
		Order("opened_at ASC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
