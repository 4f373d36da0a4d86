package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReconciliationUnit is the aggregate root for one (entity, period) matching
// lifecycle. Mutated only through the workflow state machine; never deleted.
// A re-submission against a terminal unit creates a successor row and links
// it via SupersededById (append-only history).
//
// Invariants held after every transition:
// - Difference == PlatformAmount - EntityAmount
// - PlatformAmount == sum of platform-side line totals, match status aside
type ReconciliationUnit struct {
	ID       int        `gorm:"primary_key" json:"id"`
	Type     UnitType   `gorm:"size:20;not null;index:idx_unit_filter,priority:1" json:"type"`
	EntityId int        `gorm:"not null;index;index:idx_unit_entity_period,priority:1" json:"entity_id"`
	Period   string     `gorm:"size:7;not null;index:idx_unit_entity_period,priority:2" json:"period"`
	Status   UnitStatus `gorm:"size:20;not null;index;index:idx_unit_filter,priority:2" json:"status"`

	PlatformAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"platform_amount"`
	EntityAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"entity_amount"`
	Difference     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"difference"`
	Confidence     decimal.Decimal `gorm:"type:decimal(7,6);not null" json:"confidence"`

	MatchedCount   int `gorm:"not null;default:0" json:"matched_count"`
	UnmatchedCount int `gorm:"not null;default:0" json:"unmatched_count"`

	// AutoMatched records that the unit ever reached AutoMatched; the
	// aggregator's auto-match rate counts these even after completion.
	AutoMatched bool `gorm:"not null;default:0" json:"auto_matched"`

	// Version backs optimistic concurrency on transitions: the second of two
	// racing writers observes a stale version and gets ConcurrentModification.
	Version int `gorm:"not null;default:1" json:"version"`

	FailureReason  *string    `gorm:"size:500" json:"failure_reason"`
	SupersededById *int       `gorm:"index" json:"superseded_by_id"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at"`

	LineItems    []LineItem    `gorm:"foreignKey:UnitId" json:"line_items,omitempty"`
	MatchResults []MatchResult `gorm:"foreignKey:UnitId" json:"match_results,omitempty"`
	Disputes     []Dispute     `gorm:"foreignKey:UnitId" json:"disputes,omitempty"`
}

func GetUnit(ctx context.Context, id int) (*ReconciliationUnit, error) {
	db := config.GetDB()
	var result ReconciliationUnit

	err := db.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

// GetUnitFull loads a unit with its line items, match results and disputes
// for the unit detail page.
func GetUnitFull(ctx context.Context, id int) (*ReconciliationUnit, error) {
	db := config.GetDB()
	var result ReconciliationUnit

	err := db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("MatchResults").
		Preload("Disputes", func(db *gorm.DB) *gorm.DB { return db.Order("opened_at ASC") }).
		First(&result, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

// GetCurrentUnit returns the live (non-superseded) unit for an entity/period,
// or nil when none exists yet.
func GetCurrentUnit(ctx context.Context, tx *gorm.DB, entityId int, period string) (*ReconciliationUnit, error) {
	var units []ReconciliationUnit
	err := tx.WithContext(ctx).
		Where("entity_id = ? AND period = ? AND superseded_by_id IS NULL", entityId, period).
		Order("id DESC").Limit(1).Find(&units).Error
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, nil
	}
	return &units[0], nil
}

type UnitFilter struct {
	Type     *UnitType
	Status   *UnitStatus
	EntityId *int
	Period   *string
}

type UnitsConnection struct {
	Edges    []*UnitsEdge `json:"edges"`
	PageInfo *PageInfo    `json:"pageInfo"`
}

type UnitsEdge Edge[ReconciliationUnit]

// PaginateUnits serves the dashboard list with the exact dashboard filter set
// and a composite (created_at, id) cursor, newest first.
func PaginateUnits(ctx context.Context, filter UnitFilter, limit int, after *string) (*UnitsConnection, error) {
	db := config.GetDB()
	if limit <= 0 {
		limit = 20
	}

	dbCtx := db.WithContext(ctx).Model(&ReconciliationUnit{})
	if filter.Type != nil {
		dbCtx = dbCtx.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		dbCtx = dbCtx.Where("status = ?", *filter.Status)
	}
	if filter.EntityId != nil && *filter.EntityId > 0 {
		dbCtx = dbCtx.Where("entity_id = ?", *filter.EntityId)
	}
	if filter.Period != nil && *filter.Period != "" {
		dbCtx = dbCtx.Where("period = ?", *filter.Period)
	}

	cursorCreatedAt, cursorId := DecodeCompositeCursor(after)
	if cursorCreatedAt != "" {
		dbCtx = dbCtx.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursorCreatedAt, cursorCreatedAt, cursorId)
	}

	var rows []ReconciliationUnit
	if err := dbCtx.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}

	conn := UnitsConnection{PageInfo: &PageInfo{HasNextPage: &hasNext}}
	for i := range rows {
		node := rows[i]
		cursor := EncodeCompositeCursor(node.CreatedAt.UTC().Format("2006-01-02 15:04:05.000000"), node.ID)
		if i == 0 {
			conn.PageInfo.StartCursor = cursor
		}
		conn.PageInfo.EndCursor = cursor
		edge := UnitsEdge{Cursor: cursor, Node: &node}
		conn.Edges = append(conn.Edges, &edge)
	}
	return &conn, nil
}

// ListUnitsForPeriod loads the aggregator's working set: every unit version
// for the scope, superseded ones included (they stay in totals history).
func ListUnitsForPeriod(ctx context.Context, entityId *int, period string) ([]*ReconciliationUnit, error) {
	db := config.GetDB()
	var results []*ReconciliationUnit

	dbCtx := db.WithContext(ctx).Where("period = ? AND superseded_by_id IS NULL", period)
	if entityId != nil && *entityId > 0 {
		dbCtx = dbCtx.Where("entity_id = ?", *entityId)
	}
	if err := dbCtx.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ReplaceUnitLineItems swaps a unit's line items (and drops the now-stale
// match results) inside the caller's transaction. Used on re-submission
// before the re-run transition commits. GORM backfills the inserted IDs so
// the caller can wire match results to them.
func ReplaceUnitLineItems(tx *gorm.DB, unitId int, lineItems []LineItem) ([]LineItem, error) {
	if err := tx.Where("unit_id = ?", unitId).Delete(&MatchResult{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("unit_id = ?", unitId).Delete(&LineItem{}).Error; err != nil {
		return nil, err
	}
	for i := range lineItems {
		lineItems[i].UnitId = unitId
	}
	if len(lineItems) > 0 {
		if err := tx.Create(&lineItems).Error; err != nil {
			return nil, err
		}
	}
	return lineItems, nil
}

func InsertMatchResults(tx *gorm.DB, unitId int, matchResults []MatchResult) error {
	for i := range matchResults {
		matchResults[i].UnitId = unitId
	}
	if len(matchResults) == 0 {
		return nil
	}
	return tx.Create(&matchResults).Error
}
