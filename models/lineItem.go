package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one comparable unit of value reported by one side for a period.
// Immutable once ingested; Position preserves ingestion order because the
// matcher's duplicate-key tie-break is FIFO.
type LineItem struct {
	ID             int             `gorm:"primary_key" json:"id"`
	UnitId         int             `gorm:"not null;index;index:idx_line_unit_source,priority:1" json:"unit_id"`
	Source         RecordSource    `gorm:"size:10;not null;index:idx_line_unit_source,priority:2" json:"source"`
	SourceRecordId string          `gorm:"size:100;not null" json:"source_record_id"`
	OrderNumber    string          `gorm:"size:100;not null" json:"order_number"`
	Sku            string          `gorm:"size:100;not null" json:"sku"`
	Description    string          `gorm:"size:255" json:"description"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"line_total"`
	Currency       string          `gorm:"size:3;not null" json:"currency"`
	Position       int             `gorm:"not null" json:"position"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// MatchKey is the matcher's grouping key.
func (li LineItem) MatchKey() string {
	return li.OrderNumber + "|" + li.Sku
}

// MatchResult is the pairing outcome for one platform line item against
// zero-or-one entity line item (or an entity-only leftover). Owned by the
// unit that produced it; replaced wholesale when the unit is re-matched.
type MatchResult struct {
	ID               int             `gorm:"primary_key" json:"id"`
	UnitId           int             `gorm:"not null;index" json:"unit_id"`
	PlatformLineId   *int            `gorm:"index" json:"platform_line_id"`
	EntityLineId     *int            `gorm:"index" json:"entity_line_id"`
	Kind             MatchKind       `gorm:"size:20;not null" json:"kind"`
	Confidence       decimal.Decimal `gorm:"type:decimal(7,6);not null" json:"confidence"`
	VarianceAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"variance_amount"`
	OrderNumber      string          `gorm:"size:100;not null" json:"order_number"`
	Sku              string          `gorm:"size:100;not null" json:"sku"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (mr MatchResult) IsMatched() bool {
	return mr.Kind == MatchKindExact || mr.Kind == MatchKindTolerant
}
