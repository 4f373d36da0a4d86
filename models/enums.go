package models

import (
	"errors"
)

// UnitStatus is the closed lifecycle enum for a reconciliation unit. Every
// surface (API filters, dashboards, workers) consumes this one type; legality
// of moves between statuses lives in the workflow transition table, not here.
type UnitStatus string

const (
	UnitStatusPending      UnitStatus = "Pending"
	UnitStatusAutoMatched  UnitStatus = "AutoMatched"
	UnitStatusManualReview UnitStatus = "ManualReview"
	UnitStatusCompleted    UnitStatus = "Completed"
	UnitStatusDisputed     UnitStatus = "Disputed"
	UnitStatusFailed       UnitStatus = "Failed"
)

func ParseUnitStatus(s string) (UnitStatus, error) {
	switch UnitStatus(s) {
	case UnitStatusPending, UnitStatusAutoMatched, UnitStatusManualReview,
		UnitStatusCompleted, UnitStatusDisputed, UnitStatusFailed:
		return UnitStatus(s), nil
	}
	return "", errors.New("invalid unit status")
}

// IsTerminal reports whether the primary lifecycle ends here. Disputed is
// terminal for the base machine; the dispute resolver owns the one documented
// exception (Disputed -> Completed).
func (s UnitStatus) IsTerminal() bool {
	switch s {
	case UnitStatusCompleted, UnitStatusDisputed, UnitStatusFailed:
		return true
	}
	return false
}

type UnitType string

const (
	UnitTypeSupplier   UnitType = "Supplier"
	UnitTypeRestaurant UnitType = "Restaurant"
)

func ParseUnitType(s string) (UnitType, error) {
	switch UnitType(s) {
	case UnitTypeSupplier, UnitTypeRestaurant:
		return UnitType(s), nil
	}
	return "", errors.New("invalid unit type")
}

type EntityKind string

const (
	EntityKindRestaurant EntityKind = "Restaurant"
	EntityKindSupplier   EntityKind = "Supplier"
)

// RecordSource says which party reported a line item.
type RecordSource string

const (
	RecordSourcePlatform RecordSource = "Platform"
	RecordSourceEntity   RecordSource = "Entity"
)

func ParseRecordSource(s string) (RecordSource, error) {
	switch RecordSource(s) {
	case RecordSourcePlatform, RecordSourceEntity:
		return RecordSource(s), nil
	}
	return "", errors.New("invalid record source")
}

// RecordKind is the inbound document type the normalizer accepts.
type RecordKind string

const (
	RecordKindOrder        RecordKind = "Order"
	RecordKindDeliveryNote RecordKind = "DeliveryNote"
	RecordKindInvoice      RecordKind = "Invoice"
)

// MatchKind classifies one pairing outcome.
type MatchKind string

const (
	MatchKindExact        MatchKind = "Exact"
	MatchKindTolerant     MatchKind = "Tolerant"
	MatchKindPlatformOnly MatchKind = "PlatformOnly"
	MatchKindEntityOnly   MatchKind = "EntityOnly"
)

type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "Open"
	DisputeStatusResolved DisputeStatus = "Resolved"
)

// Outbox publish lifecycle for the event stream.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)
