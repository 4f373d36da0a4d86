package workflow

import (
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"gorm.io/gorm"
)

// transitionTable is the single source of lifecycle legality. Every status
// surface in the system (API, dashboards, workers) goes through Transition;
// nothing writes the status column directly.
var transitionTable = map[models.UnitStatus][]models.UnitStatus{
	models.UnitStatusPending: {models.UnitStatusAutoMatched, models.UnitStatusManualReview},
	// AutoMatched <-> ManualReview covers matching re-runs on revised
	// records: a re-run may reconcile a divergent unit or surface a variance
	// in one that previously auto-matched.
	models.UnitStatusAutoMatched:  {models.UnitStatusCompleted, models.UnitStatusFailed, models.UnitStatusManualReview},
	models.UnitStatusManualReview: {models.UnitStatusCompleted, models.UnitStatusDisputed, models.UnitStatusFailed, models.UnitStatusAutoMatched},
	// Disputed -> Completed is the one terminal exception; Transition
	// additionally requires ViaDisputeResolution so only the dispute
	// resolver can drive it.
	models.UnitStatusDisputed:  {models.UnitStatusCompleted},
	models.UnitStatusCompleted: {},
	models.UnitStatusFailed:    {},
}

func CanTransition(from, to models.UnitStatus) bool {
	for _, allowed := range transitionTable[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type TransitionOptions struct {
	Note string
	// AcceptDifference lets an operator complete a manual_review unit whose
	// difference is non-zero (explicitly accepted variance).
	AcceptDifference bool
	// ViaDisputeResolution gates the Disputed -> Completed exception.
	ViaDisputeResolution bool
}

// Transition moves a unit to a new status inside the caller's transaction.
// All-or-nothing: guards are checked first, the row update is conditional on
// the version the caller read (stale version -> ConcurrentModification, no
// side effects), and the audit event plus its outbox mirror commit with the
// status change or not at all.
//
// The unit's amounts/confidence/counts are persisted here too, so re-matching
// and dispute revisions cannot bypass the difference invariant: difference is
// recomputed from the amounts on every transition.
func Transition(tx *gorm.DB, unit *models.ReconciliationUnit, to models.UnitStatus, opts TransitionOptions) error {
	from := unit.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", utils.ErrInvalidTransition, from, to)
	}
	if from == models.UnitStatusDisputed && !opts.ViaDisputeResolution {
		return fmt.Errorf("%w: %s -> %s requires dispute resolution", utils.ErrInvalidTransition, from, to)
	}
	if from == models.UnitStatusManualReview && to == models.UnitStatusCompleted {
		if !unit.Difference.IsZero() && !opts.AcceptDifference {
			return utils.ErrDifferenceNotAccepted
		}
	}

	unit.Difference = unit.PlatformAmount.Sub(unit.EntityAmount)

	updates := map[string]interface{}{
		"status":          to,
		"version":         gorm.Expr("version + 1"),
		"platform_amount": unit.PlatformAmount,
		"entity_amount":   unit.EntityAmount,
		"difference":      unit.Difference,
		"confidence":      unit.Confidence,
		"matched_count":   unit.MatchedCount,
		"unmatched_count": unit.UnmatchedCount,
	}
	if to == models.UnitStatusAutoMatched {
		unit.AutoMatched = true
		updates["auto_matched"] = true
	}
	if to == models.UnitStatusCompleted {
		now := time.Now().UTC()
		unit.CompletedAt = &now
		updates["completed_at"] = &now
	}
	if to == models.UnitStatusFailed {
		note := opts.Note
		if note == "" {
			note = "unrecoverable ingestion error; requires manual rebuild from raw records"
		}
		unit.FailureReason = &note
		updates["failure_reason"] = &note
	}

	res := tx.Model(&models.ReconciliationUnit{}).
		Where("id = ? AND version = ?", unit.ID, unit.Version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrConcurrentModification
	}

	unit.Status = to
	unit.Version++

	return models.RecordAuditEvent(tx, unit, from, to, opts.Note)
}

// RecomputeCommit persists re-run amounts when the matching outcome leaves
// the status unchanged (a revised submission that still lands in the same
// state). Same optimistic guard and audit trail as a status transition, with
// from == to on the event.
func RecomputeCommit(tx *gorm.DB, unit *models.ReconciliationUnit, note string) error {
	if unit.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot recompute a %s unit", utils.ErrInvalidTransition, unit.Status)
	}

	unit.Difference = unit.PlatformAmount.Sub(unit.EntityAmount)

	res := tx.Model(&models.ReconciliationUnit{}).
		Where("id = ? AND version = ?", unit.ID, unit.Version).
		Updates(map[string]interface{}{
			"version":         gorm.Expr("version + 1"),
			"platform_amount": unit.PlatformAmount,
			"entity_amount":   unit.EntityAmount,
			"difference":      unit.Difference,
			"confidence":      unit.Confidence,
			"matched_count":   unit.MatchedCount,
			"unmatched_count": unit.UnmatchedCount,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrConcurrentModification
	}
	unit.Version++

	return models.RecordAuditEvent(tx, unit, unit.Status, unit.Status, note)
}
