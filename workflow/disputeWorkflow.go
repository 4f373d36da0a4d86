package workflow

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OpenDispute records a dispute and moves the unit to Disputed. Guard: the
// unit must be in manual_review and carry no open dispute — a unit holds at
// most one open dispute, with closed ones kept as history.
func OpenDispute(ctx context.Context, logger *logrus.Logger, unitId int, reason string, evidenceRefs []string) (*models.Dispute, error) {
	db := config.GetDB()
	actorId, actorName := utils.ActorFromContext(ctx)

	var dispute models.Dispute
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := lockUnitRow(ctx, tx, unitId)
		if err != nil {
			return err
		}
		if unit.Status != models.UnitStatusManualReview {
			return utils.ErrInvalidTransition
		}
		open, err := models.HasOpenDispute(tx, unitId)
		if err != nil {
			return err
		}
		if open {
			return utils.ErrDisputeAlreadyOpen
		}

		evidenceInByte, err := json.Marshal(evidenceRefs)
		if err != nil {
			return err
		}
		dispute = models.Dispute{
			UnitId:       unitId,
			Status:       models.DisputeStatusOpen,
			Reason:       reason,
			EvidenceRefs: evidenceInByte,
			OpenedById:   actorId,
			OpenedByName: actorName,
		}
		if err := tx.Create(&dispute).Error; err != nil {
			return err
		}

		return Transition(tx, unit, models.UnitStatusDisputed, TransitionOptions{Note: reason})
	})
	if err != nil {
		config.LogError(logger, "disputeWorkflow.go", "OpenDispute", "opening dispute", unitId, err)
		return nil, err
	}
	return &dispute, nil
}

// ResolveDispute closes the dispute and completes the owning unit (the one
// documented terminal exception). A resolution that revises the entity
// amount recomputes the unit difference before the transition commits.
func ResolveDispute(ctx context.Context, logger *logrus.Logger, disputeId int, resolution string, revisedEntityAmount *decimal.Decimal) (*models.ReconciliationUnit, error) {
	db := config.GetDB()
	actorId, actorName := utils.ActorFromContext(ctx)

	var unit *models.ReconciliationUnit
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dispute models.Dispute
		if err := tx.First(&dispute, disputeId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if dispute.Status != models.DisputeStatusOpen {
			return utils.ErrInvalidTransition
		}

		var err error
		unit, err = lockUnitRow(ctx, tx, dispute.UnitId)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":         models.DisputeStatusResolved,
			"resolution":     resolution,
			"resolved_by_id": actorId,
			"resolved_by":    actorName,
			"resolved_at":    &now,
		}
		if revisedEntityAmount != nil {
			updates["revised_entity_amount"] = *revisedEntityAmount
			unit.EntityAmount = *revisedEntityAmount
		}
		if err := tx.Model(&models.Dispute{}).Where("id = ?", dispute.ID).Updates(updates).Error; err != nil {
			return err
		}

		return Transition(tx, unit, models.UnitStatusCompleted, TransitionOptions{
			Note:                 "dispute resolved: " + resolution,
			AcceptDifference:     true,
			ViaDisputeResolution: true,
		})
	})
	if err != nil {
		config.LogError(logger, "disputeWorkflow.go", "ResolveDispute", "resolving dispute", disputeId, err)
		return nil, err
	}
	return unit, nil
}
