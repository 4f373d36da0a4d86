package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MarkComplete is the operator "mark complete" action: auto_matched units
// confirm, manual_review units need the difference resolved to zero or
// explicitly accepted. The optimistic version check turns the second of two
// racing operators into a ConcurrentModification error.
func MarkComplete(ctx context.Context, logger *logrus.Logger, unitId int, acceptDifference bool) (*models.ReconciliationUnit, error) {
	db := config.GetDB()

	var unit *models.ReconciliationUnit
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		unit, err = lockUnitRow(ctx, tx, unitId)
		if err != nil {
			return err
		}
		return Transition(tx, unit, models.UnitStatusCompleted, TransitionOptions{
			Note:             "marked complete by operator",
			AcceptDifference: acceptDifference,
		})
	})
	if err != nil {
		config.LogError(logger, "actionWorkflow.go", "MarkComplete", "completing unit", unitId, err)
		return nil, err
	}
	return unit, nil
}

// FailUnit moves a unit to Failed with a reason. Used when a re-run hits an
// unrecoverable ingestion problem (corrupt stored rows found by the rebuild
// tooling); the unit survives and the dashboard shows the reason.
func FailUnit(ctx context.Context, logger *logrus.Logger, unitId int, reason string) (*models.ReconciliationUnit, error) {
	db := config.GetDB()

	var unit *models.ReconciliationUnit
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		unit, err = lockUnitRow(ctx, tx, unitId)
		if err != nil {
			return err
		}
		return Transition(tx, unit, models.UnitStatusFailed, TransitionOptions{Note: reason})
	})
	if err != nil {
		config.LogError(logger, "actionWorkflow.go", "FailUnit", "failing unit", unitId, err)
		return nil, err
	}
	return unit, nil
}

func lockUnitRow(ctx context.Context, tx *gorm.DB, unitId int) (*models.ReconciliationUnit, error) {
	var unit models.ReconciliationUnit
	if err := tx.WithContext(ctx).First(&unit, unitId).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}
