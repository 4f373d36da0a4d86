package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GraceSweeper finalizes auto_matched units once the operator grace period
// elapses without intervention. Transitions run one unit per transaction as
// the System actor; a unit touched concurrently (revised submission, manual
// action) just loses the version race and is skipped.
type GraceSweeper struct {
	DB     *gorm.DB
	Logger *logrus.Logger

	SweepInterval time.Duration
	BatchSize     int
}

func NewGraceSweeper(db *gorm.DB, logger *logrus.Logger) *GraceSweeper {
	return &GraceSweeper{
		DB:            db,
		Logger:        logger,
		SweepInterval: time.Minute,
		BatchSize:     100,
	}
}

func (s *GraceSweeper) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = utils.SetIsSystemInContext(ctx, true)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.sweepOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.SweepInterval):
		}
	}
}

func (s *GraceSweeper) sweepOnce(ctx context.Context) {
	if s.DB == nil {
		return
	}
	grace := config.GetEngineSettings().GracePeriod
	cutoff := time.Now().UTC().Add(-grace)

	var due []models.ReconciliationUnit
	err := s.DB.WithContext(ctx).
		Where("status = ? AND superseded_by_id IS NULL AND updated_at <= ?",
			models.UnitStatusAutoMatched, cutoff).
		Order("id ASC").
		Limit(s.BatchSize).
		Find(&due).Error
	if err != nil {
		config.LogError(s.Logger, "graceSweeper.go", "sweepOnce", "loading due units", cutoff, err)
		return
	}

	for i := range due {
		unit := due[i]
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return Transition(tx, &unit, models.UnitStatusCompleted, TransitionOptions{
				Note: "grace period elapsed without operator action",
			})
		})
		if err != nil {
			if errors.Is(err, utils.ErrConcurrentModification) {
				continue
			}
			config.LogError(s.Logger, "graceSweeper.go", "sweepOnce", "completing unit", unit.ID, err)
		}
	}
}
