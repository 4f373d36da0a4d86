package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PeriodRollup is the dashboard view for one billing period: totals, status
// distribution, and operational health figures. Built from current units only
// (superseded rows are history, not period state).
type PeriodRollup struct {
	Period         string          `json:"period"`
	UnitCount      int             `json:"unit_count"`
	PlatformAmount decimal.Decimal `json:"platform_amount"`
	EntityAmount   decimal.Decimal `json:"entity_amount"`
	Difference     decimal.Decimal `json:"difference"`

	StatusCounts map[models.UnitStatus]int `json:"status_counts"`

	// AutoMatchRate = units that auto-matched (or completed without a
	// dispute) / total units. Rounded to 4 places.
	AutoMatchRate decimal.Decimal `json:"auto_match_rate"`

	// AvgCompletionHours averages created->completed over completed units
	// only; null while nothing has completed.
	AvgCompletionHours *decimal.Decimal `json:"avg_completion_hours"`

	InFlightCount int       `json:"in_flight_count"`
	DisputedCount int       `json:"disputed_count"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// BuildPeriodRollup folds a unit list into a rollup. Pure so the figures are
// testable without a database.
func BuildPeriodRollup(period string, units []*models.ReconciliationUnit) *PeriodRollup {
	rollup := &PeriodRollup{
		Period:         period,
		UnitCount:      len(units),
		PlatformAmount: decimal.Zero,
		EntityAmount:   decimal.Zero,
		Difference:     decimal.Zero,
		StatusCounts:   map[models.UnitStatus]int{},
		AutoMatchRate:  decimal.Zero,
		GeneratedAt:    time.Now().UTC(),
	}
	if len(units) == 0 {
		return rollup
	}

	autoMatched := 0
	completed := 0
	completionHours := decimal.Zero
	for _, unit := range units {
		rollup.PlatformAmount = rollup.PlatformAmount.Add(unit.PlatformAmount)
		rollup.EntityAmount = rollup.EntityAmount.Add(unit.EntityAmount)
		rollup.StatusCounts[unit.Status]++

		switch unit.Status {
		case models.UnitStatusDisputed:
			rollup.DisputedCount++
		case models.UnitStatusCompleted, models.UnitStatusFailed:
		default:
			rollup.InFlightCount++
		}

		if unit.AutoMatched {
			autoMatched++
		}
		if unit.Status == models.UnitStatusCompleted && unit.CompletedAt != nil {
			completed++
			hours := decimal.NewFromFloat(unit.CompletedAt.Sub(unit.CreatedAt).Hours())
			completionHours = completionHours.Add(hours)
		}
	}
	rollup.Difference = rollup.PlatformAmount.Sub(rollup.EntityAmount)
	rollup.AutoMatchRate = decimal.NewFromInt(int64(autoMatched)).
		Div(decimal.NewFromInt(int64(len(units)))).Round(4)
	if completed > 0 {
		avg := completionHours.Div(decimal.NewFromInt(int64(completed))).Round(2)
		rollup.AvgCompletionHours = &avg
	}
	return rollup
}

// GetPeriodRollup loads current units for the period (optionally one entity)
// and aggregates them. Cached briefly in redis: dashboards poll this and the
// figures tolerate 30s of staleness.
func GetPeriodRollup(ctx context.Context, logger *logrus.Logger, entityId *int, period string) (*PeriodRollup, error) {
	if _, err := time.Parse("2006-01", period); err != nil {
		return nil, fmt.Errorf("%w: period %q is not YYYY-MM", utils.ErrMalformedRecord, period)
	}

	cacheKey := rollupCacheKey(entityId, period)
	var cached PeriodRollup
	if ok, err := config.GetRedisObject(cacheKey, &cached); err == nil && ok {
		return &cached, nil
	}

	units, err := models.ListUnitsForPeriod(ctx, entityId, period)
	if err != nil {
		config.LogError(logger, "aggregator.go", "GetPeriodRollup", "loading units", period, err)
		return nil, err
	}

	rollup := BuildPeriodRollup(period, units)
	_ = config.SetRedisObject(cacheKey, rollup, 30*time.Second)
	return rollup, nil
}

func rollupCacheKey(entityId *int, period string) string {
	if entityId != nil {
		return fmt.Sprintf("recon:rollup:%d:%s", *entityId, period)
	}
	return "recon:rollup:all:" + period
}
