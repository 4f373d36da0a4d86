package workflow

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/models"
	"github.com/shopspring/decimal"
)

func rollupUnit(status models.UnitStatus, platform, entity string) *models.ReconciliationUnit {
	p := decimal.RequireFromString(platform)
	e := decimal.RequireFromString(entity)
	return &models.ReconciliationUnit{
		Status:         status,
		PlatformAmount: p,
		EntityAmount:   e,
		Difference:     p.Sub(e),
	}
}

func TestBuildPeriodRollup_Empty(t *testing.T) {
	rollup := BuildPeriodRollup("2026-08", nil)
	if rollup.UnitCount != 0 {
		t.Fatalf("expected 0 units, got %d", rollup.UnitCount)
	}
	if !rollup.AutoMatchRate.IsZero() || !rollup.Difference.IsZero() {
		t.Fatalf("empty rollup must be all zero: %+v", rollup)
	}
	if rollup.AvgCompletionHours != nil {
		t.Fatalf("no completions yet; avg must be nil")
	}
}

func TestBuildPeriodRollup_TotalsAndDifference(t *testing.T) {
	units := []*models.ReconciliationUnit{
		rollupUnit(models.UnitStatusAutoMatched, "180000", "180000"),
		rollupUnit(models.UnitStatusManualReview, "180000", "182400"),
	}
	rollup := BuildPeriodRollup("2026-08", units)

	if !rollup.PlatformAmount.Equal(decimal.RequireFromString("360000")) {
		t.Fatalf("platform total: got %s", rollup.PlatformAmount)
	}
	if !rollup.EntityAmount.Equal(decimal.RequireFromString("362400")) {
		t.Fatalf("entity total: got %s", rollup.EntityAmount)
	}
	if !rollup.Difference.Equal(decimal.RequireFromString("-2400")) {
		t.Fatalf("difference: expected -2400, got %s", rollup.Difference)
	}
	if rollup.StatusCounts[models.UnitStatusAutoMatched] != 1 ||
		rollup.StatusCounts[models.UnitStatusManualReview] != 1 {
		t.Fatalf("status counts wrong: %+v", rollup.StatusCounts)
	}
}

func TestBuildPeriodRollup_InFlightUnitsTolerated(t *testing.T) {
	// A rollup over a period with pending and disputed units must still
	// produce figures; in-flight units count toward totals.
	units := []*models.ReconciliationUnit{
		rollupUnit(models.UnitStatusPending, "0", "0"),
		rollupUnit(models.UnitStatusDisputed, "100", "250"),
		rollupUnit(models.UnitStatusCompleted, "500", "500"),
		rollupUnit(models.UnitStatusFailed, "50", "0"),
	}
	rollup := BuildPeriodRollup("2026-08", units)

	if rollup.InFlightCount != 1 {
		t.Fatalf("pending counts as in flight; got %d", rollup.InFlightCount)
	}
	if rollup.DisputedCount != 1 {
		t.Fatalf("expected 1 disputed, got %d", rollup.DisputedCount)
	}
	if rollup.UnitCount != 4 {
		t.Fatalf("expected 4 units, got %d", rollup.UnitCount)
	}
}

func TestBuildPeriodRollup_AutoMatchRate(t *testing.T) {
	auto := rollupUnit(models.UnitStatusAutoMatched, "100", "100")
	auto.AutoMatched = true
	// Completed after auto-matching still counts toward the rate.
	completedAuto := rollupUnit(models.UnitStatusCompleted, "100", "100")
	completedAuto.AutoMatched = true
	manual := rollupUnit(models.UnitStatusManualReview, "100", "90")
	completedManual := rollupUnit(models.UnitStatusCompleted, "100", "90")

	rollup := BuildPeriodRollup("2026-08", []*models.ReconciliationUnit{auto, completedAuto, manual, completedManual})
	if !rollup.AutoMatchRate.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected auto-match rate 0.5, got %s", rollup.AutoMatchRate)
	}
}

func TestBuildPeriodRollup_AvgCompletionHours(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	fast := rollupUnit(models.UnitStatusCompleted, "100", "100")
	fast.CreatedAt = base
	fastDone := base.Add(2 * time.Hour)
	fast.CompletedAt = &fastDone

	slow := rollupUnit(models.UnitStatusCompleted, "100", "100")
	slow.CreatedAt = base
	slowDone := base.Add(6 * time.Hour)
	slow.CompletedAt = &slowDone

	// Open units must not drag the average.
	open := rollupUnit(models.UnitStatusManualReview, "100", "90")
	open.CreatedAt = base

	rollup := BuildPeriodRollup("2026-08", []*models.ReconciliationUnit{fast, slow, open})
	if rollup.AvgCompletionHours == nil {
		t.Fatal("expected an average over completed units")
	}
	if !rollup.AvgCompletionHours.Equal(decimal.RequireFromString("4")) {
		t.Fatalf("expected 4 hours, got %s", rollup.AvgCompletionHours)
	}
}
