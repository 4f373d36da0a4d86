// unit-rebuild re-runs matching and scoring for reconciliation units from
// their stored line items. Ops tooling for after a matcher fix or when a
// unit's derived rows are suspect; raw line items are the source of truth.
//
// Usage (from backend directory):
//
//	go run ./cmd/unit-rebuild --unit-id 42
//	go run ./cmd/unit-rebuild --period 2026-08 --continue-on-error
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"bitbucket.org/mmdatafocus/recon_backend/workflow"
	"gorm.io/gorm"
)

func main() {
	unitID := flag.Int("unit-id", 0, "Rebuild a single unit")
	period := flag.String("period", "", "Rebuild every non-terminal unit in a period (YYYY-MM)")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing units and continue rebuilding others")
	flag.Parse()

	if *unitID <= 0 && strings.TrimSpace(*period) == "" {
		fmt.Fprintln(os.Stderr, "--unit-id or --period is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	config.LoadEngineSettings()

	ctx := utils.SetIsSystemInContext(context.Background(), true)

	var ids []int
	if *unitID > 0 {
		ids = append(ids, *unitID)
	} else {
		if _, err := time.Parse("2006-01", strings.TrimSpace(*period)); err != nil {
			fmt.Fprintf(os.Stderr, "invalid period: %v\n", err)
			os.Exit(1)
		}
		if err := db.WithContext(ctx).Model(&models.ReconciliationUnit{}).
			Where("period = ? AND superseded_by_id IS NULL AND status IN ?",
				strings.TrimSpace(*period),
				[]models.UnitStatus{models.UnitStatusPending, models.UnitStatusAutoMatched, models.UnitStatusManualReview}).
			Order("id ASC").Pluck("id", &ids).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to list units: %v\n", err)
			os.Exit(1)
		}
	}

	failures := 0
	for _, id := range ids {
		if err := rebuildUnit(ctx, id); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "unit %d: rebuild failed: %v\n", id, err)
			if !*continueOnError {
				os.Exit(1)
			}
			continue
		}
		fmt.Printf("unit %d: rebuilt\n", id)
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func rebuildUnit(ctx context.Context, unitId int) error {
	db := config.GetDB()
	settings := config.GetEngineSettings()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unit models.ReconciliationUnit
		if err := tx.First(&unit, unitId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if unit.Status.IsTerminal() {
			return fmt.Errorf("%w: unit is %s", utils.ErrUnitTerminal, unit.Status)
		}

		// One rebuild per unit version: re-running the tool after a
		// completed pass is a no-op.
		messageId := fmt.Sprintf("unit:%d:v%d", unit.ID, unit.Version)
		skip, err := workflow.BeginIdempotency(tx, "unit-rebuild", messageId)
		if err != nil {
			return err
		}
		if skip {
			return nil
		}

		var items []models.LineItem
		if err := tx.Where("unit_id = ?", unit.ID).Order("position ASC").Find(&items).Error; err != nil {
			return err
		}

		if reason := validateStoredItems(items); reason != "" {
			// Corrupt derived data: the unit goes to failed with the reason;
			// a fresh submission of the raw records builds a successor.
			if err := workflow.Transition(tx, &unit, models.UnitStatusFailed,
				workflow.TransitionOptions{Note: reason}); err != nil {
				return err
			}
			return workflow.MarkIdempotencySucceeded(tx, "unit-rebuild", messageId)
		}

		var platformItems, entityItems []models.LineItem
		for _, li := range items {
			if li.Source == models.RecordSourcePlatform {
				platformItems = append(platformItems, li)
			} else {
				entityItems = append(entityItems, li)
			}
		}

		pairs := workflow.MatchLineItems(platformItems, entityItems, settings.MatchEpsilon)
		if err := tx.Where("unit_id = ?", unit.ID).Delete(&models.MatchResult{}).Error; err != nil {
			return err
		}
		if err := models.InsertMatchResults(tx, unit.ID, workflow.ToMatchResults(pairs)); err != nil {
			return err
		}

		unit.PlatformAmount, unit.EntityAmount, unit.Difference = workflow.UnitTotals(platformItems, entityItems)
		unit.Confidence = workflow.UnitConfidence(pairs)
		unit.MatchedCount, unit.UnmatchedCount = workflow.MatchCounts(pairs)

		target := models.UnitStatusManualReview
		if unit.Difference.IsZero() && !unit.Confidence.LessThan(settings.AutoMatchThreshold) && len(pairs) > 0 {
			target = models.UnitStatusAutoMatched
		}

		if unit.Status == target {
			err = workflow.RecomputeCommit(tx, &unit, "rebuilt from stored line items")
		} else {
			err = workflow.Transition(tx, &unit, target, workflow.TransitionOptions{Note: "rebuilt from stored line items"})
		}
		if err != nil {
			return err
		}

		return workflow.MarkIdempotencySucceeded(tx, "unit-rebuild", messageId)
	})
}

func validateStoredItems(items []models.LineItem) string {
	currency := ""
	for _, li := range items {
		if li.LineTotal.IsNegative() || li.Quantity.IsNegative() || li.UnitPrice.IsNegative() {
			return fmt.Sprintf("stored line item %d has negative figures", li.ID)
		}
		if currency == "" {
			currency = li.Currency
		} else if li.Currency != currency {
			return fmt.Sprintf("stored line items mix currencies %s and %s", currency, li.Currency)
		}
	}
	return ""
}
