package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SubmissionInput struct {
	EntityId int                 `json:"entity_id" binding:"required"`
	Period   string              `json:"period" binding:"required"`
	Source   models.RecordSource `json:"source" binding:"required"`
	Records  []RawRecord         `json:"records"`
}

type SubmissionResult struct {
	Unit *models.ReconciliationUnit `json:"unit"`
	// NoOp is true when an identical payload had already been ingested:
	// nothing changed, no audit event was written.
	NoOp bool `json:"no_op"`
}

// ProcessSubmission runs the full ingestion pipeline for one side's records:
// fingerprint dedupe, normalize, match, score, and the resulting status
// transition — all inside one transaction, serialized per (entity, period).
//
// Idempotency rules (per entity/period/source):
// - identical payload: no-op, current unit returned unchanged
// - revised payload, unit not terminal: matcher/scorer re-run on the unit
// - revised payload, unit terminal: a successor unit is created; the old
//   unit is never mutated beyond the supersession link
func ProcessSubmission(ctx context.Context, logger *logrus.Logger, input SubmissionInput) (*SubmissionResult, error) {
	if _, err := time.Parse("2006-01", input.Period); err != nil {
		return nil, fmt.Errorf("%w: period %q is not YYYY-MM", utils.ErrMalformedRecord, input.Period)
	}
	if _, err := models.ParseRecordSource(string(input.Source)); err != nil {
		return nil, fmt.Errorf("%w: source %q", utils.ErrUnknownSource, input.Source)
	}

	entity, err := models.GetEntity(ctx, input.EntityId)
	if err != nil {
		return nil, err
	}

	lineItems, err := NormalizeRecords(input.Source, input.Records)
	if err != nil {
		return nil, err
	}

	payloadHash := fingerprintRecords(input.Records)

	// Serialize submissions per unit. Best-effort: when Redis is absent the
	// optimistic version check still rejects the losing writer.
	unlock, err := acquireUnitLock(ctx, input.EntityId, input.Period)
	if err != nil {
		return nil, err
	}
	defer unlock()

	settings := config.GetEngineSettings()
	db := config.GetDB()

	var result SubmissionResult
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fingerprints []models.SubmissionFingerprint
		if err := tx.Where("entity_id = ? AND period = ? AND source = ?",
			input.EntityId, input.Period, input.Source).Limit(1).Find(&fingerprints).Error; err != nil {
			return err
		}

		unit, err := models.GetCurrentUnit(ctx, tx, input.EntityId, input.Period)
		if err != nil {
			return err
		}

		if len(fingerprints) > 0 && fingerprints[0].PayloadHash == payloadHash && unit != nil {
			result = SubmissionResult{Unit: unit, NoOp: true}
			return nil
		}

		// Carry the counterparty side forward: the other source's rows from
		// the current unit stay in play for the re-match.
		var otherSide []models.LineItem
		if unit != nil {
			otherSource := models.RecordSourcePlatform
			if input.Source == models.RecordSourcePlatform {
				otherSource = models.RecordSourceEntity
			}
			if err := tx.Where("unit_id = ? AND source = ?", unit.ID, otherSource).
				Order("position ASC").Find(&otherSide).Error; err != nil {
				return err
			}
		}

		if len(lineItems) > 0 && len(otherSide) > 0 && lineItems[0].Currency != otherSide[0].Currency {
			return fmt.Errorf("%w: %s vs %s", utils.ErrCurrencyMismatch, lineItems[0].Currency, otherSide[0].Currency)
		}

		if unit != nil && unit.Status.IsTerminal() {
			successor := models.ReconciliationUnit{
				Type:     unit.Type,
				EntityId: unit.EntityId,
				Period:   unit.Period,
				Status:   models.UnitStatusPending,
				Version:  1,
			}
			if err := tx.Create(&successor).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.ReconciliationUnit{}).
				Where("id = ?", unit.ID).
				Update("superseded_by_id", successor.ID).Error; err != nil {
				return err
			}
			unit = &successor
		}

		if unit == nil {
			unit = &models.ReconciliationUnit{
				Type:     models.UnitTypeForEntity(entity.Kind),
				EntityId: input.EntityId,
				Period:   input.Period,
				Status:   models.UnitStatusPending,
				Version:  1,
			}
			if err := tx.Create(unit).Error; err != nil {
				return err
			}
		}

		// Fresh rows for both sides: the submitted side replaces its
		// previous records, the carried side is re-inserted untouched.
		combined := make([]models.LineItem, 0, len(otherSide)+len(lineItems))
		for _, li := range otherSide {
			li.ID = 0
			combined = append(combined, li)
		}
		combined = append(combined, lineItems...)

		inserted, err := models.ReplaceUnitLineItems(tx, unit.ID, combined)
		if err != nil {
			return err
		}

		var platformItems, entityItems []models.LineItem
		for _, li := range inserted {
			if li.Source == models.RecordSourcePlatform {
				platformItems = append(platformItems, li)
			} else {
				entityItems = append(entityItems, li)
			}
		}

		pairs := MatchLineItems(platformItems, entityItems, settings.MatchEpsilon)
		if err := models.InsertMatchResults(tx, unit.ID, ToMatchResults(pairs)); err != nil {
			return err
		}

		unit.PlatformAmount, unit.EntityAmount, unit.Difference = UnitTotals(platformItems, entityItems)
		unit.Confidence = UnitConfidence(pairs)
		unit.MatchedCount, unit.UnmatchedCount = MatchCounts(pairs)

		target := models.UnitStatusManualReview
		if unit.Difference.IsZero() && !unit.Confidence.LessThan(settings.AutoMatchThreshold) && len(pairs) > 0 {
			target = models.UnitStatusAutoMatched
		}

		if unit.Status == target {
			err = RecomputeCommit(tx, unit, "re-matched on revised records; outcome unchanged")
		} else {
			err = Transition(tx, unit, target, TransitionOptions{Note: "matching completed"})
		}
		if err != nil {
			return err
		}

		if err := upsertFingerprint(tx, fingerprints, input, payloadHash, unit.ID); err != nil {
			return err
		}

		result = SubmissionResult{Unit: unit}
		return nil
	})
	if err != nil {
		config.LogError(logger, "ingestWorkflow.go", "ProcessSubmission", "submission transaction",
			map[string]interface{}{"entity_id": input.EntityId, "period": input.Period, "source": input.Source}, err)
		return nil, err
	}

	return &result, nil
}

func upsertFingerprint(tx *gorm.DB, existing []models.SubmissionFingerprint, input SubmissionInput, payloadHash string, unitId int) error {
	if len(existing) > 0 {
		return tx.Model(&models.SubmissionFingerprint{}).
			Where("id = ?", existing[0].ID).
			Updates(map[string]interface{}{"payload_hash": payloadHash, "unit_id": unitId}).Error
	}
	return tx.Create(&models.SubmissionFingerprint{
		EntityId:    input.EntityId,
		Period:      input.Period,
		Source:      input.Source,
		PayloadHash: payloadHash,
		UnitId:      unitId,
	}).Error
}

// fingerprintRecords hashes the canonicalized record set. Field order and
// record order are part of the identity: the matcher's FIFO tie-break makes
// ingestion order meaningful.
func fingerprintRecords(records []RawRecord) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%s|%s|%s\n",
			r.Kind, r.SourceRecordId, r.OrderNumber, r.Sku, r.Quantity, r.UnitPrice, r.LineTotal, r.Currency)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func acquireUnitLock(ctx context.Context, entityId int, period string) (func(), error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("recon:unit:%d:%s", entityId, period)
	lock, err := locker.Obtain(ctx, key, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if err != nil {
		if err == redislock.ErrNotObtained {
			return nil, utils.ErrConcurrentModification
		}
		// Redis being down must not take ingestion down with it.
		return func() {}, nil
	}
	return func() { _ = lock.Release(context.Background()) }, nil
}
