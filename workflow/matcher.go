package workflow

import (
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"github.com/shopspring/decimal"
)

// MatchPair is the in-memory pairing outcome for one line; the ingest
// workflow persists these as models.MatchResult rows once line item ids are
// known.
type MatchPair struct {
	Platform   *models.LineItem
	Entity     *models.LineItem
	Kind       models.MatchKind
	Confidence decimal.Decimal
	Variance   decimal.Decimal
}

// MatchLineItems pairs platform-side line items against entity-side line
// items for one reconciliation unit. Pure and deterministic: identical input
// slices always produce identical pairs, in platform ingestion order followed
// by leftover entity items in their ingestion order.
//
// Grouping key is (order_number, sku). Within a duplicate key, candidates are
// consumed FIFO: the first platform row takes the first eligible entity row.
//
// Pass 1 (exact): same key, totals within epsilon -> confidence 1, variance 0.
// Pass 2 (tolerant): same key, differing totals -> signed variance
// (platform - entity), confidence scaled by relative variance.
// Pass 3: platform rows with no counterpart key carry their full total as
// positive variance (platform over-claims); entity-only rows carry negative
// variance (entity claims the platform did not record).
func MatchLineItems(platform []models.LineItem, entity []models.LineItem, epsilon decimal.Decimal) []MatchPair {
	entityByKey := make(map[string][]*models.LineItem)
	for i := range entity {
		key := entity[i].MatchKey()
		entityByKey[key] = append(entityByKey[key], &entity[i])
	}
	consumed := make(map[*models.LineItem]bool)

	pairedEntity := make([]*models.LineItem, len(platform))
	exact := make([]bool, len(platform))

	// Pass 1: exact matches, FIFO within a key.
	for i := range platform {
		key := platform[i].MatchKey()
		for _, candidate := range entityByKey[key] {
			if consumed[candidate] {
				continue
			}
			if platform[i].LineTotal.Sub(candidate.LineTotal).Abs().LessThan(epsilon) {
				consumed[candidate] = true
				pairedEntity[i] = candidate
				exact[i] = true
				break
			}
		}
	}

	// Pass 2: tolerant matches over the leftovers, FIFO within a key.
	for i := range platform {
		if pairedEntity[i] != nil {
			continue
		}
		key := platform[i].MatchKey()
		for _, candidate := range entityByKey[key] {
			if consumed[candidate] {
				continue
			}
			consumed[candidate] = true
			pairedEntity[i] = candidate
			break
		}
	}

	pairs := make([]MatchPair, 0, len(platform)+len(entity))
	for i := range platform {
		p := &platform[i]
		switch {
		case exact[i]:
			pairs = append(pairs, MatchPair{
				Platform:   p,
				Entity:     pairedEntity[i],
				Kind:       models.MatchKindExact,
				Confidence: decimal.NewFromInt(1),
				Variance:   decimal.Zero,
			})
		case pairedEntity[i] != nil:
			e := pairedEntity[i]
			variance := p.LineTotal.Sub(e.LineTotal)
			pairs = append(pairs, MatchPair{
				Platform:   p,
				Entity:     e,
				Kind:       models.MatchKindTolerant,
				Confidence: PairConfidence(variance, p.LineTotal, e.LineTotal),
				Variance:   variance,
			})
		default:
			pairs = append(pairs, MatchPair{
				Platform:   p,
				Kind:       models.MatchKindPlatformOnly,
				Confidence: decimal.Zero,
				Variance:   p.LineTotal,
			})
		}
	}

	// Pass 3b: counterpart-only leftovers, in entity ingestion order.
	for i := range entity {
		e := &entity[i]
		if consumed[e] {
			continue
		}
		pairs = append(pairs, MatchPair{
			Entity:     e,
			Kind:       models.MatchKindEntityOnly,
			Confidence: decimal.Zero,
			Variance:   e.LineTotal.Neg(),
		})
	}

	return pairs
}

// ToMatchResults converts pairs into persistable rows. Line items must have
// been inserted first so their ids are populated.
func ToMatchResults(pairs []MatchPair) []models.MatchResult {
	results := make([]models.MatchResult, 0, len(pairs))
	for _, pair := range pairs {
		result := models.MatchResult{
			Kind:           pair.Kind,
			Confidence:     pair.Confidence,
			VarianceAmount: pair.Variance,
		}
		if pair.Platform != nil {
			id := pair.Platform.ID
			result.PlatformLineId = &id
			result.OrderNumber = pair.Platform.OrderNumber
			result.Sku = pair.Platform.Sku
		}
		if pair.Entity != nil {
			id := pair.Entity.ID
			result.EntityLineId = &id
			if result.OrderNumber == "" {
				result.OrderNumber = pair.Entity.OrderNumber
				result.Sku = pair.Entity.Sku
			}
		}
		results = append(results, result)
	}
	return results
}
