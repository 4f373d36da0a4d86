package workflow

import (
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// PairConfidence scores a tolerant pairing:
//
//	confidence = clamp01(1 - |variance| / max(platformTotal, entityTotal))
//
// Exact matches are scored 1 and unmatched lines 0 by the matcher directly.
func PairConfidence(variance, platformTotal, entityTotal decimal.Decimal) decimal.Decimal {
	base := platformTotal
	if entityTotal.GreaterThan(base) {
		base = entityTotal
	}
	if base.IsZero() {
		if variance.IsZero() {
			return one
		}
		return decimal.Zero
	}
	confidence := one.Sub(variance.Abs().Div(base))
	if confidence.IsNegative() {
		return decimal.Zero
	}
	if confidence.GreaterThan(one) {
		return one
	}
	return confidence
}

// UnitConfidence is the weighted average of pair confidences, weighted by
// line total magnitude so a single large discrepancy outweighs many small
// agreements.
func UnitConfidence(pairs []MatchPair) decimal.Decimal {
	if len(pairs) == 0 {
		return decimal.Zero
	}

	weighted := decimal.Zero
	totalWeight := decimal.Zero
	for _, pair := range pairs {
		weight := pairWeight(pair)
		weighted = weighted.Add(pair.Confidence.Mul(weight))
		totalWeight = totalWeight.Add(weight)
	}
	if totalWeight.IsZero() {
		// All-zero line totals: fall back to an unweighted mean.
		sum := decimal.Zero
		for _, pair := range pairs {
			sum = sum.Add(pair.Confidence)
		}
		return sum.Div(decimal.NewFromInt(int64(len(pairs))))
	}
	return weighted.Div(totalWeight)
}

func pairWeight(pair MatchPair) decimal.Decimal {
	weight := decimal.Zero
	if pair.Platform != nil {
		weight = pair.Platform.LineTotal.Abs()
	}
	if pair.Entity != nil && pair.Entity.LineTotal.Abs().GreaterThan(weight) {
		weight = pair.Entity.LineTotal.Abs()
	}
	return weight
}

// UnitTotals sums each side's line totals. Both matched and unmatched lines
// count: each side claims those amounts regardless of match status.
// difference = platform - entity; positive means the platform over-claims.
func UnitTotals(platform []models.LineItem, entity []models.LineItem) (platformAmount, entityAmount, difference decimal.Decimal) {
	platformAmount = decimal.Zero
	for _, li := range platform {
		platformAmount = platformAmount.Add(li.LineTotal)
	}
	entityAmount = decimal.Zero
	for _, li := range entity {
		entityAmount = entityAmount.Add(li.LineTotal)
	}
	return platformAmount, entityAmount, platformAmount.Sub(entityAmount)
}

// MatchCounts tallies matched vs unmatched pairs for the unit row.
func MatchCounts(pairs []MatchPair) (matched, unmatched int) {
	for _, pair := range pairs {
		if pair.Kind == models.MatchKindExact || pair.Kind == models.MatchKindTolerant {
			matched++
		} else {
			unmatched++
		}
	}
	return matched, unmatched
}
