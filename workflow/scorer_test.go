package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/recon_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPairConfidence_Formula(t *testing.T) {
	// 1 - |10| / 100 = 0.9
	got := PairConfidence(dec("10"), dec("100"), dec("90"))
	if !got.Equal(dec("0.9")) {
		t.Fatalf("expected 0.9, got %s", got)
	}
	// base is the larger side: 1 - |50| / 200 = 0.75
	got = PairConfidence(dec("-50"), dec("150"), dec("200"))
	if !got.Equal(dec("0.75")) {
		t.Fatalf("expected 0.75, got %s", got)
	}
}

func TestPairConfidence_Clamping(t *testing.T) {
	// Variance larger than the base clamps to 0, never negative.
	got := PairConfidence(dec("500"), dec("100"), dec("100"))
	if !got.IsZero() {
		t.Fatalf("expected clamp to 0, got %s", got)
	}
	if got.IsNegative() {
		t.Fatalf("confidence must never be negative, got %s", got)
	}
}

func TestPairConfidence_ZeroBase(t *testing.T) {
	if got := PairConfidence(decimal.Zero, decimal.Zero, decimal.Zero); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("two zero-total lines agree; expected 1, got %s", got)
	}
	if got := PairConfidence(dec("5"), decimal.Zero, decimal.Zero); !got.IsZero() {
		t.Fatalf("variance against zero base is full disagreement; expected 0, got %s", got)
	}
}

func TestPairConfidence_Monotonic(t *testing.T) {
	prev := decimal.NewFromInt(1)
	for _, v := range []string{"0", "5", "10", "25", "50", "99"} {
		got := PairConfidence(dec(v), dec("100"), dec("100"))
		if got.GreaterThan(prev) {
			t.Fatalf("confidence must not increase with variance: %s at variance %s > %s", got, v, prev)
		}
		prev = got
	}
}

func TestUnitConfidence_Empty(t *testing.T) {
	if got := UnitConfidence(nil); !got.IsZero() {
		t.Fatalf("expected 0 for no pairs, got %s", got)
	}
}

func TestUnitConfidence_WeightedDominance(t *testing.T) {
	big := platformLine("ORD-1", "RICE", "10000", 0)
	bigEntity := entityLine("ORD-1", "RICE", "5000", 0)
	small := platformLine("ORD-2", "SALT", "10", 1)
	smallEntity := entityLine("ORD-2", "SALT", "10", 1)

	pairs := []MatchPair{
		{Platform: &big, Entity: &bigEntity, Kind: models.MatchKindTolerant,
			Confidence: PairConfidence(dec("5000"), dec("10000"), dec("5000")), Variance: dec("5000")},
		{Platform: &small, Entity: &smallEntity, Kind: models.MatchKindExact,
			Confidence: decimal.NewFromInt(1), Variance: decimal.Zero},
	}

	got := UnitConfidence(pairs)
	// Unweighted mean would be 0.75; the large discrepancy must pull the
	// weighted mean well below that.
	if !got.LessThan(dec("0.75")) {
		t.Fatalf("large discrepancy must dominate: got %s", got)
	}
	if got.LessThan(decimal.Zero) || got.GreaterThan(decimal.NewFromInt(1)) {
		t.Fatalf("unit confidence out of [0,1]: %s", got)
	}
}

func TestUnitConfidence_AllZeroWeightsFallsBackUnweighted(t *testing.T) {
	a := platformLine("ORD-1", "RICE", "0", 0)
	ae := entityLine("ORD-1", "RICE", "0", 0)
	pairs := []MatchPair{
		{Platform: &a, Entity: &ae, Kind: models.MatchKindExact, Confidence: decimal.NewFromInt(1)},
		{Platform: &a, Entity: &ae, Kind: models.MatchKindExact, Confidence: decimal.Zero},
	}
	if got := UnitConfidence(pairs); !got.Equal(dec("0.5")) {
		t.Fatalf("expected unweighted mean 0.5, got %s", got)
	}
}

func TestUnitTotals_DifferenceSign(t *testing.T) {
	platform := []models.LineItem{
		platformLine("ORD-1", "RICE", "120000", 0),
		platformLine("ORD-2", "OIL", "60000", 1),
	}
	entity := []models.LineItem{
		entityLine("ORD-1", "RICE", "120000", 0),
		entityLine("ORD-2", "OIL", "62400", 1),
	}

	platformAmount, entityAmount, difference := UnitTotals(platform, entity)
	if !platformAmount.Equal(dec("180000")) {
		t.Fatalf("platform amount: got %s", platformAmount)
	}
	if !entityAmount.Equal(dec("182400")) {
		t.Fatalf("entity amount: got %s", entityAmount)
	}
	// platform - entity: the entity claims more, so the difference is negative.
	if !difference.Equal(dec("-2400")) {
		t.Fatalf("difference: expected -2400, got %s", difference)
	}
}

func TestUnitTotals_UnmatchedLinesStillCount(t *testing.T) {
	platform := []models.LineItem{platformLine("ORD-1", "RICE", "100", 0)}
	entity := []models.LineItem{entityLine("ORD-9", "OIL", "40", 0)}

	platformAmount, entityAmount, difference := UnitTotals(platform, entity)
	if !platformAmount.Equal(dec("100")) || !entityAmount.Equal(dec("40")) {
		t.Fatalf("totals must include unmatched lines: %s / %s", platformAmount, entityAmount)
	}
	if !difference.Equal(dec("60")) {
		t.Fatalf("expected difference 60, got %s", difference)
	}
}

func TestMatchCounts(t *testing.T) {
	p := platformLine("ORD-1", "RICE", "100", 0)
	e := entityLine("ORD-1", "RICE", "100", 0)
	pairs := []MatchPair{
		{Platform: &p, Entity: &e, Kind: models.MatchKindExact},
		{Platform: &p, Entity: &e, Kind: models.MatchKindTolerant},
		{Platform: &p, Kind: models.MatchKindPlatformOnly},
		{Entity: &e, Kind: models.MatchKindEntityOnly},
	}
	matched, unmatched := MatchCounts(pairs)
	if matched != 2 || unmatched != 2 {
		t.Fatalf("expected 2/2, got %d/%d", matched, unmatched)
	}
}
