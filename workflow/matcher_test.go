package workflow

import (
	"reflect"
	"testing"

	"bitbucket.org/mmdatafocus/recon_backend/models"
	"github.com/shopspring/decimal"
)

var testEpsilon = decimal.NewFromFloat(0.01)

func line(source models.RecordSource, orderNumber, sku, total string, position int) models.LineItem {
	d := decimal.RequireFromString(total)
	return models.LineItem{
		Source:      source,
		OrderNumber: orderNumber,
		Sku:         sku,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   d,
		LineTotal:   d,
		Currency:    "MMK",
		Position:    position,
	}
}

func platformLine(orderNumber, sku, total string, position int) models.LineItem {
	return line(models.RecordSourcePlatform, orderNumber, sku, total, position)
}

func entityLine(orderNumber, sku, total string, position int) models.LineItem {
	return line(models.RecordSourceEntity, orderNumber, sku, total, position)
}

func pairShape(pairs []MatchPair) []string {
	shapes := make([]string, 0, len(pairs))
	for _, p := range pairs {
		s := string(p.Kind) + ":"
		if p.Platform != nil {
			s += p.Platform.OrderNumber + "/" + p.Platform.Sku
		}
		s += "|"
		if p.Entity != nil {
			s += p.Entity.OrderNumber + "/" + p.Entity.Sku
		}
		s += "|" + p.Variance.String()
		shapes = append(shapes, s)
	}
	return shapes
}

func TestMatchLineItems_AllExact(t *testing.T) {
	platform := []models.LineItem{
		platformLine("ORD-1", "RICE", "128000", 0),
		platformLine("ORD-2", "OIL", "185000", 1),
	}
	entity := []models.LineItem{
		entityLine("ORD-2", "OIL", "185000", 0),
		entityLine("ORD-1", "RICE", "128000", 1),
	}

	pairs := MatchLineItems(platform, entity, testEpsilon)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	for _, p := range pairs {
		if p.Kind != models.MatchKindExact {
			t.Fatalf("expected exact match, got %s", p.Kind)
		}
		if !p.Variance.IsZero() {
			t.Fatalf("exact match must carry zero variance, got %s", p.Variance)
		}
		if !p.Confidence.Equal(decimal.NewFromInt(1)) {
			t.Fatalf("exact match must carry confidence 1, got %s", p.Confidence)
		}
	}
	// Output follows platform ingestion order regardless of entity order.
	if pairs[0].Platform.OrderNumber != "ORD-1" || pairs[1].Platform.OrderNumber != "ORD-2" {
		t.Fatalf("pairs not in platform ingestion order: %v", pairShape(pairs))
	}
}

func TestMatchLineItems_Deterministic(t *testing.T) {
	platform := []models.LineItem{
		platformLine("ORD-1", "RICE", "100", 0),
		platformLine("ORD-1", "RICE", "200", 1),
		platformLine("ORD-3", "SALT", "50", 2),
	}
	entity := []models.LineItem{
		entityLine("ORD-1", "RICE", "200", 0),
		entityLine("ORD-1", "RICE", "90", 1),
		entityLine("ORD-4", "OIL", "75", 2),
	}

	base := pairShape(MatchLineItems(platform, entity, testEpsilon))
	for i := 0; i < 50; i++ {
		got := pairShape(MatchLineItems(platform, entity, testEpsilon))
		if !reflect.DeepEqual(base, got) {
			t.Fatalf("run %d produced different pairs:\n%v\nvs\n%v", i, base, got)
		}
	}
}

func TestMatchLineItems_DuplicateKeyFIFO(t *testing.T) {
	// Two platform rows share (order, sku); neither total matches exactly.
	// The first platform row must take the first entity row, not the closest.
	platform := []models.LineItem{
		platformLine("ORD-1", "RICE", "100", 0),
		platformLine("ORD-1", "RICE", "300", 1),
	}
	entity := []models.LineItem{
		entityLine("ORD-1", "RICE", "290", 0),
		entityLine("ORD-1", "RICE", "110", 1),
	}

	pairs := MatchLineItems(platform, entity, testEpsilon)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if !pairs[0].Entity.LineTotal.Equal(decimal.RequireFromString("290")) {
		t.Fatalf("FIFO violated: first platform row paired with %s", pairs[0].Entity.LineTotal)
	}
	if !pairs[1].Entity.LineTotal.Equal(decimal.RequireFromString("110")) {
		t.Fatalf("FIFO violated: second platform row paired with %s", pairs[1].Entity.LineTotal)
	}
}

func TestMatchLineItems_ExactBeatsFIFOOrder(t *testing.T) {
	// An exact candidate later in the list wins over an earlier tolerant one.
	platform := []models.LineItem{
		platformLine("ORD-1", "RICE", "100", 0),
	}
	entity := []models.LineItem{
		entityLine("ORD-1", "RICE", "150", 0),
		entityLine("ORD-1", "RICE", "100", 1),
	}

	pairs := MatchLineItems(platform, entity, testEpsilon)
	if pairs[0].Kind != models.MatchKindExact {
		t.Fatalf("expected exact pairing, got %s", pairs[0].Kind)
	}
	if !pairs[0].Entity.LineTotal.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("exact pass must pick the equal-total candidate, got %s", pairs[0].Entity.LineTotal)
	}
	// The leftover tolerant candidate surfaces as entity-only.
	if pairs[1].Kind != models.MatchKindEntityOnly {
		t.Fatalf("expected leftover entity-only pair, got %s", pairs[1].Kind)
	}
}

func TestMatchLineItems_OneSideEmpty(t *testing.T) {
	entity := []models.LineItem{
		entityLine("ORD-1", "RICE", "100", 0),
		entityLine("ORD-2", "OIL", "50", 1),
	}

	pairs := MatchLineItems(nil, entity, testEpsilon)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	for i, p := range pairs {
		if p.Kind != models.MatchKindEntityOnly {
			t.Fatalf("pair %d: expected entity-only, got %s", i, p.Kind)
		}
		if !p.Variance.IsNegative() {
			t.Fatalf("pair %d: entity-only variance must be negative, got %s", i, p.Variance)
		}
		if !p.Confidence.IsZero() {
			t.Fatalf("pair %d: unmatched confidence must be 0, got %s", i, p.Confidence)
		}
	}
}

func TestMatchLineItems_UnmatchedVarianceSigns(t *testing.T) {
	platform := []models.LineItem{platformLine("ORD-1", "RICE", "100", 0)}
	entity := []models.LineItem{entityLine("ORD-2", "OIL", "40", 0)}

	pairs := MatchLineItems(platform, entity, testEpsilon)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Kind != models.MatchKindPlatformOnly || !pairs[0].Variance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("platform-only row must carry +total variance: %v", pairShape(pairs))
	}
	if pairs[1].Kind != models.MatchKindEntityOnly || !pairs[1].Variance.Equal(decimal.RequireFromString("-40")) {
		t.Fatalf("entity-only row must carry -total variance: %v", pairShape(pairs))
	}
}

func TestMatchLineItems_ToleranceWithinEpsilon(t *testing.T) {
	platform := []models.LineItem{platformLine("ORD-1", "RICE", "100.000", 0)}
	entity := []models.LineItem{entityLine("ORD-1", "RICE", "100.005", 0)}

	pairs := MatchLineItems(platform, entity, testEpsilon)
	if pairs[0].Kind != models.MatchKindExact {
		t.Fatalf("sub-epsilon difference must count as exact, got %s", pairs[0].Kind)
	}
	if !pairs[0].Variance.IsZero() {
		t.Fatalf("exact match variance must be zero, got %s", pairs[0].Variance)
	}
}

func TestToMatchResults_WiresLineIds(t *testing.T) {
	p := platformLine("ORD-1", "RICE", "100", 0)
	p.ID = 11
	e := entityLine("ORD-1", "RICE", "90", 0)
	e.ID = 22

	pairs := MatchLineItems([]models.LineItem{p}, []models.LineItem{e}, testEpsilon)
	results := ToMatchResults(pairs)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.PlatformLineId == nil || *r.PlatformLineId != 11 {
		t.Fatalf("platform line id not wired: %+v", r)
	}
	if r.EntityLineId == nil || *r.EntityLineId != 22 {
		t.Fatalf("entity line id not wired: %+v", r)
	}
	if r.Kind != models.MatchKindTolerant {
		t.Fatalf("expected tolerant kind, got %s", r.Kind)
	}
	if r.OrderNumber != "ORD-1" || r.Sku != "RICE" {
		t.Fatalf("match key not carried: %+v", r)
	}
}
