package workflow

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
)

func rawRecord(orderNumber, sku, quantity, unitPrice string) RawRecord {
	return RawRecord{
		Kind:           models.RecordKindOrder,
		SourceRecordId: orderNumber + "-" + sku,
		OrderNumber:    orderNumber,
		Sku:            sku,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		Currency:       "MMK",
	}
}

func TestNormalizeRecords_HappyPath(t *testing.T) {
	records := []RawRecord{
		rawRecord("ORD-1", "RICE", "4", "32000"),
		rawRecord("ORD-2", "OIL", "10", "18500"),
	}
	items, err := NormalizeRecords(models.RecordSourcePlatform, records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(items))
	}
	if !items[0].LineTotal.Equal(dec("128000")) {
		t.Fatalf("line total must default to quantity*unit_price, got %s", items[0].LineTotal)
	}
	for i, li := range items {
		if li.Position != i {
			t.Fatalf("position must follow submission order: item %d has position %d", i, li.Position)
		}
		if li.Source != models.RecordSourcePlatform {
			t.Fatalf("source not stamped: %+v", li)
		}
	}
}

func TestNormalizeRecords_EmptyInputIsNotAnError(t *testing.T) {
	items, err := NormalizeRecords(models.RecordSourceEntity, nil)
	if err != nil {
		t.Fatalf("empty submission must normalize cleanly, got %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestNormalizeRecords_UnknownKind(t *testing.T) {
	r := rawRecord("ORD-1", "RICE", "1", "100")
	r.Kind = models.RecordKind("PurchaseOrder")
	_, err := NormalizeRecords(models.RecordSourcePlatform, []RawRecord{r})
	if !errors.Is(err, utils.ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func TestNormalizeRecords_MissingRequiredField(t *testing.T) {
	r := rawRecord("ORD-1", "", "1", "100")
	_, err := NormalizeRecords(models.RecordSourcePlatform, []RawRecord{r})
	if !errors.Is(err, utils.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord for missing sku, got %v", err)
	}
}

func TestNormalizeRecords_BadNumbers(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RawRecord)
	}{
		{"non-numeric quantity", func(r *RawRecord) { r.Quantity = "four" }},
		{"negative quantity", func(r *RawRecord) { r.Quantity = "-4" }},
		{"non-numeric price", func(r *RawRecord) { r.UnitPrice = "cheap" }},
		{"negative price", func(r *RawRecord) { r.UnitPrice = "-1" }},
		{"negative claimed total", func(r *RawRecord) { r.LineTotal = "-100" }},
	}
	for _, tc := range cases {
		r := rawRecord("ORD-1", "RICE", "4", "100")
		tc.mutate(&r)
		_, err := NormalizeRecords(models.RecordSourcePlatform, []RawRecord{r})
		if !errors.Is(err, utils.ErrMalformedRecord) {
			t.Errorf("%s: expected ErrMalformedRecord, got %v", tc.name, err)
		}
	}
}

func TestNormalizeRecords_ClaimedTotalDisagrees(t *testing.T) {
	r := rawRecord("ORD-1", "RICE", "4", "100")
	r.LineTotal = "500"
	_, err := NormalizeRecords(models.RecordSourcePlatform, []RawRecord{r})
	if !errors.Is(err, utils.ErrMalformedRecord) {
		t.Fatalf("claimed total disagreeing with quantity*unit_price must be rejected, got %v", err)
	}

	// Within rounding it is accepted and kept as submitted.
	r.LineTotal = "400.004"
	items, err := NormalizeRecords(models.RecordSourcePlatform, []RawRecord{r})
	if err != nil {
		t.Fatalf("sub-cent disagreement must pass: %v", err)
	}
	if !items[0].LineTotal.Equal(dec("400.004")) {
		t.Fatalf("claimed total must be kept, got %s", items[0].LineTotal)
	}
}

func TestNormalizeRecords_MixedCurrencyRejected(t *testing.T) {
	a := rawRecord("ORD-1", "RICE", "1", "100")
	b := rawRecord("ORD-2", "OIL", "1", "50")
	b.Currency = "USD"
	_, err := NormalizeRecords(models.RecordSourcePlatform, []RawRecord{a, b})
	if !errors.Is(err, utils.ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestNormalizeRecords_CurrencyNormalizedToUpper(t *testing.T) {
	a := rawRecord("ORD-1", "RICE", "1", "100")
	a.Currency = "mmk"
	items, err := NormalizeRecords(models.RecordSourcePlatform, []RawRecord{a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].Currency != "MMK" {
		t.Fatalf("currency must be upper-cased, got %s", items[0].Currency)
	}
}
