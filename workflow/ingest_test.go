package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/recon_backend/models"
)

func TestFingerprintRecords_IdenticalPayloadsAgree(t *testing.T) {
	a := []RawRecord{
		rawRecord("ORD-1", "RICE", "4", "32000"),
		rawRecord("ORD-2", "OIL", "10", "18500"),
	}
	b := []RawRecord{
		rawRecord("ORD-1", "RICE", "4", "32000"),
		rawRecord("ORD-2", "OIL", "10", "18500"),
	}
	if fingerprintRecords(a) != fingerprintRecords(b) {
		t.Fatal("identical payloads must produce identical fingerprints")
	}
}

func TestFingerprintRecords_OrderMatters(t *testing.T) {
	a := []RawRecord{
		rawRecord("ORD-1", "RICE", "4", "32000"),
		rawRecord("ORD-2", "OIL", "10", "18500"),
	}
	b := []RawRecord{
		rawRecord("ORD-2", "OIL", "10", "18500"),
		rawRecord("ORD-1", "RICE", "4", "32000"),
	}
	// Ingestion order feeds the matcher's FIFO tie-break, so a reordered
	// payload is a revision, not a duplicate.
	if fingerprintRecords(a) == fingerprintRecords(b) {
		t.Fatal("reordered payloads must fingerprint differently")
	}
}

func TestFingerprintRecords_FieldChangeChangesHash(t *testing.T) {
	base := []RawRecord{rawRecord("ORD-1", "RICE", "4", "32000")}
	baseHash := fingerprintRecords(base)

	mutations := []func(*RawRecord){
		func(r *RawRecord) { r.Quantity = "5" },
		func(r *RawRecord) { r.UnitPrice = "32001" },
		func(r *RawRecord) { r.Sku = "RICE-25KG" },
		func(r *RawRecord) { r.OrderNumber = "ORD-9" },
		func(r *RawRecord) { r.Currency = "USD" },
		func(r *RawRecord) { r.Kind = models.RecordKindInvoice },
		func(r *RawRecord) { r.SourceRecordId = "other" },
		func(r *RawRecord) { r.LineTotal = "128000" },
	}
	for i, mutate := range mutations {
		r := rawRecord("ORD-1", "RICE", "4", "32000")
		mutate(&r)
		if fingerprintRecords([]RawRecord{r}) == baseHash {
			t.Errorf("mutation %d did not change the fingerprint", i)
		}
	}
}

func TestFingerprintRecords_EmptyPayload(t *testing.T) {
	if fingerprintRecords(nil) != fingerprintRecords([]RawRecord{}) {
		t.Fatal("nil and empty payloads are the same submission")
	}
	if fingerprintRecords(nil) == fingerprintRecords([]RawRecord{rawRecord("ORD-1", "RICE", "1", "1")}) {
		t.Fatal("empty payload must not collide with a populated one")
	}
}
