package models

import "testing"

func TestCompositeCursorRoundTrip(t *testing.T) {
	cursor := EncodeCompositeCursor("2026-08-30 12:34:56.000000", 42)
	if cursor == "" {
		t.Fatal("expected a cursor")
	}
	createdAt, id := DecodeCompositeCursor(&cursor)
	if createdAt != "2026-08-30 12:34:56.000000" {
		t.Fatalf("createdAt mismatch: %q", createdAt)
	}
	if id != 42 {
		t.Fatalf("id mismatch: %d", id)
	}
}

func TestDecodeCompositeCursor_Garbage(t *testing.T) {
	for _, raw := range []string{"", "not-base64!!", "bm9wZQ=="} {
		v := raw
		createdAt, id := DecodeCompositeCursor(&v)
		if createdAt != "" || id != 0 {
			t.Fatalf("garbage cursor %q must decode to zero values, got %q/%d", raw, createdAt, id)
		}
	}
}

func TestDecodeCompositeCursor_Nil(t *testing.T) {
	createdAt, id := DecodeCompositeCursor(nil)
	if createdAt != "" || id != 0 {
		t.Fatalf("nil cursor must decode to zero values, got %q/%d", createdAt, id)
	}
}
