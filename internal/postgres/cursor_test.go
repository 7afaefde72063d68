package postgres

import (
	"errors"
	"testing"
	"time"
)

func TestCursor_RoundTrip(t *testing.T) {
	c := Cursor{
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		ID:        "slot-42",
	}
	enc, err := EncodeCursor(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := DecodeCursor(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dec.CreatedAt.Equal(c.CreatedAt) || dec.ID != c.ID {
		t.Fatalf("round trip mismatch: %+v", dec)
	}
}

func TestCursor_EmptyStringIsNil(t *testing.T) {
	dec, err := DecodeCursor("")
	if err != nil || dec != nil {
		t.Fatalf("empty cursor: dec=%v err=%v", dec, err)
	}
}

func TestCursor_GarbageRejected(t *testing.T) {
	for _, s := range []string{"%%%", "bm90IGpzb24"} {
		if _, err := DecodeCursor(s); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("DecodeCursor(%q): err = %v, want ErrInvalidCursor", s, err)
		}
	}
}
