package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	if parts := strings.Split(id, "-"); len(parts) != 5 {
		t.Fatalf("UUIDv7: expected 5 parts, got %d in %q", len(parts), id)
	}
	if len(id) != 36 {
		t.Fatalf("UUIDv7: expected length 36, got %d", len(id))
	}
}

func TestUUIDv7_SortsByTime(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	seen := map[string]struct{}{prev: {}}
	for i := 0; i < 100; i++ {
		id := gen()
		if _, ok := seen[id]; ok {
			t.Fatalf("UUIDv7: duplicate at iteration %d", i)
		}
		seen[id] = struct{}{}
		// Only the 48-bit millisecond prefix is guaranteed monotonic.
		if id[:13] < prev[:13] {
			t.Fatalf("UUIDv7: %q sorts before %q", id, prev)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("bat_", UUIDv7())()
	if !strings.HasPrefix(id, "bat_") || len(id) != 4+36 {
		t.Fatalf("Prefixed: got %q", id)
	}
}

func TestDefault_IsUUIDv7(t *testing.T) {
	id := New()
	if _, err := Parse(id); err != nil {
		t.Fatalf("New: default should produce a valid UUID: %v", err)
	}
}

func TestParse(t *testing.T) {
	original := New()
	parsed, err := Parse(strings.ToUpper(original))
	if err != nil {
		t.Fatalf("Parse valid UUID: %v", err)
	}
	if parsed != original {
		t.Fatalf("Parse: got %q, want %q", parsed, original)
	}
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Fatal("Parse: expected error for invalid UUID")
	}
}
