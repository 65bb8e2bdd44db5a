package hashing

import (
	"strings"
	"testing"
)

func TestSHA256Deterministic(t *testing.T) {
	t.Parallel()
	a := SHA256([]byte("hello"))
	b := SHA256([]byte("hello"))
	if a != b {
		t.Fatalf("same bytes hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == SHA256([]byte("hello!")) {
		t.Fatalf("different bytes produced identical digest")
	}
}

func TestSHA256JSONSortsMapKeys(t *testing.T) {
	t.Parallel()
	a, err := SHA256JSON(map[string]any{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("SHA256JSON: %v", err)
	}
	b, err := SHA256JSON(map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("SHA256JSON: %v", err)
	}
	if a != b {
		t.Fatalf("key order changed digest: %s vs %s", a, b)
	}
}

func TestShortJSONPrefix(t *testing.T) {
	t.Parallel()
	full, err := SHA256JSON(map[string]any{"limit": 100})
	if err != nil {
		t.Fatalf("SHA256JSON: %v", err)
	}
	short, err := ShortJSON(map[string]any{"limit": 100})
	if err != nil {
		t.Fatalf("ShortJSON: %v", err)
	}
	if len(short) != 16 || !strings.HasPrefix(full, short) {
		t.Fatalf("short digest %q is not a 16-char prefix of %q", short, full)
	}
}
