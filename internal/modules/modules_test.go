package modules

import (
	"strings"
	"testing"
)

func TestAll_StableOrder(t *testing.T) {
	first := All()
	second := All()

	if len(first) != len(catalog) {
		t.Fatalf("All() returned %d ids, want %d", len(first), len(catalog))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("All() order not stable: %v vs %v", first, second)
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i-1] >= first[i] {
			t.Errorf("All() not sorted at index %d: %v", i, first)
		}
	}
}

func TestValid(t *testing.T) {
	for _, id := range All() {
		if !Valid(id) {
			t.Errorf("Valid(%q) = false, want true", id)
		}
	}
	for _, bad := range []ID{"", "nutrition", "SLEEP", "sleep ", "adhd"} {
		if Valid(bad) {
			t.Errorf("Valid(%q) = true, want false", bad)
		}
	}
}

func TestContent_AllModulesNonEmpty(t *testing.T) {
	for _, id := range All() {
		content, ok := Content(id)
		if !ok {
			t.Fatalf("Content(%q) ok = false", id)
		}
		if strings.TrimSpace(content) == "" {
			t.Errorf("Content(%q) is empty", id)
		}
		trigger, ok := Trigger(id)
		if !ok || strings.TrimSpace(trigger) == "" {
			t.Errorf("Trigger(%q) missing or empty", id)
		}
	}
}

func TestContent_UnknownID(t *testing.T) {
	if _, ok := Content("unknown"); ok {
		t.Error("Content(unknown) ok = true, want false")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want ID
	}{
		{"sleep", Sleep},
		{" Sleep ", Sleep},
		{"MEDICATION", Medication},
		{"\tbehavior\n", Behavior},
		{"no-such-module", ID("no-such-module")},
	}
	for _, tt := range tests {
		if got := Normalize(tt.raw); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
