package chat

import (
	"fmt"
	"testing"
)

func TestRecentHistory(t *testing.T) {
	var history []HistoryEntry
	for i := 0; i < 12; i++ {
		history = append(history, HistoryEntry{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}
	turn := &Turn{History: history}

	tests := []struct {
		name      string
		n         int
		wantLen   int
		wantFirst string
	}{
		{"window smaller than history", 5, 5, "m7"},
		{"window equals history", 12, 12, "m0"},
		{"window larger than history", 20, 12, "m0"},
		{"zero window", 0, 0, ""},
		{"negative window", -1, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := turn.RecentHistory(tt.n)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.wantLen > 0 && got[0].Content != tt.wantFirst {
				t.Errorf("first = %q, want %q", got[0].Content, tt.wantFirst)
			}
			// Chronological order must be preserved.
			if tt.wantLen > 1 && got[len(got)-1].Content != "m11" {
				t.Errorf("last = %q, want m11", got[len(got)-1].Content)
			}
		})
	}
}

func TestRecentHistory_EmptyHistory(t *testing.T) {
	turn := &Turn{}
	if got := turn.RecentHistory(5); got != nil {
		t.Errorf("RecentHistory on empty = %v, want nil", got)
	}
}
