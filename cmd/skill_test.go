package cmd

import (
	"testing"

	"github.com/abhisek/kidquest/internal/skillgraph"
)

func TestMergeSkills(t *testing.T) {
	existing := []skillgraph.Skill{
		{ID: "a", Difficulty: 1},
		{ID: "b", Difficulty: 1},
	}
	incoming := []skillgraph.Skill{
		{ID: "b", Difficulty: 3},
		{ID: "c", Difficulty: 2},
	}

	got := mergeSkills(existing, incoming)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[1].ID != "b" || got[1].Difficulty != 3 {
		t.Errorf("b not overlaid: %+v", got[1])
	}
	if got[2].ID != "c" {
		t.Errorf("order = %v", []string{got[0].ID, got[1].ID, got[2].ID})
	}
}

func TestTruncateAndCost(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
	if got := formatCost(0.005); got != "$0.0050" {
		t.Errorf("formatCost small = %q", got)
	}
	if got := formatCost(1.5); got != "$1.50" {
		t.Errorf("formatCost = %q", got)
	}
}
