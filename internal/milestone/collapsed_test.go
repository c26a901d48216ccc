package milestone

import (
	"testing"

	"github.com/antigravity-dev/beadsmap/internal/beads"
)

func TestCollapsedSet_Toggle(t *testing.T) {
	s := DefaultCollapsed()
	if !s.Has(UnscheduledName) {
		t.Fatalf("expected default set to fold %s", UnscheduledName)
	}

	next := s.Toggle(UnscheduledName).Toggle("v1")
	if next.Has(UnscheduledName) || !next.Has("v1") {
		t.Fatalf("unexpected toggled set: %v", next.Names())
	}
	if !s.Has(UnscheduledName) || s.Has("v1") {
		t.Fatalf("Toggle mutated the original set: %v", s.Names())
	}
}

func TestCollapsedSet_Apply(t *testing.T) {
	ms := Extract([]beads.Issue{
		{ID: "a", Labels: []string{"milestone:v1"}},
		{ID: "b"},
	})

	applied := NewCollapsedSet("v1").Apply(ms)
	if !applied[0].Collapsed || applied[1].Collapsed {
		t.Fatalf("expected v1 folded and Unscheduled expanded, got %v/%v", applied[0].Collapsed, applied[1].Collapsed)
	}
	if ms[0].Collapsed || !ms[1].Collapsed {
		t.Fatalf("Apply mutated its input")
	}

	var none CollapsedSet
	kept := none.Apply(ms)
	if kept[0].Collapsed || !kept[1].Collapsed {
		t.Fatalf("nil set should keep Extract defaults")
	}
}
