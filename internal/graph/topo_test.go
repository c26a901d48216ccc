package graph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/antigravity-dev/beadsmap/internal/beads"
)

func sortedIDs(issues []beads.Issue) []string {
	return beads.IDs(TopoSort(issues, Build(issues).Edges))
}

func positions(ids []string) map[string]int {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	return pos
}

func TestTopoSort_RespectsEdges(t *testing.T) {
	issues := []beads.Issue{
		{ID: "deploy", Priority: 0, Dependencies: []beads.Dependency{blocks("build"), blocks("test")}},
		{ID: "test", Priority: 1, Dependencies: []beads.Dependency{blocks("build")}},
		{ID: "build", Priority: 3},
		{ID: "docs", Priority: 2},
	}

	got := sortedIDs(issues)
	want := []string{"docs", "build", "test", "deploy"}
	if !equalStringSlice(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTopoSort_PrefersUrgentReadyWork(t *testing.T) {
	issues := []beads.Issue{
		{ID: "low", Priority: 4},
		{ID: "blocker", Priority: 3},
		{ID: "urgent", Priority: 0, Dependencies: []beads.Dependency{blocks("blocker")}},
		{ID: "mid", Priority: 2},
	}

	got := sortedIDs(issues)
	want := []string{"mid", "blocker", "urgent", "low"}
	if !equalStringSlice(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTopoSort_TiesKeepCollectionOrder(t *testing.T) {
	issues := []beads.Issue{
		{ID: "c", Priority: 2},
		{ID: "a", Priority: 2},
		{ID: "b", Priority: 2},
	}
	if got := sortedIDs(issues); !equalStringSlice(got, []string{"c", "a", "b"}) {
		t.Fatalf("expected collection order, got %v", got)
	}
}

func TestTopoSort_CycleAppendsRemainderInCollectionOrder(t *testing.T) {
	issues := []beads.Issue{
		{ID: "a", Dependencies: []beads.Dependency{blocks("b")}},
		{ID: "b", Dependencies: []beads.Dependency{blocks("a")}},
		{ID: "free", Priority: 3},
		{ID: "after", Dependencies: []beads.Dependency{blocks("a")}},
	}

	got := sortedIDs(issues)
	want := []string{"free", "a", "b", "after"}
	if !equalStringSlice(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTopoSort_SelfLoopTerminates(t *testing.T) {
	issues := []beads.Issue{{ID: "a", Dependencies: []beads.Dependency{blocks("a")}}}
	if got := sortedIDs(issues); !equalStringSlice(got, []string{"a"}) {
		t.Fatalf("expected [a], got %v", got)
	}
}

func TestTopoSort_IgnoresUnknownEdges(t *testing.T) {
	issues := []beads.Issue{{ID: "a"}, {ID: "b"}}
	edges := []Edge{{From: "ghost", To: "a"}, {From: "b", To: "phantom"}}

	got := beads.IDs(TopoSort(issues, edges))
	if !equalStringSlice(got, []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func TestTopoSort_DuplicateIDsAreAllEmitted(t *testing.T) {
	issues := []beads.Issue{{ID: "a", Title: "first"}, {ID: "b"}, {ID: "a", Title: "second"}}

	got := TopoSort(issues, nil)
	if len(got) != 3 {
		t.Fatalf("expected every record, got %d", len(got))
	}
	if got[2].Title != "second" {
		t.Fatalf("expected duplicate record in the tail, got %+v", got)
	}
}

func TestTopoSort_EmptyInput(t *testing.T) {
	if got := TopoSort(nil, nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

// randomIssues builds n issues where each may be blocked by earlier issues,
// plus optional back edges that introduce cycles.
func randomIssues(r *rand.Rand, n int, cyclic bool) []beads.Issue {
	issues := make([]beads.Issue, n)
	for i := range issues {
		issues[i] = beads.Issue{ID: fmt.Sprintf("i%d", i), Priority: r.Intn(5)}
		for j := 0; j < i; j++ {
			if r.Intn(4) == 0 {
				issues[i].Dependencies = append(issues[i].Dependencies, blocks(issues[j].ID))
			}
		}
	}
	if cyclic && n > 1 {
		for k := 0; k < 3; k++ {
			i := r.Intn(n)
			j := r.Intn(n)
			issues[i].Dependencies = append(issues[i].Dependencies, blocks(issues[j].ID))
		}
	}
	// Shuffle so the collection order is not already topological.
	r.Shuffle(n, func(i, j int) { issues[i], issues[j] = issues[j], issues[i] })
	return issues
}

func TestTopoSort_PropertyPermutation(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		issues := randomIssues(r, 1+r.Intn(30), round%2 == 1)
		got := sortedIDs(issues)
		if len(got) != len(issues) {
			t.Fatalf("round %d: expected %d issues, got %d", round, len(issues), len(got))
		}
		seen := make(map[string]bool, len(got))
		for _, id := range got {
			if seen[id] {
				t.Fatalf("round %d: duplicate id %q in %v", round, id, got)
			}
			seen[id] = true
		}
	}
}

func TestTopoSort_PropertyAcyclicOrder(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for round := 0; round < 50; round++ {
		issues := randomIssues(r, 1+r.Intn(30), false)
		edges := Build(issues).Edges
		pos := positions(beads.IDs(TopoSort(issues, edges)))
		for _, e := range edges {
			if pos[e.From] >= pos[e.To] {
				t.Fatalf("round %d: edge %v violated (from@%d to@%d)", round, e, pos[e.From], pos[e.To])
			}
		}
	}
}
