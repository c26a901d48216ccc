package graph

import (
	"testing"

	"github.com/antigravity-dev/beadsmap/internal/beads"
)

func blocks(target string) beads.Dependency {
	return beads.Dependency{Target: target, Type: beads.DepBlocks}
}

func dep(target string, t beads.DepType) beads.Dependency {
	return beads.Dependency{Target: target, Type: t}
}

func equalStringSlice(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuild_EmitsEdgesFromTargetToOwner(t *testing.T) {
	issues := []beads.Issue{
		{ID: "a"},
		{ID: "b", Dependencies: []beads.Dependency{blocks("a")}},
		{ID: "c", Dependencies: []beads.Dependency{dep("a", beads.DepParentChild), dep("b", beads.DepWaitsFor)}},
		{ID: "d", Dependencies: []beads.Dependency{dep("c", beads.DepConditionalBlocks)}},
	}

	g := Build(issues)

	want := []Edge{{From: "a", To: "b"}, {From: "a", To: "c"}, {From: "b", To: "c"}, {From: "c", To: "d"}}
	if len(g.Edges) != len(want) {
		t.Fatalf("expected %d edges, got %v", len(want), g.Edges)
	}
	for i := range want {
		if g.Edges[i] != want[i] {
			t.Fatalf("edge %d: expected %v, got %v", i, want[i], g.Edges[i])
		}
	}

	if !equalStringSlice(g.BlockersOf("c"), []string{"a", "b"}) {
		t.Fatalf("unexpected blockers for c: %v", g.BlockersOf("c"))
	}
	if !equalStringSlice(g.BlockedBy("a"), []string{"b", "c"}) {
		t.Fatalf("unexpected blocked for a: %v", g.BlockedBy("a"))
	}
	if got := g.BlockersOf("a"); len(got) != 0 {
		t.Fatalf("expected a to have no blockers, got %v", got)
	}
}

func TestBuild_IgnoresNonBlockingTypes(t *testing.T) {
	issues := []beads.Issue{
		{ID: "a"},
		{ID: "b", Dependencies: []beads.Dependency{dep("a", beads.DepRelated), dep("a", beads.DepDiscoveredFrom), dep("a", "supersedes")}},
	}

	g := Build(issues)
	if len(g.Edges) != 0 {
		t.Fatalf("expected no edges, got %v", g.Edges)
	}
	if len(g.Blockers) != 0 || len(g.Blocked) != 0 {
		t.Fatalf("expected empty adjacency, got blockers=%v blocked=%v", g.Blockers, g.Blocked)
	}
}

func TestBuild_DropsDanglingTargets(t *testing.T) {
	issues := []beads.Issue{
		{ID: "a", Dependencies: []beads.Dependency{blocks("ghost")}},
		{ID: "b", Dependencies: []beads.Dependency{blocks("a"), blocks("missing")}},
	}

	g := Build(issues)
	if len(g.Edges) != 1 || g.Edges[0] != (Edge{From: "a", To: "b"}) {
		t.Fatalf("expected only a->b, got %v", g.Edges)
	}
	if _, ok := g.Blocked["ghost"]; ok {
		t.Fatalf("dangling target leaked into adjacency: %v", g.Blocked)
	}
}

func TestBuild_KeepsDuplicateDeclarations(t *testing.T) {
	issues := []beads.Issue{
		{ID: "a"},
		{ID: "b", Dependencies: []beads.Dependency{blocks("a"), blocks("a")}},
	}

	g := Build(issues)
	if len(g.Edges) != 2 {
		t.Fatalf("expected duplicate edges to be kept, got %v", g.Edges)
	}
	if !equalStringSlice(g.BlockersOf("b"), []string{"a", "a"}) {
		t.Fatalf("unexpected blockers for b: %v", g.BlockersOf("b"))
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	g := Build(nil)
	if g.Edges == nil || len(g.Edges) != 0 {
		t.Fatalf("expected empty non-nil edge list, got %#v", g.Edges)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	g := Build([]beads.Issue{{ID: "a"}, {ID: "b", Dependencies: []beads.Dependency{blocks("a")}}})

	blockers := g.BlockersOf("b")
	blockers[0] = "MUTATED"
	if g.BlockersOf("b")[0] != "a" {
		t.Fatalf("internal blockers map was mutated")
	}

	blocked := g.BlockedBy("a")
	blocked[0] = "MUTATED"
	if g.BlockedBy("a")[0] != "b" {
		t.Fatalf("internal blocked map was mutated")
	}
}
