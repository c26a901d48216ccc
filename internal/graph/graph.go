// Package graph derives blocking-dependency structure from an issue
// collection: the edge list, a priority-aware topological order and the
// duration-weighted critical path. Everything here is a pure function of its
// inputs.
package graph

import "github.com/antigravity-dev/beadsmap/internal/beads"

// Edge runs from the blocker to the issue it blocks.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the blocking-dependency multigraph of one issue collection.
type Graph struct {
	Edges []Edge `json:"edges"`
	// Blockers maps an issue to the issues that block it.
	Blockers map[string][]string `json:"blockers"`
	// Blocked maps an issue to the issues it blocks.
	Blocked map[string][]string `json:"blocked"`
}

// Build collects an edge for every blocking dependency whose target is in
// issues. Edges follow issue order, then dependency order; duplicate
// declarations yield duplicate edges. Cycles are not detected here.
func Build(issues []beads.Issue) Graph {
	g := Graph{
		Edges:    make([]Edge, 0),
		Blockers: make(map[string][]string),
		Blocked:  make(map[string][]string),
	}

	valid := make(map[string]struct{}, len(issues))
	for i := range issues {
		valid[issues[i].ID] = struct{}{}
	}

	for i := range issues {
		issue := &issues[i]
		for _, dep := range issue.Dependencies {
			if !dep.Type.Blocking() {
				continue
			}
			if _, ok := valid[dep.Target]; !ok {
				continue
			}
			g.Edges = append(g.Edges, Edge{From: dep.Target, To: issue.ID})
			g.Blockers[issue.ID] = append(g.Blockers[issue.ID], dep.Target)
			g.Blocked[dep.Target] = append(g.Blocked[dep.Target], issue.ID)
		}
	}

	return g
}

// BlockersOf returns a copy of the issues blocking id.
func (g Graph) BlockersOf(id string) []string {
	return cloneStringSlice(g.Blockers[id])
}

// BlockedBy returns a copy of the issues id blocks.
func (g Graph) BlockedBy(id string) []string {
	return cloneStringSlice(g.Blocked[id])
}

func cloneStringSlice(values []string) []string {
	if len(values) == 0 {
		return make([]string, 0)
	}
	cp := make([]string, len(values))
	copy(cp, values)
	return cp
}

// successors builds an adjacency list over edges whose endpoints are both
// present in index.
func successors(index map[string]int, edges []Edge) map[string][]string {
	adj := make(map[string][]string, len(index))
	for _, e := range edges {
		if _, ok := index[e.From]; !ok {
			continue
		}
		if _, ok := index[e.To]; !ok {
			continue
		}
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}

// indexByID maps each id to the position of its first record.
func indexByID(issues []beads.Issue) map[string]int {
	index := make(map[string]int, len(issues))
	for i := range issues {
		if _, dup := index[issues[i].ID]; !dup {
			index[issues[i].ID] = i
		}
	}
	return index
}
