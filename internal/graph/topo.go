package graph

import (
	"container/heap"

	"github.com/antigravity-dev/beadsmap/internal/beads"
)

// readyQueue orders unblocked issues by priority ascending, then by position
// in the input collection.
type readyQueue struct {
	issues []beads.Issue
	items  []int
}

func (q *readyQueue) Len() int { return len(q.items) }

func (q *readyQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if q.issues[a].Priority != q.issues[b].Priority {
		return q.issues[a].Priority < q.issues[b].Priority
	}
	return a < b
}

func (q *readyQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *readyQueue) Push(x any) { q.items = append(q.items, x.(int)) }

func (q *readyQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

// TopoSort returns every issue exactly once. Among currently unblocked issues
// the lowest priority value goes first, ties keep collection order.
//
// Issues that never become unblocked (members of a cycle, or blocked by one)
// are appended afterwards in collection order with no ordering guarantee, so
// the result is only a true topological order for acyclic input. Edges that
// reference ids outside issues are ignored. When an id repeats, its first
// record is the graph node and the later records land in the appended tail.
func TopoSort(issues []beads.Issue, edges []Edge) []beads.Issue {
	index := indexByID(issues)
	adj := successors(index, edges)

	inDegree := make([]int, len(issues))
	for _, e := range edges {
		if _, ok := index[e.From]; !ok {
			continue
		}
		if to, ok := index[e.To]; ok {
			inDegree[to]++
		}
	}

	q := &readyQueue{issues: issues}
	for _, i := range index {
		if inDegree[i] == 0 {
			q.items = append(q.items, i)
		}
	}
	heap.Init(q)

	sorted := make([]beads.Issue, 0, len(issues))
	emitted := make([]bool, len(issues))
	for q.Len() > 0 {
		i := heap.Pop(q).(int)
		sorted = append(sorted, issues[i])
		emitted[i] = true

		for _, next := range adj[issues[i].ID] {
			n := index[next]
			inDegree[n]--
			if inDegree[n] == 0 {
				heap.Push(q, n)
			}
		}
	}

	for i := range issues {
		if !emitted[i] {
			sorted = append(sorted, issues[i])
		}
	}

	return sorted
}
