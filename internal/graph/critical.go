package graph

import "github.com/antigravity-dev/beadsmap/internal/beads"

// CriticalPathResult is the longest duration-weighted chain of blocking work.
type CriticalPathResult struct {
	// Path lists issue ids from the first blocker to the final issue.
	Path []string `json:"path"`
	// Distances holds the accumulated minutes before each issue can start.
	Distances map[string]int `json:"distances"`
	// Length is the end issue's distance plus its own duration.
	Length int `json:"length_minutes"`
}

// CriticalPath returns the ids on the critical path.
func CriticalPath(issues []beads.Issue, edges []Edge) []string {
	return AnalyzeCriticalPath(issues, edges).Path
}

// AnalyzeCriticalPath relaxes edges in TopoSort order, weighting every issue by
// its estimate (60 minutes when absent). The end of the path is the issue with
// the largest distance plus duration; the first one in processing order wins
// ties.
//
// On cyclic input the appended tail of TopoSort gets one relaxation pass each,
// so distances there are approximate. Path reconstruction stops at the first
// repeated id and always terminates.
func AnalyzeCriticalPath(issues []beads.Issue, edges []Edge) CriticalPathResult {
	result := CriticalPathResult{
		Path:      make([]string, 0),
		Distances: make(map[string]int, len(issues)),
	}
	if len(issues) == 0 {
		return result
	}

	sorted := TopoSort(issues, edges)
	index := indexByID(issues)
	adj := successors(index, edges)

	duration := make(map[string]int, len(issues))
	for _, issue := range sorted {
		result.Distances[issue.ID] = 0
		if _, seen := duration[issue.ID]; !seen {
			duration[issue.ID] = issues[index[issue.ID]].DurationMinutes()
		}
	}

	prev := make(map[string]string)
	relaxed := make(map[string]struct{}, len(issues))
	order := make([]string, 0, len(issues))
	for _, issue := range sorted {
		if _, done := relaxed[issue.ID]; done {
			continue
		}
		relaxed[issue.ID] = struct{}{}
		order = append(order, issue.ID)

		candidate := result.Distances[issue.ID] + duration[issue.ID]
		for _, next := range adj[issue.ID] {
			if candidate > result.Distances[next] {
				result.Distances[next] = candidate
				prev[next] = issue.ID
			}
		}
	}

	end := order[0]
	best := 0
	for _, id := range order {
		if total := result.Distances[id] + duration[id]; total > best {
			best = total
			end = id
		}
	}
	result.Length = best

	onPath := map[string]struct{}{end: {}}
	reversed := []string{end}
	for current := end; ; {
		p, ok := prev[current]
		if !ok {
			break
		}
		if _, loop := onPath[p]; loop {
			break
		}
		onPath[p] = struct{}{}
		reversed = append(reversed, p)
		current = p
	}

	for i := len(reversed) - 1; i >= 0; i-- {
		result.Path = append(result.Path, reversed[i])
	}
	return result
}
