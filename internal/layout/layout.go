// Package layout places issues onto a timeline: one lane per issue within
// each milestone, x from the issue's dates and width from its estimate.
package layout

import (
	"math"
	"time"

	"github.com/antigravity-dev/beadsmap/internal/beads"
	"github.com/antigravity-dev/beadsmap/internal/graph"
	"github.com/antigravity-dev/beadsmap/internal/milestone"
)

const (
	BarHeight      = 32
	BarGap         = 8
	LaneHeight     = BarHeight + BarGap
	HeaderHeight   = 48
	TrailingGap    = 16
	DefaultBarDays = 7
	MinBarWidth    = 40
	// MinutesPerDay is one working day of estimate.
	MinutesPerDay = 480
	// MaxBarDays caps a bar at roughly a century.
	MaxBarDays = 36500
)

// BarLayout is the pixel rectangle of one issue. It is recomputed on every
// pass and carries no identity of its own.
type BarLayout struct {
	Issue     beads.Issue `json:"issue"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Width     float64     `json:"width"`
	Lane      int         `json:"lane"`
	Milestone string      `json:"milestone"`
}

type Result struct {
	Bars []BarLayout `json:"bars"`
	// Height is the vertical extent consumed by all milestones.
	Height float64 `json:"height"`
}

// Compute lays out milestones top to bottom. Collapsed milestones only take
// their header. Closed issues are hidden except in the Unscheduled group.
// Lane order within a milestone is the topological order of its visible
// issues.
func Compute(milestones []milestone.Milestone, vp Viewport) Result {
	result := Result{Bars: make([]BarLayout, 0)}
	cursor := 0.0

	for _, ms := range milestones {
		cursor += HeaderHeight
		if ms.Collapsed {
			continue
		}

		visible := visibleIssues(ms)
		sorted := graph.TopoSort(visible, graph.Build(visible).Edges)

		for i, issue := range sorted {
			days := barDays(issue)
			result.Bars = append(result.Bars, BarLayout{
				Issue:     issue,
				X:         vp.DateToX(issueStart(issue, days)),
				Y:         cursor + float64(i*LaneHeight),
				Width:     math.Max(float64(days)*vp.PixelsPerDay, MinBarWidth),
				Lane:      i,
				Milestone: ms.Name,
			})
		}

		cursor += float64(len(sorted)*LaneHeight + TrailingGap)
	}

	result.Height = cursor
	return result
}

func visibleIssues(ms milestone.Milestone) []beads.Issue {
	if ms.Unscheduled {
		return ms.Issues
	}
	out := make([]beads.Issue, 0, len(ms.Issues))
	for _, issue := range ms.Issues {
		if !issue.IsClosed() {
			out = append(out, issue)
		}
	}
	return out
}

// barDays converts the estimate into 8-hour days, between one and
// MaxBarDays; issues without a positive estimate span a week.
func barDays(issue beads.Issue) int {
	if issue.EstimatedMinutes == nil || *issue.EstimatedMinutes <= 0 {
		return DefaultBarDays
	}
	days := int(math.Ceil(float64(*issue.EstimatedMinutes) / MinutesPerDay))
	switch {
	case days < 1:
		days = 1
	case days > MaxBarDays:
		days = MaxBarDays
	}
	return days
}

// issueStart ends the bar on the due date when there is one, otherwise starts
// it at creation.
func issueStart(issue beads.Issue, days int) time.Time {
	if issue.DueAt != nil {
		return issue.DueAt.AddDate(0, 0, -days)
	}
	return issue.CreatedAt
}
