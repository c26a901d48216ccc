// Package milestone groups issues by their "milestone:<name>" label and
// computes per-group progress.
package milestone

import (
	"sort"
	"strings"
	"time"

	"github.com/antigravity-dev/beadsmap/internal/beads"
)

// UnscheduledName is the catch-all group for issues without a milestone label.
// The name is reserved: a "milestone:Unscheduled" label joins the catch-all.
const UnscheduledName = "Unscheduled"

// Counts buckets a group's issues by status.
type Counts struct {
	Done       int `json:"done"`
	InProgress int `json:"in_progress"`
	Open       int `json:"open"`
	Blocked    int `json:"blocked"`
}

// Total is the number of classified issues.
func (c Counts) Total() int {
	return c.Done + c.InProgress + c.Open + c.Blocked
}

type Milestone struct {
	Name string `json:"name"`
	// DueAt comes from an epic in the group that carries a due date.
	DueAt     *time.Time    `json:"due_at,omitempty"`
	Issues    []beads.Issue `json:"issues"`
	Progress  float64       `json:"progress"`
	Counts    Counts        `json:"counts"`
	Collapsed bool          `json:"collapsed"`
	// Unscheduled marks the catch-all group.
	Unscheduled bool `json:"unscheduled"`
}

type group struct {
	dueAt  *time.Time
	issues []beads.Issue
}

// Extract returns the named milestones sorted by due date then name, followed
// by a collapsed Unscheduled group when any issue has no milestone label.
func Extract(issues []beads.Issue) []Milestone {
	groups := make(map[string]*group)
	var names []string
	var unscheduled []beads.Issue

	for _, issue := range issues {
		name, ok := issue.Milestone()
		if !ok || name == UnscheduledName {
			unscheduled = append(unscheduled, issue)
			continue
		}

		g, exists := groups[name]
		if !exists {
			g = &group{}
			groups[name] = g
			names = append(names, name)
		}
		// Last dated epic wins.
		if issue.Type == beads.TypeEpic && issue.DueAt != nil {
			due := *issue.DueAt
			g.dueAt = &due
		}
		g.issues = append(g.issues, issue)
	}

	milestones := make([]Milestone, 0, len(names)+1)
	for _, name := range names {
		g := groups[name]
		milestones = append(milestones, newMilestone(name, g.dueAt, g.issues))
	}

	sort.SliceStable(milestones, func(i, j int) bool {
		return less(milestones[i], milestones[j])
	})

	if len(unscheduled) > 0 {
		ms := newMilestone(UnscheduledName, nil, unscheduled)
		ms.Collapsed = true
		ms.Unscheduled = true
		milestones = append(milestones, ms)
	}

	return milestones
}

func less(a, b Milestone) bool {
	switch {
	case a.DueAt != nil && b.DueAt != nil:
		if !a.DueAt.Equal(*b.DueAt) {
			return a.DueAt.Before(*b.DueAt)
		}
	case a.DueAt != nil:
		return true
	case b.DueAt != nil:
		return false
	}
	return strings.Compare(a.Name, b.Name) < 0
}

func newMilestone(name string, dueAt *time.Time, issues []beads.Issue) Milestone {
	counts := CountStatuses(issues)
	ms := Milestone{
		Name:   name,
		DueAt:  dueAt,
		Issues: issues,
		Counts: counts,
	}
	if total := len(issues); total > 0 {
		ms.Progress = float64(counts.Done) / float64(total)
	}
	return ms
}

// CountStatuses classifies closed as done, in_progress and hooked as in
// progress, blocked as blocked and everything else as open.
func CountStatuses(issues []beads.Issue) Counts {
	var c Counts
	for _, issue := range issues {
		switch issue.Status {
		case beads.StatusClosed:
			c.Done++
		case beads.StatusInProgress, beads.StatusHooked:
			c.InProgress++
		case beads.StatusBlocked:
			c.Blocked++
		default:
			c.Open++
		}
	}
	return c
}
