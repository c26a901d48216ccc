// Package beads models the issue records read from a beads JSONL feed.
package beads

import (
	"strings"
	"time"
)

const milestoneLabelPrefix = "milestone:"

// DefaultPriority is applied when a record carries no numeric priority.
const DefaultPriority = 2

// DefaultDurationMinutes weights issues without an estimate.
const DefaultDurationMinutes = 60

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusClosed     Status = "closed"
	StatusDeferred   Status = "deferred"
	StatusHooked     Status = "hooked"

	// statusTombstone marks a deleted record in the feed.
	statusTombstone = "tombstone"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusClosed, StatusDeferred, StatusHooked:
		return true
	}
	return false
}

type IssueType string

const (
	TypeBug     IssueType = "bug"
	TypeFeature IssueType = "feature"
	TypeTask    IssueType = "task"
	TypeEpic    IssueType = "epic"
	TypeChore   IssueType = "chore"
	TypeEvent   IssueType = "event"
)

// Valid reports whether t is one of the known issue types.
func (t IssueType) Valid() bool {
	switch t {
	case TypeBug, TypeFeature, TypeTask, TypeEpic, TypeChore, TypeEvent:
		return true
	}
	return false
}

// DepType categorizes a dependency. Unknown values are kept as-is and treated
// as informational.
type DepType string

const (
	DepBlocks            DepType = "blocks"
	DepParentChild       DepType = "parent-child"
	DepRelated           DepType = "related"
	DepConditionalBlocks DepType = "conditional-blocks"
	DepWaitsFor          DepType = "waits-for"
	DepDiscoveredFrom    DepType = "discovered-from"
)

// Blocking reports whether the dependency participates in scheduling.
func (d DepType) Blocking() bool {
	switch d {
	case DepBlocks, DepParentChild, DepConditionalBlocks, DepWaitsFor:
		return true
	}
	return false
}

// Dependency is owned by the dependent issue: a blocking dependency means
// Target blocks the owning issue.
type Dependency struct {
	Target string  `json:"target"`
	Type   DepType `json:"type"`
}

// Issue is a single work item. Values are treated as immutable once ingested.
type Issue struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	Status           Status       `json:"status"`
	Priority         int          `json:"priority"`
	Type             IssueType    `json:"issue_type"`
	Assignee         string       `json:"assignee,omitempty"`
	Owner            string       `json:"owner,omitempty"`
	Labels           []string     `json:"labels"`
	Dependencies     []Dependency `json:"dependencies"`
	DueAt            *time.Time   `json:"due_at,omitempty"`
	DeferUntil       *time.Time   `json:"defer_until,omitempty"`
	EstimatedMinutes *int         `json:"estimated_minutes,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	ClosedAt         *time.Time   `json:"closed_at,omitempty"`
	ExternalRef      string       `json:"external_ref,omitempty"`
}

// Milestone returns the name from the first "milestone:<name>" label.
func (i Issue) Milestone() (string, bool) {
	for _, label := range i.Labels {
		if strings.HasPrefix(label, milestoneLabelPrefix) {
			return label[len(milestoneLabelPrefix):], true
		}
	}
	return "", false
}

// DurationMinutes is the scheduling weight of the issue.
func (i Issue) DurationMinutes() int {
	if i.EstimatedMinutes == nil {
		return DefaultDurationMinutes
	}
	return *i.EstimatedMinutes
}

// IsClosed reports whether the issue is done.
func (i Issue) IsClosed() bool {
	return i.Status == StatusClosed
}

// Active keeps unclosed issues plus issues closed within window before now.
func Active(issues []Issue, now time.Time, window time.Duration) []Issue {
	out := make([]Issue, 0, len(issues))
	cutoff := now.Add(-window)
	for _, issue := range issues {
		if !issue.IsClosed() {
			out = append(out, issue)
			continue
		}
		if issue.ClosedAt != nil && issue.ClosedAt.After(cutoff) {
			out = append(out, issue)
		}
	}
	return out
}

// IDs returns the issue IDs in order.
func IDs(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.ID)
	}
	return out
}

// Minutes is shorthand for building an EstimatedMinutes value.
func Minutes(n int) *int {
	return &n
}
