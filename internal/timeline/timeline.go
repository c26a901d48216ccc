// Package timeline recomputes every derived view of an issue collection in
// one pass. Callers invoke Compute whenever the issues or viewport change;
// nothing is cached between calls.
package timeline

import (
	"log/slog"
	"time"

	"github.com/antigravity-dev/beadsmap/internal/beads"
	"github.com/antigravity-dev/beadsmap/internal/graph"
	"github.com/antigravity-dev/beadsmap/internal/layout"
	"github.com/antigravity-dev/beadsmap/internal/milestone"
)

// DefaultRecentCloseWindow keeps issues closed in the last week on the board.
const DefaultRecentCloseWindow = 7 * 24 * time.Hour

type Options struct {
	// Now anchors the recent-close window. Zero means time.Now().
	Now time.Time
	// RecentCloseWindow, zero means DefaultRecentCloseWindow.
	RecentCloseWindow time.Duration
	// IncludeAllClosed skips the recent-close filter.
	IncludeAllClosed bool
	// Collapsed overrides which milestones are folded. Nil keeps the
	// defaults (only Unscheduled folded).
	Collapsed milestone.CollapsedSet
	Logger    *slog.Logger
}

// Snapshot holds every view derived from one issue collection.
type Snapshot struct {
	Issues       []beads.Issue            `json:"-"`
	Graph        graph.Graph              `json:"graph"`
	Order        []string                 `json:"order"`
	CriticalPath graph.CriticalPathResult `json:"critical_path"`
	Milestones   []milestone.Milestone    `json:"milestones"`
	Layout       layout.Result            `json:"layout"`
	Viewport     layout.Viewport          `json:"viewport"`
	Range        layout.TimeRange         `json:"range"`
}

// Compute runs the full pipeline: recent-close filter, graph, order,
// critical path, milestones and layout.
func Compute(issues []beads.Issue, vp layout.Viewport, opts Options) Snapshot {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	window := opts.RecentCloseWindow
	if window <= 0 {
		window = DefaultRecentCloseWindow
	}

	active := issues
	if !opts.IncludeAllClosed {
		active = beads.Active(issues, now, window)
	}

	g := graph.Build(active)
	order := graph.TopoSort(active, g.Edges)
	critical := graph.AnalyzeCriticalPath(active, g.Edges)
	milestones := opts.Collapsed.Apply(milestone.Extract(active))
	res := layout.Compute(milestones, vp)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("timeline computed",
		"issues", len(issues),
		"active", len(active),
		"edges", len(g.Edges),
		"milestones", len(milestones),
		"bars", len(res.Bars),
		"critical_path", len(critical.Path),
	)

	return Snapshot{
		Issues:       active,
		Graph:        g,
		Order:        beads.IDs(order),
		CriticalPath: critical,
		Milestones:   milestones,
		Layout:       res,
		Viewport:     vp,
		Range:        vp.TimeRange(),
	}
}

// OnCriticalPath reports whether id is part of the snapshot's critical path.
func (s Snapshot) OnCriticalPath(id string) bool {
	for _, p := range s.CriticalPath.Path {
		if p == id {
			return true
		}
	}
	return false
}
