package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/antigravity-dev/beadsmap/internal/beads"
	"github.com/antigravity-dev/beadsmap/internal/config"
	"github.com/antigravity-dev/beadsmap/internal/layout"
	"github.com/antigravity-dev/beadsmap/internal/milestone"
	"github.com/antigravity-dev/beadsmap/internal/timeline"
)

// viewFlags are the knobs shared by the analysis commands.
type viewFlags struct {
	all       bool
	weeks     int
	ppd       float64
	collapsed []string
}

func (f *viewFlags) register(cmd *cobra.Command, withViewport bool) {
	cmd.Flags().BoolVar(&f.all, "all", false, "include issues closed outside the recent window")
	if !withViewport {
		return
	}
	cmd.Flags().IntVar(&f.weeks, "weeks", 0, "weeks ahead to show (default from config)")
	cmd.Flags().Float64Var(&f.ppd, "ppd", 0, "pixels per day (default from config)")
	cmd.Flags().StringSliceVar(&f.collapsed, "collapsed", nil, "milestones to fold (default from config)")
}

// loadIssues reads --file when given, otherwise the merged stored sources.
func (a *app) loadIssues(ctx context.Context, cfg *config.Config) ([]beads.Issue, error) {
	if path := a.v.GetString("file"); path != "" {
		return beads.ReadFile(path, a.now())
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Issues(ctx, a.now())
}

func (a *app) snapshot(cmd *cobra.Command, f *viewFlags) (timeline.Snapshot, error) {
	cfg, _, err := a.loadConfig()
	if err != nil {
		return timeline.Snapshot{}, err
	}
	issues, err := a.loadIssues(cmd.Context(), cfg)
	if err != nil {
		return timeline.Snapshot{}, err
	}

	now := a.now()
	vp := layout.NewViewport(now, cfg.Viewport.DaysBefore, cfg.Viewport.DaysAhead, cfg.Viewport.PixelsPerDay)
	if f.weeks > 0 {
		vp = vp.SetRange(f.weeks, now)
	}
	if f.ppd != 0 {
		if f.ppd < layout.MinPixelsPerDay || f.ppd > layout.MaxPixelsPerDay {
			return timeline.Snapshot{}, fmt.Errorf("--ppd must be in [%d, %d]", layout.MinPixelsPerDay, layout.MaxPixelsPerDay)
		}
		vp.PixelsPerDay = f.ppd
	}

	collapsed := milestone.NewCollapsedSet(cfg.Timeline.Collapsed...)
	if cmd.Flags().Changed("collapsed") {
		collapsed = milestone.NewCollapsedSet(f.collapsed...)
	}

	return timeline.Compute(issues, vp, timeline.Options{
		Now:               now,
		RecentCloseWindow: cfg.Timeline.RecentCloseWindow.Duration,
		IncludeAllClosed:  f.all || cfg.Timeline.IncludeAllClosed,
		Collapsed:         collapsed,
	}), nil
}

func titles(issues []beads.Issue) map[string]beads.Issue {
	out := make(map[string]beads.Issue, len(issues))
	for _, issue := range issues {
		if _, dup := out[issue.ID]; !dup {
			out[issue.ID] = issue
		}
	}
	return out
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func formatMinutes(m int) string {
	if m%60 == 0 {
		return fmt.Sprintf("%dh", m/60)
	}
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}

func (a *app) milestonesCmd() *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "milestones",
		Short: "Show milestone progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshot(cmd, &f)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), snap.Milestones)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Milestone", "Due", "Progress", "Done", "In Progress", "Open", "Blocked", "Total"})
			for _, ms := range snap.Milestones {
				name := ms.Name
				if ms.Collapsed {
					name += " (collapsed)"
				}
				tw.AppendRow(table.Row{
					name,
					formatDue(ms.DueAt),
					fmt.Sprintf("%.0f%%", ms.Progress*100),
					ms.Counts.Done,
					ms.Counts.InProgress,
					ms.Counts.Open,
					ms.Counts.Blocked,
					ms.Counts.Total(),
				})
			}
			tw.Render()
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func (a *app) criticalPathCmd() *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "critical-path",
		Short: "Show the longest chain of blocking work",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshot(cmd, &f)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), snap.CriticalPath)
			}
			byID := titles(snap.Issues)
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"#", "ID", "Title", "Starts After", "Duration"})
			for i, id := range snap.CriticalPath.Path {
				issue := byID[id]
				tw.AppendRow(table.Row{
					i + 1,
					id,
					issue.Title,
					formatMinutes(snap.CriticalPath.Distances[id]),
					formatMinutes(issue.DurationMinutes()),
				})
			}
			tw.AppendFooter(table.Row{"", "", "", "Total", formatMinutes(snap.CriticalPath.Length)})
			tw.Render()
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func (a *app) orderCmd() *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Show issues in dependency order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshot(cmd, &f)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]any{"order": snap.Order})
			}
			byID := titles(snap.Issues)
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"#", "ID", "Title", "Priority", "Status", "Blocked By"})
			for i, id := range snap.Order {
				issue := byID[id]
				critical := ""
				if snap.OnCriticalPath(id) {
					critical = " *"
				}
				tw.AppendRow(table.Row{
					i + 1,
					id + critical,
					issue.Title,
					fmt.Sprintf("P%d", issue.Priority),
					issue.Status,
					strings.Join(snap.Graph.BlockersOf(id), ", "),
				})
			}
			tw.Render()
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func (a *app) layoutCmd() *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show computed bar positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshot(cmd, &f)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"viewport": snap.Viewport,
					"range":    snap.Range,
					"layout":   snap.Layout,
				})
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetTitle(fmt.Sprintf("%s .. %s (%d days, %.0f px/day)",
				snap.Range.Start.Format(time.DateOnly), snap.Range.End.Format(time.DateOnly),
				snap.Range.Days, snap.Viewport.PixelsPerDay))
			tw.AppendHeader(table.Row{"Milestone", "Lane", "ID", "X", "Y", "Width"})
			for _, bar := range snap.Layout.Bars {
				tw.AppendRow(table.Row{bar.Milestone, bar.Lane, bar.Issue.ID,
					fmt.Sprintf("%.1f", bar.X), fmt.Sprintf("%.0f", bar.Y), fmt.Sprintf("%.1f", bar.Width)})
			}
			tw.AppendFooter(table.Row{"", "", "", "", "Height", fmt.Sprintf("%.0f", snap.Layout.Height)})
			tw.SetColumnConfigs([]table.ColumnConfig{
				{Number: 4, Align: text.AlignRight},
				{Number: 5, Align: text.AlignRight},
				{Number: 6, Align: text.AlignRight},
			})
			tw.Render()
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}
