package beads

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

const defaultTitle = "Untitled"

// ParseJSONL reads one issue per line. Blank lines, lines that are not JSON
// objects and tombstoned records are skipped; only read errors are returned.
// Missing timestamps default to now.
func ParseJSONL(r io.Reader, now time.Time) ([]Issue, error) {
	reader := bufio.NewReader(r)
	var issues []Issue
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if issue, ok := parseLine(line, now); ok {
				issues = append(issues, issue)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read issues: %w", err)
		}
	}
	return issues, nil
}

// ParseJSONLString is ParseJSONL over an in-memory feed.
func ParseJSONLString(text string, now time.Time) []Issue {
	issues, _ := ParseJSONL(strings.NewReader(text), now)
	return issues
}

func parseLine(line []byte, now time.Time) (Issue, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Issue{}, false
	}

	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return Issue{}, false
	}
	// the whole line must be a single object
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Issue{}, false
	}
	if s, ok := raw["status"].(string); ok && s == statusTombstone {
		return Issue{}, false
	}
	return normalizeIssue(raw, now), true
}

func normalizeIssue(raw map[string]any, now time.Time) Issue {
	issue := Issue{
		ID:               stringify(raw["id"]),
		Title:            defaultTitle,
		Description:      optionalString(raw["description"]),
		Status:           normalizeStatus(raw["status"]),
		Priority:         DefaultPriority,
		Type:             normalizeType(raw["issue_type"]),
		Assignee:         optionalString(raw["assignee"]),
		Owner:            optionalString(raw["owner"]),
		Labels:           normalizeLabels(raw["labels"]),
		Dependencies:     normalizeDeps(raw["dependencies"]),
		DueAt:            optionalTime(raw["due_at"]),
		DeferUntil:       optionalTime(raw["defer_until"]),
		EstimatedMinutes: optionalInt(raw["estimated_minutes"]),
		CreatedAt:        timeOr(raw["created_at"], now),
		UpdatedAt:        timeOr(raw["updated_at"], now),
		ClosedAt:         optionalTime(raw["closed_at"]),
		ExternalRef:      optionalString(raw["external_ref"]),
	}
	if v, ok := raw["title"]; ok && v != nil {
		issue.Title = stringify(v)
	}
	if n, ok := raw["priority"].(json.Number); ok {
		if p, err := numberToInt(n); err == nil {
			issue.Priority = p
		}
	}
	return issue
}

func normalizeStatus(v any) Status {
	s := Status(stringify(v))
	if s.Valid() {
		return s
	}
	return StatusOpen
}

func normalizeType(v any) IssueType {
	t := IssueType(stringify(v))
	if t.Valid() {
		return t
	}
	return TypeTask
}

func normalizeLabels(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, stringify(item))
	}
	return labels
}

func normalizeDeps(v any) []Dependency {
	items, ok := v.([]any)
	if !ok {
		return []Dependency{}
	}
	deps := make([]Dependency, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		target := stringify(obj["target"])
		if target == "" {
			// bd export writes depends_on_id instead of target.
			target = stringify(obj["depends_on_id"])
		}
		if target == "" {
			continue
		}
		depType := DepRelated
		if t, ok := obj["type"].(string); ok {
			depType = DepType(t)
		}
		deps = append(deps, Dependency{Target: target, Type: depType})
	}
	return deps
}

func stringify(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case bool:
		if typed {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}
		return string(b)
	}
}

func optionalString(v any) string {
	s, _ := v.(string)
	return s
}

func optionalInt(v any) *int {
	n, ok := v.(json.Number)
	if !ok {
		return nil
	}
	i, err := numberToInt(n)
	if err != nil {
		return nil
	}
	return &i
}

// numberToInt truncates fractions. Values outside the int range are errors
// so callers fall back to their default.
func numberToInt(n json.Number) (int, error) {
	if i, err := n.Int64(); err == nil {
		if i < math.MinInt || i > math.MaxInt {
			return 0, fmt.Errorf("number %s out of range", n)
		}
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || f <= math.MinInt || f >= math.MaxInt {
		return 0, fmt.Errorf("number %s out of range", n)
	}
	return int(f), nil
}

func parseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func optionalTime(v any) *time.Time {
	t, ok := parseTime(v)
	if !ok {
		return nil
	}
	return &t
}

func timeOr(v any, fallback time.Time) time.Time {
	if t, ok := parseTime(v); ok {
		return t
	}
	return fallback
}

// WriteJSONL encodes issues one compact object per line, without a trailing
// newline after the last record.
func WriteJSONL(w io.Writer, issues []Issue) error {
	for i, issue := range issues {
		b, err := json.Marshal(issue)
		if err != nil {
			return fmt.Errorf("marshal issue %q: %w", issue.ID, err)
		}
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// ExportJSONL is WriteJSONL into a string.
func ExportJSONL(issues []Issue) (string, error) {
	var buf strings.Builder
	if err := WriteJSONL(&buf, issues); err != nil {
		return "", err
	}
	return buf.String(), nil
}
