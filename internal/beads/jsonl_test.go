package beads

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var testNow = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func TestParseJSONL_AppliesDefaults(t *testing.T) {
	feed := `{"id":"bm-1"}`

	issues := ParseJSONLString(feed, testNow)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}

	want := Issue{
		ID:           "bm-1",
		Title:        "Untitled",
		Status:       StatusOpen,
		Priority:     DefaultPriority,
		Type:         TypeTask,
		Labels:       []string{},
		Dependencies: []Dependency{},
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
	if diff := cmp.Diff(want, issues[0]); diff != "" {
		t.Fatalf("unexpected issue (-want +got):\n%s", diff)
	}
}

func TestParseJSONL_SkipsMalformedBlankAndTombstoneLines(t *testing.T) {
	feed := strings.Join([]string{
		`{"id":"a","title":"A"}`,
		``,
		`   `,
		`{not json`,
		`42`,
		`null`,
		`{"id":"x"} trailing`,
		`{"id":"y"}{"id":"z"}`,
		`{"id":"gone","status":"tombstone"}`,
		`{"id":"b","title":"B"}`,
	}, "\n")

	issues := ParseJSONLString(feed, testNow)
	if got := IDs(issues); !cmp.Equal(got, []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func TestParseJSONL_OutOfRangeNumbersFallBack(t *testing.T) {
	feed := strings.Join([]string{
		`{"id":"a","priority":1e300,"estimated_minutes":-1e300}`,
		`{"id":"b","priority":99999999999999999999,"estimated_minutes":1e19}`,
		`{"id":"c","priority":1.9,"estimated_minutes":30.5}`,
	}, "\n")

	issues := ParseJSONLString(feed, testNow)
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d", len(issues))
	}
	for _, issue := range issues[:2] {
		if issue.Priority != DefaultPriority {
			t.Fatalf("%s: expected default priority, got %d", issue.ID, issue.Priority)
		}
		if issue.EstimatedMinutes != nil {
			t.Fatalf("%s: expected no estimate, got %d", issue.ID, *issue.EstimatedMinutes)
		}
	}
	if issues[2].Priority != 1 || issues[2].EstimatedMinutes == nil || *issues[2].EstimatedMinutes != 30 {
		t.Fatalf("expected truncated values, got %+v", issues[2])
	}
}

func TestParseJSONL_NormalizesFields(t *testing.T) {
	feed := `{"id":7,"title":"Ship","status":"bogus","priority":"high","issue_type":"saga",` +
		`"labels":["milestone:v1",3],"estimated_minutes":90,` +
		`"due_at":"2025-03-01T00:00:00Z","closed_at":"not a date","created_at":"2025-01-01T09:00:00Z",` +
		`"dependencies":[{"target":"a","type":"blocks"},{"depends_on_id":"b","type":"waits-for"},{"target":"c"},{"target":""},"junk"]}`

	issues := ParseJSONLString(feed, testNow)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	issue := issues[0]

	if issue.ID != "7" {
		t.Fatalf("expected numeric id to be stringified, got %q", issue.ID)
	}
	if issue.Status != StatusOpen {
		t.Fatalf("expected unknown status to default to open, got %q", issue.Status)
	}
	if issue.Priority != DefaultPriority {
		t.Fatalf("expected non-numeric priority to default to %d, got %d", DefaultPriority, issue.Priority)
	}
	if issue.Type != TypeTask {
		t.Fatalf("expected unknown type to default to task, got %q", issue.Type)
	}
	if !cmp.Equal(issue.Labels, []string{"milestone:v1", "3"}) {
		t.Fatalf("unexpected labels: %v", issue.Labels)
	}
	if issue.EstimatedMinutes == nil || *issue.EstimatedMinutes != 90 {
		t.Fatalf("expected estimate 90, got %v", issue.EstimatedMinutes)
	}
	if issue.DueAt == nil || !issue.DueAt.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due date: %v", issue.DueAt)
	}
	if issue.ClosedAt != nil {
		t.Fatalf("expected unparseable closed_at to be absent, got %v", issue.ClosedAt)
	}
	if !issue.CreatedAt.Equal(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created_at: %v", issue.CreatedAt)
	}
	if !issue.UpdatedAt.Equal(testNow) {
		t.Fatalf("expected missing updated_at to default to now, got %v", issue.UpdatedAt)
	}

	wantDeps := []Dependency{
		{Target: "a", Type: DepBlocks},
		{Target: "b", Type: DepWaitsFor},
		{Target: "c", Type: DepRelated},
	}
	if diff := cmp.Diff(wantDeps, issue.Dependencies); diff != "" {
		t.Fatalf("unexpected dependencies (-want +got):\n%s", diff)
	}
}

func TestParseJSONL_HandlesLastLineWithoutNewline(t *testing.T) {
	issues, err := ParseJSONL(strings.NewReader("{\"id\":\"a\"}\n{\"id\":\"b\"}"), testNow)
	if err != nil {
		t.Fatalf("ParseJSONL: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
}

func TestExportJSONL_RoundTripsThroughParser(t *testing.T) {
	due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	issues := []Issue{
		{
			ID: "a", Title: "A", Status: StatusInProgress, Priority: 1, Type: TypeEpic,
			Labels: []string{"milestone:v2"}, Dependencies: []Dependency{},
			DueAt: &due, EstimatedMinutes: Minutes(480), CreatedAt: testNow, UpdatedAt: testNow,
		},
		{
			ID: "b", Title: "B", Status: StatusOpen, Priority: 2, Type: TypeTask,
			Labels: []string{}, Dependencies: []Dependency{{Target: "a", Type: DepBlocks}},
			CreatedAt: testNow, UpdatedAt: testNow,
		},
	}

	text, err := ExportJSONL(issues)
	if err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}
	if strings.Count(text, "\n") != 1 {
		t.Fatalf("expected records joined by a single newline, got %q", text)
	}

	parsed := ParseJSONLString(text, time.Time{})
	if diff := cmp.Diff(issues, parsed); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
