package beads

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFakeBD(t *testing.T, script string) {
	t.Helper()
	fakeBin := t.TempDir()
	bdPath := filepath.Join(fakeBin, "bd")
	if err := os.WriteFile(bdPath, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake bd: %v", err)
	}
	t.Setenv("PATH", fakeBin+":"+os.Getenv("PATH"))
}

func TestExportCtxUsesBDExport(t *testing.T) {
	projectDir := t.TempDir()
	beadsDir := filepath.Join(projectDir, ".beads")
	if err := os.MkdirAll(beadsDir, 0o755); err != nil {
		t.Fatalf("mkdir beads dir: %v", err)
	}
	logPath := filepath.Join(projectDir, "args.log")

	writeFakeBD(t, "#!/bin/sh\n"+
		"echo \"$@\" >> \"$BD_ARGS_LOG\"\n"+
		"echo '{\"id\":\"bm-1\",\"title\":\"From CLI\",\"status\":\"open\"}'\n")
	t.Setenv("BD_ARGS_LOG", logPath)

	issues, err := ExportCtx(context.Background(), beadsDir, testNow)
	if err != nil {
		t.Fatalf("ExportCtx failed: %v", err)
	}
	if len(issues) != 1 || issues[0].Title != "From CLI" {
		t.Fatalf("unexpected issues: %+v", issues)
	}

	args, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read args log: %v", err)
	}
	if !strings.Contains(string(args), "export") {
		t.Fatalf("expected bd export, got %q", string(args))
	}
}

func TestExportCtxFallsBackToIssuesFile(t *testing.T) {
	projectDir := t.TempDir()
	beadsDir := filepath.Join(projectDir, ".beads")
	if err := os.MkdirAll(beadsDir, 0o755); err != nil {
		t.Fatalf("mkdir beads dir: %v", err)
	}
	feed := "{\"id\":\"disk-1\"}\n{\"id\":\"disk-2\"}\n"
	if err := os.WriteFile(IssuesPath(beadsDir), []byte(feed), 0o644); err != nil {
		t.Fatalf("write issues file: %v", err)
	}

	writeFakeBD(t, "#!/bin/sh\necho 'database locked' >&2\nexit 1\n")

	issues, err := ExportCtx(context.Background(), beadsDir, testNow)
	if err != nil {
		t.Fatalf("ExportCtx failed: %v", err)
	}
	if got := strings.Join(IDs(issues), ","); got != "disk-1,disk-2" {
		t.Fatalf("expected issues from disk, got %s", got)
	}
}

func TestExportCtxErrorsWithoutCLIOrFile(t *testing.T) {
	writeFakeBD(t, "#!/bin/sh\nexit 1\n")
	if _, err := ExportCtx(context.Background(), filepath.Join(t.TempDir(), ".beads"), testNow); err == nil {
		t.Fatalf("expected error when neither bd nor issues.jsonl is available")
	}
}
