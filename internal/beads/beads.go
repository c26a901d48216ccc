package beads

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const issuesFile = "issues.jsonl"

func projectRoot(beadsDir string) string {
	return filepath.Dir(beadsDir)
}

// IssuesPath returns the JSONL file inside a .beads directory.
func IssuesPath(beadsDir string) string {
	return filepath.Join(beadsDir, issuesFile)
}

func runBD(ctx context.Context, projectDir string, args ...string) ([]byte, error) {
	path, err := exec.LookPath("bd")
	if err != nil {
		return nil, fmt.Errorf("bd CLI not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = projectDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("bd %v failed: %w\nstderr: %s", args, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// ExportCtx reads the issues of a beads project, preferring a fresh
// `bd export` and falling back to the issues.jsonl on disk when the CLI is
// unavailable or fails.
func ExportCtx(ctx context.Context, beadsDir string, now time.Time) ([]Issue, error) {
	out, err := runBD(ctx, projectRoot(beadsDir), "export")
	if err == nil {
		return ParseJSONL(bytes.NewReader(out), now)
	}

	f, openErr := os.Open(IssuesPath(beadsDir))
	if openErr != nil {
		return nil, fmt.Errorf("exporting beads: %w (fallback: %v)", err, openErr)
	}
	defer f.Close()
	return ParseJSONL(f, now)
}

// ReadFile parses a JSONL file from disk.
func ReadFile(path string, now time.Time) ([]Issue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open issues file: %w", err)
	}
	defer f.Close()
	issues, err := ParseJSONL(f, now)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return issues, nil
}
