package watch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/antigravity-dev/beadsmap/internal/beads"
	"github.com/antigravity-dev/beadsmap/internal/store"
)

// StoreImporter parses JSONL files into a store.
type StoreImporter struct {
	Store *store.Store
	Now   func() time.Time
}

// ImportFile reads path and replaces the source stored under key. A .beads
// directory is exported through the bd CLI, falling back to its issues.jsonl.
func (i StoreImporter) ImportFile(ctx context.Context, key, label, path string) error {
	now := time.Now
	if i.Now != nil {
		now = i.Now
	}

	var issues []beads.Issue
	var err error
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		issues, err = beads.ExportCtx(ctx, path, now())
	} else {
		issues, err = beads.ReadFile(path, now())
	}
	if err != nil {
		return err
	}
	if err := i.Store.PutSource(ctx, beads.Source{Key: key, Label: label, Issues: issues}); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}
