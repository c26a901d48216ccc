package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/antigravity-dev/beadsmap/internal/beads"
	"github.com/antigravity-dev/beadsmap/internal/config"
	"github.com/antigravity-dev/beadsmap/internal/watch"
)

func (a *app) importCmd() *cobra.Command {
	var key, label string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSONL issue file as a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			path := args[0]
			srcKey, srcLabel := sourceIdentity(cfg, path, key, label)

			importer := watch.StoreImporter{Store: st, Now: a.now}
			if err := importer.ImportFile(cmd.Context(), srcKey, srcLabel, path); err != nil {
				return err
			}
			src, err := st.GetSource(cmd.Context(), srcKey, a.now())
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"key":         src.Key,
					"label":       src.Label,
					"issue_count": len(src.Issues),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d issues into %s (%s)\n", len(src.Issues), src.Key, src.Label)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "source key (default: matching configured source, else a new file key)")
	cmd.Flags().StringVar(&label, "label", "", "source label (default: file name)")
	return cmd
}

// sourceIdentity fills in key and label for an imported path. A path that
// matches a configured source reuses its key and label.
func sourceIdentity(cfg *config.Config, path, key, label string) (string, string) {
	if abs, err := filepath.Abs(path); err == nil {
		for _, src := range cfg.Sources {
			srcAbs, err := filepath.Abs(config.ExpandHome(src.Path))
			if err != nil || srcAbs != abs {
				continue
			}
			if key == "" {
				key = src.Key
			}
			if label == "" {
				label = src.Label
			}
		}
	}
	if key == "" {
		key = beads.FileSourceKey()
	}
	if label == "" {
		label = filepath.Base(path)
	}
	return key, label
}

func (a *app) sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List stored sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			infos, err := st.ListSources(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), infos)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Key", "Label", "Issues", "Updated"})
			for _, info := range infos {
				tw.AppendRow(table.Row{info.Key, info.Label, info.IssueCount, info.UpdatedAt.Format(time.DateTime)})
			}
			tw.Render()
			return nil
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove a stored source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteSource(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored issues as JSONL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			var issues []beads.Issue
			if key != "" {
				src, err := st.GetSource(cmd.Context(), key, a.now())
				if err != nil {
					return err
				}
				issues = src.Issues
			} else if issues, err = st.Issues(cmd.Context(), a.now()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := beads.WriteJSONL(out, issues); err != nil {
				return err
			}
			if len(issues) > 0 {
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "export only this source")
	return cmd
}
