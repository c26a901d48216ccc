// Command beadsmap imports beads issue feeds and renders them as a
// dependency-aware timeline, either as tables on the terminal or over HTTP.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/antigravity-dev/beadsmap/internal/config"
	"github.com/antigravity-dev/beadsmap/internal/store"
)

const defaultConfigPath = "beadsmap.toml"

// app carries per-invocation state so commands can be built more than once
// in tests.
type app struct {
	v   *viper.Viper
	now func() time.Time
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), now: time.Now}

	root := &cobra.Command{
		Use:           "beadsmap",
		Short:         "Timeline and critical path for beads issues",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(configureLogger("warn", a.v.GetBool("dev")))
		},
	}

	root.PersistentFlags().StringP("config", "c", defaultConfigPath, "path to config file")
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.PersistentFlags().Bool("dev", false, "use text log format (default is JSON)")
	root.PersistentFlags().StringP("file", "f", "", "read issues from a JSONL file instead of the store")
	for _, name := range []string{"config", "json", "dev", "file"} {
		_ = a.v.BindPFlag(name, root.PersistentFlags().Lookup(name))
	}
	a.v.SetEnvPrefix("BEADSMAP")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.serveCmd(),
		a.importCmd(),
		a.sourcesCmd(),
		a.removeCmd(),
		a.exportCmd(),
		a.milestonesCmd(),
		a.criticalPathCmd(),
		a.orderCmd(),
		a.layoutCmd(),
	)
	return root
}

func configureLogger(logLevel string, useDev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if useDev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// loadConfig reads the configured file. A missing file at the default path
// falls back to built-in defaults; any other missing path is an error.
func (a *app) loadConfig() (*config.Config, string, error) {
	path := a.v.GetString("config")
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), "", nil
	}
	return nil, "", err
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(config.ExpandHome(cfg.General.StateDB))
}

func (a *app) jsonOutput() bool {
	return a.v.GetBool("json")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
