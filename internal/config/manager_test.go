package config

import (
	"os"
	"strings"
	"sync"
	"testing"
)

func TestManagerGetSet(t *testing.T) {
	initial := &Config{General: General{LogLevel: "info"}}
	mgr := NewManager(initial)

	if got := mgr.Get(); got != initial {
		t.Fatal("expected initial config")
	}

	next := &Config{General: General{LogLevel: "debug"}}
	mgr.Set(next)
	if got := mgr.Get(); got.General.LogLevel != "debug" {
		t.Fatalf("expected updated config, got %q", got.General.LogLevel)
	}
}

func TestManagerReload(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	mgr := NewManager(nil)

	if err := mgr.Reload(path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if cfg := mgr.Get(); cfg == nil || cfg.API.Bind != "127.0.0.1:9900" {
		t.Fatalf("expected loaded config, got %+v", cfg)
	}

	changed := strings.Replace(validConfig, "pixels_per_day = 24", "pixels_per_day = 32", 1)
	if err := os.WriteFile(path, []byte(changed), 0644); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Reload(path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := mgr.Get().Viewport.PixelsPerDay; got != 32 {
		t.Fatalf("expected reloaded zoom 32, got %v", got)
	}
}

func TestManagerReloadRejectsRestartOnlyChanges(t *testing.T) {
	path := writeTestConfig(t, validConfig)
	mgr := NewManager(nil)
	if err := mgr.Reload(path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	changed := strings.Replace(validConfig, "127.0.0.1:9900", "0.0.0.0:9900", 1)
	if err := os.WriteFile(path, []byte(changed), 0644); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Reload(path); err == nil || !strings.Contains(err.Error(), "requires restart") {
		t.Fatalf("expected restart error, got %v", err)
	}
	if mgr.Get().API.Bind != "127.0.0.1:9900" {
		t.Fatal("rejected reload must keep the previous config")
	}
}

func TestManagerReloadRequiresPath(t *testing.T) {
	if err := NewManager(nil).Reload(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestManagerConcurrentAccess(t *testing.T) {
	mgr := NewManager(&Config{General: General{LogLevel: "info"}})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = mgr.Get().General.LogLevel
		}()
		go func() {
			defer wg.Done()
			mgr.Set(&Config{General: General{LogLevel: "debug"}})
		}()
	}
	wg.Wait()
}
