package zconfig_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ugv-zrf/zrf/zconfig"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	doc := `{"listen":"tcp://*:5555","workers":8,"recv_timeout":"2s"}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := zconfig.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != "tcp://*:5555" {
		t.Fatalf("expected listen override, got %q", cfg.Listen)
	}
	if cfg.Workers != 8 {
		t.Fatalf("expected workers override, got %d", cfg.Workers)
	}
	if time.Duration(cfg.RecvTimeout) != 2*time.Second {
		t.Fatalf("expected recv_timeout override, got %v", time.Duration(cfg.RecvTimeout))
	}
	// ShutdownTimeout wasn't in the file; the default should survive.
	if time.Duration(cfg.ShutdownTimeout) != 5*time.Second {
		t.Fatalf("expected default shutdown_timeout to survive, got %v", time.Duration(cfg.ShutdownTimeout))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := zconfig.Load("/nonexistent/path/config.json"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
