package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Split.Background != 0 {
		t.Errorf("default background = %v, want 0", cfg.Split.Background)
	}
	if cfg.Split.PadWidth != 3 {
		t.Errorf("default padWidth = %d, want 3", cfg.Split.PadWidth)
	}
	if !cfg.Output.Verbose {
		t.Error("default verbose should be true")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Split.PadWidth != 3 {
		t.Errorf("missing file should yield defaults, got padWidth %d", cfg.Split.PadWidth)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("split:\n  background: 255\n  padWidth: 5\noutput:\n  verbose: false\n")
	if err := os.WriteFile(path, body, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Split.Background != 255 {
		t.Errorf("background = %v, want 255", cfg.Split.Background)
	}
	if cfg.Split.PadWidth != 5 {
		t.Errorf("padWidth = %d, want 5", cfg.Split.PadWidth)
	}
	if cfg.Output.Verbose {
		t.Error("verbose should be false")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Split.PadWidth = 4

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Split.PadWidth != 4 {
		t.Errorf("padWidth = %d, want 4", loaded.Split.PadWidth)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("split: [not a map"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
