package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sa6mwa/vdrun/platform"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, used, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if used != "" {
		t.Fatalf("unexpected config file %q", used)
	}
	def := DefaultConfig()
	if cfg.Run.Timeout != 0 || cfg.Run.Concurrency != def.Run.Concurrency {
		t.Fatalf("unexpected run defaults: %+v", cfg.Run)
	}
	if cfg.Log.Level != "info" || cfg.Watch.Debounce != def.Watch.Debounce {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := `
tool:
  names:
    linux: resize-linux
  paths:
    mac: /opt/tools/avocado-macos
run:
  timeout: 30s
  kill_on_cancel: true
  args: ["--quiet"]
  concurrency: 2
provision:
  memfd: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, used, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if used != path {
		t.Fatalf("used = %q, want %q", used, path)
	}
	if cfg.Run.Timeout != 30*time.Second || !cfg.Run.KillOnCancel || cfg.Run.Concurrency != 2 {
		t.Fatalf("unexpected run config: %+v", cfg.Run)
	}
	if len(cfg.Run.Args) != 1 || cfg.Run.Args[0] != "--quiet" {
		t.Fatalf("unexpected args: %q", cfg.Run.Args)
	}
	if !cfg.Provision.Memfd {
		t.Fatalf("memfd not enabled")
	}
	if cfg.Tool.Paths["mac"] != "/opt/tools/avocado-macos" {
		t.Fatalf("unexpected paths: %v", cfg.Tool.Paths)
	}
	if got := cfg.ExecutableNames()[platform.Linux]; got != "resize-linux" {
		t.Fatalf("ExecutableNames()[linux] = %q", got)
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Chdir(t.TempDir())
	dir := filepath.Join(xdg, AppName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, used, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("level = %q, want debug", cfg.Log.Level)
	}
	if filepath.Base(used) != "config.yaml" {
		t.Fatalf("used = %q", used)
	}
}

func TestLoadFromWorkingDirectory(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	wd := t.TempDir()
	t.Chdir(wd)
	if err := os.WriteFile(filepath.Join(wd, "vdrun.yaml"), []byte("tool:\n  dir: ./tools\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Tool.Dir != "./tools" {
		t.Fatalf("tool.dir = %q", cfg.Tool.Dir)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("VDRUN_RUN_TIMEOUT", "5s")
	t.Setenv("VDRUN_LOG_LEVEL", "warn")
	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Run.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v, want 5s", cfg.Run.Timeout)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateRejectsUnknownPlatform(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tool.Paths = map[string]string{"beos": "/x"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown platform error")
	}
	cfg = DefaultConfig()
	cfg.Run.Timeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative timeout error")
	}
}

func TestYAMLRendersDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Run.Timeout = 90 * time.Second
	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML returned error: %v", err)
	}
	if !strings.Contains(string(out), "timeout: 1m30s") {
		t.Fatalf("unexpected yaml:\n%s", out)
	}
}
