package provision

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestRegistryConcurrentRegisterAndDrain(t *testing.T) {
	dir := t.TempDir()
	reg := &Registry{}
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := filepath.Join(dir, fmt.Sprintf("exe-%d", i))
			if err := os.WriteFile(p, []byte("x"), 0o700); err != nil {
				t.Errorf("write: %v", err)
				return
			}
			reg.Register(p)
			reg.Register(p)
		}(i)
	}
	wg.Wait()
	if n := len(reg.Paths()); n != 16 {
		t.Fatalf("registered %d paths, want 16", n)
	}
	if err := reg.Drain(); err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("Drain left %d files behind", len(entries))
	}
	if len(reg.Paths()) != 0 {
		t.Fatalf("registry not emptied")
	}
}

func TestRegistryDrainIgnoresMissingFiles(t *testing.T) {
	reg := &Registry{}
	reg.Register(filepath.Join(t.TempDir(), "gone"))
	if err := reg.Drain(); err != nil {
		t.Fatalf("Drain returned error for missing file: %v", err)
	}
}

func TestRegistryDrainReportsFailures(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nonempty")
	if err := os.MkdirAll(filepath.Join(sub, "child"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	reg := &Registry{}
	reg.Register(sub)
	err := reg.Drain()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected removal error, got %v", err)
	}
}
