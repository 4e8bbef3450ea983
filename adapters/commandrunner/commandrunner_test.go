package commandrunner_test

import (
	"bytes"
	"errors"
	"os/exec"
	"testing"

	"github.com/sa6mwa/vdrun/adapters/commandrunner"
)

func TestDefaultRunnerStartWait(t *testing.T) {
	runner := commandrunner.DefaultRunner{}
	cmd := exec.Command("/bin/sh", "-c", "echo combined && echo err >&2")
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := runner.Start(cmd); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := runner.Wait(cmd); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if got := buf.String(); got != "combined\nerr\n" {
		t.Fatalf("unexpected combined output: %q", got)
	}
}

func TestDefaultRunnerKill(t *testing.T) {
	runner := commandrunner.DefaultRunner{}
	cmd := exec.Command("/bin/sh", "-c", "sleep 30")
	if err := runner.Start(cmd); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := runner.Kill(cmd); err != nil {
		t.Fatalf("Kill returned error: %v", err)
	}
	var exitErr *exec.ExitError
	if err := runner.Wait(cmd); !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError after kill, got %v", err)
	}
}

func TestDefaultRunnerKillNotStarted(t *testing.T) {
	if err := (commandrunner.DefaultRunner{}).Kill(exec.Command("/bin/true")); err != nil {
		t.Fatalf("Kill on unstarted command returned error: %v", err)
	}
}
