package vdrun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sa6mwa/vdrun/adapters/mockrunner"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o700); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineRecorder) sink(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

func (l *lineRecorder) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.lines)
}

func TestProcessRunnerMergesStreams(t *testing.T) {
	script := writeScript(t, "echo stdout\necho stderr 1>&2\nprintf tail\n")
	rec := &lineRecorder{}
	pr := &ProcessRunner{Sink: rec.sink}

	res, err := pr.Run(context.Background(), script)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.Success || res.ExitCode != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if got := string(res.CombinedOutput); got != "stdout\nstderr\ntail" {
		t.Fatalf("unexpected combined output: %q", got)
	}
	if got := rec.get(); !slices.Equal(got, []string{"stdout", "stderr", "tail"}) {
		t.Fatalf("unexpected sink lines: %q", got)
	}
}

func TestProcessRunnerPassesArgumentsVerbatim(t *testing.T) {
	script := writeScript(t, "for a in \"$@\"; do printf '[%s]\\n' \"$a\"; done\n")
	pr := &ProcessRunner{}
	res, err := pr.Run(context.Background(), script, "-i", "/tmp/with space/ic.xml", "*", "$HOME")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := "[-i]\n[/tmp/with space/ic.xml]\n[*]\n[$HOME]\n"
	if got := string(res.CombinedOutput); got != want {
		t.Fatalf("arguments mangled: got %q want %q", got, want)
	}
}

func TestProcessRunnerNonZeroExitIsNotAnError(t *testing.T) {
	script := writeScript(t, "echo failing\nexit 3\n")
	res, err := (&ProcessRunner{}).Run(context.Background(), script)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Success || res.ExitCode != 3 {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestProcessRunnerLaunchFailed(t *testing.T) {
	pr := &ProcessRunner{}
	_, err := pr.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrLaunchFailed) {
		t.Fatalf("error = %v, want ErrLaunchFailed", err)
	}

	if runtime.GOOS == "windows" {
		return
	}
	noexec := filepath.Join(t.TempDir(), "noexec")
	if err := os.WriteFile(noexec, []byte("#!/bin/sh\necho hi\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := pr.Run(context.Background(), noexec); !errors.Is(err, ErrLaunchFailed) {
		t.Fatalf("error = %v, want ErrLaunchFailed for missing execute bit", err)
	}
}

func TestProcessRunnerStartErrorFromRunner(t *testing.T) {
	mock := mockrunner.New()
	mock.StartErr = os.ErrPermission
	_, err := (&ProcessRunner{Runner: mock}).Run(context.Background(), "/opt/tool")
	if !errors.Is(err, ErrLaunchFailed) || !errors.Is(err, os.ErrPermission) {
		t.Fatalf("error = %v, want ErrLaunchFailed wrapping os.ErrPermission", err)
	}
}

func TestProcessRunnerInterruptedLeavesChildRunning(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	mock := mockrunner.New(mockrunner.Hang(release))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := (&ProcessRunner{Runner: mock}).Run(ctx, "/opt/tool")
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("error = %v, want ErrInterrupted", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want it to wrap context.Canceled", err)
	}
	if mock.Killed() != 0 {
		t.Fatalf("child was killed without KillOnCancel")
	}
}

func TestProcessRunnerKillOnCancel(t *testing.T) {
	mock := mockrunner.New(mockrunner.Hang(nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&ProcessRunner{Runner: mock, KillOnCancel: true}).Run(ctx, "/opt/tool")
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("error = %v, want ErrInterrupted", err)
	}
	if mock.Killed() != 1 {
		t.Fatalf("Killed() = %d, want 1", mock.Killed())
	}
}

func TestProcessRunnerTimeoutKillsChild(t *testing.T) {
	mock := mockrunner.New(mockrunner.Hang(nil))
	pr := &ProcessRunner{Runner: mock, Timeout: 20 * time.Millisecond}
	_, err := pr.Run(context.Background(), "/opt/tool")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if mock.Killed() != 1 {
		t.Fatalf("Killed() = %d, want 1", mock.Killed())
	}
}

func TestProcessRunnerTimeoutRealProcess(t *testing.T) {
	script := writeScript(t, "echo started\nexec sleep 30\n")
	start := time.Now()
	res, err := (&ProcessRunner{Timeout: 200 * time.Millisecond}).Run(context.Background(), script)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatalf("timeout did not kill the child")
	}
	if string(res.CombinedOutput) != "started\n" {
		t.Fatalf("output before timeout lost: %q", res.CombinedOutput)
	}
}

func TestExitCodeFrom(t *testing.T) {
	if got := exitCodeFrom(nil, nil); got != 0 {
		t.Fatalf("exitCodeFrom(nil) = %d", got)
	}
	if got := exitCodeFrom(mockrunner.ExitStatus(5), nil); got != 5 {
		t.Fatalf("exitCodeFrom(ExitStatus(5)) = %d", got)
	}
	if got := exitCodeFrom(errors.New("io"), nil); got != -1 {
		t.Fatalf("exitCodeFrom(other) = %d", got)
	}
}
