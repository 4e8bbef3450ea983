package commandrunner

import (
	"os/exec"

	"github.com/sa6mwa/vdrun/port"
)

// DefaultRunner executes commands using os/exec directly.
type DefaultRunner struct{}

var _ port.CommandRunner = DefaultRunner{}

func (DefaultRunner) Start(cmd *exec.Cmd) error {
	return cmd.Start()
}

func (DefaultRunner) Wait(cmd *exec.Cmd) error {
	return cmd.Wait()
}

// Kill sends SIGKILL (TerminateProcess on Windows) to a started command.
func (DefaultRunner) Kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// Default is a shared instance of DefaultRunner.
var Default port.CommandRunner = DefaultRunner{}
