package port

import (
	"os/exec"
)

// CommandRunner abstracts process lifecycle so the runner can be swapped for
// a test double. Wait must not return before all output written to
// cmd.Stdout/cmd.Stderr has been delivered.
type CommandRunner interface {
	Start(cmd *exec.Cmd) error
	Wait(cmd *exec.Cmd) error
	Kill(cmd *exec.Cmd) error
}
