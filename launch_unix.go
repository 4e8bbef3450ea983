//go:build unix

package vdrun

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

const hintNotExecutable = "not executable"

// launchHint names the usual cause of a start failure: a payload without
// the execute bit, a mount with noexec, or a binary built for another
// platform.
func launchHint(err error) string {
	switch {
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM), errors.Is(err, os.ErrPermission):
		return hintNotExecutable
	case errors.Is(err, unix.ENOEXEC):
		return "exec format error"
	case errors.Is(err, unix.ENOENT):
		return "no such file"
	}
	return ""
}
