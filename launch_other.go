//go:build !unix

package vdrun

import (
	"errors"
	"io/fs"
)

const hintNotExecutable = "not executable"

func launchHint(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return hintNotExecutable
	case errors.Is(err, fs.ErrNotExist):
		return "no such file"
	}
	return ""
}
