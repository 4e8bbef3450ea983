//go:build !linux

package provision

import (
	"errors"
	"os"
)

var errMemfdUnavailable = errors.New("memfd unavailable")

func createMemfd(string) (*os.File, error) {
	return nil, errMemfdUnavailable
}
