//go:build linux

package provision

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var errMemfdUnavailable = errors.New("memfd unavailable")

// createMemfd creates an anonymous file with memfd_create(2). The descriptor
// is inherited by children so that /proc/self/fd/N resolves for shebang
// interpreters as well.
func createMemfd(name string) (*os.File, error) {
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errMemfdUnavailable, err)
	}
	return os.NewFile(uintptr(fd), fmt.Sprintf("/proc/self/fd/%d", fd)), nil
}
