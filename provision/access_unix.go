//go:build unix

package provision

import "golang.org/x/sys/unix"

// executable checks that the current user may execute path.
func executable(path string) error {
	return unix.Access(path, unix.X_OK)
}
