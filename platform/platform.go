// Package platform maps an operating system name to the bundled resize tool
// executable built for it.
package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Tag identifies one of the supported platforms.
type Tag string

const (
	Mac     Tag = "mac"
	Windows Tag = "win"
	Linux   Tag = "linux"
)

// Tags lists the supported platforms in matching priority order.
var Tags = []Tag{Mac, Windows, Linux}

var ErrUnsupportedPlatform = errors.New("unsupported platform")

// UnsupportedPlatformError carries the os name that did not match any
// supported platform.
type UnsupportedPlatformError struct {
	OS string
}

func (e *UnsupportedPlatformError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("unsupported operating system: %q", e.OS)
}

func (e *UnsupportedPlatformError) Is(target error) bool {
	return target == ErrUnsupportedPlatform
}

// DefaultNames are the executable names shipped in the bundle.
var DefaultNames = map[Tag]string{
	Mac:     "avocado-macos",
	Windows: "avocado-win.exe",
	Linux:   "avocado-linux",
}

// Executable is the resolved executable identifier for a platform.
type Executable struct {
	Platform Tag
	Name     string
}

func (e Executable) String() string {
	return e.Name
}

// Resolver resolves os names to executables. The zero value uses
// DefaultNames.
type Resolver struct {
	Names map[Tag]string
}

// Resolve matches osName (case-insensitive) against "mac", "win" and
// "linux" in that order; the first substring match wins.
func (r Resolver) Resolve(osName string) (Executable, error) {
	os := strings.ToLower(osName)
	for _, tag := range Tags {
		if strings.Contains(os, string(tag)) {
			return Executable{Platform: tag, Name: r.Name(tag)}, nil
		}
	}
	return Executable{}, &UnsupportedPlatformError{OS: osName}
}

// Name returns the executable name configured for tag.
func (r Resolver) Name(tag Tag) string {
	if n, ok := r.Names[tag]; ok && n != "" {
		return n
	}
	return DefaultNames[tag]
}

// Resolve uses the zero Resolver.
func Resolve(osName string) (Executable, error) {
	return Resolver{}.Resolve(osName)
}

// HostOSName returns a lower-case os name for the running system suitable
// for Resolve. runtime.GOOS is not used directly since "darwin" contains
// "win".
func HostOSName() string {
	return osName(runtime.GOOS)
}

func osName(goos string) string {
	switch goos {
	case "darwin", "ios":
		return "mac os x"
	case "windows":
		return "windows"
	case "linux", "android":
		return "linux"
	default:
		return goos
	}
}
