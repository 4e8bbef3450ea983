package vdrun

import (
	"errors"
	"slices"

	"github.com/sa6mwa/vdrun/platform"
	"github.com/sa6mwa/vdrun/provision"
)

// Every failure of an invocation matches exactly one of these with errors.Is.
var (
	ErrUnsupportedPlatform = platform.ErrUnsupportedPlatform
	ErrExecutableMissing   = provision.ErrExecutableMissing
	ErrExtractionFailed    = provision.ErrExtractionFailed
	ErrDenied              = provision.ErrDenied
	ErrLaunchFailed        = errors.New("launch failed")
	ErrInterrupted         = errors.New("interrupted")
	ErrTimeout             = errors.New("timed out")
	ErrNotEligible         = errors.New("target not eligible")
)

// Request asks for one run of the tool against Target. Args are appended
// after "-i <target>".
type Request struct {
	Target string
	Args   []string
}

// NewRequest builds a Request that does not alias args.
func NewRequest(target string, args ...string) Request {
	return Request{Target: target, Args: slices.Clone(args)}
}
