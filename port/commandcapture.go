package port

import "io"

// CommandCapture receives the merged stdout/stderr of a command. Implementations
// are provided by adapters/commandcapture.
type CommandCapture interface {
	io.Writer
	// Flush delivers a trailing line that was not newline terminated.
	Flush()
	// Bytes returns a copy of everything written so far.
	Bytes() []byte
}
