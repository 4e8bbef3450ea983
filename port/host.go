package port

import "context"

// Host is the capability surface of whatever embeds the launcher: an editor,
// a CLI, a file watcher. The invocation pipeline depends on nothing else.
type Host interface {
	// SelectedTarget returns the file the user asked to process.
	SelectedTarget() (string, error)
	// ReportProgress shows a short status message to the operator.
	ReportProgress(message string)
	// Refresh asks the host to drop any cached state of target and reload it
	// from disk.
	Refresh(ctx context.Context, target string) error
}
