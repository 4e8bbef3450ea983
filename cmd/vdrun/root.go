package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/sa6mwa/vdrun"
	"github.com/sa6mwa/vdrun/provision"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
)

type rootFlags struct {
	configPath string
	verbose    bool
}

// cli carries state shared by all subcommands. app is populated by the root
// command's PersistentPreRunE.
type cli struct {
	flags rootFlags
	app   *app
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "vdrun",
		Short: "Resize Android vector drawables with the bundled avocado tool",
		Long: TitleStyle.Render("vdrun") + SubtitleStyle.Render(" - vector drawable resize launcher") + `

vdrun picks the resize tool built for this operating system, unpacks it
from the binary (or uses one configured on disk) and runs it as

  <tool> -i /abs/path/res/drawable/<file>.xml

Only XML files directly inside res/drawable or res/drawable-<qualifier>
are accepted.

` + SubtitleStyle.Render("Examples:") + `
  vdrun size app/src/main/res/drawable/ic_star.xml
  vdrun watch app/src/main
  vdrun platform
  vdrun config show`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(&c.flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/vdrun/config.yaml or ./vdrun.yaml)")
	root.PersistentFlags().BoolVarP(&c.flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.sizeCmd())
	root.AddCommand(c.checkCmd())
	root.AddCommand(c.watchCmd())
	root.AddCommand(c.platformCmd())
	root.AddCommand(c.configCmd())
	return root
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Execute runs the root command and exits the process. Extracted
// executables still on disk are removed first.
func Execute() {
	err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if drainErr := provision.Shutdown.Drain(); drainErr != nil {
		fmt.Fprintf(os.Stderr, "vdrun: cleanup: %v\n", drainErr)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, vdrun.ErrInterrupted) || errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
