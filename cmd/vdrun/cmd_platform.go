package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sa6mwa/vdrun/bundle"
	"github.com/sa6mwa/vdrun/platform"
)

func (c *cli) platformCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Show which resize tool executable this host uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			if all {
				for _, tag := range platform.Tags {
					fmt.Fprintf(a.stdout, "%-6s %-18s %s\n", tag, a.resolver.Name(tag), bundle.Describe(a.table, tag))
				}
				return nil
			}
			osName := platform.HostOSName()
			exe, err := a.resolver.Resolve(osName)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s %s\n", SubtitleStyle.Render("os:        "), osName)
			fmt.Fprintf(a.stdout, "%s %s\n", SubtitleStyle.Render("platform:  "), exe.Platform)
			fmt.Fprintf(a.stdout, "%s %s\n", SubtitleStyle.Render("executable:"), exe.Name)
			fmt.Fprintf(a.stdout, "%s %s\n", SubtitleStyle.Render("source:    "), bundle.Describe(a.table, exe.Platform))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every supported platform")
	return cmd
}
