package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sa6mwa/vdrun"
)

func (c *cli) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Report whether a file can be resized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := vdrun.CheckTarget(args[0])
			if err != nil {
				fmt.Fprintf(c.app.stdout, "%s %v\n", ErrorStyle.Render("✗"), err)
				return &ExitError{Code: 1}
			}
			fmt.Fprintf(c.app.stdout, "%s %s\n", SuccessStyle.Render("✓"), PathStyle.Render(abs))
			return nil
		},
	}
}
