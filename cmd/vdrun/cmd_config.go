package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			out, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			if a.cfgFile != "" {
				fmt.Fprintf(a.stdout, "# %s\n", a.cfgFile)
			}
			_, err = a.stdout.Write(out)
			return err
		},
	})
	return cmd
}
