package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sa6mwa/vdrun"
)

func (c *cli) sizeCmd() *cobra.Command {
	var extra []string
	cmd := &cobra.Command{
		Use:     "size <file.xml>...",
		Aliases: []string{"process"},
		Short:   "Run the resize tool on one or more drawables",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx, err := a.withPolicy(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				a.host.Select(args[0])
				res, err := a.gate.InvokeSelected(ctx, a.requests(args, extra)[0].Args...)
				res.Error = err
				a.report(args[0], res)
				switch {
				case err != nil:
					return err
				case !res.Success:
					return &ExitError{Code: res.ExitCode}
				}
				return nil
			}

			results, err := a.gate.InvokeAll(ctx, a.requests(args, extra), a.cfg.Run.Concurrency)
			failed := 0
			for i, res := range results {
				a.report(args[i], res)
				if res.Error != nil || !res.Success {
					failed++
				}
			}
			if err != nil {
				return err
			}
			if failed > 0 {
				return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d drawables failed", failed, len(args))}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&extra, "arg", nil, "extra argument passed to the tool after -i <file> (repeatable)")
	return cmd
}

func (a *app) report(target string, res vdrun.Result) {
	switch {
	case res.Error != nil:
		fmt.Fprintf(a.stdout, "%s %s: %v\n", ErrorStyle.Render("✗"), PathStyle.Render(target), res.Error)
	case !res.Success:
		fmt.Fprintf(a.stdout, "%s %s: exit status %d\n", ErrorStyle.Render("✗"), PathStyle.Render(target), res.ExitCode)
	default:
		fmt.Fprintf(a.stdout, "%s %s\n", SuccessStyle.Render("✓"), PathStyle.Render(target))
	}
}
