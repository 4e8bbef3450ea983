package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sa6mwa/vdrun"
	"github.com/sa6mwa/vdrun/internal/watch"
)

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Resize drawables whenever they are created or modified",
		Long: `Watch a project tree and run the resize tool on every XML file that
appears or changes in a res/drawable* folder. The tool's own rewrite of a
file is recognised and does not trigger another run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			ctx, err := a.withPolicy(cmd.Context())
			if err != nil {
				return err
			}
			cache := a.host.Cache()
			w, err := watch.New(watch.Config{
				BaseDir:  dir,
				Ignore:   a.cfg.Watch.Ignore,
				Debounce: a.cfg.Watch.Debounce,
				Logger:   a.logger,
				Filter: func(path string) bool {
					return vdrun.Eligible(path) && !cache.Unchanged(path)
				},
				OnChange: func(ctx context.Context, changed []string) error {
					results, err := a.gate.InvokeAll(ctx, a.requests(changed, nil), a.cfg.Run.Concurrency)
					for i, res := range results {
						a.report(changed[i], res)
					}
					return err
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s watching %s (Ctrl+C to stop)\n", TitleStyle.Render("→"), PathStyle.Render(dir))
			return w.Run(ctx)
		},
	}
}
