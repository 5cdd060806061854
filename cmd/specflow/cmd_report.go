package main

import (
	"fmt"

	"github.com/gfaurobert/specflow/internal/analyzer"
	"github.com/gfaurobert/specflow/internal/pipeline"
	"github.com/gfaurobert/specflow/internal/reporting"
	"github.com/spf13/cobra"
)

func newReportCommand(env *cliEnv) *cobra.Command {
	var junit string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Regenerate the test summary from stored results",
		Long: `Rebuild the markdown summary from the newest stored result of every spec.
Specs without results are listed as future tests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := env.resultStore()
			if err != nil {
				return err
			}
			defer store.Close()

			docs, err := analyzer.Discover(env.specsRoot())
			if err != nil {
				return err
			}
			if junit == "" {
				junit = env.cfg.Output.JUnit
			}

			gen := reporting.NewGenerator(env.reportPath(), reporting.WithLogger(env.logger))
			p := pipeline.New(pipeline.Config{JUnitPath: resolveOptional(env, junit)},
				pipeline.WithStore(store),
				pipeline.WithReporter(gen),
				pipeline.WithLogger(env.logger))

			out := &pipeline.Outcome{}
			if err := p.Report(cmd.Context(), docs, out); err != nil {
				return err
			}

			latest, err := store.Latest()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprint(w, reporting.FormatSummary(gen.BuildReportData(latest, out.Future, out.Errors)))
			fmt.Fprintf(w, "Report: %s\n", env.reportPath())
			return nil
		},
	}
	cmd.Flags().StringVar(&junit, "junit", "", "Also write a JUnit XML report to this path")
	return cmd
}
