package main

import (
	"encoding/json"
	"fmt"

	"github.com/gfaurobert/specflow/internal/analyzer"
	"github.com/gfaurobert/specflow/internal/pipeline"
	"github.com/spf13/cobra"
)

func newAnalyzeCommand(env *cliEnv) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze <spec-file|spec-dir>",
		Short: "Extract EARS acceptance criteria from a requirements document",
		Long: `Parse a requirements document and list every WHEN/IF ... THEN ... SHALL
criterion it contains, marking which ones drive UI behaviour and will
produce test steps.

The argument may be a spec name under the specs directory, a spec folder
or a markdown file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := analyzer.Resolve(args[0], env.specsRoot())
			if err != nil {
				return err
			}
			p := pipeline.New(pipeline.Config{},
				pipeline.WithAnalyzer(analyzer.New(analyzer.WithLogger(env.logger))),
				pipeline.WithLogger(env.logger))
			prep, err := p.Analyze(doc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(prep.Requirements); err != nil {
					return fmt.Errorf("encoding requirements: %w", err)
				}
				return nil
			}
			printCriteria(out, prep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the parsed requirements as JSON")
	return cmd
}
