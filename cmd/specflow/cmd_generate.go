package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gfaurobert/specflow/internal/analyzer"
	"github.com/gfaurobert/specflow/internal/pipeline"
	"github.com/gfaurobert/specflow/internal/watch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newGenerateCommand(env *cliEnv) *cobra.Command {
	var watchMode bool
	cmd := &cobra.Command{
		Use:   "generate [spec...]",
		Short: "Generate test scripts from specs",
		Long: `Analyze each spec and write its test script and step plan under the
scripts directory. With no arguments every spec under the specs directory
is generated.

With --watch, scripts are regenerated whenever a requirements.md changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := pipeline.New(pipeline.Config{ScriptsRoot: env.scriptsRoot()},
				pipeline.WithGenerator(env.generator()),
				pipeline.WithLogger(env.logger))
			out := cmd.OutOrStdout()

			if watchMode {
				if len(args) > 0 {
					return fmt.Errorf("--watch covers every spec; do not pass spec arguments")
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return watchSpecs(ctx, env, p, out)
			}

			docs, err := env.specDocs(args)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				prep, err := p.Prepare(doc)
				if err != nil {
					return fmt.Errorf("%s: %w", doc.Name, err)
				}
				printScript(out, prep)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watchMode, "watch", false, "Regenerate scripts when spec documents change")
	return cmd
}

func watchSpecs(ctx context.Context, env *cliEnv, p *pipeline.Pipeline, out io.Writer) error {
	w, err := watch.New(env.specsRoot(), func(_ context.Context, doc analyzer.SpecDocument) error {
		prep, err := p.Prepare(doc)
		if err != nil {
			return err
		}
		printScript(out, prep)
		return nil
	}, watch.WithLogger(env.logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			env.logger.Warn("closing watcher", zap.Error(err))
		}
	}()
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", env.specsRoot())
	return w.Run(ctx)
}
