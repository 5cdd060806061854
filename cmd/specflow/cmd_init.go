package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gfaurobert/specflow/internal/analyzer"
	"github.com/gfaurobert/specflow/internal/projectconfig"
	"github.com/gfaurobert/specflow/internal/wizard"
	"github.com/spf13/cobra"
)

func newInitCommand(env *cliEnv) *cobra.Command {
	var (
		yes   bool
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .specflow.yaml for this project",
		Long: `Ask for the application URL, the specs directory and the run settings,
then write .specflow.yaml in the current directory. Optionally scaffolds a
starter requirements.md written in EARS form.

Use --yes to accept every default without prompting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := filepath.Join(env.workDir, projectconfig.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			answers := wizard.Defaults()
			if !yes {
				var err error
				answers, err = wizard.Run(cmd.InOrStdin(), out, env.cfg)
				if err != nil {
					return err
				}
			}

			cfg := projectconfig.New()
			answers.Apply(cfg)
			if err := projectconfig.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", path)

			if answers.StarterSpec == "" {
				return nil
			}
			specPath, err := writeStarterSpec(filepath.Join(env.workDir, cfg.Paths.Specs), answers)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", specPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

// writeStarterSpec never overwrites an existing requirements document.
func writeStarterSpec(specsRoot string, answers *wizard.Answers) (string, error) {
	dir := filepath.Join(specsRoot, answers.StarterSpec)
	path := filepath.Join(dir, analyzer.RequirementsFile)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	content, err := wizard.GenerateStarterSpec(answers.StarterFeature)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating spec folder: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
