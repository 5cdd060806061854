package main

import (
	"fmt"
	"os"

	"github.com/gfaurobert/specflow/internal/logging"
	"github.com/gfaurobert/specflow/internal/projectconfig"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// cliEnv is what every subcommand needs once the persistent flags have been
// processed.
type cliEnv struct {
	configPath string
	debug      bool
	logFormat  string
	workDir    string

	cfg    *projectconfig.ProjectConfig
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	env := &cliEnv{}
	cmd := &cobra.Command{
		Use:   "specflow",
		Short: "SpecFlow - end-to-end tests from EARS acceptance criteria",
		Long: `SpecFlow turns EARS acceptance criteria in requirements documents into
browser test scripts, runs them, captures screenshot evidence and keeps a
markdown summary of the results.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if env.logger != nil {
				_ = env.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&env.configPath, "config", "", "Path to a .specflow.yaml file (default: search upwards from the working directory)")
	cmd.PersistentFlags().BoolVar(&env.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&env.logFormat, "log-format", "", "Log format: console or json")

	cmd.AddCommand(newAnalyzeCommand(env))
	cmd.AddCommand(newGenerateCommand(env))
	cmd.AddCommand(newRunCommand(env))
	cmd.AddCommand(newReportCommand(env))
	cmd.AddCommand(newScreenshotsCommand(env))
	cmd.AddCommand(newServeCommand(env))
	cmd.AddCommand(newPublishCommand(env))
	cmd.AddCommand(newSessionsCommand(env))
	cmd.AddCommand(newInitCommand(env))

	return cmd
}

// load reads .env, the project config and the environment, then builds the
// logger. Flags win over everything else.
func (e *cliEnv) load() error {
	if e.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		e.workDir = wd
	}

	if err := projectconfig.LoadDotEnv(e.workDir); err != nil {
		return err
	}

	var (
		cfg *projectconfig.ProjectConfig
		err error
	)
	if e.configPath != "" {
		cfg, err = projectconfig.LoadFile(e.configPath)
	} else {
		cfg, err = projectconfig.Load(e.workDir)
	}
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}

	if e.logFormat != "" {
		cfg.Logging.Format = e.logFormat
	}
	if e.debug {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.NewLogger(cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.logger = logger
	if cfg.Source != "" {
		logger.Debug("loaded config", zap.String("path", cfg.Source))
	}
	return nil
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
