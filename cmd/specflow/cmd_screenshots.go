package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newScreenshotsCommand(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screenshots",
		Short: "Inspect and clean up captured screenshots",
	}
	cmd.AddCommand(newScreenshotsInfoCommand(env))
	cmd.AddCommand(newScreenshotsCleanupCommand(env))
	return cmd
}

func newScreenshotsInfoCommand(env *cliEnv) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info <spec>",
		Short: "Show the screenshots stored for a spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := env.screenshots(nil).DirectoryInfo(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			printDirectoryInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the directory info as JSON")
	return cmd
}

func newScreenshotsCleanupCommand(env *cliEnv) *cobra.Command {
	var maxAge time.Duration
	cmd := &cobra.Command{
		Use:   "cleanup <spec>",
		Short: "Delete screenshots older than --max-age",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAge <= 0 {
				return fmt.Errorf("--max-age must be positive")
			}
			removed, err := env.screenshots(nil).CleanupOld(args[0], maxAge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d screenshot(s) older than %s from %s\n", removed, maxAge, args[0])
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 7*24*time.Hour, "Remove screenshots older than this")
	return cmd
}
