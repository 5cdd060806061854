package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gfaurobert/specflow/internal/session"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// sessionsDir holds run timelines below the results directory.
const sessionsDir = "sessions"

func newSessionsCommand(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded run timelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := listSessions(env)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "No sessions recorded.")
				return nil
			}
			t := newTable(out)
			t.AppendHeader(table.Row{"Session", "Events", "Size", "Modified"})
			for _, f := range files {
				t.AppendRow(table.Row{f.Name, f.NumEvents, formatBytes(f.Size), f.ModTime.Format(time.RFC3339)})
			}
			t.Render()
			return nil
		},
	}
	cmd.AddCommand(newSessionsViewCommand(env))
	return cmd
}

func newSessionsViewCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "view [session]",
		Short: "Show the timeline of a run (default: the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := sessionPath(env, args)
			if err != nil {
				return err
			}
			events, err := session.ReadEvents(path)
			if err != nil {
				return err
			}
			session.RenderTimeline(cmd.OutOrStdout(), events)
			return nil
		},
	}
}

func listSessions(env *cliEnv) ([]session.SessionFile, error) {
	files, err := session.ListSessions(filepath.Join(env.resultsDir(), sessionsDir))
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return files, err
}

// sessionPath accepts a path, a session file name, or nothing for the
// newest session.
func sessionPath(env *cliEnv, args []string) (string, error) {
	if len(args) == 1 {
		if _, err := os.Stat(args[0]); err == nil {
			return args[0], nil
		}
		return filepath.Join(env.resultsDir(), sessionsDir, args[0]), nil
	}
	files, err := listSessions(env)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no sessions recorded")
	}
	return files[0].Path, nil
}
