// Package hooks runs user-configured shell commands around a pipeline run.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// HookConfig defines a single hook command.
type HookConfig struct {
	Command          string `yaml:"command" json:"command"`
	WorkingDirectory string `yaml:"working_directory,omitempty" json:"working_directory,omitempty"`
	ExitCodes        []int  `yaml:"exit_codes,omitempty" json:"exit_codes,omitempty"`
	ErrorOnFail      bool   `yaml:"error_on_fail,omitempty" json:"error_on_fail,omitempty"`
}

// HooksConfig holds all lifecycle hooks.
type HooksConfig struct {
	BeforeRun  []HookConfig `yaml:"before_run,omitempty" json:"before_run,omitempty"`
	AfterRun   []HookConfig `yaml:"after_run,omitempty" json:"after_run,omitempty"`
	BeforeSpec []HookConfig `yaml:"before_spec,omitempty" json:"before_spec,omitempty"`
	AfterSpec  []HookConfig `yaml:"after_spec,omitempty" json:"after_spec,omitempty"`
}

// Lifecycle point names.
const (
	BeforeRun  = "before_run"
	AfterRun   = "after_run"
	BeforeSpec = "before_spec"
	AfterSpec  = "after_spec"
)

// Runner executes hook commands at lifecycle points.
type Runner struct {
	Logger *zap.Logger
}

// Execute runs the hooks for lifecycle point name in order. env entries
// ("KEY=value") are added to the inherited environment together with
// SPECFLOW_HOOK=<name>. The first hook that fails with ErrorOnFail set stops
// the sequence.
func (r *Runner) Execute(ctx context.Context, name string, hooks []HookConfig, env ...string) error {
	env = append([]string{"SPECFLOW_HOOK=" + name}, env...)
	for i, h := range hooks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("hook %s: %w", name, err)
		}
		if err := r.run(ctx, name, i, h, env); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) logger() *zap.Logger {
	if r == nil || r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) run(ctx context.Context, name string, index int, h HookConfig, env []string) error {
	args := strings.Fields(h.Command)
	if len(args) == 0 {
		return fmt.Errorf("hook %s[%d]: empty command", name, index)
	}
	log := r.logger().With(zap.String("hook", name), zap.Int("index", index), zap.String("command", args[0]))

	//nolint:gosec // commands come from the project config
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = h.WorkingDirectory
	cmd.Env = append(os.Environ(), env...)

	output, runErr := cmd.CombinedOutput()
	if out := strings.TrimSpace(string(output)); out != "" {
		log.Debug("hook output", zap.String("output", out))
	}

	code, exited := exitCode(runErr)
	var failure error
	switch {
	case !exited:
		failure = runErr
	case !isAcceptableExit(code, h.ExitCodes):
		failure = fmt.Errorf("exit code %d, expected %v", code, expectedCodes(h.ExitCodes))
	}
	if failure == nil {
		log.Debug("hook finished", zap.Int("exit_code", code))
		return nil
	}
	if h.ErrorOnFail {
		return fmt.Errorf("hook %s[%d] %q: %w", name, index, h.Command, failure)
	}
	log.Warn("hook failed, continuing", zap.Error(failure))
	return nil
}

// exitCode reports the process exit code of a finished command. exited is
// false when the command could not be started or was killed.
func exitCode(err error) (code int, exited bool) {
	if err == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), true
	}
	return -1, false
}

func expectedCodes(allowed []int) []int {
	if len(allowed) == 0 {
		return []int{0}
	}
	return allowed
}

// isAcceptableExit reports whether exitCode is allowed. No list means only 0.
func isAcceptableExit(exitCode int, allowedCodes []int) bool {
	return slices.Contains(expectedCodes(allowedCodes), exitCode)
}
