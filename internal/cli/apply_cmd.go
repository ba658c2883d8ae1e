package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/hbjs97/direnv-instant/internal/result"
	"github.com/hbjs97/direnv-instant/internal/shell"
	"github.com/spf13/cobra"
)

func (a *App) newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply [bash|zsh|fish|sh]",
		Short: "완료된 백그라운드 로드 결과를 한 번 적용한다",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runApply(cmd, args, false)
		},
	}
}

func (a *App) newWaitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wait [bash|zsh|fish|sh]",
		Short: "백그라운드 로드가 끝날 때까지 기다린 뒤 적용한다",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runApply(cmd, args, true)
		},
	}
}

func (a *App) runApply(cmd *cobra.Command, args []string, wait bool) error {
	d, err := dialectArg(args)
	if err != nil {
		return err
	}
	path := a.getenv(shell.EnvFileVar)
	generation := a.getenv(shell.GenerationVar)
	if path == "" {
		return nil
	}
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if wait {
		cfg, err := a.loadConfig()
		if err != nil {
			return err
		}
		if _, err := result.Poll(cmd.Context(), path, generation, cfg.PollInterval.Duration, cfg.PollAttempts); err != nil {
			return fmt.Errorf("cli.wait: %w", err)
		}
	}

	f, err := result.Consume(path, generation)
	if err != nil {
		if errors.Is(err, result.ErrCorrupt) {
			// 해석할 수 없는 파일은 버리고 폴링을 멈춘다.
			_ = result.Remove(path)
			if clearErr := printClear(stdout, d); clearErr != nil {
				return clearErr
			}
		}
		return fmt.Errorf("cli.apply: %w", err)
	}
	a.log().Debug("결과 소비", "path", path, "state", f.State)

	switch f.State {
	case result.StateEmpty, result.StateStale:
		// 아직 로드 중. 다음 프롬프트나 신호에서 다시 확인한다.
		return nil
	case result.StateAbsent:
		return printClear(stdout, d)
	case result.StatePopulated:
		io.WriteString(stderr, f.Log)
		fmt.Fprint(stdout, f.Script)
		return printClear(stdout, d)
	case result.StateFailed:
		io.WriteString(stderr, f.Message)
		if err := printClear(stdout, d); err != nil {
			return err
		}
		return reported(&failedResultError{code: f.ExitCode})
	default:
		return fmt.Errorf("cli.apply: 알 수 없는 상태: %s", f.State)
	}
}

func printClear(w io.Writer, d shell.Dialect) error {
	unsetVars, err := shell.FormatClearSessionVars(d)
	if err != nil {
		return err
	}
	fmt.Fprint(w, unsetVars)
	return nil
}
