package cli

import (
	"fmt"

	"github.com/hbjs97/direnv-instant/internal/shell"
	"github.com/spf13/cobra"
)

func (a *App) newHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hook [bash|zsh|fish]",
		Short: "셸 rc 파일에서 eval할 hook 스니펫을 출력한다",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dialectArg(args)
			if err != nil {
				return err
			}
			snippet, err := shell.HookSnippet(d, a.executable())
			if err != nil {
				return fmt.Errorf("cli.hook: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), snippet)
			return nil
		},
	}
}

// dialectArg는 인자로 받은 셸, 없으면 DIRENV_INSTANT_SHELL/$SHELL을 사용한다.
func dialectArg(args []string) (shell.Dialect, error) {
	if len(args) == 0 {
		return shell.DefaultDialect(), nil
	}
	d, err := shell.ParseDialect(args[0])
	if err != nil {
		return "", fmt.Errorf("cli: %w", err)
	}
	return d, nil
}
