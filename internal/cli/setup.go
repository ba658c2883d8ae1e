package cli

import (
	"fmt"
	"os"

	"github.com/hbjs97/direnv-instant/internal/setup"
	"github.com/spf13/cobra"
)

func (a *App) newSetupCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "셸 hook을 설치하고 설정 파일을 만든다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				if err := os.Remove(a.CfgPath); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("cli.setup: 기존 설정 삭제 실패: %w", err)
				}
			}
			r := &setup.Runner{
				CfgPath:    a.CfgPath,
				Commander:  a.Commander,
				FormRunner: a.formRunner(),
				Out:        cmd.OutOrStdout(),
				Exe:        a.executable(),
			}
			return r.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "기존 설정을 지우고 기본값에서 다시 시작")
	return cmd
}
