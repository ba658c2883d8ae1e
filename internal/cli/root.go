package cli

import (
	"github.com/hbjs97/direnv-instant/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd는 direnv-instant CLI의 루트 명령을 생성한다.
func (a *App) NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "direnv-instant",
		Short:         "tmux 안에서 .envrc를 백그라운드로 로드하는 direnv 셸 통합",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.initLogger(cmd.ErrOrStderr())
		},
	}

	defaultCfg := a.CfgPath
	if defaultCfg == "" {
		defaultCfg = config.DefaultPath()
	}
	cmd.PersistentFlags().StringVar(&a.CfgPath, "config", defaultCfg, "설정 파일 경로")
	cmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "상세 출력")

	cmd.AddCommand(
		a.newHookCmd(),
		a.newStartCmd(),
		a.newJobCmd(),
		a.newApplyCmd(),
		a.newWaitCmd(),
		a.newStatusCmd(),
		a.newDoctorCmd(),
		a.newSetupCmd(),
	)
	return cmd
}

// loadConfig는 설정 파일과 환경변수 재정의를 합친다.
func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.CfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(a.getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}
