package cli

import (
	"context"

	"github.com/hbjs97/direnv-instant/internal/config"
	"github.com/hbjs97/direnv-instant/internal/dispatch"
	"github.com/hbjs97/direnv-instant/internal/loader"
	"github.com/spf13/cobra"
)

func (a *App) newJobCmd() *cobra.Command {
	var path, generation, direnv string
	cmd := &cobra.Command{
		Use:    "job",
		Short:  "백그라운드 창에서 실행되는 로드 작업 (내부용)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runJob(cmd.Context(), path, generation, direnv)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "결과 파일 경로")
	cmd.Flags().StringVar(&generation, "generation", "", "로드 세대")
	cmd.Flags().StringVar(&direnv, "direnv", "", "direnv 실행 파일")
	_ = cmd.MarkFlagRequired("path")
	_ = cmd.MarkFlagRequired("generation")
	return cmd
}

func (a *App) runJob(ctx context.Context, path, generation, direnv string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		// 작업은 결과를 반드시 남겨야 하므로 설정 오류로 멈추지 않는다.
		a.log().Warn("설정을 읽지 못해 기본값으로 진행", "err", err)
		cfg = config.Default()
	}
	if direnv != "" {
		cfg.Direnv = direnv
	}
	d := &dispatch.Dispatcher{
		Loader: loader.New(a.Commander, cfg.Direnv),
		Notify: a.notifier(),
		Logger: a.log(),
	}
	return d.RunJob(ctx, path, generation)
}
