package setup

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hbjs97/direnv-instant/internal/cmdexec"
	"github.com/hbjs97/direnv-instant/internal/config"
	"github.com/hbjs97/direnv-instant/internal/doctor"
)

// Runner는 interactive setup의 진입점이다.
type Runner struct {
	CfgPath    string
	Commander  cmdexec.Commander
	FormRunner FormRunner
	Out        io.Writer
	// Home은 테스트용. 비어있으면 사용자 홈 디렉토리.
	Home string
	// Exe는 hook 라인에 쓸 실행 파일. 비어있으면 "direnv-instant".
	Exe string
}

// Run은 셸 선택, 멀티플렉서 모드 선택, 설정 저장, hook 설치, 진단 순으로 진행한다.
func (r *Runner) Run(ctx context.Context) error {
	cfg, err := config.Load(r.CfgPath)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(r.CfgPath)
	firstTime := os.IsNotExist(statErr)
	if firstTime {
		r.printf("direnv-instant 초기 설정을 시작합니다.\n")
	}

	shellType, err := r.FormRunner.RunShellSelect(DetectShell(), SupportedShells)
	if err != nil {
		return err
	}

	tmuxFound := DetectTmux(ctx, r.Commander, cfg.Tmux)
	current := cfg.Multiplexer
	if firstTime && !tmuxFound {
		current = "none"
	}
	mode, err := r.FormRunner.RunMultiplexerSelect(current, tmuxFound)
	if err != nil {
		return err
	}
	cfg.Multiplexer = mode

	if err := config.Save(r.CfgPath, cfg); err != nil {
		return err
	}
	r.printf("설정 파일이 저장되었습니다: %s\n", r.CfgPath)

	rcPath := ShellRCPath(shellType, r.Home)
	ok, err := r.FormRunner.RunConfirm(fmt.Sprintf("%s에 hook을 추가할까요?", rcPath))
	if err != nil {
		return err
	}
	if ok {
		installed, err := InstallShellHook(shellType, rcPath, r.Exe)
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "경고: 셸 hook 설치 실패: %v\n", err)
		case installed:
			r.printf("셸 hook이 설치되었습니다: %s\n", rcPath)
		default:
			r.printf("셸 hook이 이미 설치되어 있습니다: %s\n", rcPath)
		}
	}

	r.runDoctor(ctx, cfg)
	return nil
}

// runDoctor는 설정 완료 후 바이너리 진단을 실행한다.
func (r *Runner) runDoctor(ctx context.Context, cfg *config.Config) {
	r.printf("\n환경 진단 실행 중...\n")
	for _, res := range doctor.CheckBinaries(ctx, r.Commander, cfg.Direnv, cfg.Tmux) {
		icon := "✓"
		if res.Status == doctor.StatusFail {
			icon = "✗"
		} else if res.Status == doctor.StatusWarn {
			icon = "!"
		}
		r.printf("  [%s] %s: %s\n", icon, res.Name, res.Message)
		if res.Fix != "" {
			r.printf("      Fix: %s\n", res.Fix)
		}
	}
}

func (r *Runner) printf(format string, args ...any) {
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, format, args...)
}
