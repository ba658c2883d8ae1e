package setup

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hbjs97/direnv-instant/internal/cmdexec"
)

// DetectShell은 현재 사용자의 셸을 감지한다.
func DetectShell() string {
	sh := os.Getenv("SHELL")
	if sh == "" {
		return ""
	}
	return strings.TrimPrefix(filepath.Base(sh), "-")
}

// ShellRCPath는 셸별 RC 파일 경로를 반환한다. home이 비어있으면 사용자 홈 디렉토리다.
func ShellRCPath(shellType, home string) string {
	if home == "" {
		home, _ = os.UserHomeDir() // 홈 디렉토리 조회 실패 시 빈 문자열
	}
	switch shellType {
	case "zsh":
		return filepath.Join(home, ".zshrc")
	case "bash":
		return filepath.Join(home, ".bashrc")
	case "fish":
		return filepath.Join(home, ".config", "fish", "conf.d", "direnv-instant.fish")
	default:
		return ""
	}
}

// DetectTmux는 tmux 실행 가능 여부를 확인한다. bin이 비어있으면 "tmux".
func DetectTmux(ctx context.Context, cmd cmdexec.Commander, bin string) bool {
	if bin == "" {
		bin = "tmux"
	}
	_, err := cmd.Run(ctx, bin, "-V")
	return err == nil
}
