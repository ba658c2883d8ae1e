package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hbjs97/direnv-instant/internal/shell"
)

// HookLine은 RC 파일에 넣을 한 줄이다. hook 스니펫 자체는 실행 시점에 생성되므로
// 업그레이드 후에도 RC 파일을 고칠 필요가 없다.
func HookLine(shellType, exe string) (string, error) {
	d, err := shell.ParseDialect(shellType)
	if err != nil {
		return "", fmt.Errorf("setup.HookLine: %w", err)
	}
	if exe == "" {
		exe = "direnv-instant"
	}
	// sh처럼 hook이 없는 셸을 걸러낸다.
	if _, err := shell.HookSnippet(d, exe); err != nil {
		return "", fmt.Errorf("setup.HookLine: %w", err)
	}
	exe = quoteExe(exe)

	if d == shell.Fish {
		return fmt.Sprintf("%s hook fish | source", exe), nil
	}
	return fmt.Sprintf(`eval "$(%s hook %s)"`, exe, d), nil
}

func quoteExe(exe string) string {
	if !strings.ContainsAny(exe, " \t'\"$`\\;&|()<>*?") {
		return exe
	}
	return "'" + strings.ReplaceAll(exe, "'", `'\''`) + "'"
}

// InstallShellHook은 셸 RC 파일에 direnv-instant hook을 추가한다.
// 이미 설치되어 있으면 건너뛰고 installed=false를 반환한다.
func InstallShellHook(shellType, rcPath, exe string) (installed bool, err error) {
	line, err := HookLine(shellType, exe)
	if err != nil {
		return false, err
	}

	existing, _ := os.ReadFile(rcPath) // 파일이 없으면 빈 바이트
	if strings.Contains(string(existing), shell.HookMarker) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(rcPath), 0700); err != nil {
		return false, fmt.Errorf("setup.InstallShellHook: %w", err)
	}
	f, err := os.OpenFile(rcPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return false, fmt.Errorf("setup.InstallShellHook: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "\n# %s\n%s\n", shell.HookMarker, line); err != nil {
		return false, fmt.Errorf("setup.InstallShellHook: %w", err)
	}
	return true, nil
}
