// Package doctor diagnoses the environment direnv-instant depends on: the
// loader and multiplexer binaries, the private state directory and whether
// the current shell can take the asynchronous path.
package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hbjs97/direnv-instant/internal/cmdexec"
	"github.com/hbjs97/direnv-instant/internal/config"
	"github.com/hbjs97/direnv-instant/internal/mux"
	"github.com/hbjs97/direnv-instant/internal/session"
)

// Status는 진단 결과 상태다.
type Status string

const (
	// StatusOK는 정상 상태다.
	StatusOK Status = "OK"
	// StatusWarn는 경고 상태다.
	StatusWarn Status = "WARN"
	// StatusFail는 실패 상태다.
	StatusFail Status = "FAIL"
)

// DiagResult는 하나의 진단 결과다.
type DiagResult struct {
	Name    string
	Status  Status
	Message string
	Fix     string
}

// Options는 RunAll의 입력이다.
type Options struct {
	Direnv     string
	Tmux       string
	StateDir   string
	ConfigPath string
	Mode       string
	Mux        mux.Multiplexer
}

// CheckBinaries는 direnv(필수)와 tmux(선택) 바이너리를 확인한다.
// tmux가 없으면 항상 동기 로드가 되므로 경고다.
func CheckBinaries(ctx context.Context, cmd cmdexec.Commander, direnv, tmux string) []DiagResult {
	if direnv == "" {
		direnv = "direnv"
	}
	if tmux == "" {
		tmux = "tmux"
	}
	binaries := []struct {
		name    string
		bin     string
		args    []string
		missing Status
		install string
	}{
		{"direnv", direnv, []string{"version"}, StatusFail, "https://direnv.net/docs/installation.html"},
		{"tmux", tmux, []string{"-V"}, StatusWarn, "tmux를 설치하면 비동기 로드를 사용할 수 있습니다"},
	}

	var results []DiagResult
	for _, b := range binaries {
		out, err := cmd.Run(ctx, b.bin, b.args...)
		if err != nil {
			results = append(results, DiagResult{
				Name:    b.name,
				Status:  b.missing,
				Message: fmt.Sprintf("%s 실행 불가", b.bin),
				Fix:     fmt.Sprintf("설치: %s", b.install),
			})
			continue
		}
		results = append(results, DiagResult{
			Name:    b.name,
			Status:  StatusOK,
			Message: strings.TrimSpace(string(out)),
		})
	}
	return results
}

// CheckStateDir는 결과 파일 디렉토리가 사용 가능하고 본인만 접근할 수 있는지 확인한다.
func CheckStateDir(dir string) DiagResult {
	loc := session.NewLocator(dir)
	if err := loc.Ensure(); err != nil {
		return DiagResult{
			Name:    "state_dir",
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     "state_dir 설정 또는 DIRENV_INSTANT_STATE_DIR로 쓰기 가능한 경로 지정",
		}
	}
	info, err := os.Stat(loc.Dir)
	if err == nil && info.Mode().Perm()&0077 != 0 {
		return DiagResult{
			Name:    "state_dir",
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s 권한이 %o (환경변수가 기록됨)", loc.Dir, info.Mode().Perm()),
			Fix:     fmt.Sprintf("chmod 700 %s", loc.Dir),
		}
	}
	return DiagResult{
		Name:    "state_dir",
		Status:  StatusOK,
		Message: loc.Dir,
	}
}

// CheckMultiplexer는 현재 셸이 비동기 로드를 쓸 수 있는지 확인한다.
func CheckMultiplexer(m mux.Multiplexer, mode string) DiagResult {
	if mode == mux.ModeNone || m == nil {
		return DiagResult{
			Name:    "multiplexer",
			Status:  StatusOK,
			Message: "비활성 (항상 동기 로드)",
		}
	}
	if !m.Attached() {
		return DiagResult{
			Name:    "multiplexer",
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s 밖에서 실행 중 (동기 로드)", m.Name()),
			Fix:     fmt.Sprintf("%s 세션 안에서 셸을 시작하세요", m.Name()),
		}
	}
	return DiagResult{
		Name:    "multiplexer",
		Status:  StatusOK,
		Message: fmt.Sprintf("%s 연결됨 (비동기 로드)", m.Name()),
	}
}

// CheckConfig는 설정 파일을 읽을 수 있는지, 권한이 0600인지 확인한다. 파일이 없으면 기본값 사용이다.
func CheckConfig(path string) DiagResult {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DiagResult{Name: "config", Status: StatusOK, Message: "설정 파일 없음 (기본값 사용)"}
	}
	if _, err := config.Load(path); err != nil {
		return DiagResult{
			Name:    "config",
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     fmt.Sprintf("%s 확인", path),
		}
	}
	if err := config.ValidateFilePermissions(path); err != nil {
		return DiagResult{
			Name:    "config",
			Status:  StatusWarn,
			Message: err.Error(),
			Fix:     fmt.Sprintf("chmod 600 %s", path),
		}
	}
	return DiagResult{Name: "config", Status: StatusOK, Message: path}
}

// RunAll은 모든 진단을 실행한다.
func RunAll(ctx context.Context, cmd cmdexec.Commander, opts Options) []DiagResult {
	var results []DiagResult
	if opts.ConfigPath != "" {
		results = append(results, CheckConfig(opts.ConfigPath))
	}
	for _, r := range CheckBinaries(ctx, cmd, opts.Direnv, opts.Tmux) {
		if r.Name == "tmux" && r.Status == StatusWarn && opts.Mode == mux.ModeTmux {
			// multiplexer = "tmux"는 tmux를 필수로 선언한 것이다.
			r.Status = StatusFail
			r.Fix = "tmux 설치 또는 multiplexer = \"auto\""
		}
		results = append(results, r)
	}
	results = append(results, CheckStateDir(opts.StateDir))
	results = append(results, CheckMultiplexer(opts.Mux, opts.Mode))
	return results
}

// Failed는 results 중 StatusFail이 있으면 true다.
func Failed(results []DiagResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}
