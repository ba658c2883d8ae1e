package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hbjs97/direnv-instant/internal/config"
	"github.com/hbjs97/direnv-instant/internal/dispatch"
	"github.com/hbjs97/direnv-instant/internal/jobfile"
	"github.com/hbjs97/direnv-instant/internal/loader"
	"github.com/hbjs97/direnv-instant/internal/mux"
	"github.com/hbjs97/direnv-instant/internal/result"
	"github.com/hbjs97/direnv-instant/internal/session"
	"github.com/hbjs97/direnv-instant/internal/shell"
	"github.com/hbjs97/direnv-instant/internal/watch"
	"github.com/spf13/cobra"
)

func (a *App) newStartCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:     "start [bash|zsh|fish|sh]",
		Aliases: []string{"export"},
		Short:   "현재 디렉토리의 .envrc를 로드한다 (tmux 안이면 백그라운드)",
		Long: `tmux 밖에서는 direnv를 바로 실행하고 대입문을 출력한다.
tmux 안에서는 백그라운드 창에서 로드를 시작하고 결과 파일 경로만 출력한다.
결과는 hook이 apply로 적용한다. hook은 매 프롬프트마다 start를 호출하며,
tmux 안에서는 .envrc와 감시 파일이 그대로이면 아무것도 하지 않는다.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStart(cmd, args, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "로드할 디렉토리 (기본: 현재 디렉토리)")
	return cmd
}

func (a *App) runStart(cmd *cobra.Command, args []string, dir string) error {
	d, err := dialectArg(args)
	if err != nil {
		return err
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	disp, err := a.newDispatcher(cfg)
	if err != nil {
		return err
	}
	if dir == "" {
		if dir, err = a.getwd(); err != nil {
			return fmt.Errorf("cli.start: %w", err)
		}
	}

	sc, notifyPID := a.sessionContext()
	if !cfg.IsNotify() {
		notifyPID = 0
	}
	if !a.needsLoad(disp, dir, sc) {
		a.log().Debug("다시 로드할 필요 없음", "dir", dir)
		return nil
	}
	out, err := disp.Dispatch(cmd.Context(), dispatch.Request{
		Dir:       dir,
		Dialect:   d,
		Session:   sc,
		Environ:   loaderEnviron(a.environ()),
		NotifyPID: notifyPID,
	})

	if out != nil {
		a.discardPrevious(disp.Locator.Dir, out.Path)
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if err != nil {
		if out != nil && len(out.Stderr) > 0 {
			stderr.Write(out.Stderr)
			return reported(err)
		}
		return err
	}

	if out.Async {
		vars, err := shell.FormatSessionVars(d, out.Path, out.Generation)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, vars)
		return nil
	}

	stderr.Write(out.Stderr)
	fmt.Fprint(stdout, out.Script)
	// 이전 비동기 로드의 세션 변수가 남아있으면 해제한다.
	if a.getenv(shell.EnvFileVar) != "" {
		unsetVars, err := shell.FormatClearSessionVars(d)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, unsetVars)
	}
	return nil
}

func (a *App) newDispatcher(cfg *config.Config) (*dispatch.Dispatcher, error) {
	m, err := mux.Detect(mux.Options{
		Mode:       cfg.Multiplexer,
		Binary:     cfg.Tmux,
		WindowName: cfg.WindowName,
	}, a.Commander, a.getenv)
	if err != nil {
		return nil, fmt.Errorf("cli: %w: %v", ErrConfig, err)
	}

	exe := a.executable()
	cfgPath := a.CfgPath
	direnv := cfg.Direnv
	return &dispatch.Dispatcher{
		Loader:  loader.New(a.Commander, cfg.Direnv),
		Locator: session.NewLocator(cfg.StateDir),
		Mux:     m,
		JobArgv: func(path, generation string) []string {
			return []string{exe, "job", "--config", cfgPath, "--direnv", direnv, "--path", path, "--generation", generation}
		},
		SyncTimeout: cfg.SyncTimeout.Duration,
		Logger:      a.log(),
	}, nil
}

// needsLoad는 이번 프롬프트에서 로드를 시작해야 하는지 판단한다.
// 동기 모드는 direnv가 직접 변경 여부를 판단하므로 항상 true다.
// 비동기 모드는 같은 디렉토리의 로드가 진행 중이거나, .envrc와 감시 파일이 그대로이거나,
// 마지막 실패 이후 입력이 바뀌지 않았으면 창을 띄우지 않는다.
func (a *App) needsLoad(disp *dispatch.Dispatcher, dir string, sc session.Context) bool {
	if disp.Mux == nil || !disp.Mux.Attached() {
		return true
	}
	if pending := a.getenv(shell.EnvFileVar); pending != "" {
		if job, err := jobfile.Load(pending); err == nil {
			return session.Canonical(job.Dir) != session.Canonical(dir)
		}
	}
	if !watch.NeedsReload(a.getenv, dir) {
		return false
	}
	path, err := disp.Locator.Resolve(dir, sc)
	if err != nil {
		return true
	}
	return !watch.FailedUnchanged(path, watch.Fingerprint(a.getenv, dir))
}

// discardPrevious는 셸이 기다리던 이전 결과 파일이 새 로드의 것과 다르면 지운다.
// 작업 파일에는 환경변수 스냅샷이 담기므로 남겨두지 않는다. 상태 디렉토리 밖의 경로는 건드리지 않는다.
func (a *App) discardPrevious(stateDir, current string) {
	old := a.getenv(shell.EnvFileVar)
	if old == "" || old == current {
		return
	}
	if filepath.Dir(old) != filepath.Clean(stateDir) || filepath.Ext(old) != ".env" {
		return
	}
	if err := result.Remove(old); err != nil {
		a.log().Debug("이전 결과 파일 정리 실패", "path", old, "err", err)
	}
	if err := watch.ClearFailure(old); err != nil {
		a.log().Debug("이전 실패 기록 정리 실패", "path", old, "err", err)
	}
}

// sessionContext는 세션 식별 정보와 알림 대상 PID를 반환한다.
// 알림은 hook이 DIRENV_INSTANT_SHELL_PID로 셸 PID를 명시했을 때만 보낸다.
func (a *App) sessionContext() (session.Context, int) {
	sc := session.ContextFromEnv(a.getenv, a.getppid())
	pid, err := strconv.Atoi(a.getenv(shell.ShellPIDVar))
	if err != nil || pid <= 0 {
		return sc, 0
	}
	return sc, pid
}

// loaderEnviron은 셸 환경에서 direnv-instant 자신의 세션 변수를 뺀다.
func loaderEnviron(environ []string) []string {
	out := make([]string, 0, len(environ))
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		switch name {
		case shell.EnvFileVar, shell.GenerationVar, shell.ShellPIDVar:
			continue
		}
		out = append(out, kv)
	}
	return out
}
