package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/hbjs97/direnv-instant/internal/cmdexec"
	"github.com/hbjs97/direnv-instant/internal/dispatch"
	"github.com/hbjs97/direnv-instant/internal/setup"
)

// App은 CLI가 사용하는 외부 의존성을 담는다. 테스트는 필드를 교체한다.
type App struct {
	Commander cmdexec.Commander
	CfgPath   string

	// 아래 필드가 nil이면 os 패키지의 구현을 사용한다.
	Getenv     func(string) string
	Environ    func() []string
	Executable func() (string, error)
	Getwd      func() (string, error)
	Getppid    func() int
	Notify     func(pid int) error
	FormRunner setup.FormRunner

	verbose bool
	logger  *slog.Logger
}

// NewApp은 실제 프로세스 실행을 사용하는 App을 만든다.
func NewApp() *App {
	return &App{Commander: &cmdexec.RealCommander{}}
}

func (a *App) getenv(key string) string {
	if a.Getenv != nil {
		return a.Getenv(key)
	}
	return os.Getenv(key)
}

func (a *App) environ() []string {
	if a.Environ != nil {
		return a.Environ()
	}
	return os.Environ()
}

// executable은 hook과 작업 명령에 넣을 자기 자신의 경로다.
func (a *App) executable() string {
	get := a.Executable
	if get == nil {
		get = os.Executable
	}
	exe, err := get()
	if err != nil || exe == "" {
		return "direnv-instant"
	}
	return exe
}

func (a *App) getwd() (string, error) {
	if a.Getwd != nil {
		return a.Getwd()
	}
	return os.Getwd()
}

func (a *App) getppid() int {
	if a.Getppid != nil {
		return a.Getppid()
	}
	return os.Getppid()
}

func (a *App) notifier() func(int) error {
	if a.Notify != nil {
		return a.Notify
	}
	return dispatch.NotifyShell
}

func (a *App) formRunner() setup.FormRunner {
	if a.FormRunner != nil {
		return a.FormRunner
	}
	return &setup.HuhFormRunner{}
}

// initLogger는 w로 향하는 slog 로거를 만든다. 기본은 경고 이상, --verbose면 debug.
func (a *App) initLogger(w io.Writer) {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (a *App) log() *slog.Logger {
	if a.logger == nil {
		a.initLogger(os.Stderr)
	}
	return a.logger
}
