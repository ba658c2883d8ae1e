package cli

import (
	"fmt"

	"github.com/hbjs97/direnv-instant/internal/jobfile"
	"github.com/hbjs97/direnv-instant/internal/mux"
	"github.com/hbjs97/direnv-instant/internal/result"
	"github.com/hbjs97/direnv-instant/internal/session"
	"github.com/hbjs97/direnv-instant/internal/shell"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// statusReport는 status 명령의 YAML 출력이다.
type statusReport struct {
	Dir         string     `yaml:"dir"`
	Shell       string     `yaml:"shell"`
	Multiplexer string     `yaml:"multiplexer"`
	Attached    bool       `yaml:"attached"`
	Mode        string     `yaml:"mode"`
	StateDir    string     `yaml:"state_dir"`
	ResultFile  string     `yaml:"result_file"`
	Generation  string     `yaml:"generation,omitempty"`
	State       string     `yaml:"state"`
	Job         *jobReport `yaml:"job,omitempty"`
}

type jobReport struct {
	Generation string   `yaml:"generation"`
	Dir        string   `yaml:"dir"`
	Dialect    string   `yaml:"dialect"`
	CreatedAt  string   `yaml:"created_at"`
	Environ    []string `yaml:"environ,omitempty"`
}

func (a *App) newStatusCmd() *cobra.Command {
	var showEnv bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "현재 셸 세션의 로드 상태를 표시한다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd, showEnv)
		},
	}
	cmd.Flags().BoolVar(&showEnv, "env", false, "진행 중인 작업의 환경변수 스냅샷 출력 (비밀 값은 가림)")
	return cmd
}

func (a *App) runStatus(cmd *cobra.Command, showEnv bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	cwd, err := a.getwd()
	if err != nil {
		return fmt.Errorf("cli.status: %w", err)
	}
	m, err := mux.Detect(mux.Options{Mode: cfg.Multiplexer, Binary: cfg.Tmux}, a.Commander, a.getenv)
	if err != nil {
		return fmt.Errorf("cli.status: %w: %v", ErrConfig, err)
	}

	loc := session.NewLocator(cfg.StateDir)
	report := statusReport{
		Dir:         session.Canonical(cwd),
		Shell:       string(shell.DefaultDialect()),
		Multiplexer: m.Name(),
		Attached:    m.Attached(),
		Mode:        "sync",
		StateDir:    loc.Dir,
	}
	if report.Attached {
		report.Mode = "async"
	}

	// 진행 중인 로드가 있으면 그 결과 파일, 없으면 현재 디렉토리에 해당하는 경로.
	path := a.getenv(shell.EnvFileVar)
	generation := a.getenv(shell.GenerationVar)
	if path == "" {
		sc, _ := a.sessionContext()
		if path, err = loc.Resolve(cwd, sc); err != nil {
			return fmt.Errorf("cli.status: %w", err)
		}
	}
	report.ResultFile = path
	report.Generation = generation

	f, err := result.Read(path)
	if err != nil {
		report.State = "corrupt"
	} else {
		report.State = f.State.String()
		if generation != "" && (f.State == result.StatePopulated || f.State == result.StateFailed) && f.Generation != generation {
			report.State = result.StateStale.String()
		}
	}

	if job, err := jobfile.Load(path); err == nil {
		jr := &jobReport{
			Generation: job.Generation,
			Dir:        job.Dir,
			Dialect:    job.Dialect,
			CreatedAt:  job.CreatedAt,
		}
		if showEnv {
			jr.Environ = MaskEnviron(job.Environ)
		}
		report.Job = jr
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("cli.status: %w", err)
	}
	return enc.Close()
}
