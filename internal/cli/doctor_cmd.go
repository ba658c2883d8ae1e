package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/hbjs97/direnv-instant/internal/doctor"
	"github.com/hbjs97/direnv-instant/internal/mux"
	"github.com/spf13/cobra"
)

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	fixStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func (a *App) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "환경 설정을 진단한다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDoctor(cmd)
		},
	}
}

func (a *App) runDoctor(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	opts := doctor.Options{ConfigPath: a.CfgPath, Mode: mux.ModeAuto}

	cfg, err := a.loadConfig()
	if err != nil {
		// 설정이 깨져도 나머지 진단은 기본값으로 계속한다.
		fmt.Fprintf(out, "  [%s] config: %v\n", failStyle.Render("FAIL"), err)
		fmt.Fprintf(out, "      %s\n", fixStyle.Render("Fix: direnv-instant setup 실행 또는 설정 파일 확인"))
		opts.ConfigPath = ""
	} else {
		opts.Direnv = cfg.Direnv
		opts.Tmux = cfg.Tmux
		opts.StateDir = cfg.StateDir
		opts.Mode = cfg.Multiplexer
	}

	m, err := mux.Detect(mux.Options{Mode: opts.Mode, Binary: opts.Tmux}, a.Commander, a.getenv)
	if err != nil {
		m = mux.None{}
	}
	opts.Mux = m

	printDiagResults(out, doctor.RunAll(cmd.Context(), a.Commander, opts))
	return nil
}

// printDiagResults는 진단 결과 목록을 출력한다.
func printDiagResults(w io.Writer, results []doctor.DiagResult) {
	for _, r := range results {
		fmt.Fprintf(w, "  [%s] %s: %s\n", statusIcon(r.Status), r.Name, r.Message)
		if r.Fix != "" {
			fmt.Fprintf(w, "      %s\n", fixStyle.Render("Fix: "+r.Fix))
		}
	}
}

func statusIcon(s doctor.Status) string {
	switch s {
	case doctor.StatusOK:
		return okStyle.Render("OK")
	case doctor.StatusWarn:
		return warnStyle.Render("!!")
	case doctor.StatusFail:
		return failStyle.Render("FAIL")
	default:
		return "??"
	}
}
