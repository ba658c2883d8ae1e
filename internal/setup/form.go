package setup

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// HuhFormRunner는 charmbracelet/huh 기반의 FormRunner 구현이다.
type HuhFormRunner struct{}

var _ FormRunner = (*HuhFormRunner)(nil)

// RunShellSelect는 셸 선택 UI를 표시한다.
func (h *HuhFormRunner) RunShellSelect(detected string, shells []string) (string, error) {
	selected := detected
	options := make([]huh.Option[string], len(shells))
	for i, s := range shells {
		options[i] = huh.NewOption(s, s).Selected(s == detected)
	}

	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("hook을 설치할 셸을 선택하세요").
			Options(options...).
			Value(&selected),
	))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("setup.RunShellSelect: %w", err)
	}
	return selected, nil
}

// RunMultiplexerSelect는 multiplexer 모드 선택 UI를 표시한다.
func (h *HuhFormRunner) RunMultiplexerSelect(current string, tmuxFound bool) (string, error) {
	selected := current
	desc := "tmux 안에서는 .envrc를 백그라운드 창에서 로드합니다"
	if !tmuxFound {
		desc = "tmux를 찾지 못했습니다. 설치 전까지는 항상 동기 로드입니다"
	}

	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("비동기 로드 방식").
			Description(desc).
			Options(
				huh.NewOption("자동 (tmux 안이면 비동기)", "auto"),
				huh.NewOption("tmux", "tmux"),
				huh.NewOption("사용 안 함 (항상 동기)", "none"),
			).
			Value(&selected),
	))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("setup.RunMultiplexerSelect: %w", err)
	}
	return selected, nil
}

// RunConfirm은 확인 프롬프트를 표시한다.
func (h *HuhFormRunner) RunConfirm(message string) (bool, error) {
	confirm := true
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(message).Value(&confirm),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("setup.RunConfirm: %w", err)
	}
	return confirm, nil
}
