package setup

// SupportedShells는 hook을 설치할 수 있는 셸 목록이다.
var SupportedShells = []string{"bash", "zsh", "fish"}

// FormRunner는 TUI 폼 실행을 추상화하는 interface다.
// 프로덕션에서는 huh 기반 구현, 테스트에서는 mock을 사용한다.
type FormRunner interface {
	// RunShellSelect는 hook을 설치할 셸 선택 UI를 표시한다. detected가 기본 선택이다.
	RunShellSelect(detected string, shells []string) (string, error)

	// RunMultiplexerSelect는 multiplexer 모드(auto, tmux, none) 선택 UI를 표시한다.
	// tmuxFound가 false이면 tmux가 설치되어 있지 않다는 안내를 함께 보여준다.
	RunMultiplexerSelect(current string, tmuxFound bool) (string, error)

	// RunConfirm은 확인 프롬프트를 표시한다.
	RunConfirm(message string) (bool, error)
}
