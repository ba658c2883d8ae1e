package shell

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// HookMarker는 rc 파일에 hook이 이미 설치되었는지 판별하는 문자열이다.
const HookMarker = "direnv-instant shell integration"

var bareWord = regexp.MustCompile(`^[A-Za-z0-9_./+-]+$`)

// HookSnippet은 셸 prompt hook이 source하는 스니펫을 반환한다.
// exe는 스니펫이 호출할 direnv-instant 실행 파일이다.
func HookSnippet(d Dialect, exe string) (string, error) {
	s, err := syntaxFor(d)
	if err != nil {
		return "", fmt.Errorf("shell.HookSnippet: %w", err)
	}
	text := s.hookTemplate()
	if text == "" {
		return "", fmt.Errorf("shell.HookSnippet: %s에는 prompt hook이 없습니다: %w", d, ErrUnsupportedDialect)
	}

	tmpl, err := template.New(string(d)).Parse(text)
	if err != nil {
		return "", fmt.Errorf("shell.HookSnippet: %w", err)
	}

	quoted := exe
	if !bareWord.MatchString(exe) {
		quoted = s.quote(exe)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, struct{ Exe string }{Exe: quoted}); err != nil {
		return "", fmt.Errorf("shell.HookSnippet: %w", err)
	}
	return b.String(), nil
}

const bashHook = `# direnv-instant shell integration (bash)
_direnv_instant_apply() {
  if [[ -n "${__DIRENV_INSTANT_ENV_FILE:-}" && -s "$__DIRENV_INSTANT_ENV_FILE" ]]; then
    eval "$({{.Exe}} apply bash)"
  fi
}
_direnv_instant_hook() {
  local previous_exit_status=$?
  _direnv_instant_apply
  eval "$(DIRENV_INSTANT_SHELL_PID="${DIRENV_INSTANT_SHELL_PID:-$$}" {{.Exe}} start bash)"
  return $previous_exit_status
}
trap -- '_direnv_instant_apply' USR1
if [[ ";${PROMPT_COMMAND:-};" != *";_direnv_instant_hook;"* ]]; then
  PROMPT_COMMAND="_direnv_instant_hook${PROMPT_COMMAND:+;$PROMPT_COMMAND}"
fi
_direnv_instant_hook
`

const zshHook = `# direnv-instant shell integration (zsh)
_direnv_instant_apply() {
  if [[ -n "${__DIRENV_INSTANT_ENV_FILE:-}" && -s "$__DIRENV_INSTANT_ENV_FILE" ]]; then
    eval "$({{.Exe}} apply zsh)"
  fi
}
_direnv_instant_precmd() {
  _direnv_instant_apply
  eval "$(DIRENV_INSTANT_SHELL_PID="${DIRENV_INSTANT_SHELL_PID:-$$}" {{.Exe}} start zsh)"
}
TRAPUSR1() {
  _direnv_instant_apply
  zle && zle reset-prompt
  return 0
}
typeset -ag precmd_functions
if (( ! ${precmd_functions[(I)_direnv_instant_precmd]} )); then
  precmd_functions=(_direnv_instant_precmd $precmd_functions)
fi
_direnv_instant_precmd
`

const fishHook = `# direnv-instant shell integration (fish)
function __direnv_instant_apply
    if set -q __DIRENV_INSTANT_ENV_FILE; and test -s "$__DIRENV_INSTANT_ENV_FILE"
        {{.Exe}} apply fish | source
    end
end
function __direnv_instant_prompt --on-event fish_prompt
    __direnv_instant_apply
    set -l pid $fish_pid
    if set -q DIRENV_INSTANT_SHELL_PID
        set pid $DIRENV_INSTANT_SHELL_PID
    end
    env DIRENV_INSTANT_SHELL_PID=$pid {{.Exe}} start fish | source
end
function __direnv_instant_signal --on-signal SIGUSR1
    __direnv_instant_apply
    commandline -f repaint 2>/dev/null
end
__direnv_instant_prompt
`
