package shell

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// ErrUnsupportedDialect는 알 수 없는 셸 이름이 주어졌을 때 반환된다.
var ErrUnsupportedDialect = errors.New("지원하지 않는 셸")

// Dialect는 변수 대입 문법을 결정하는 셸 종류다.
type Dialect string

const (
	Bash Dialect = "bash"
	Zsh  Dialect = "zsh"
	Sh   Dialect = "sh"
	Fish Dialect = "fish"
)

// 세션 변수 이름. hook 스니펫과 apply 명령이 공유한다.
const (
	EnvFileVar    = "__DIRENV_INSTANT_ENV_FILE"
	GenerationVar = "__DIRENV_INSTANT_GENERATION"
	ShellPIDVar   = "DIRENV_INSTANT_SHELL_PID"
	DefaultVar    = "DIRENV_INSTANT_SHELL"
)

// syntax는 셸별 대입/해제 문법과 hook 템플릿을 묶은 전략이다.
type syntax interface {
	export(name, value string) string
	unset(name string) string
	quote(s string) string
	hookTemplate() string
}

var dialects = map[Dialect]syntax{
	Bash: posixSyntax{hook: bashHook},
	Zsh:  posixSyntax{hook: zshHook},
	Sh:   posixSyntax{},
	Fish: fishSyntax{},
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseDialect는 셸 이름을 Dialect로 변환한다. 경로가 주어지면 basename을 사용한다.
func ParseDialect(name string) (Dialect, error) {
	n := strings.TrimSpace(name)
	if i := strings.LastIndex(n, "/"); i >= 0 {
		n = n[i+1:]
	}
	n = strings.TrimPrefix(n, "-") // login shell ($0 = -zsh)
	d := Dialect(strings.ToLower(n))
	if _, ok := dialects[d]; !ok {
		return "", fmt.Errorf("shell.ParseDialect: %q: %w", name, ErrUnsupportedDialect)
	}
	return d, nil
}

// DefaultDialect는 DIRENV_INSTANT_SHELL, 그다음 SHELL에서 셸을 추정한다. 실패하면 bash.
func DefaultDialect() Dialect {
	for _, key := range []string{DefaultVar, "SHELL"} {
		if d, err := ParseDialect(os.Getenv(key)); err == nil {
			return d
		}
	}
	return Bash
}

// Supported는 지원하는 셸 이름 목록이다.
func Supported() []string {
	names := make([]string, 0, len(dialects))
	for d := range dialects {
		names = append(names, string(d))
	}
	sort.Strings(names)
	return names
}

func syntaxFor(d Dialect) (syntax, error) {
	s, ok := dialects[d]
	if !ok {
		return nil, fmt.Errorf("shell: %q: %w", d, ErrUnsupportedDialect)
	}
	return s, nil
}

// posixSyntax는 bash, zsh, sh 공통 문법이다.
type posixSyntax struct {
	hook string
}

func (posixSyntax) export(name, value string) string {
	return "export " + name + "=" + posixQuote(value)
}

func (posixSyntax) unset(name string) string {
	return "unset " + name
}

func (posixSyntax) quote(s string) string {
	return posixQuote(s)
}

func (p posixSyntax) hookTemplate() string { return p.hook }

// posixQuote는 작은따옴표로 감싸고 내부 작은따옴표를 '\'' 로 바꾼다.
func posixQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// fishSyntax는 fish 문법이다. PATH류 변수는 리스트로 나눠 설정한다.
type fishSyntax struct{}

var fishPathVars = map[string]bool{
	"PATH":    true,
	"CDPATH":  true,
	"MANPATH": true,
}

func (fishSyntax) export(name, value string) string {
	if fishPathVars[name] {
		parts := strings.Split(value, ":")
		quoted := make([]string, len(parts))
		for i, p := range parts {
			quoted[i] = fishQuote(p)
		}
		return "set -gx " + name + " " + strings.Join(quoted, " ")
	}
	return "set -gx " + name + " " + fishQuote(value)
}

func (fishSyntax) unset(name string) string {
	return "set -e -g " + name
}

func (fishSyntax) quote(s string) string {
	return fishQuote(s)
}

func (fishSyntax) hookTemplate() string { return fishHook }

// fishQuote는 fish 작은따옴표 규칙(\\ 와 \' 만 이스케이프)을 따른다.
func fishQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}
